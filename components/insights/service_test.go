package insights

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	mu      sync.Mutex
	handles []string
	err     error
	result  func(handle string) AnalysisResult
}

func (c *stubClient) FetchAnalytics(_ context.Context, handle string) (AnalysisResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handles = append(c.handles, handle)
	if c.err != nil {
		return AnalysisResult{}, c.err
	}
	if c.result != nil {
		return c.result(handle), nil
	}
	return AnalysisResult{Profile: Profile{Username: handle}}, nil
}

func (c *stubClient) calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.handles...)
}

// gatedClient blocks each call until its release channel is closed.
type gatedClient struct {
	mu    sync.Mutex
	gates map[string]chan struct{}
}

func newGatedClient(handles ...string) *gatedClient {
	c := &gatedClient{gates: map[string]chan struct{}{}}
	for _, h := range handles {
		c.gates[h] = make(chan struct{})
	}
	return c
}

func (c *gatedClient) FetchAnalytics(ctx context.Context, handle string) (AnalysisResult, error) {
	c.mu.Lock()
	gate := c.gates[handle]
	c.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return AnalysisResult{Profile: Profile{Username: handle}}, nil
}

func (c *gatedClient) release(handle string) {
	close(c.gates[handle])
}

type recordingTelemetry struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingTelemetry) Record(_ context.Context, event string, _ map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingTelemetry) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func TestServiceAnalyzeSuccess(t *testing.T) {
	client := &stubClient{}
	telemetry := &recordingTelemetry{}
	svc := NewService(Options{Client: client, Telemetry: telemetry})

	snap, err := svc.Analyze(context.Background(), "s1", "  spaced  ")
	require.NoError(t, err)
	assert.Equal(t, StateReady, snap.State)
	assert.Equal(t, "spaced", snap.Handle)
	assert.Equal(t, []string{"spaced"}, client.calls())
	assert.Equal(t, []string{"insights.analyze.start", "insights.analyze.success"}, telemetry.list())
}

func TestServiceAnalyzeFailure(t *testing.T) {
	client := &stubClient{err: &RemoteServiceError{StatusCode: 500, Status: "Internal Server Error"}}
	svc := NewService(Options{Client: client})

	snap, err := svc.Analyze(context.Background(), "s1", "natgeo")
	var remote *RemoteServiceError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, StateFailed, snap.State)
	assert.Equal(t, "webhook API error: Internal Server Error", snap.Error)
	assert.Nil(t, snap.Result)
}

func TestServiceRejectsEmptyHandleWithoutCallingClient(t *testing.T) {
	client := &stubClient{}
	svc := NewService(Options{Client: client})

	for _, handle := range []string{"", "   ", "\t\n"} {
		_, err := svc.Analyze(context.Background(), "s1", handle)
		if !IsValidation(err) {
			t.Fatalf("expected validation error for %q, got %v", handle, err)
		}
		_, err = svc.Start(context.Background(), "s1", handle)
		if !IsValidation(err) {
			t.Fatalf("expected validation error for %q, got %v", handle, err)
		}
	}
	assert.Empty(t, client.calls())
	snap, err := svc.Snapshot(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, StateIdle, snap.State)
}

func TestServiceRequiresClientAndSession(t *testing.T) {
	_, err := NewService(Options{}).Analyze(context.Background(), "s1", "natgeo")
	require.ErrorIs(t, err, errMissingClient)

	_, err = NewService(Options{Client: &stubClient{}}).Analyze(context.Background(), "", "natgeo")
	require.ErrorIs(t, err, errMissingSession)
}

func TestServiceStartTransitions(t *testing.T) {
	client := newGatedClient("natgeo")
	hook := NewBroadcastHook()
	events, cancel := hook.Subscribe("s1")
	defer cancel()
	svc := NewService(Options{Client: client, RefreshHook: hook})

	done, err := svc.Start(context.Background(), "s1", "natgeo")
	require.NoError(t, err)

	snap, err := svc.Snapshot(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, StateLoading, snap.State)
	assert.Equal(t, StateLoading, (<-events).State)

	client.release("natgeo")
	final, ok := <-done
	require.True(t, ok)
	assert.Equal(t, StateReady, final.State)
	assert.Equal(t, "natgeo", final.Result.Profile.Username)
	assert.Equal(t, StateReady, (<-events).State)

	_, ok = <-done
	assert.False(t, ok)
}

func TestServiceStartSurvivesRequestCancellation(t *testing.T) {
	client := newGatedClient("natgeo")
	svc := NewService(Options{Client: client})
	ctx, cancel := context.WithCancel(context.Background())

	done, err := svc.Start(ctx, "s1", "natgeo")
	require.NoError(t, err)
	cancel()
	client.release("natgeo")

	select {
	case snap := <-done:
		assert.Equal(t, StateReady, snap.State)
	case <-time.After(2 * time.Second):
		t.Fatalf("analysis did not finish")
	}
}

func TestServiceDropsStaleResponses(t *testing.T) {
	client := newGatedClient("first", "second")
	telemetry := &recordingTelemetry{}
	svc := NewService(Options{Client: client, Telemetry: telemetry})
	ctx := context.Background()

	firstDone, err := svc.Start(ctx, "s1", "first")
	require.NoError(t, err)
	secondDone, err := svc.Start(ctx, "s1", "second")
	require.NoError(t, err)

	client.release("second")
	snap := <-secondDone
	assert.Equal(t, "second", snap.Result.Profile.Username)

	client.release("first")
	<-firstDone
	snap, err = svc.Snapshot(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, StateReady, snap.State)
	assert.Equal(t, "second", snap.Result.Profile.Username)
	assert.Contains(t, telemetry.list(), "insights.analyze.stale")
}

func TestServiceResetDuringLoading(t *testing.T) {
	client := newGatedClient("natgeo")
	svc := NewService(Options{Client: client})
	ctx := context.Background()

	done, err := svc.Start(ctx, "s1", "natgeo")
	require.NoError(t, err)

	snap, err := svc.Reset(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, StateIdle, snap.State)

	client.release("natgeo")
	<-done
	snap, err = svc.Snapshot(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, StateIdle, snap.State)
	assert.Nil(t, snap.Result)
}

func TestServiceDismissKeepsState(t *testing.T) {
	client := &stubClient{err: errors.New("boom")}
	svc := NewService(Options{Client: client})
	ctx := context.Background()

	_, _ = svc.Analyze(ctx, "s1", "natgeo")
	snap, err := svc.DismissError(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, snap.Error)
	assert.Equal(t, StateIdle, snap.State)
	assert.Equal(t, "natgeo", snap.Handle)
}

// ctxLoggingClient logs through the logger carried by the request context.
type ctxLoggingClient struct{}

func (ctxLoggingClient) FetchAnalytics(ctx context.Context, handle string) (AnalysisResult, error) {
	zerolog.Ctx(ctx).Info().Msg("client called")
	return AnalysisResult{Profile: Profile{Username: handle}}, nil
}

func TestServiceLogsCarrySession(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	svc := NewService(Options{Client: ctxLoggingClient{}, Logger: &logger})

	_, err := svc.Analyze(context.Background(), "s-log", "natgeo")
	require.NoError(t, err)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 3)
	for _, line := range lines {
		assert.Contains(t, string(line), `"session":"s-log"`)
	}
	assert.Contains(t, string(lines[1]), "client called")
	assert.Contains(t, string(lines[2]), "analysis finished")
}

func TestNormalizeHandle(t *testing.T) {
	handle, err := NormalizeHandle("  natgeo ")
	require.NoError(t, err)
	assert.Equal(t, "natgeo", handle)

	_, err = NormalizeHandle(" ")
	require.True(t, IsValidation(err))
}
