package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-insights/components/insights"
)

type stubClient struct {
	err   error
	calls int
}

func (c *stubClient) FetchAnalytics(_ context.Context, handle string) (insights.AnalysisResult, error) {
	c.calls++
	if c.err != nil {
		return insights.AnalysisResult{}, c.err
	}
	return insights.AnalysisResult{Profile: insights.Profile{Username: handle}}, nil
}

type stubTelemetry struct {
	events []string
}

func (s *stubTelemetry) Record(_ context.Context, event string, _ map[string]any) {
	s.events = append(s.events, event)
}

func TestAnalyzeCommandWait(t *testing.T) {
	client := &stubClient{}
	service := insights.NewService(insights.Options{Client: client})
	telemetry := &stubTelemetry{}
	cmd := NewAnalyzeCommand(service, telemetry)

	err := cmd.Execute(context.Background(), AnalyzeInput{SessionID: "s1", Handle: " natgeo ", Wait: true})
	require.NoError(t, err)

	snap, err := service.Snapshot(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, insights.StateReady, snap.State)
	assert.Equal(t, "natgeo", snap.Result.Profile.Username)
	assert.Equal(t, []string{"insights.command.analyze"}, telemetry.events)
}

func TestAnalyzeCommandAsync(t *testing.T) {
	service := insights.NewService(insights.Options{Client: &stubClient{}})
	cmd := NewAnalyzeCommand(service, nil)

	require.NoError(t, cmd.Execute(context.Background(), AnalyzeInput{SessionID: "s1", Handle: "natgeo"}))

	assert.Eventually(t, func() bool {
		snap, err := service.Snapshot(context.Background(), "s1")
		return err == nil && snap.State == insights.StateReady
	}, time.Second, 5*time.Millisecond)
}

func TestAnalyzeCommandRejectsEmptyHandle(t *testing.T) {
	client := &stubClient{}
	telemetry := &stubTelemetry{}
	cmd := NewAnalyzeCommand(insights.NewService(insights.Options{Client: client}), telemetry)

	err := cmd.Execute(context.Background(), AnalyzeInput{SessionID: "s1", Handle: "   ", Wait: true})
	if !insights.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	assert.Zero(t, client.calls)
	assert.Empty(t, telemetry.events)
}

func TestAnalyzeCommandReturnsClientError(t *testing.T) {
	client := &stubClient{err: &insights.RemoteServiceError{StatusCode: 500, Status: "Internal Server Error"}}
	cmd := NewAnalyzeCommand(insights.NewService(insights.Options{Client: client}), nil)

	err := cmd.Execute(context.Background(), AnalyzeInput{SessionID: "s1", Handle: "natgeo", Wait: true})
	var remote *insights.RemoteServiceError
	require.True(t, errors.As(err, &remote))
}

func TestResetAndDismissCommands(t *testing.T) {
	client := &stubClient{err: errors.New("boom")}
	service := insights.NewService(insights.Options{Client: client})
	telemetry := &stubTelemetry{}
	ctx := context.Background()

	_, _ = service.Analyze(ctx, "s1", "natgeo")

	dismiss := NewDismissErrorCommand(service, telemetry)
	require.NoError(t, dismiss.Execute(ctx, DismissErrorInput{SessionID: "s1"}))
	snap, _ := service.Snapshot(ctx, "s1")
	assert.Empty(t, snap.Error)

	client.err = nil
	_, err := service.Analyze(ctx, "s1", "natgeo")
	require.NoError(t, err)

	reset := NewResetCommand(service, telemetry)
	require.NoError(t, reset.Execute(ctx, ResetInput{SessionID: "s1"}))
	snap, _ = service.Snapshot(ctx, "s1")
	assert.Equal(t, insights.StateIdle, snap.State)
	assert.Nil(t, snap.Result)

	assert.Equal(t, []string{"insights.command.dismiss", "insights.command.reset"}, telemetry.events)
}

func TestCommandsRequireService(t *testing.T) {
	ctx := context.Background()
	if err := NewAnalyzeCommand(nil, nil).Execute(ctx, AnalyzeInput{}); err == nil {
		t.Fatalf("expected error without service")
	}
	if err := NewResetCommand(nil, nil).Execute(ctx, ResetInput{}); err == nil {
		t.Fatalf("expected error without service")
	}
	if err := NewDismissErrorCommand(nil, nil).Execute(ctx, DismissErrorInput{}); err == nil {
		t.Fatalf("expected error without service")
	}
}
