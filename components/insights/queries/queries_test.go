package queries

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-insights/components/insights"
)

type echoClient struct{}

func (echoClient) FetchAnalytics(_ context.Context, handle string) (insights.AnalysisResult, error) {
	return insights.AnalysisResult{Profile: insights.Profile{Username: handle, Followers: 1500}}, nil
}

func TestSnapshotQuery(t *testing.T) {
	service := insights.NewService(insights.Options{Client: echoClient{}})
	_, err := service.Analyze(context.Background(), "s1", "natgeo")
	require.NoError(t, err)

	snap, err := NewSnapshotQuery(service).Query(context.Background(), insights.ViewerContext{SessionID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, insights.StateReady, snap.State)
	assert.Equal(t, "natgeo", snap.Handle)
}

func TestSnapshotQueryUnknownSessionIsIdle(t *testing.T) {
	service := insights.NewService(insights.Options{Client: echoClient{}})
	snap, err := NewSnapshotQuery(service).Query(context.Background(), insights.ViewerContext{SessionID: "fresh"})
	require.NoError(t, err)
	assert.Equal(t, insights.StateIdle, snap.State)
	assert.False(t, snap.HasResult())
}

func TestPageQuery(t *testing.T) {
	service := insights.NewService(insights.Options{Client: echoClient{}})
	controller := insights.NewController(insights.ControllerOptions{Service: service})

	page, err := NewPageQuery(controller).Query(context.Background(), insights.ViewerContext{SessionID: "s1", Locale: "en"})
	require.NoError(t, err)
	require.NotNil(t, page.Landing)
	assert.Nil(t, page.Dashboard)
	assert.True(t, page.Landing.SubmitDisabled)

	_, err = service.Analyze(context.Background(), "s1", "natgeo")
	require.NoError(t, err)
	page, err = NewPageQuery(controller).Query(context.Background(), insights.ViewerContext{SessionID: "s1", Locale: "en"})
	require.NoError(t, err)
	require.NotNil(t, page.Dashboard)
	assert.Equal(t, "1,500", page.Dashboard.Profile.Followers)
}
