package analytics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-insights/components/insights"
)

const webhookPayload = `{
  "profile": {"username": "natgeo", "fullName": "National Geographic", "bio": "", "profilePicUrl": "https://example.com/a.png",
    "followers": 10, "following": 2, "postsCount": 1, "isVerified": false},
  "posts": [{"id": "p1", "imageUrl": "https://example.com/p1.png", "likes": 5, "comments": 1, "timestamp": "2025-01-01", "caption": "hi", "type": "IMAGE"}],
  "analytics": {"avgLikes": 5, "avgComments": 1, "engagementRate": 2.5,
    "bestPost": {"id": "p1", "imageUrl": "https://example.com/p1.png", "likes": 5, "comments": 1, "timestamp": "2025-01-01", "caption": "hi", "type": "IMAGE"},
    "historicalEngagement": [{"date": "Jan 01", "value": 2.5}],
    "contentTypeDistribution": [{"name": "Images", "value": 100}]}
}`

func TestWebhookClientPostsHandleAndDecodesResult(t *testing.T) {
	var captured insights.WebhookRequest
	var headers http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("expected POST, got %s", r.Method)
		}
		headers = r.Header.Clone()
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(webhookPayload))
	}))
	defer srv.Close()

	fixed := time.Date(2025, 1, 20, 10, 30, 0, 0, time.UTC)
	client, err := NewWebhookClient(WebhookConfig{
		URL:       srv.URL,
		APIKey:    "secret",
		Now:       func() time.Time { return fixed },
		RequestID: func() string { return "req-1" },
	})
	require.NoError(t, err)

	result, err := client.FetchAnalytics(context.Background(), "natgeo")
	require.NoError(t, err)

	assert.Equal(t, "natgeo", captured.Username)
	assert.Equal(t, "req-1", captured.RequestID)
	assert.Equal(t, fixed.Format(time.RFC3339Nano), captured.Timestamp)
	assert.Equal(t, "application/json", headers.Get("Content-Type"))
	assert.Equal(t, "Bearer secret", headers.Get("Authorization"))

	assert.Equal(t, "National Geographic", result.Profile.FullName)
	require.Len(t, result.Posts, 1)
	assert.Equal(t, insights.ContentTypeImage, result.Posts[0].Type)
	assert.Equal(t, 2.5, result.Analytics.EngagementRate)
}

func TestWebhookClientOmitsAuthorizationWithoutKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "" {
			t.Fatalf("expected no authorization header, got %q", got)
		}
		_, _ = w.Write([]byte(webhookPayload))
	}))
	defer srv.Close()

	client, err := NewWebhookClient(WebhookConfig{URL: srv.URL})
	require.NoError(t, err)
	_, err = client.FetchAnalytics(context.Background(), "natgeo")
	require.NoError(t, err)
}

func TestWebhookClientMapsNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, err := NewWebhookClient(WebhookConfig{URL: srv.URL})
	require.NoError(t, err)

	_, err = client.FetchAnalytics(context.Background(), "natgeo")
	var remote *insights.RemoteServiceError
	if !errors.As(err, &remote) {
		t.Fatalf("expected RemoteServiceError, got %T %v", err, err)
	}
	assert.Equal(t, http.StatusInternalServerError, remote.StatusCode)
	assert.Equal(t, "webhook API error: Internal Server Error", err.Error())
}

func TestWebhookClientRejectsMalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"profile":`))
	}))
	defer srv.Close()

	client, err := NewWebhookClient(WebhookConfig{URL: srv.URL})
	require.NoError(t, err)

	_, err = client.FetchAnalytics(context.Background(), "natgeo")
	var remote *insights.RemoteServiceError
	require.ErrorAs(t, err, &remote)
	assert.Contains(t, remote.Detail, "invalid JSON payload")
}

func TestWebhookClientReturnsPayloadAsDecoded(t *testing.T) {
	payload := strings.NewReplacer(
		`"followers": 10`, `"followers": 12500.0`,
		`"following": 2`, `"following": 2e2`,
		`"likes": 5, "comments": 1`, `"likes": 5.0, "comments": 1`,
	).Replace(webhookPayload)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(payload))
	}))
	defer srv.Close()

	client, err := NewWebhookClient(WebhookConfig{URL: srv.URL})
	require.NoError(t, err)
	result, err := client.FetchAnalytics(context.Background(), "natgeo")
	require.NoError(t, err)

	post := insights.Post{
		ID: "p1", ImageURL: "https://example.com/p1.png", Likes: 5, Comments: 1,
		Timestamp: "2025-01-01", Caption: "hi", Type: insights.ContentTypeImage,
	}
	expected := insights.AnalysisResult{
		Profile: insights.Profile{
			Username: "natgeo", FullName: "National Geographic", ProfilePicURL: "https://example.com/a.png",
			Followers: 12500, Following: 200, PostsCount: 1,
		},
		Posts: []insights.Post{post},
		Analytics: insights.AnalyticsSummary{
			AvgLikes: 5, AvgComments: 1, EngagementRate: 2.5, BestPost: post,
			HistoricalEngagement:    []insights.EngagementPoint{{Date: "Jan 01", Value: 2.5}},
			ContentTypeDistribution: []insights.DistributionEntry{{Name: "Images", Value: 100}},
		},
	}
	assert.Equal(t, expected, result)
}

type failingDoer struct{ err error }

func (d failingDoer) Do(*http.Request) (*http.Response, error) { return nil, d.err }

func TestWebhookClientWrapsTransportFailures(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	client, err := NewWebhookClient(WebhookConfig{URL: "http://127.0.0.1:1/hook", HTTPClient: failingDoer{err: cause}})
	require.NoError(t, err)

	_, err = client.FetchAnalytics(context.Background(), "natgeo")
	var transport *insights.TransportError
	require.ErrorAs(t, err, &transport)
	assert.ErrorIs(t, err, cause)
	assert.True(t, strings.HasPrefix(err.Error(), "webhook unreachable"))
}

func TestWebhookClientStrictSchema(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("bad") == "1" {
			_, _ = w.Write([]byte(`{"profile": {"username": "x"}, "posts": []}`))
			return
		}
		_, _ = w.Write([]byte(webhookPayload))
	}))
	defer srv.Close()

	client, err := NewWebhookClient(WebhookConfig{URL: srv.URL, StrictSchema: true})
	require.NoError(t, err)
	_, err = client.FetchAnalytics(context.Background(), "natgeo")
	require.NoError(t, err)

	bad, err := NewWebhookClient(WebhookConfig{URL: srv.URL + "?bad=1", StrictSchema: true})
	require.NoError(t, err)
	_, err = bad.FetchAnalytics(context.Background(), "natgeo")
	var remote *insights.RemoteServiceError
	require.ErrorAs(t, err, &remote)
	assert.Contains(t, remote.Detail, "schema validation")
}

func TestNewWebhookClientValidatesURL(t *testing.T) {
	_, err := NewWebhookClient(WebhookConfig{})
	require.Error(t, err)

	_, err = NewWebhookClient(WebhookConfig{URL: "ftp://example.com/hook"})
	require.Error(t, err)
}
