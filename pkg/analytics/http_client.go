package analytics

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/goliatone/go-insights/components/insights"
	"github.com/goliatone/go-insights/pkg/logging"
)

const (
	defaultTimeout  = 30 * time.Second
	maxResponseBody = 10 << 20
)

// WebhookConfig configures the webhook analytics client.
type WebhookConfig struct {
	URL          string
	APIKey       string
	Timeout      time.Duration
	StrictSchema bool
	HTTPClient   Doer
	Now          func() time.Time
	RequestID    func() string
}

// WebhookClient asks the automation webhook for one handle's analytics.
type WebhookClient struct {
	url       string
	apiKey    string
	client    Doer
	validator *PayloadValidator
	now       func() time.Time
	requestID func() string
}

// NewWebhookClient builds a client for the configured endpoint.
func NewWebhookClient(cfg WebhookConfig) (*WebhookClient, error) {
	endpoint := strings.TrimSpace(cfg.URL)
	if endpoint == "" {
		return nil, fmt.Errorf("analytics: webhook url is required")
	}
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("analytics: parse webhook url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("analytics: webhook url must be http or https, got %q", parsed.Scheme)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	client := &WebhookClient{
		url:       endpoint,
		apiKey:    cfg.APIKey,
		client:    httpClient,
		now:       cfg.Now,
		requestID: cfg.RequestID,
	}
	if client.now == nil {
		client.now = time.Now
	}
	if client.requestID == nil {
		client.requestID = uuid.NewString
	}
	if cfg.StrictSchema {
		validator, err := NewPayloadValidator()
		if err != nil {
			return nil, err
		}
		client.validator = validator
	}
	return client, nil
}

// FetchAnalytics POSTs a WebhookRequest and returns the decoded payload as-is.
func (c *WebhookClient) FetchAnalytics(ctx context.Context, handle string) (insights.AnalysisResult, error) {
	payload := insights.NewWebhookRequest(handle, c.now(), c.requestID())
	body, err := json.Marshal(payload)
	if err != nil {
		return insights.AnalysisResult{}, fmt.Errorf("analytics: encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return insights.AnalysisResult{}, fmt.Errorf("analytics: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	logging.Ctx(ctx).Debug().Str("handle", handle).Str("request_id", payload.RequestID).Msg("webhook request")
	resp, err := c.client.Do(req)
	if err != nil {
		return insights.AnalysisResult{}, &insights.TransportError{Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBody))
		return insights.AnalysisResult{}, &insights.RemoteServiceError{
			StatusCode: resp.StatusCode,
			Status:     statusText(resp),
		}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return insights.AnalysisResult{}, &insights.TransportError{Cause: err}
	}
	if c.validator != nil {
		if err := c.validator.Validate(raw); err != nil {
			return insights.AnalysisResult{}, &insights.RemoteServiceError{
				StatusCode: resp.StatusCode,
				Status:     statusText(resp),
				Detail:     err.Error(),
			}
		}
	}
	var result insights.AnalysisResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return insights.AnalysisResult{}, &insights.RemoteServiceError{
			StatusCode: resp.StatusCode,
			Status:     statusText(resp),
			Detail:     "invalid JSON payload: " + err.Error(),
		}
	}
	return result, nil
}

// statusText strips the numeric prefix from resp.Status ("500 Internal Server Error").
func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}
