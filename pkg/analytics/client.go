package analytics

import (
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-insights/components/insights"
)

// Config selects and configures the analytics client.
type Config struct {
	WebhookURL   string
	APIKey       string
	Timeout      time.Duration
	StrictSchema bool
	FixturePath  string
}

// NewClient returns the webhook client when a URL is configured, otherwise
// the mock client. A malformed URL is an error, never a mock fallback.
func NewClient(cfg Config, logger zerolog.Logger) (insights.Client, error) {
	if strings.TrimSpace(cfg.WebhookURL) == "" {
		logger.Warn().Msg("N8N_WEBHOOK_URL not set, serving mock analytics")
		return newMock(cfg)
	}
	client, err := NewWebhookClient(WebhookConfig{
		URL:          cfg.WebhookURL,
		APIKey:       cfg.APIKey,
		Timeout:      cfg.Timeout,
		StrictSchema: cfg.StrictSchema,
	})
	if err != nil {
		return nil, err
	}
	logger.Info().Str("webhook", cfg.WebhookURL).Bool("strict_schema", cfg.StrictSchema).Msg("webhook analytics client ready")
	return client, nil
}

func newMock(cfg Config) (insights.Client, error) {
	if cfg.FixturePath != "" {
		return NewMockClientFromFile(cfg.FixturePath)
	}
	return NewMockClient(), nil
}
