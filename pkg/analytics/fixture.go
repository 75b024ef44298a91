package analytics

import (
	"context"
	"fmt"
	"io"

	json "github.com/goccy/go-json"

	"github.com/goliatone/go-insights/components/insights"
)

// fixtureProbeHandle stands in for the echoed handle while validating.
const fixtureProbeHandle = "fixture"

// ValidateResult checks a decoded result against the payload schema.
func (v *PayloadValidator) ValidateResult(result insights.AnalysisResult) error {
	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return v.Validate(body)
}

// ValidateFixture decodes a mock fixture and checks that what the mock
// client would serve satisfies the webhook payload schema.
func ValidateFixture(r io.Reader) error {
	client, err := NewMockClientFromReader(r)
	if err != nil {
		return err
	}
	validator, err := NewPayloadValidator()
	if err != nil {
		return err
	}
	result, err := client.FetchAnalytics(context.Background(), fixtureProbeHandle)
	if err != nil {
		return err
	}
	if err := validator.ValidateResult(result); err != nil {
		return fmt.Errorf("analytics: fixture: %w", err)
	}
	return nil
}
