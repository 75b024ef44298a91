package analytics

import (
	"net/http"

	"github.com/goliatone/go-insights/components/insights"
)

// Doer is the subset of *http.Client used by the webhook client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

var (
	_ insights.Client = (*WebhookClient)(nil)
	_ insights.Client = (*MockClient)(nil)
)
