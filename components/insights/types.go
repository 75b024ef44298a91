package insights

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ettle/strcase"
	"gopkg.in/yaml.v3"
)

// Client fetches the analytics payload for a single handle. Implementations
// perform at most one upstream call per invocation.
type Client interface {
	FetchAnalytics(ctx context.Context, handle string) (AnalysisResult, error)
}

// SessionStore keeps the per-browser controllers alive between requests.
type SessionStore interface {
	Get(ctx context.Context, id string) (*Session, error)
	GetOrCreate(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}

// RefreshHook notifies transports (WebSocket/SSE) about session transitions.
type RefreshHook interface {
	SessionUpdated(ctx context.Context, event StateEvent) error
}

// ContentType is the closed set of post formats reported by the webhook.
type ContentType string

const (
	ContentTypeImage    ContentType = "IMAGE"
	ContentTypeVideo    ContentType = "VIDEO"
	ContentTypeCarousel ContentType = "CAROUSEL"
)

// Valid reports whether the content type belongs to the known set.
func (c ContentType) Valid() bool {
	switch c {
	case ContentTypeImage, ContentTypeVideo, ContentTypeCarousel:
		return true
	default:
		return false
	}
}

// Slug is the lowercase kebab form used for CSS hooks ("CAROUSEL" -> "carousel").
func (c ContentType) Slug() string {
	return strcase.ToKebab(strings.ToLower(string(c)))
}

// Count is a whole-number tally. Upstream workflows may encode counts as
// floats (12500.0), so any JSON or YAML number is accepted and rounded.
type Count int64

// UnmarshalJSON accepts integers, floats and null.
func (c *Count) UnmarshalJSON(data []byte) error {
	return c.parse(strings.TrimSpace(string(data)))
}

// UnmarshalYAML accepts integers, floats and null.
func (c *Count) UnmarshalYAML(node *yaml.Node) error {
	if node.Tag == "!!null" {
		return nil
	}
	return c.parse(strings.TrimSpace(node.Value))
}

func (c *Count) parse(raw string) error {
	if raw == "" || raw == "null" || raw == "~" {
		return nil
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*c = Count(n)
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("insights: count %q is not a number", raw)
	}
	*c = Count(math.Round(f))
	return nil
}

// Profile describes the analyzed account.
type Profile struct {
	Username      string `json:"username" yaml:"username"`
	FullName      string `json:"fullName" yaml:"fullName"`
	Bio           string `json:"bio" yaml:"bio"`
	ProfilePicURL string `json:"profilePicUrl" yaml:"profilePicUrl"`
	Followers     Count  `json:"followers" yaml:"followers"`
	Following     Count  `json:"following" yaml:"following"`
	PostsCount    Count  `json:"postsCount" yaml:"postsCount"`
	IsVerified    bool   `json:"isVerified" yaml:"isVerified"`
}

// Post is a single piece of recent content. Timestamp is kept as supplied.
type Post struct {
	ID        string      `json:"id" yaml:"id"`
	ImageURL  string      `json:"imageUrl" yaml:"imageUrl"`
	Likes     Count       `json:"likes" yaml:"likes"`
	Comments  Count       `json:"comments" yaml:"comments"`
	Timestamp string      `json:"timestamp" yaml:"timestamp"`
	Caption   string      `json:"caption" yaml:"caption"`
	Type      ContentType `json:"type" yaml:"type"`
}

// EngagementPoint is one (date label, value) entry of the engagement history.
type EngagementPoint struct {
	Date  string  `json:"date" yaml:"date"`
	Value float64 `json:"value" yaml:"value"`
}

// DistributionEntry is one category share of the content-type distribution.
type DistributionEntry struct {
	Name  string  `json:"name" yaml:"name"`
	Value float64 `json:"value" yaml:"value"`
}

// AnalyticsSummary carries the metrics precomputed by the upstream service.
type AnalyticsSummary struct {
	AvgLikes                float64             `json:"avgLikes" yaml:"avgLikes"`
	AvgComments             float64             `json:"avgComments" yaml:"avgComments"`
	EngagementRate          float64             `json:"engagementRate" yaml:"engagementRate"`
	BestPost                Post                `json:"bestPost" yaml:"bestPost"`
	HistoricalEngagement    []EngagementPoint   `json:"historicalEngagement" yaml:"historicalEngagement"`
	ContentTypeDistribution []DistributionEntry `json:"contentTypeDistribution" yaml:"contentTypeDistribution"`
}

// AnalysisResult is the atomic unit exchanged between the client and the views.
type AnalysisResult struct {
	Profile   Profile          `json:"profile" yaml:"profile"`
	Posts     []Post           `json:"posts" yaml:"posts"`
	Analytics AnalyticsSummary `json:"analytics" yaml:"analytics"`
}

// Clone returns a deep copy so views can never mutate a stored result.
func (r AnalysisResult) Clone() AnalysisResult {
	out := r
	out.Posts = append([]Post(nil), r.Posts...)
	out.Analytics.HistoricalEngagement = append([]EngagementPoint(nil), r.Analytics.HistoricalEngagement...)
	out.Analytics.ContentTypeDistribution = append([]DistributionEntry(nil), r.Analytics.ContentTypeDistribution...)
	return out
}

// WebhookRequest is the body POSTed to the automation webhook.
type WebhookRequest struct {
	Username  string `json:"username"`
	Timestamp string `json:"timestamp"`
	RequestID string `json:"request_id"`
}

// NewWebhookRequest stamps a request for the given handle.
func NewWebhookRequest(handle string, now time.Time, requestID string) WebhookRequest {
	return WebhookRequest{
		Username:  handle,
		Timestamp: now.UTC().Format(time.RFC3339Nano),
		RequestID: requestID,
	}
}

// StateEvent describes a session transition that transports might care about.
type StateEvent struct {
	SessionID  string `json:"session_id"`
	State      State  `json:"state"`
	Generation uint64 `json:"generation"`
	Reason     string `json:"reason"`
}

// ViewerContext captures the locale used for number formatting.
type ViewerContext struct {
	SessionID string
	Locale    string
}
