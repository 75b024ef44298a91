package insights

import (
	"fmt"
	"math"
	"strings"
)

const (
	captionPreviewLimit = 120
	submitLabel         = "Analyze Now"
	notificationHeading = "Analysis Failed"
)

// PageView is everything a template needs to render one page. Exactly one
// of Landing and Dashboard is set.
type PageView struct {
	SessionID    string
	Locale       string
	Landing      *LandingView
	Dashboard    *DashboardView
	Notification *Notification
}

// Notification is the dismissible error banner.
type Notification struct {
	Heading string
	Message string
}

// LandingView drives the search form.
type LandingView struct {
	Handle         string
	Busy           bool
	SubmitDisabled bool
	SubmitLabel    string
}

// DashboardView is the rendered form of one AnalysisResult.
type DashboardView struct {
	Profile           ProfileHeader
	Metrics           []MetricCard
	EngagementChart   string
	DistributionChart string
	Legend            []LegendEntry
	Posts             []PostCard
}

// ProfileHeader holds the formatted profile fields.
type ProfileHeader struct {
	Handle      string
	DisplayName string
	Bio         string
	AvatarURL   string
	Verified    bool
	Followers   string
	Following   string
	Posts       string
}

// LegendEntry pairs a distribution category with its palette color.
type LegendEntry struct {
	Name  string
	Color string
}

// PostCard is a post prepared for display. Caption is untouched; only
// CaptionPreview is shortened.
type PostCard struct {
	ID             string
	ImageURL       string
	Type           string
	TypeSlug       string
	Caption        string
	CaptionPreview string
	Likes          string
	Comments       string
	Timestamp      string
}

// NewLandingView builds the form state. Submission stays disabled while a
// request is in flight or when the trimmed input is empty.
func NewLandingView(handle string, busy bool) LandingView {
	view := LandingView{
		Handle:         handle,
		Busy:           busy,
		SubmitDisabled: busy || strings.TrimSpace(handle) == "",
		SubmitLabel:    submitLabel,
	}
	if busy {
		view.SubmitLabel = ""
	}
	return view
}

// BuildPageView composes the page for a snapshot. A present result is
// authoritative: loading and error are not rendered alongside it.
func BuildPageView(snap Snapshot, viewer ViewerContext, renderer *ChartRenderer) (PageView, error) {
	page := PageView{
		SessionID: snap.SessionID,
		Locale:    viewer.Locale,
	}
	if snap.Result != nil {
		dashboard, err := BuildDashboardView(*snap.Result, viewer.Locale, renderer)
		if err != nil {
			return PageView{}, err
		}
		page.Dashboard = &dashboard
		return page, nil
	}
	landing := NewLandingView(snap.Handle, snap.Loading)
	page.Landing = &landing
	if snap.Error != "" && !snap.Loading {
		page.Notification = &Notification{Heading: notificationHeading, Message: snap.Error}
	}
	return page, nil
}

// BuildDashboardView renders a result. It never mutates or re-sorts its input.
func BuildDashboardView(result AnalysisResult, locale string, renderer *ChartRenderer) (DashboardView, error) {
	if renderer == nil {
		renderer = NewChartRenderer()
	}
	profile := result.Profile
	analytics := result.Analytics

	view := DashboardView{
		Profile: ProfileHeader{
			Handle:      profile.Username,
			DisplayName: profile.FullName,
			Bio:         profile.Bio,
			AvatarURL:   profile.ProfilePicURL,
			Verified:    profile.IsVerified,
			Followers:   FormatCount(locale, int64(profile.Followers)),
			Following:   FormatCount(locale, int64(profile.Following)),
			Posts:       FormatCount(locale, int64(profile.PostsCount)),
		},
		Metrics: summaryMetrics(analytics, locale),
	}

	if len(analytics.HistoricalEngagement) > 0 {
		html, err := renderer.EngagementChart(analytics.HistoricalEngagement)
		if err != nil {
			return DashboardView{}, fmt.Errorf("insights: render engagement chart: %w", err)
		}
		view.EngagementChart = html
	}
	if len(analytics.ContentTypeDistribution) > 0 {
		html, err := renderer.DistributionChart(analytics.ContentTypeDistribution)
		if err != nil {
			return DashboardView{}, fmt.Errorf("insights: render distribution chart: %w", err)
		}
		view.DistributionChart = html
	}

	view.Legend = make([]LegendEntry, len(analytics.ContentTypeDistribution))
	for i, entry := range analytics.ContentTypeDistribution {
		view.Legend[i] = LegendEntry{Name: entry.Name, Color: PaletteColor(i)}
	}

	view.Posts = make([]PostCard, len(result.Posts))
	for i, post := range result.Posts {
		view.Posts[i] = PostCard{
			ID:             post.ID,
			ImageURL:       post.ImageURL,
			Type:           string(post.Type),
			TypeSlug:       post.Type.Slug(),
			Caption:        post.Caption,
			CaptionPreview: Truncate(post.Caption, captionPreviewLimit),
			Likes:          FormatCount(locale, int64(post.Likes)),
			Comments:       formatValue(post.Comments),
			Timestamp:      post.Timestamp,
		}
	}
	return view, nil
}

// summaryMetrics returns the four cards in their fixed order.
func summaryMetrics(analytics AnalyticsSummary, locale string) []MetricCard {
	engagementOpts := []MetricCardOption{WithIcon("chart")}
	if change, positive, ok := engagementTrend(analytics.HistoricalEngagement); ok {
		engagementOpts = append(engagementOpts, WithChange(change, positive))
	}
	return []MetricCard{
		NewMetricCard("Avg. Likes", FormatDecimal(locale, analytics.AvgLikes), WithIcon("heart")),
		NewMetricCard("Avg. Comments", analytics.AvgComments, WithIcon("comment")),
		NewMetricCard("Engagement Rate", FormatPercent(analytics.EngagementRate), engagementOpts...),
		NewMetricCard("Best Performance", analytics.BestPost.Likes, WithIcon("bolt")),
	}
}

// engagementTrend compares the last two history points.
func engagementTrend(points []EngagementPoint) (string, bool, bool) {
	if len(points) < 2 {
		return "", false, false
	}
	last := points[len(points)-1].Value
	prev := points[len(points)-2].Value
	delta := math.Round((last-prev)*100) / 100
	return FormatNumber(math.Abs(delta)), delta >= 0, true
}
