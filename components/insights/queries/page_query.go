package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"

	"github.com/goliatone/go-insights/components/insights"
)

type pageController interface {
	Page(ctx context.Context, viewer insights.ViewerContext) (insights.PageView, error)
}

// PageQuery resolves the view model for a viewer without rendering HTML.
type PageQuery struct {
	controller pageController
}

// NewPageQuery builds the query.
func NewPageQuery(controller pageController) *PageQuery {
	return &PageQuery{controller: controller}
}

var _ gocommand.Querier[insights.ViewerContext, insights.PageView] = (*PageQuery)(nil)

// Query builds the page view.
func (q *PageQuery) Query(ctx context.Context, viewer insights.ViewerContext) (insights.PageView, error) {
	return q.controller.Page(ctx, viewer)
}
