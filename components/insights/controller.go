package insights

import (
	"context"
	"errors"
	"io"
)

// PageTemplate is the template rendered for every page state.
const PageTemplate = "page"

type snapshotReader interface {
	Snapshot(ctx context.Context, sessionID string) (Snapshot, error)
}

// ControllerOptions wires the controller collaborators.
type ControllerOptions struct {
	Service  snapshotReader
	Renderer Renderer
	Charts   *ChartRenderer
	Template string
	Title    string
}

// Controller turns session snapshots into rendered pages.
type Controller struct {
	service  snapshotReader
	renderer Renderer
	charts   *ChartRenderer
	template string
	title    string
}

// NewController wires the service into a controller.
func NewController(opts ControllerOptions) *Controller {
	if opts.Charts == nil {
		opts.Charts = NewChartRenderer()
	}
	if opts.Template == "" {
		opts.Template = PageTemplate
	}
	if opts.Title == "" {
		opts.Title = "AnalyticaPro"
	}
	return &Controller{
		service:  opts.Service,
		renderer: opts.Renderer,
		charts:   opts.Charts,
		template: opts.Template,
		title:    opts.Title,
	}
}

// Page resolves the view model for a viewer's session.
func (c *Controller) Page(ctx context.Context, viewer ViewerContext) (PageView, error) {
	if c.service == nil {
		return PageView{}, errors.New("insights: controller requires service")
	}
	snap, err := c.service.Snapshot(ctx, viewer.SessionID)
	if err != nil {
		return PageView{}, err
	}
	return BuildPageView(snap, viewer, c.charts)
}

// RenderTemplate renders the page for the viewer into out.
func (c *Controller) RenderTemplate(ctx context.Context, viewer ViewerContext, out io.Writer) error {
	if c.renderer == nil {
		return errors.New("insights: controller requires renderer")
	}
	page, err := c.Page(ctx, viewer)
	if err != nil {
		return err
	}
	_, err = c.renderer.Render(c.template, c.templateData(page), out)
	return err
}

func (c *Controller) templateData(page PageView) map[string]any {
	return map[string]any{
		"title":        c.title,
		"session_id":   page.SessionID,
		"locale":       page.Locale,
		"landing":      page.Landing,
		"dashboard":    page.Dashboard,
		"notification": page.Notification,
	}
}
