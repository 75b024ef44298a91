package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/alecthomas/kong"
	json "github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	router "github.com/goliatone/go-router"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-insights/components/insights"
	"github.com/goliatone/go-insights/components/insights/commands"
	"github.com/goliatone/go-insights/components/insights/gorouter"
	"github.com/goliatone/go-insights/components/insights/httpapi"
	"github.com/goliatone/go-insights/components/insights/queries"
	"github.com/goliatone/go-insights/pkg/analytics"
	"github.com/goliatone/go-insights/pkg/logging"
	"github.com/goliatone/go-insights/pkg/metrics"
)

type Globals struct {
	WebhookURL   string        `name:"webhook-url" env:"N8N_WEBHOOK_URL" help:"n8n webhook endpoint; the mock client is used when empty."`
	APIKey       string        `name:"api-key" env:"N8N_API_KEY" help:"Optional bearer token sent to the webhook."`
	Timeout      time.Duration `default:"30s" env:"INSIGHTS_TIMEOUT" help:"Webhook request timeout."`
	StrictSchema bool          `name:"strict-schema" env:"INSIGHTS_STRICT_SCHEMA" help:"Validate webhook payloads against the bundled JSON schema."`
	Fixture      string        `type:"path" env:"INSIGHTS_FIXTURE" help:"YAML fixture served by the mock client instead of the bundled one."`
	LogLevel     string        `name:"log-level" default:"info" env:"LOG_LEVEL" help:"trace, debug, info, warn, error."`
	LogFormat    string        `name:"log-format" default:"console" env:"LOG_FORMAT" enum:"console,json" help:"Log output format."`
}

type cli struct {
	Globals

	Serve           serveCmd   `cmd:"" default:"1" help:"Serve the analytics dashboard."`
	Analyze         analyzeCmd `cmd:"" help:"Fetch analytics for one handle and print the JSON result."`
	ValidateFixture fixtureCmd `cmd:"" name:"validate-fixture" help:"Check a mock YAML fixture against the webhook payload schema."`
}

type serveCmd struct {
	Addr        string        `default:":8080" env:"INSIGHTS_ADDR" help:"HTTP listen address."`
	MetricsAddr string        `name:"metrics-addr" env:"INSIGHTS_METRICS_ADDR" help:"Prometheus listen address; disabled when empty."`
	SessionTTL  time.Duration `name:"session-ttl" default:"1h" env:"INSIGHTS_SESSION_TTL" help:"Idle sessions older than this are discarded."`
	ChartCache  time.Duration `name:"chart-cache" default:"5m" env:"INSIGHTS_CHART_CACHE" help:"Rendered chart cache TTL; 0 disables caching."`
	EChartsCDN  string        `name:"echarts-cdn" env:"GO_DASHBOARD_ECHARTS_CDN" default:"https://go-echarts.github.io/go-echarts-assets/assets/" help:"Host serving the ECharts JavaScript assets."`
	Title       string        `default:"AnalyticaPro" help:"Page title."`
}

type fixtureCmd struct {
	Path string `arg:"" type:"existingfile" help:"Fixture YAML file."`
}

type analyzeCmd struct {
	Handle string `arg:"" help:"Instagram handle to analyze."`
}

func main() {
	// A missing .env file is fine; the environment still applies.
	_ = godotenv.Load()

	var c cli
	ctx := kong.Parse(&c,
		kong.Name("insightsd"),
		kong.Description("Social media analytics dashboard backed by an n8n webhook."),
		kong.UsageOnError(),
	)
	err := ctx.Run(&c.Globals)
	ctx.FatalIfErrorf(err)
}

func (g *Globals) logger() zerolog.Logger {
	return logging.New(logging.Config{Level: g.LogLevel, Format: g.LogFormat})
}

func (g *Globals) client(logger zerolog.Logger) (insights.Client, error) {
	return analytics.NewClient(analytics.Config{
		WebhookURL:   g.WebhookURL,
		APIKey:       g.APIKey,
		Timeout:      g.Timeout,
		StrictSchema: g.StrictSchema,
		FixturePath:  g.Fixture,
	}, logger)
}

func (cmd *serveCmd) Run(g *Globals) error {
	logger := g.logger()
	client, err := g.client(logger)
	if err != nil {
		return fmt.Errorf("insightsd: analytics client: %w", err)
	}

	recorder := metrics.NewRecorder()
	broadcast := insights.NewBroadcastHook()
	service := insights.NewService(insights.Options{
		Client:      client,
		Sessions:    insights.NewInMemorySessionStore(cmd.SessionTTL),
		RefreshHook: broadcast,
		Telemetry:   recorder,
		Logger:      &logger,
	})

	renderer, err := insights.NewTemplateRenderer()
	if err != nil {
		return fmt.Errorf("insightsd: templates: %w", err)
	}
	controller := insights.NewController(insights.ControllerOptions{
		Service:  service,
		Renderer: renderer,
		Charts: insights.NewChartRenderer(
			insights.WithChartCache(insights.NewChartCache(cmd.ChartCache)),
			insights.WithChartAssetsHost(cmd.EChartsCDN),
		),
		Title: cmd.Title,
	})

	api := &httpapi.Handlers{
		Analyze:  commands.NewAnalyzeCommand(service, recorder),
		Reset:    commands.NewResetCommand(service, recorder),
		Dismiss:  commands.NewDismissErrorCommand(service, recorder),
		Snapshot: queries.NewSnapshotQuery(service),
	}

	server := router.NewFiberAdapter()
	if err := gorouter.Register(gorouter.Config[*fiber.App]{
		Router:     server.Router(),
		Controller: controller,
		API:        api,
		Broadcast:  broadcast,
	}); err != nil {
		return fmt.Errorf("insightsd: register routes: %w", err)
	}

	if cmd.MetricsAddr != "" {
		go serveMetrics(cmd.MetricsAddr, recorder, logger)
	}

	logger.Info().Str("addr", cmd.Addr).Msg("insights dashboard listening")
	return server.Serve(cmd.Addr)
}

func serveMetrics(addr string, recorder *metrics.Recorder, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", recorder.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	logger.Info().Str("addr", addr).Msg("metrics listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server stopped")
	}
}

func (cmd *analyzeCmd) Run(g *Globals) error {
	logger := g.logger()
	client, err := g.client(logger)
	if err != nil {
		return fmt.Errorf("insightsd: analytics client: %w", err)
	}
	service := insights.NewService(insights.Options{Client: client, Logger: &logger})

	ctx := context.Background()
	snap, err := service.Analyze(ctx, "cli", cmd.Handle)
	if err != nil {
		return fmt.Errorf("insightsd: %s", insights.ErrorMessage(err))
	}
	out, err := json.MarshalIndent(snap.Result, "", "  ")
	if err != nil {
		return fmt.Errorf("insightsd: encode result: %w", err)
	}
	_, err = fmt.Fprintln(os.Stdout, string(out))
	return err
}

func (cmd *fixtureCmd) Run(_ *Globals) error {
	f, err := os.Open(cmd.Path)
	if err != nil {
		return fmt.Errorf("insightsd: open fixture: %w", err)
	}
	defer f.Close()
	if err := analytics.ValidateFixture(f); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "✓ %s matches the webhook payload schema\n", cmd.Path)
	return nil
}
