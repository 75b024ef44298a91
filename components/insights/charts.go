package insights

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

const defaultChartHeight = "300px"

// Palette is cycled by index for distribution slices and their legend.
var Palette = []string{"#22C55E", "#166534", "#bbf7d0"}

// PaletteColor returns the stable color for position i.
func PaletteColor(i int) string {
	if i < 0 {
		i = -i
	}
	return Palette[i%len(Palette)]
}

var errEmptySeries = errors.New("insights: chart series is empty")

var sharedChartCache = NewChartCache(5 * time.Minute)

// ChartRenderer renders server-side chart HTML with go-echarts.
type ChartRenderer struct {
	cache      RenderCache
	theme      string
	assetsHost string
	height     string
}

// ChartRendererOption customizes renderer behavior.
type ChartRendererOption func(*ChartRenderer)

// WithChartCache injects a render cache; nil disables caching.
func WithChartCache(cache RenderCache) ChartRendererOption {
	return func(r *ChartRenderer) {
		r.cache = cache
	}
}

// WithChartTheme sets the echarts theme (defaults to Walden).
func WithChartTheme(theme string) ChartRendererOption {
	return func(r *ChartRenderer) {
		r.theme = theme
	}
}

// WithChartAssetsHost rewrites the assets host so ECharts JS loads from a CDN.
func WithChartAssetsHost(host string) ChartRendererOption {
	return func(r *ChartRenderer) {
		r.assetsHost = ensureTrailingSlash(strings.TrimSpace(host))
	}
}

// NewChartRenderer builds a renderer.
func NewChartRenderer(options ...ChartRendererOption) *ChartRenderer {
	r := &ChartRenderer{
		cache:  sharedChartCache,
		theme:  types.ThemeWalden,
		height: defaultChartHeight,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// EngagementChart renders the engagement history as a line chart, keeping
// the supplied order on the x axis.
func (r *ChartRenderer) EngagementChart(points []EngagementPoint) (string, error) {
	if len(points) == 0 {
		return "", errEmptySeries
	}
	return r.cached("engagement", points, func() (string, error) {
		labels := make([]string, len(points))
		data := make([]opts.LineData, len(points))
		for i, point := range points {
			labels[i] = point.Date
			data[i] = opts.LineData{Name: point.Date, Value: point.Value}
		}
		line := charts.NewLine()
		line.SetGlobalOptions(r.globalOptions("engagement-chart")...)
		line.SetXAxis(labels)
		line.AddSeries("Engagement", data,
			charts.WithLineStyleOpts(opts.LineStyle{Color: Palette[0]}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: Palette[0]}),
		)
		line.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
		return renderChart(line)
	})
}

// DistributionChart renders the content-type distribution as a donut chart
// with one palette color per slice position.
func (r *ChartRenderer) DistributionChart(entries []DistributionEntry) (string, error) {
	if len(entries) == 0 {
		return "", errEmptySeries
	}
	return r.cached("distribution", entries, func() (string, error) {
		pie := charts.NewPie()
		pie.SetGlobalOptions(r.globalOptions("distribution-chart")...)
		pie.AddSeries("Content", toPieData(entries),
			charts.WithPieChartOpts(opts.PieChart{Radius: []string{"40%", "70%"}}),
		)
		return renderChart(pie)
	})
}

func (r *ChartRenderer) cached(kind string, series any, render func() (string, error)) (string, error) {
	if r.cache == nil {
		return render()
	}
	key := fmt.Sprintf("%s:%s:%s:%s:%s", kind, r.theme, r.assetsHost, r.height, seriesHash(series))
	return r.cache.GetOrRender(key, render)
}

func (r *ChartRenderer) globalOptions(chartID string) []charts.GlobalOpts {
	initOpts := opts.Initialization{
		ChartID: chartID,
		Theme:   r.theme,
		Width:   "100%",
		Height:  r.height,
	}
	if r.assetsHost != "" {
		initOpts.AssetsHost = r.assetsHost
	}
	return []charts.GlobalOpts{
		charts.WithInitializationOpts(initOpts),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	}
}

func toPieData(entries []DistributionEntry) []opts.PieData {
	data := make([]opts.PieData, len(entries))
	for i, entry := range entries {
		name := entry.Name
		if name == "" {
			name = fmt.Sprintf("Slice %d", i+1)
		}
		data[i] = opts.PieData{
			Name:      name,
			Value:     entry.Value,
			ItemStyle: &opts.ItemStyle{Color: PaletteColor(i)},
		}
	}
	return data
}

func renderChart(renderable interface{ Render(io.Writer) error }) (string, error) {
	var buf bytes.Buffer
	if err := renderable.Render(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func ensureTrailingSlash(value string) string {
	if value == "" || strings.HasSuffix(value, "/") {
		return value
	}
	return value + "/"
}
