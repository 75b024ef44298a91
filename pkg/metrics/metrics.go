// Package metrics exports insights telemetry as Prometheus series.
package metrics

import (
	"context"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder implements insights.Telemetry on top of a Prometheus registry.
type Recorder struct {
	registry *prometheus.Registry
	events   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewRecorder registers the insights collectors on a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		events: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "insights_events_total",
				Help: "Total number of insights lifecycle events",
			},
			[]string{"event"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "insights_analysis_duration_seconds",
				Help:    "Duration of analytics client calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
	}
}

// Record counts the event and observes duration_seconds when present.
func (r *Recorder) Record(_ context.Context, event string, payload map[string]any) {
	if r == nil || event == "" {
		return
	}
	r.events.WithLabelValues(event).Inc()
	seconds, ok := payload["duration_seconds"].(float64)
	if !ok {
		return
	}
	r.duration.WithLabelValues(outcome(event)).Observe(seconds)
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// outcome is the last dotted segment: insights.analyze.success -> success.
func outcome(event string) string {
	if idx := strings.LastIndex(event, "."); idx >= 0 {
		return event[idx+1:]
	}
	return event
}
