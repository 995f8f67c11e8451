// Package metrics records render run statistics in Prometheus text format.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch results.
const (
	ResultFound    = "found"
	ResultNotFound = "not_found"
	ResultError    = "error"
)

// Run outcomes.
const (
	OutcomeRendered = "rendered"
	OutcomeDeclined = "declined"
	OutcomeFailed   = "failed"
)

// Recorder owns a private registry so a run never touches the global one.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry       *prometheus.Registry
	secretsFetched *prometheus.CounterVec
	renderRuns     *prometheus.CounterVec
	renderDuration prometheus.Histogram
}

// NewRecorder registers the run metrics on a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		secretsFetched: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "templatevault_secrets_fetched_total",
				Help: "Total number of secret lookups by result",
			},
			[]string{"result"},
		),
		renderRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "templatevault_render_runs_total",
				Help: "Total number of render runs by outcome",
			},
			[]string{"outcome"},
		),
		renderDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "templatevault_render_duration_seconds",
				Help:    "Duration of render runs in seconds, including prompts",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 60},
			},
		),
	}
}

// RecordFetch counts one secret lookup.
func (r *Recorder) RecordFetch(result string) {
	if r == nil {
		return
	}
	r.secretsFetched.WithLabelValues(result).Inc()
}

// RecordRun counts a finished run and observes its duration.
func (r *Recorder) RecordRun(outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.renderRuns.WithLabelValues(outcome).Inc()
	r.renderDuration.Observe(elapsed.Seconds())
}

// Registry exposes the underlying registry for tests and exporters.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// WriteFile writes all metrics to path in the node_exporter textfile format.
func (r *Recorder) WriteFile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
