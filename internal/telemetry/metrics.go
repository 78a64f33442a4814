// Package telemetry exposes Prometheus metrics for the analytics engine.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the engine's Prometheus collectors on a private
// registerer so embedding applications control exposure.
type Registry struct {
	registry *prometheus.Registry

	AnalysesTotal     *prometheus.CounterVec
	StepDuration      *prometheus.HistogramVec
	OptimizerFailures *prometheus.CounterVec
	ActiveAnalyses    prometheus.Gauge
}

// NewRegistry creates and registers all engine metrics.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		AnalysesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wealthkin_analyses_total",
				Help: "Completed analyses by outcome",
			},
			[]string{"result"},
		),
		StepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wealthkin_step_duration_seconds",
				Help:    "Duration of each analysis step in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
			},
			[]string{"step"},
		),
		OptimizerFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wealthkin_optimizer_failures_total",
				Help: "Optimizer non-convergence events by method",
			},
			[]string{"method"},
		),
		ActiveAnalyses: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "wealthkin_active_analyses",
				Help: "Analyses currently in flight",
			},
		),
	}
	r.registry.MustRegister(r.AnalysesTotal, r.StepDuration, r.OptimizerFailures, r.ActiveAnalyses)
	return r
}

// Handler returns an HTTP handler serving this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveStep records one step duration. Nil-safe so the engine runs
// without telemetry wired.
func (r *Registry) ObserveStep(step string, start time.Time) {
	if r == nil {
		return
	}
	r.StepDuration.WithLabelValues(step).Observe(time.Since(start).Seconds())
}

// CountAnalysis records one finished analysis. Nil-safe.
func (r *Registry) CountAnalysis(result string) {
	if r == nil {
		return
	}
	r.AnalysesTotal.WithLabelValues(result).Inc()
}

// CountOptimizerFailure records one optimizer failure. Nil-safe.
func (r *Registry) CountOptimizerFailure(method string) {
	if r == nil {
		return
	}
	r.OptimizerFailures.WithLabelValues(method).Inc()
}

// TrackActive increments the in-flight gauge and returns the matching
// decrement. Nil-safe.
func (r *Registry) TrackActive() func() {
	if r == nil {
		return func() {}
	}
	r.ActiveAnalyses.Inc()
	return r.ActiveAnalyses.Dec
}
