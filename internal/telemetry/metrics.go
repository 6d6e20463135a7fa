// Package telemetry exposes Prometheus metrics for the revision loop.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Feedback outcomes.
const (
	OutcomeRevised   = "revised"
	OutcomeCompleted = "completed"
	OutcomeNoop      = "noop"
)

// Metrics owns a private registry so tests can create as many as they like.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	sessionsCreated       prometheus.Counter
	feedback              *prometheus.CounterVec
	generationFailures    *prometheus.CounterVec
	sessionsSwept         prometheus.Counter
	sessionsActive        prometheus.Gauge
	generationDuration    prometheus.Histogram
	optimizationFallbacks *prometheus.CounterVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "contentloop_sessions_created_total",
			Help: "Revision sessions started.",
		}),
		feedback: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contentloop_feedback_total",
			Help: "Feedback submissions by outcome.",
		}, []string{"outcome"}),
		generationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contentloop_generation_failures_total",
			Help: "Failed draft generations by operation.",
		}, []string{"op"}),
		sessionsSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "contentloop_sessions_swept_total",
			Help: "Sessions evicted for inactivity.",
		}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "contentloop_sessions_active",
			Help: "Sessions created by this process and not yet removed.",
		}),
		generationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "contentloop_generation_duration_seconds",
			Help:    "Latency of state machine runs that call the generator.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		optimizationFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contentloop_optimization_fallbacks_total",
			Help: "Optimization calls answered by the deterministic fallback.",
		}, []string{"kind"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.sessionsCreated,
		m.feedback,
		m.generationFailures,
		m.sessionsSwept,
		m.sessionsActive,
		m.generationDuration,
		m.optimizationFallbacks,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SessionCreated() {
	if m == nil {
		return
	}
	m.sessionsCreated.Inc()
	m.sessionsActive.Inc()
}

func (m *Metrics) SessionsRemoved(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.sessionsActive.Sub(float64(n))
}

func (m *Metrics) SessionsSwept(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.sessionsSwept.Add(float64(n))
}

func (m *Metrics) Feedback(outcome string) {
	if m == nil {
		return
	}
	m.feedback.WithLabelValues(outcome).Inc()
}

func (m *Metrics) GenerationFailed(op string) {
	if m == nil {
		return
	}
	m.generationFailures.WithLabelValues(op).Inc()
}

func (m *Metrics) ObserveGeneration(d time.Duration) {
	if m == nil {
		return
	}
	m.generationDuration.Observe(d.Seconds())
}

func (m *Metrics) OptimizationFallback(kind string) {
	if m == nil {
		return
	}
	m.optimizationFallbacks.WithLabelValues(kind).Inc()
}
