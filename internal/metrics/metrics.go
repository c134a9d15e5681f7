package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "campuscare"

// Metrics wraps the Prometheus collectors for the safety pipeline. It owns a
// private registry so tests can create as many instances as they like.
// All methods are safe to call on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	Invocations        *prometheus.CounterVec
	Fallbacks          *prometheus.CounterVec
	Escalations        *prometheus.CounterVec
	PipelineDuration   prometheus.Histogram
	BackgroundFailures *prometheus.CounterVec
}

// New creates a Metrics instance with its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		Invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invocations_total",
			Help:      "Inference attempts by model variant and outcome",
		}, []string{"model", "outcome"}),
		Fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifier_fallbacks_total",
			Help:      "Classifier results produced by the deterministic fallback",
		}, []string{"classifier", "reason"}),
		Escalations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "escalations_total",
			Help:      "Crisis escalations by trigger",
		}, []string{"trigger"}),
		PipelineDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Wall-clock time of a full pipeline run",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		}),
		BackgroundFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "background_failures_total",
			Help:      "Failed background tasks (alert persistence, notification)",
		}, []string{"task"}),
	}

	reg.MustRegister(m.Invocations, m.Fallbacks, m.Escalations, m.PipelineDuration, m.BackgroundFailures)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordInvocation(model, outcome string) {
	if m == nil {
		return
	}
	m.Invocations.WithLabelValues(model, outcome).Inc()
}

func (m *Metrics) RecordFallback(classifier, reason string) {
	if m == nil {
		return
	}
	m.Fallbacks.WithLabelValues(classifier, reason).Inc()
}

func (m *Metrics) RecordEscalation(triggers []string) {
	if m == nil {
		return
	}
	if len(triggers) == 0 {
		triggers = []string{"fail_closed"}
	}
	for _, t := range triggers {
		m.Escalations.WithLabelValues(t).Inc()
	}
}

func (m *Metrics) ObservePipeline(d time.Duration) {
	if m == nil {
		return
	}
	m.PipelineDuration.Observe(d.Seconds())
}

func (m *Metrics) RecordBackgroundFailure(task string) {
	if m == nil {
		return
	}
	m.BackgroundFailures.WithLabelValues(task).Inc()
}
