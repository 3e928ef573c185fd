package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsRecorder records limiter activity. Implementations can use
// Prometheus or custom metrics systems; NoopMetrics disables recording.
type MetricsRecorder interface {
	// RecordAllowed counts one reserved call slot.
	RecordAllowed()

	// RecordDenied counts one denial by reason ("window" or "cooldown").
	RecordDenied(reason string)

	// RecordCooldown counts one forced cooldown activation.
	RecordCooldown()
}

// PrometheusMetrics implements MetricsRecorder using Prometheus.
//
// Metrics register against the given registerer; pass
// prometheus.DefaultRegisterer for the process-wide registry or a fresh
// prometheus.NewRegistry() in tests.
type PrometheusMetrics struct {
	allowedTotal   prometheus.Counter
	deniedTotal    *prometheus.CounterVec
	cooldownsTotal prometheus.Counter
}

// NewPrometheusMetrics creates and registers the limiter metrics.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	m := &PrometheusMetrics{
		allowedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "llm_ratelimit_allowed_total",
			Help: "Total call slots reserved by the LLM rate limiter",
		}),
		deniedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "llm_ratelimit_denied_total",
			Help: "Total denials by the LLM rate limiter, by reason",
		}, []string{"reason"}),
		cooldownsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "llm_ratelimit_cooldowns_total",
			Help: "Total forced cooldown activations",
		}),
	}
	reg.MustRegister(m.allowedTotal, m.deniedTotal, m.cooldownsTotal)
	return m
}

// RecordAllowed implements MetricsRecorder.RecordAllowed.
func (m *PrometheusMetrics) RecordAllowed() {
	m.allowedTotal.Inc()
}

// RecordDenied implements MetricsRecorder.RecordDenied.
func (m *PrometheusMetrics) RecordDenied(reason string) {
	m.deniedTotal.WithLabelValues(reason).Inc()
}

// RecordCooldown implements MetricsRecorder.RecordCooldown.
func (m *PrometheusMetrics) RecordCooldown() {
	m.cooldownsTotal.Inc()
}
