package llm

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CallMetricsRecorder records LLM API call outcomes. The interface keeps
// the clients testable without a Prometheus registry and lets both
// providers share one implementation.
type CallMetricsRecorder interface {
	// RecordCall counts one API call per provider and outcome
	// ("success", "rate_limited", "context_length", "error").
	RecordCall(provider, outcome string)

	// RecordDuration records the wall time of one API call.
	RecordDuration(provider string, duration time.Duration)
}

// PrometheusCallMetrics implements CallMetricsRecorder backed by Prometheus.
type PrometheusCallMetrics struct {
	callsCounter      *prometheus.CounterVec
	durationHistogram *prometheus.HistogramVec
}

var (
	prometheusCallMetricsInstance *PrometheusCallMetrics
	prometheusCallMetricsOnce     sync.Once
)

// NewPrometheusCallMetrics creates the Prometheus-backed recorder. Uses a
// singleton to avoid duplicate metric registration in tests.
func NewPrometheusCallMetrics() *PrometheusCallMetrics {
	prometheusCallMetricsOnce.Do(func() {
		prometheusCallMetricsInstance = &PrometheusCallMetrics{
			callsCounter: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "llm_api_calls_total",
				Help: "Total LLM API calls by provider and outcome",
			}, []string{"provider", "outcome"}),
			durationHistogram: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "llm_api_call_duration_seconds",
				Help:    "Wall time of LLM API calls by provider",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
			}, []string{"provider"}),
		}
	})
	return prometheusCallMetricsInstance
}

// RecordCall implements CallMetricsRecorder.RecordCall.
func (p *PrometheusCallMetrics) RecordCall(provider, outcome string) {
	p.callsCounter.WithLabelValues(provider, outcome).Inc()
}

// RecordDuration implements CallMetricsRecorder.RecordDuration.
func (p *PrometheusCallMetrics) RecordDuration(provider string, duration time.Duration) {
	p.durationHistogram.WithLabelValues(provider).Observe(duration.Seconds())
}

// NoopCallMetrics discards all recordings. Used in tests.
type NoopCallMetrics struct{}

func (NoopCallMetrics) RecordCall(provider, outcome string)             {}
func (NoopCallMetrics) RecordDuration(provider string, d time.Duration) {}

// outcomeFor maps an API error to a metric outcome label.
func outcomeFor(err error) string {
	switch {
	case err == nil:
		return "success"
	case IsRateLimited(err):
		return "rate_limited"
	case IsContextLengthExceeded(err):
		return "context_length"
	default:
		return "error"
	}
}
