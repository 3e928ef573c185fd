package worker

import (
	"neutralnews/internal/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// WorkerMetrics tracks the worker's scheduled jobs. It embeds the shared
// ConfigMetrics for configuration fallback monitoring and adds per-job
// execution metrics labeled by job name ("pipeline", "retention").
type WorkerMetrics struct {
	*config.ConfigMetrics

	// JobRunsTotal counts job executions by job and status
	// (success/failure).
	JobRunsTotal *prometheus.CounterVec

	// JobDurationSeconds measures job execution time by job.
	JobDurationSeconds *prometheus.HistogramVec

	// JobLastSuccessTimestamp records when each job last completed
	// successfully; alerting keys off its staleness.
	JobLastSuccessTimestamp *prometheus.GaugeVec
}

// NewWorkerMetrics creates and auto-registers the worker metrics.
func NewWorkerMetrics() *WorkerMetrics {
	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetrics("worker"),

		JobRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_job_runs_total",
			Help: "Total scheduled job runs by job and status",
		}, []string{"job", "status"}),

		JobDurationSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "worker_job_duration_seconds",
			Help:    "Duration of scheduled job execution in seconds",
			Buckets: []float64{1, 5, 30, 60, 300, 900, 1800},
		}, []string{"job"}),

		JobLastSuccessTimestamp: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "worker_job_last_success_timestamp",
			Help: "Unix timestamp of the last successful run per job",
		}, []string{"job"}),
	}
}

// MustRegister exists for call-site symmetry; promauto already registered
// everything in NewWorkerMetrics.
func (m *WorkerMetrics) MustRegister() {}

// RecordJobRun increments the run counter for the job.
func (m *WorkerMetrics) RecordJobRun(job, status string) {
	m.JobRunsTotal.WithLabelValues(job, status).Inc()
}

// RecordJobDuration observes one job execution in seconds.
func (m *WorkerMetrics) RecordJobDuration(job string, seconds float64) {
	m.JobDurationSeconds.WithLabelValues(job).Observe(seconds)
}

// RecordLastSuccess marks the job as having just succeeded.
func (m *WorkerMetrics) RecordLastSuccess(job string) {
	m.JobLastSuccessTimestamp.WithLabelValues(job).SetToCurrentTime()
}
