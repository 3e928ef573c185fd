package worker

import (
	"fmt"
	"log/slog"
	"time"

	"neutralnews/internal/pkg/config"
)

// WorkerConfig holds the scheduling configuration of the worker process:
// when the hourly pipeline and the daily retention job run, in which
// timezone, and how long one pipeline pass may take.
//
// Loading is fail-open: invalid environment values fall back to defaults
// with a warning and a metrics increment, so a typo in a deploy never
// keeps the worker down.
type WorkerConfig struct {
	// PipelineCron schedules the fetch/group/neutralize pipeline.
	// Default: "0 * * * *" (top of every hour).
	PipelineCron string

	// RetentionCron schedules the cleanup job.
	// Default: "30 4 * * *" (04:30 daily).
	RetentionCron string

	// Timezone is the IANA zone both schedules are evaluated in.
	// Default: "Europe/Madrid", the timezone the outlets publish in.
	Timezone string

	// PipelineTimeout cancels a pipeline pass that runs too long.
	// Default: 45 minutes, under the hourly cadence.
	PipelineTimeout time.Duration

	// HealthPort serves the liveness/readiness endpoints.
	// Default: 9091.
	HealthPort int
}

// DefaultConfig returns production defaults for the worker.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		PipelineCron:    "0 * * * *",
		RetentionCron:   "30 4 * * *",
		Timezone:        "Europe/Madrid",
		PipelineTimeout: 45 * time.Minute,
		HealthPort:      9091,
	}
}

// Validate checks every field, collecting all failures.
func (c *WorkerConfig) Validate() error {
	var errs []error

	if err := config.ValidateCronSchedule(c.PipelineCron); err != nil {
		errs = append(errs, fmt.Errorf("pipeline cron: %w", err))
	}
	if err := config.ValidateCronSchedule(c.RetentionCron); err != nil {
		errs = append(errs, fmt.Errorf("retention cron: %w", err))
	}
	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if err := config.ValidateDuration(c.PipelineTimeout, time.Minute, 4*time.Hour); err != nil {
		errs = append(errs, fmt.Errorf("pipeline timeout: %w", err))
	}
	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}
	return nil
}

// LoadConfigFromEnv loads the worker configuration from the environment
// with per-field fallback to defaults.
//
// Environment variables:
//   - CRON_SCHEDULE: pipeline cron expression
//   - RETENTION_CRON: retention cron expression
//   - WORKER_TIMEZONE: IANA timezone name
//   - PIPELINE_TIMEOUT: duration string, 1m-4h
//   - WORKER_HEALTH_PORT: integer 1024-65535
//
// The returned config is always valid; the error is always nil and exists
// for call-site symmetry with fail-closed loaders.
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) (*WorkerConfig, error) {
	cfg := DefaultConfig()
	fallbackApplied := false

	load := func(field string, apply func() config.ConfigLoadResult) {
		result := apply()
		if !result.FallbackApplied {
			return
		}
		fallbackApplied = true
		metrics.RecordValidationError(field)
		metrics.RecordFallback(field, "default")
		for _, warning := range result.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", field),
				slog.String("warning", warning))
		}
	}

	load("pipeline_cron", func() config.ConfigLoadResult {
		result := config.LoadEnvWithFallback("CRON_SCHEDULE", cfg.PipelineCron, config.ValidateCronSchedule)
		cfg.PipelineCron = result.Value.(string)
		return result
	})
	load("retention_cron", func() config.ConfigLoadResult {
		result := config.LoadEnvWithFallback("RETENTION_CRON", cfg.RetentionCron, config.ValidateCronSchedule)
		cfg.RetentionCron = result.Value.(string)
		return result
	})
	load("timezone", func() config.ConfigLoadResult {
		result := config.LoadEnvWithFallback("WORKER_TIMEZONE", cfg.Timezone, config.ValidateTimezone)
		cfg.Timezone = result.Value.(string)
		return result
	})
	load("pipeline_timeout", func() config.ConfigLoadResult {
		result := config.LoadEnvDuration("PIPELINE_TIMEOUT", cfg.PipelineTimeout, func(d time.Duration) error {
			return config.ValidateDuration(d, time.Minute, 4*time.Hour)
		})
		cfg.PipelineTimeout = result.Value.(time.Duration)
		return result
	})
	load("health_port", func() config.ConfigLoadResult {
		result := config.LoadEnvInt("WORKER_HEALTH_PORT", cfg.HealthPort, func(v int) error {
			return config.ValidateIntRange(v, 1024, 65535)
		})
		cfg.HealthPort = result.Value.(int)
		return result
	})

	metrics.SetFallbackActive("", fallbackApplied)
	metrics.RecordLoadTimestamp()
	return &cfg, nil
}
