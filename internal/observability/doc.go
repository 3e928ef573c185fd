// Package observability groups the worker's logging, metrics, and
// tracing infrastructure.
//
// Subpackages:
//   - logging: slog construction and context propagation
//   - metrics: Prometheus collectors for every pipeline stage
//   - tracing: OpenTelemetry span helpers for stage runs
//
// A typical worker boot wires all three:
//
//	logger := logging.NewLogger()
//	shutdown, _ := tracing.Init("neutralnews-worker")
//	defer shutdown(ctx)
//	metrics.RecordArticlesFetched("elPais", 10)
package observability
