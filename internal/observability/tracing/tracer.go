package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// tracer is the global tracer instance for the pipeline.
var tracer = otel.Tracer("neutralnews")

// Init installs a tracer provider for the given service name and returns a
// shutdown function that flushes any pending spans. Without an exporter the
// spans stay in-process; wiring an OTLP exporter only requires extending the
// provider options here.
func Init(serviceName string) func(context.Context) error {
	res := sdkresource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
	)
	tp := sdktrace.NewTracerProvider(sdktrace.WithResource(res))
	otel.SetTracerProvider(tp)
	tracer = otel.Tracer(serviceName)
	return tp.Shutdown
}

// GetTracer returns the global tracer for creating spans.
func GetTracer() trace.Tracer {
	return tracer
}

// StartStage opens a span for one pipeline stage.
//
// Example usage:
//
//	ctx, span := tracing.StartStage(ctx, "neutralize")
//	defer span.End()
func StartStage(ctx context.Context, stage string) (context.Context, trace.Span) {
	return tracer.Start(ctx, stage, trace.WithAttributes(
		attribute.String("pipeline.stage", stage),
	))
}

// SetStageCount annotates a stage span with a processed item count.
func SetStageCount(span trace.Span, key string, count int) {
	span.SetAttributes(attribute.Int(key, count))
}
