// Package tracing provides OpenTelemetry tracing for pipeline stages.
//
// Each hourly run is traced as one root span with a child span per stage
// (ingest, embed, group, neutralize). Spans carry stage attributes such as
// item counts so a single trace shows where a run spent its time.
//
// Example usage:
//
//	import "neutralnews/internal/observability/tracing"
//
//	func main() {
//	    shutdown := tracing.Init("neutralnews")
//	    defer shutdown(context.Background())
//	}
//
//	func runIngest(ctx context.Context) {
//	    ctx, span := tracing.StartStage(ctx, "ingest")
//	    defer span.End()
//	    // ... fetch, enrich, persist ...
//	}
package tracing
