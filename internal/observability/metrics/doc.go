// Package metrics holds the Prometheus collectors for the hourly
// pipeline: feed fetches and scrape outcomes in ingest, embedding and
// grouping counts, neutralization results with their model and cooldown
// labels, retention deletions, and database query timings.
//
// Collectors register with the Prometheus default registry at package
// init and are served by the worker's /metrics endpoint. Recording is
// one call at the site that did the work:
//
//	start := time.Now()
//	items, err := fetchOutlet(outlet)
//	metrics.RecordFeedFetch(outlet, time.Since(start))
//	metrics.RecordArticlesFetched(outlet, len(items))
package metrics
