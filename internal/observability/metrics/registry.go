// Package metrics provides centralized Prometheus metrics for the pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ingest metrics track feed fetching and article enrichment
var (
	// ArticlesFetchedTotal counts feed items retrieved per outlet
	ArticlesFetchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "articles_fetched_total",
			Help: "Total number of feed items retrieved from outlets",
		},
		[]string{"outlet"},
	)

	// ArticlesPersistedTotal counts articles actually inserted into the store
	ArticlesPersistedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "articles_persisted_total",
			Help: "Total number of articles inserted into the store",
		},
	)

	// FeedFetchDuration measures time to fetch and parse one outlet feed
	FeedFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feed_fetch_duration_seconds",
			Help:    "Time taken to fetch and parse an outlet feed",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"outlet"},
	)

	// FeedFetchErrors counts errors during feed fetching
	FeedFetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_fetch_errors_total",
			Help: "Total number of feed fetch errors",
		},
		[]string{"outlet", "error_type"},
	)

	// ScrapeOutcomesTotal counts enrichment outcomes per outlet.
	// Outcome is one of: success, empty_content, short_content,
	// duplicate_content, blocked_by_robots, fetch_error.
	ScrapeOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrape_outcomes_total",
			Help: "Article body scrape outcomes per outlet",
		},
		[]string{"outlet", "outcome"},
	)

	// BodyExtractDuration measures time to extract one article body
	BodyExtractDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "body_extract_duration_seconds",
			Help:    "Time taken to extract an article body",
			Buckets: []float64{0.1, 0.2, 0.4, 0.8, 1.6, 3.2, 6.4, 12.8},
		},
	)
)

// Embedding and grouping metrics
var (
	// EmbeddingsEncodedTotal counts texts encoded into vectors
	EmbeddingsEncodedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "embeddings_encoded_total",
			Help: "Total number of article texts encoded into embeddings",
		},
	)

	// EmbeddingEncodeDuration measures one encode micro-batch
	EmbeddingEncodeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "embedding_encode_duration_seconds",
			Help:    "Time taken to encode one embedding micro-batch",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
	)

	// GroupingDuration measures a full grouping pass
	GroupingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "grouping_duration_seconds",
			Help:    "Time taken by one density clustering pass",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)

	// GroupsFormedTotal counts groups by kind (new, reference, subdivision)
	GroupsFormedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groups_formed_total",
			Help: "Groups produced by the clustering pass",
		},
		[]string{"kind"},
	)
)

// Neutralization metrics
var (
	// NeutralizationsTotal counts group neutralization outcomes.
	// Outcome is one of: created, updated, skipped_unchanged,
	// skipped_minor_change, insufficient_sources, error.
	NeutralizationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "neutralizations_total",
			Help: "Group neutralization outcomes",
		},
		[]string{"outcome"},
	)

	// NeutralizationDuration measures one LLM call round trip
	NeutralizationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "neutralization_duration_seconds",
			Help:    "Time taken to neutralize one group via the LLM",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)

	// LLMCooldownsTotal counts global cooldowns triggered by rate limits
	LLMCooldownsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "llm_cooldowns_total",
			Help: "Global LLM cooldowns triggered by rate-limit responses",
		},
	)

	// LLMRetryQueueDepth tracks the rate-limited groups awaiting retry
	LLMRetryQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "llm_retry_queue_depth",
			Help: "Groups queued for serial retry after rate limiting",
		},
	)
)

// Retention and store metrics
var (
	// RetentionDeletionsTotal counts deletions by collection (articles, groups)
	RetentionDeletionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retention_deletions_total",
			Help: "Documents deleted by the retention sweep",
		},
		[]string{"collection"},
	)

	// DBQueryDuration measures database query duration by operation
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
		},
		[]string{"operation"},
	)
)

// RecordOperationDuration records the duration of a named store operation
func RecordOperationDuration(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
