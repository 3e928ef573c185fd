package metrics

import "time"

// RecordArticlesFetched records feed items retrieved from one outlet.
func RecordArticlesFetched(outlet string, count int) {
	ArticlesFetchedTotal.WithLabelValues(outlet).Add(float64(count))
}

// RecordArticlesPersisted records articles inserted into the store.
func RecordArticlesPersisted(count int) {
	ArticlesPersistedTotal.Add(float64(count))
}

// RecordFeedFetch records one outlet feed fetch.
func RecordFeedFetch(outlet string, duration time.Duration) {
	FeedFetchDuration.WithLabelValues(outlet).Observe(duration.Seconds())
}

// RecordFeedFetchError records an error during feed fetching.
// errorType should be a short classifier such as "http", "parse" or "timeout".
func RecordFeedFetchError(outlet, errorType string) {
	FeedFetchErrors.WithLabelValues(outlet, errorType).Inc()
}

// RecordScrapeOutcome records one enrichment outcome for an outlet.
func RecordScrapeOutcome(outlet, outcome string) {
	ScrapeOutcomesTotal.WithLabelValues(outlet, outcome).Inc()
}

// RecordBodyExtract records the duration of one body extraction.
func RecordBodyExtract(duration time.Duration) {
	BodyExtractDuration.Observe(duration.Seconds())
}

// RecordEmbeddingsEncoded records texts encoded in one micro-batch.
func RecordEmbeddingsEncoded(count int, duration time.Duration) {
	EmbeddingsEncodedTotal.Add(float64(count))
	EmbeddingEncodeDuration.Observe(duration.Seconds())
}

// RecordGroupingPass records the duration of one clustering pass.
func RecordGroupingPass(duration time.Duration) {
	GroupingDuration.Observe(duration.Seconds())
}

// RecordGroupFormed records one produced group.
// kind is one of "new", "reference", "subdivision".
func RecordGroupFormed(kind string) {
	GroupsFormedTotal.WithLabelValues(kind).Inc()
}

// RecordNeutralization records one group neutralization outcome.
func RecordNeutralization(outcome string, duration time.Duration) {
	NeutralizationsTotal.WithLabelValues(outcome).Inc()
	if duration > 0 {
		NeutralizationDuration.Observe(duration.Seconds())
	}
}

// RecordCooldown records a global LLM cooldown being triggered.
func RecordCooldown() {
	LLMCooldownsTotal.Inc()
}

// SetRetryQueueDepth updates the rate-limit retry queue gauge.
func SetRetryQueueDepth(depth int) {
	LLMRetryQueueDepth.Set(float64(depth))
}

// RecordRetentionDeletions records documents removed by the sweep.
// collection is "articles" or "neutral_groups".
func RecordRetentionDeletions(collection string, count int) {
	RetentionDeletionsTotal.WithLabelValues(collection).Add(float64(count))
}
