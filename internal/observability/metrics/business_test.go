package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordArticlesFetched(t *testing.T) {
	before := testutil.ToFloat64(ArticlesFetchedTotal.WithLabelValues("elPais"))
	RecordArticlesFetched("elPais", 7)
	after := testutil.ToFloat64(ArticlesFetchedTotal.WithLabelValues("elPais"))
	assert.Equal(t, 7.0, after-before)
}

func TestRecordScrapeOutcome(t *testing.T) {
	before := testutil.ToFloat64(ScrapeOutcomesTotal.WithLabelValues("rtve", "short_content"))
	RecordScrapeOutcome("rtve", "short_content")
	RecordScrapeOutcome("rtve", "short_content")
	after := testutil.ToFloat64(ScrapeOutcomesTotal.WithLabelValues("rtve", "short_content"))
	assert.Equal(t, 2.0, after-before)
}

func TestRecordNeutralization(t *testing.T) {
	before := testutil.ToFloat64(NeutralizationsTotal.WithLabelValues("created"))
	RecordNeutralization("created", 1200*time.Millisecond)
	after := testutil.ToFloat64(NeutralizationsTotal.WithLabelValues("created"))
	assert.Equal(t, 1.0, after-before)

	// Zero duration records the outcome without observing the histogram.
	assert.NotPanics(t, func() { RecordNeutralization("skipped_unchanged", 0) })
}

func TestRecordRetentionDeletions(t *testing.T) {
	before := testutil.ToFloat64(RetentionDeletionsTotal.WithLabelValues("articles"))
	RecordRetentionDeletions("articles", 42)
	after := testutil.ToFloat64(RetentionDeletionsTotal.WithLabelValues("articles"))
	assert.Equal(t, 42.0, after-before)
}

func TestSetRetryQueueDepth(t *testing.T) {
	SetRetryQueueDepth(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(LLMRetryQueueDepth))
	SetRetryQueueDepth(0)
	assert.Equal(t, 0.0, testutil.ToFloat64(LLMRetryQueueDepth))
}
