package config

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Each test uses its own component name; promauto panics on duplicate
// metric names against the default registry.

func TestNewConfigMetrics(t *testing.T) {
	m := NewConfigMetrics("cfgtest_new")

	require.NotNil(t, m.LoadTimestamp)
	require.NotNil(t, m.ValidationErrorsTotal)
	require.NotNil(t, m.FallbacksTotal)
	require.NotNil(t, m.FallbackActive)
	assert.Equal(t, "cfgtest_new", m.componentName)
}

func TestNewConfigMetrics_ComponentsAreIndependent(t *testing.T) {
	a := NewConfigMetrics("cfgtest_indep_a")
	b := NewConfigMetrics("cfgtest_indep_b")

	a.RecordValidationError("timezone")

	assert.Equal(t, 1.0, testutil.ToFloat64(a.ValidationErrorsTotal.WithLabelValues("timezone")))
	assert.Zero(t, testutil.ToFloat64(b.ValidationErrorsTotal.WithLabelValues("timezone")))
}

func TestRecordLoadTimestamp(t *testing.T) {
	m := NewConfigMetrics("cfgtest_loadts")

	m.RecordLoadTimestamp()

	assert.Greater(t, testutil.ToFloat64(m.LoadTimestamp), 0.0)
}

func TestRecordValidationError_CountsPerField(t *testing.T) {
	m := NewConfigMetrics("cfgtest_valerr")

	m.RecordValidationError("pipeline_cron")
	m.RecordValidationError("pipeline_cron")
	m.RecordValidationError("timezone")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ValidationErrorsTotal.WithLabelValues("pipeline_cron")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ValidationErrorsTotal.WithLabelValues("timezone")))
	assert.Zero(t, testutil.ToFloat64(m.ValidationErrorsTotal.WithLabelValues("health_port")))
}

func TestRecordFallback_CountsPerField(t *testing.T) {
	m := NewConfigMetrics("cfgtest_fallback")

	m.RecordFallback("timezone", "default")
	m.RecordFallback("timezone", "default")
	m.RecordFallback("pipeline_timeout", "default")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.FallbacksTotal.WithLabelValues("timezone")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FallbacksTotal.WithLabelValues("pipeline_timeout")))
}

func TestSetFallbackActive_Toggles(t *testing.T) {
	m := NewConfigMetrics("cfgtest_active")

	m.SetFallbackActive("", false)
	assert.Zero(t, testutil.ToFloat64(m.FallbackActive))

	m.SetFallbackActive("", true)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FallbackActive))

	m.SetFallbackActive("", false)
	assert.Zero(t, testutil.ToFloat64(m.FallbackActive))
}

func TestConfigMetrics_CleanLoadLeavesNothingFlagged(t *testing.T) {
	m := NewConfigMetrics("cfgtest_clean")

	m.RecordLoadTimestamp()
	m.SetFallbackActive("", false)

	assert.Greater(t, testutil.ToFloat64(m.LoadTimestamp), 0.0)
	assert.Zero(t, testutil.ToFloat64(m.ValidationErrorsTotal.WithLabelValues("any")))
	assert.Zero(t, testutil.ToFloat64(m.FallbacksTotal.WithLabelValues("any")))
	assert.Zero(t, testutil.ToFloat64(m.FallbackActive))
}

func TestConfigMetrics_ConcurrentRecording(t *testing.T) {
	m := NewConfigMetrics("cfgtest_concurrent")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordLoadTimestamp()
			m.RecordValidationError("field")
			m.RecordFallback("field", "default")
			m.SetFallbackActive("field", true)
		}()
	}
	wg.Wait()

	assert.Equal(t, 10.0, testutil.ToFloat64(m.ValidationErrorsTotal.WithLabelValues("field")))
	assert.Equal(t, 10.0, testutil.ToFloat64(m.FallbacksTotal.WithLabelValues("field")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FallbackActive))
}
