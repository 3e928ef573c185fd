package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnvString(t *testing.T) {
	t.Run("set", func(t *testing.T) {
		t.Setenv("TEST_STRING", "custom")
		assert.Equal(t, "custom", LoadEnvString("TEST_STRING", "default"))
	})

	t.Run("unset", func(t *testing.T) {
		assert.Equal(t, "default", LoadEnvString("TEST_STRING", "default"))
	})

	t.Run("empty counts as unset", func(t *testing.T) {
		t.Setenv("TEST_STRING", "")
		assert.Equal(t, "default", LoadEnvString("TEST_STRING", "default"))
	})
}

func TestLoadEnvWithFallback(t *testing.T) {
	const def = "0 * * * *"

	t.Run("valid env value wins", func(t *testing.T) {
		t.Setenv("TEST_CRON", "30 4 * * *")

		result := LoadEnvWithFallback("TEST_CRON", def, ValidateCronSchedule)

		assert.Equal(t, "30 4 * * *", result.Value)
		assert.False(t, result.FallbackApplied)
		assert.Empty(t, result.Warnings)
	})

	t.Run("unset falls back silently", func(t *testing.T) {
		result := LoadEnvWithFallback("TEST_CRON", def, ValidateCronSchedule)

		assert.Equal(t, def, result.Value)
		assert.False(t, result.FallbackApplied)
		assert.Empty(t, result.Warnings)
	})

	t.Run("invalid value falls back with warning", func(t *testing.T) {
		t.Setenv("TEST_CRON", "every hour")

		result := LoadEnvWithFallback("TEST_CRON", def, ValidateCronSchedule)

		assert.Equal(t, def, result.Value)
		assert.True(t, result.FallbackApplied)
		require.Len(t, result.Warnings, 1)
		assert.Contains(t, result.Warnings[0], "TEST_CRON")
		assert.Contains(t, result.Warnings[0], "every hour")
		assert.Contains(t, result.Warnings[0], "falling back to default")
	})

	t.Run("nil validator accepts anything", func(t *testing.T) {
		t.Setenv("TEST_CRON", "not even close")

		result := LoadEnvWithFallback("TEST_CRON", def, nil)

		assert.Equal(t, "not even close", result.Value)
		assert.False(t, result.FallbackApplied)
	})
}

func TestLoadEnvDuration(t *testing.T) {
	const def = 45 * time.Minute

	t.Run("valid value parses", func(t *testing.T) {
		t.Setenv("TEST_TIMEOUT", "20m")

		result := LoadEnvDuration("TEST_TIMEOUT", def, ValidatePositiveDuration)

		assert.Equal(t, 20*time.Minute, result.Value)
		assert.False(t, result.FallbackApplied)
	})

	t.Run("compound duration parses", func(t *testing.T) {
		t.Setenv("TEST_TIMEOUT", "1h30m")

		result := LoadEnvDuration("TEST_TIMEOUT", def, nil)

		assert.Equal(t, 90*time.Minute, result.Value)
	})

	t.Run("unset falls back silently", func(t *testing.T) {
		result := LoadEnvDuration("TEST_TIMEOUT", def, ValidatePositiveDuration)

		assert.Equal(t, def, result.Value)
		assert.False(t, result.FallbackApplied)
	})

	t.Run("unparsable value falls back with warning", func(t *testing.T) {
		t.Setenv("TEST_TIMEOUT", "soon")

		result := LoadEnvDuration("TEST_TIMEOUT", def, nil)

		assert.Equal(t, def, result.Value)
		assert.True(t, result.FallbackApplied)
		require.Len(t, result.Warnings, 1)
		assert.Contains(t, result.Warnings[0], "TEST_TIMEOUT")
	})

	t.Run("validator rejection falls back", func(t *testing.T) {
		t.Setenv("TEST_TIMEOUT", "12h")

		result := LoadEnvDuration("TEST_TIMEOUT", def, func(d time.Duration) error {
			return ValidateDuration(d, time.Minute, 4*time.Hour)
		})

		assert.Equal(t, def, result.Value)
		assert.True(t, result.FallbackApplied)
	})

	t.Run("negative parses but validator catches it", func(t *testing.T) {
		t.Setenv("TEST_TIMEOUT", "-5m")

		result := LoadEnvDuration("TEST_TIMEOUT", def, ValidatePositiveDuration)

		assert.Equal(t, def, result.Value)
		assert.True(t, result.FallbackApplied)
	})
}

func TestLoadEnvInt(t *testing.T) {
	const def = 9091

	portRange := func(v int) error { return ValidateIntRange(v, 1024, 65535) }

	t.Run("valid value parses", func(t *testing.T) {
		t.Setenv("TEST_PORT", "9191")

		result := LoadEnvInt("TEST_PORT", def, portRange)

		assert.Equal(t, 9191, result.Value)
		assert.False(t, result.FallbackApplied)
	})

	t.Run("unset falls back silently", func(t *testing.T) {
		result := LoadEnvInt("TEST_PORT", def, portRange)

		assert.Equal(t, def, result.Value)
		assert.False(t, result.FallbackApplied)
	})

	t.Run("non-numeric falls back with warning", func(t *testing.T) {
		t.Setenv("TEST_PORT", "nine thousand")

		result := LoadEnvInt("TEST_PORT", def, portRange)

		assert.Equal(t, def, result.Value)
		assert.True(t, result.FallbackApplied)
		require.Len(t, result.Warnings, 1)
		assert.Contains(t, result.Warnings[0], "invalid integer format")
	})

	t.Run("out of range falls back", func(t *testing.T) {
		t.Setenv("TEST_PORT", "99999")

		result := LoadEnvInt("TEST_PORT", def, portRange)

		assert.Equal(t, def, result.Value)
		assert.True(t, result.FallbackApplied)
	})

	t.Run("negative parses and validator decides", func(t *testing.T) {
		t.Setenv("TEST_PORT", "-1")

		result := LoadEnvInt("TEST_PORT", def, portRange)

		assert.Equal(t, def, result.Value)
		assert.True(t, result.FallbackApplied)
	})
}

func TestLoadEnvBool(t *testing.T) {
	trueSpellings := []string{"1", "t", "T", "true", "TRUE", "True"}
	for _, raw := range trueSpellings {
		t.Run("true spelling "+raw, func(t *testing.T) {
			t.Setenv("TEST_FLAG", raw)

			result := LoadEnvBool("TEST_FLAG", false)

			assert.Equal(t, true, result.Value)
			assert.False(t, result.FallbackApplied)
		})
	}

	falseSpellings := []string{"0", "f", "F", "false", "FALSE", "False"}
	for _, raw := range falseSpellings {
		t.Run("false spelling "+raw, func(t *testing.T) {
			t.Setenv("TEST_FLAG", raw)

			result := LoadEnvBool("TEST_FLAG", true)

			assert.Equal(t, false, result.Value)
			assert.False(t, result.FallbackApplied)
		})
	}

	t.Run("unset falls back silently", func(t *testing.T) {
		result := LoadEnvBool("TEST_FLAG", true)

		assert.Equal(t, true, result.Value)
		assert.False(t, result.FallbackApplied)
	})

	t.Run("garbage falls back with warning", func(t *testing.T) {
		t.Setenv("TEST_FLAG", "yes")

		result := LoadEnvBool("TEST_FLAG", false)

		assert.Equal(t, false, result.Value)
		assert.True(t, result.FallbackApplied)
		require.Len(t, result.Warnings, 1)
		assert.Contains(t, result.Warnings[0], "invalid boolean format")
	})
}
