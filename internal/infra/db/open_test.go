package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConnectionConfig(t *testing.T) {
	cfg := DefaultConnectionConfig()

	assert.Equal(t, 25, cfg.MaxOpenConns)
	assert.Equal(t, 10, cfg.MaxIdleConns)
	assert.Equal(t, time.Hour, cfg.ConnMaxLifetime)
	assert.Equal(t, 30*time.Minute, cfg.ConnMaxIdleTime)
}

func TestConnectionConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "50")
	t.Setenv("DB_MAX_IDLE_CONNS", "20")
	t.Setenv("DB_CONN_MAX_LIFETIME", "2h")
	t.Setenv("DB_CONN_MAX_IDLE_TIME", "15m")

	cfg := connectionConfigFromEnv()

	assert.Equal(t, 50, cfg.MaxOpenConns)
	assert.Equal(t, 20, cfg.MaxIdleConns)
	assert.Equal(t, 2*time.Hour, cfg.ConnMaxLifetime)
	assert.Equal(t, 15*time.Minute, cfg.ConnMaxIdleTime)
}

func TestConnectionConfigFromEnv_InvalidValuesKeepDefaults(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"non-numeric conns", "DB_MAX_OPEN_CONNS", "many"},
		{"zero conns", "DB_MAX_OPEN_CONNS", "0"},
		{"negative conns", "DB_MAX_IDLE_CONNS", "-5"},
		{"bad duration", "DB_CONN_MAX_LIFETIME", "soon"},
		{"negative duration", "DB_CONN_MAX_IDLE_TIME", "-10m"},
	}

	defaults := DefaultConnectionConfig()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			cfg := connectionConfigFromEnv()

			assert.Equal(t, defaults, cfg)
		})
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("DB_TEST_INT", "7")
	assert.Equal(t, 7, envInt("DB_TEST_INT"))
	assert.Zero(t, envInt("DB_TEST_INT_MISSING"))

	t.Setenv("DB_TEST_DUR", "90s")
	assert.Equal(t, 90*time.Second, envDuration("DB_TEST_DUR"))
	assert.Zero(t, envDuration("DB_TEST_DUR_MISSING"))
}
