package ratelimit

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

const (
	defaultCallsPerMinute = 500
	defaultCooldown       = 2 * time.Minute
)

// Config holds the limiter settings.
type Config struct {
	// CallsPerMinute is the maximum number of calls allowed in any sliding
	// one-minute window. Default: 500.
	CallsPerMinute int

	// Window is the sliding window duration. Default: one minute.
	Window time.Duration

	// Cooldown is the pause applied by ForceCooldown when the provider
	// rejects calls for rate or quota reasons. Default: 2 minutes.
	Cooldown time.Duration

	// Clock provides time operations for testing. Default: SystemClock.
	Clock Clock
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		CallsPerMinute: defaultCallsPerMinute,
		Window:         time.Minute,
		Cooldown:       defaultCooldown,
		Clock:          &SystemClock{},
	}
}

// Validate checks the configuration bounds.
func (c *Config) Validate() error {
	if c.CallsPerMinute < 1 {
		return fmt.Errorf("calls per minute must be positive, got %d", c.CallsPerMinute)
	}
	if c.Window <= 0 {
		return fmt.Errorf("window must be positive, got %v", c.Window)
	}
	if c.Cooldown <= 0 {
		return fmt.Errorf("cooldown must be positive, got %v", c.Cooldown)
	}
	return nil
}

// LoadConfigFromEnv loads limiter settings from the environment, falling
// back to defaults with a warning on unparsable values. A misconfigured
// limiter should throttle conservatively, not crash the pipeline.
//
// Environment variables:
//   - LLM_CALLS_PER_MINUTE: integer (default: 500)
//   - LLM_COOLDOWN: duration string, e.g. "2m" (default: 2m)
func LoadConfigFromEnv() Config {
	cfg := DefaultConfig()

	if val := os.Getenv("LLM_CALLS_PER_MINUTE"); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil || parsed < 1 {
			slog.Warn("invalid LLM_CALLS_PER_MINUTE, using default",
				slog.String("value", val),
				slog.Int("default", defaultCallsPerMinute))
		} else {
			cfg.CallsPerMinute = parsed
		}
	}

	if val := os.Getenv("LLM_COOLDOWN"); val != "" {
		parsed, err := time.ParseDuration(val)
		if err != nil || parsed <= 0 {
			slog.Warn("invalid LLM_COOLDOWN, using default",
				slog.String("value", val),
				slog.Duration("default", defaultCooldown))
		} else {
			cfg.Cooldown = parsed
		}
	}

	return cfg
}
