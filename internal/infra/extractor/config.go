package extractor

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config controls article body extraction.
//
// Security settings:
//   - DenyPrivateIPs: blocks URLs resolving to private addresses (SSRF)
//   - MaxBodySize: caps response size to protect memory
//   - MaxRedirects: bounds redirect chains
//   - Timeout: bounds one fetch
type Config struct {
	// Timeout is the maximum duration for a single extraction fetch.
	// Default: 10s
	Timeout time.Duration

	// MinWords is the minimum word count for a scraped body to replace the
	// feed description. Shorter extractions are discarded.
	// Default: 100
	MinWords int

	// Parallelism is the number of concurrent enrichment workers.
	// Default: 20
	Parallelism int

	// MaxBodySize is the maximum HTTP response body size in bytes.
	// Default: 10485760 (10MB)
	MaxBodySize int64

	// MaxRedirects bounds the redirect chain; each target is re-validated.
	// Default: 5
	MaxRedirects int

	// DenyPrivateIPs blocks URLs resolving to private/loopback addresses.
	// Should always be true in production.
	// Default: true
	DenyPrivateIPs bool
}

// DefaultConfig returns production defaults for body extraction.
func DefaultConfig() Config {
	return Config{
		Timeout:        10 * time.Second,
		MinWords:       100,
		Parallelism:    20,
		MaxBodySize:    10 * 1024 * 1024,
		MaxRedirects:   5,
		DenyPrivateIPs: true,
	}
}

// Validate checks the configuration bounds.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	if c.MinWords < 0 {
		return fmt.Errorf("min words must be non-negative, got %d", c.MinWords)
	}
	if c.Parallelism < 1 || c.Parallelism > 50 {
		return fmt.Errorf("parallelism must be between 1 and 50, got %d", c.Parallelism)
	}
	minBodySize := int64(1024)
	maxBodySize := int64(100 * 1024 * 1024)
	if c.MaxBodySize < minBodySize || c.MaxBodySize > maxBodySize {
		return fmt.Errorf("max body size must be between %d and %d bytes, got %d",
			minBodySize, maxBodySize, c.MaxBodySize)
	}
	if c.MaxRedirects < 0 || c.MaxRedirects > 10 {
		return fmt.Errorf("max redirects must be between 0 and 10, got %d", c.MaxRedirects)
	}
	return nil
}

// LoadConfigFromEnv loads extraction settings from the environment, falling
// back to defaults for unset variables. Invalid values are errors: a typo in
// a security bound should not silently relax it.
//
// Environment variables:
//   - SCRAPE_TIMEOUT: duration string, e.g. "10s" (default: 10s)
//   - SCRAPE_MIN_WORDS: integer (default: 100)
//   - SCRAPE_PARALLELISM: integer (default: 20)
//   - SCRAPE_MAX_BODY_SIZE: integer bytes (default: 10485760)
//   - SCRAPE_MAX_REDIRECTS: integer (default: 5)
//   - SCRAPE_DENY_PRIVATE_IPS: "true" or "false" (default: true)
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if val := os.Getenv("SCRAPE_TIMEOUT"); val != "" {
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return cfg, fmt.Errorf("invalid SCRAPE_TIMEOUT: %v (expected format: '10s', '1m')", err)
		}
		cfg.Timeout = parsed
	}

	if val := os.Getenv("SCRAPE_MIN_WORDS"); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return cfg, fmt.Errorf("invalid SCRAPE_MIN_WORDS: %v", err)
		}
		cfg.MinWords = parsed
	}

	if val := os.Getenv("SCRAPE_PARALLELISM"); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return cfg, fmt.Errorf("invalid SCRAPE_PARALLELISM: %v", err)
		}
		cfg.Parallelism = parsed
	}

	if val := os.Getenv("SCRAPE_MAX_BODY_SIZE"); val != "" {
		parsed, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("invalid SCRAPE_MAX_BODY_SIZE: %v", err)
		}
		cfg.MaxBodySize = parsed
	}

	if val := os.Getenv("SCRAPE_MAX_REDIRECTS"); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return cfg, fmt.Errorf("invalid SCRAPE_MAX_REDIRECTS: %v", err)
		}
		cfg.MaxRedirects = parsed
	}

	if val := os.Getenv("SCRAPE_DENY_PRIVATE_IPS"); val != "" {
		cfg.DenyPrivateIPs = val == "true"
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}
