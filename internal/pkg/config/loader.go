package config

import (
	"fmt"
	"os"
	"time"
)

// ConfigLoadResult is the outcome of loading one configuration value.
// Loading is fail-open: the Value field always holds something usable,
// and FallbackApplied tells the caller whether validation rejected the
// environment value and the default was substituted. Warnings carry the
// operator-facing explanation for each fallback.
//
//	result := LoadEnvDuration("PIPELINE_TIMEOUT", 45*time.Minute, ValidatePositiveDuration)
//	timeout := result.Value.(time.Duration)
type ConfigLoadResult struct {
	Value           interface{}
	Warnings        []string
	FallbackApplied bool
}

// used returns a result carrying the environment value unchanged.
func used(value interface{}) ConfigLoadResult {
	return ConfigLoadResult{Value: value}
}

// fellBack returns a result carrying the default plus one warning.
func fellBack(value interface{}, warning string) ConfigLoadResult {
	return ConfigLoadResult{
		Value:           value,
		Warnings:        []string{warning},
		FallbackApplied: true,
	}
}

// LoadEnvString reads a string from the environment, returning the
// default when the variable is unset or empty. No validation; use
// LoadEnvWithFallback when a validator applies.
func LoadEnvString(envKey, defaultValue string) string {
	if value := os.Getenv(envKey); value != "" {
		return value
	}
	return defaultValue
}

// LoadEnvWithFallback reads a string from the environment and validates
// it. An unset variable silently yields the default; a set-but-invalid
// one yields the default with FallbackApplied and a warning. A nil
// validator accepts everything.
func LoadEnvWithFallback(envKey, defaultValue string, validator func(string) error) ConfigLoadResult {
	value := os.Getenv(envKey)
	if value == "" {
		return used(defaultValue)
	}

	if validator != nil {
		if err := validator(value); err != nil {
			return fellBack(defaultValue, fmt.Sprintf(
				"Invalid %s='%s': %v, falling back to default '%s'",
				envKey, value, err, defaultValue))
		}
	}

	return used(value)
}

// LoadEnvDuration reads a Go duration string ("30s", "1h30m") from the
// environment. Parse and validation failures both fall back to the
// default with a warning; an unset variable falls back silently.
func LoadEnvDuration(envKey string, defaultValue time.Duration, validator func(time.Duration) error) ConfigLoadResult {
	raw := os.Getenv(envKey)
	if raw == "" {
		return used(defaultValue)
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fellBack(defaultValue, fmt.Sprintf(
			"Invalid %s='%s': %v, falling back to default '%v'",
			envKey, raw, err, defaultValue))
	}

	if validator != nil {
		if err := validator(parsed); err != nil {
			return fellBack(defaultValue, fmt.Sprintf(
				"Invalid %s='%s': %v, falling back to default '%v'",
				envKey, raw, err, defaultValue))
		}
	}

	return used(parsed)
}

// LoadEnvInt reads an integer from the environment with the same
// fail-open behavior as LoadEnvDuration.
func LoadEnvInt(envKey string, defaultValue int, validator func(int) error) ConfigLoadResult {
	raw := os.Getenv(envKey)
	if raw == "" {
		return used(defaultValue)
	}

	var parsed int
	if _, err := fmt.Sscanf(raw, "%d", &parsed); err != nil {
		return fellBack(defaultValue, fmt.Sprintf(
			"Invalid %s='%s': invalid integer format, falling back to default '%d'",
			envKey, raw, defaultValue))
	}

	if validator != nil {
		if err := validator(parsed); err != nil {
			return fellBack(defaultValue, fmt.Sprintf(
				"Invalid %s='%s': %v, falling back to default '%d'",
				envKey, raw, err, defaultValue))
		}
	}

	return used(parsed)
}

// LoadEnvBool reads a boolean from the environment. Accepted spellings
// match strconv.ParseBool: "1"/"t"/"true" and "0"/"f"/"false" in any of
// their usual casings. Anything else falls back with a warning.
func LoadEnvBool(envKey string, defaultValue bool) ConfigLoadResult {
	raw := os.Getenv(envKey)
	if raw == "" {
		return used(defaultValue)
	}

	switch raw {
	case "1", "t", "T", "true", "TRUE", "True":
		return used(true)
	case "0", "f", "F", "false", "FALSE", "False":
		return used(false)
	default:
		return fellBack(defaultValue, fmt.Sprintf(
			"Invalid %s='%s': invalid boolean format, expected 'true' or 'false', falling back to default '%t'",
			envKey, raw, defaultValue))
	}
}
