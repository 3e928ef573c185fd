package llm

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

const (
	// defaultChatModel is the completion model for neutralization.
	defaultChatModel = "gpt-4o-mini"

	// defaultEmbedModel produces 1536-dimension vectors.
	defaultEmbedModel = "text-embedding-3-small"

	// EmbeddingDimensions is the vector size stored in the articles table.
	// Changing it requires a schema migration.
	EmbeddingDimensions = 1536

	// defaultTemperature keeps neutral rewrites close to the source text.
	defaultTemperature = 0.3

	defaultTimeout = 60 * time.Second

	defaultClaudeModel     = "claude-3-5-haiku-latest"
	defaultClaudeMaxTokens = 4096
)

// apiKeyFromEnv reads the provider-specific key, then the generic
// LLM_API_KEY used by single-provider deployments.
func apiKeyFromEnv(providerKey string) string {
	if key := os.Getenv(providerKey); key != "" {
		return key
	}
	return os.Getenv("LLM_API_KEY")
}

// OpenAIConfig holds settings for the OpenAI chat and embedding clients.
type OpenAIConfig struct {
	APIKey      string
	ChatModel   string
	EmbedModel  string
	Temperature float32
	Timeout     time.Duration
}

// ClaudeConfig holds settings for the Anthropic chat client.
type ClaudeConfig struct {
	APIKey    string
	Model     string
	MaxTokens int64
	Timeout   time.Duration
}

// LoadOpenAIConfig loads OpenAI settings from the environment. The API key
// is required; everything else falls back to defaults. Invalid optional
// values are errors rather than silent fallbacks, because a typo in a model
// name would otherwise burn quota against the wrong model.
//
// Environment variables:
//   - OPENAI_API_KEY: required (LLM_API_KEY accepted as a fallback)
//   - NEUTRALIZER_MODEL: chat model (default: gpt-4o-mini)
//   - EMBEDDING_MODEL: embedding model (default: text-embedding-3-small)
//   - LLM_TEMPERATURE: float (default: 0.3)
//   - LLM_TIMEOUT: duration string (default: 60s)
func LoadOpenAIConfig() (OpenAIConfig, error) {
	cfg := OpenAIConfig{
		ChatModel:   defaultChatModel,
		EmbedModel:  defaultEmbedModel,
		Temperature: defaultTemperature,
		Timeout:     defaultTimeout,
	}

	cfg.APIKey = apiKeyFromEnv("OPENAI_API_KEY")
	if cfg.APIKey == "" {
		return cfg, fmt.Errorf("OPENAI_API_KEY is not set (nor LLM_API_KEY)")
	}

	if val := os.Getenv("NEUTRALIZER_MODEL"); val != "" {
		cfg.ChatModel = val
	}
	if val := os.Getenv("EMBEDDING_MODEL"); val != "" {
		cfg.EmbedModel = val
	}
	if val := os.Getenv("LLM_TEMPERATURE"); val != "" {
		parsed, err := strconv.ParseFloat(val, 32)
		if err != nil {
			return cfg, fmt.Errorf("invalid LLM_TEMPERATURE: %v", err)
		}
		if parsed < 0 || parsed > 2 {
			return cfg, fmt.Errorf("LLM_TEMPERATURE must be between 0 and 2, got %v", parsed)
		}
		cfg.Temperature = float32(parsed)
	}
	if val := os.Getenv("LLM_TIMEOUT"); val != "" {
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return cfg, fmt.Errorf("invalid LLM_TIMEOUT: %v (expected format: '60s', '2m')", err)
		}
		cfg.Timeout = parsed
	}

	return cfg, nil
}

// LoadClaudeConfig loads Anthropic settings from the environment. The API
// key is required; optional values that fail to parse fall back to defaults
// with a warning so a bad deploy degrades instead of crashing.
//
// Environment variables:
//   - ANTHROPIC_API_KEY: required (LLM_API_KEY accepted as a fallback)
//   - CLAUDE_MODEL: chat model (default: claude-3-5-haiku-latest)
//   - CLAUDE_MAX_TOKENS: integer (default: 4096)
//   - LLM_TIMEOUT: duration string (default: 60s)
func LoadClaudeConfig() (ClaudeConfig, error) {
	cfg := ClaudeConfig{
		Model:     defaultClaudeModel,
		MaxTokens: defaultClaudeMaxTokens,
		Timeout:   defaultTimeout,
	}

	cfg.APIKey = apiKeyFromEnv("ANTHROPIC_API_KEY")
	if cfg.APIKey == "" {
		return cfg, fmt.Errorf("ANTHROPIC_API_KEY is not set (nor LLM_API_KEY)")
	}

	if val := os.Getenv("CLAUDE_MODEL"); val != "" {
		cfg.Model = val
	}
	if val := os.Getenv("CLAUDE_MAX_TOKENS"); val != "" {
		parsed, err := strconv.ParseInt(val, 10, 64)
		if err != nil || parsed <= 0 {
			slog.Warn("invalid CLAUDE_MAX_TOKENS, using default",
				slog.String("value", val),
				slog.Int64("default", defaultClaudeMaxTokens))
		} else {
			cfg.MaxTokens = parsed
		}
	}
	if val := os.Getenv("LLM_TIMEOUT"); val != "" {
		parsed, err := time.ParseDuration(val)
		if err != nil {
			slog.Warn("invalid LLM_TIMEOUT, using default",
				slog.String("value", val),
				slog.Duration("default", defaultTimeout))
		} else {
			cfg.Timeout = parsed
		}
	}

	return cfg, nil
}
