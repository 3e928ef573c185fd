package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"neutralnews/internal/resilience/circuitbreaker"
	"neutralnews/internal/resilience/retry"
)

const providerClaude = "claude"

// Claude implements ChatClient using Anthropic's Messages API. The API has
// no JSON response mode, so the system prompt is extended with a JSON-only
// instruction and markdown fences are stripped from the reply.
type Claude struct {
	client          anthropic.Client
	circuitBreaker  *circuitbreaker.CircuitBreaker
	retryConfig     retry.Config
	config          ClaudeConfig
	metricsRecorder CallMetricsRecorder
}

// NewClaude creates a Claude chat client with circuit breaker and retry.
func NewClaude(config ClaudeConfig, recorder CallMetricsRecorder) *Claude {
	if recorder == nil {
		recorder = NoopCallMetrics{}
	}

	slog.Info("initialized claude chat client",
		slog.String("model", config.Model),
		slog.Int64("max_tokens", config.MaxTokens))

	return &Claude{
		client:          anthropic.NewClient(option.WithAPIKey(config.APIKey)),
		circuitBreaker:  circuitbreaker.New(circuitbreaker.ClaudeAPIConfig()),
		retryConfig:     retry.NeutralizeConfig(),
		config:          config,
		metricsRecorder: recorder,
	}
}

// wrapClaudeAPIError lifts server-side API failures into retry.HTTPError so
// the backoff loop retries them; 429 and other client rejections pass
// through for the caller's cooldown policy.
func wrapClaudeAPIError(err error) error {
	var apiErr *anthropic.Error
	if err == nil || !errors.As(err, &apiErr) {
		return err
	}
	if apiErr.StatusCode >= 500 {
		return &retry.HTTPError{StatusCode: apiErr.StatusCode, Message: apiErr.Error()}
	}
	return err
}

// CompleteJSON sends the prompts and returns the reply as raw JSON text.
func (c *Claude) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	var result string
	start := time.Now()

	retryErr := retry.WithBackoff(ctx, c.retryConfig, func() error {
		cbResult, err := c.circuitBreaker.Execute(func() (interface{}, error) {
			return c.doComplete(ctx, systemPrompt, userPrompt)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("claude api circuit breaker open, request rejected",
					slog.String("service", "claude-api"),
					slog.String("state", c.circuitBreaker.State().String()))
				return fmt.Errorf("claude api unavailable: circuit breaker open")
			}
			return err
		}

		result = cbResult.(string)
		return nil
	})

	c.metricsRecorder.RecordDuration(providerClaude, time.Since(start))
	c.metricsRecorder.RecordCall(providerClaude, outcomeFor(retryErr))
	if retryErr != nil {
		return "", fmt.Errorf("CompleteJSON: %w", retryErr)
	}
	return result, nil
}

func (c *Claude) doComplete(ctx context.Context, systemPrompt, userPrompt string) (interface{}, error) {
	requestID := uuid.New().String()
	start := time.Now()

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.config.Model),
		MaxTokens: c.config.MaxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt + "\n\nResponde únicamente con un objeto JSON válido, sin texto adicional."},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(userPrompt),
			),
		},
	})

	duration := time.Since(start)

	if err != nil {
		slog.ErrorContext(ctx, "claude completion failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return "", fmt.Errorf("claude api error: %w", wrapClaudeAPIError(err))
	}

	if len(message.Content) == 0 {
		return "", fmt.Errorf("claude api returned empty response")
	}
	textBlock, ok := message.Content[0].AsAny().(anthropic.TextBlock)
	if !ok {
		return "", fmt.Errorf("claude api returned unexpected response type")
	}

	slog.DebugContext(ctx, "claude completion finished",
		slog.String("request_id", requestID),
		slog.Duration("duration", duration),
		slog.Int("response_length", len(textBlock.Text)))

	return stripJSONFences(textBlock.Text), nil
}

// stripJSONFences removes a surrounding markdown code fence that the model
// sometimes adds despite the JSON-only instruction.
func stripJSONFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
