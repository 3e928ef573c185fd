package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"neutralnews/internal/resilience/circuitbreaker"
	"neutralnews/internal/resilience/retry"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
)

const (
	providerOpenAI = "openai"

	// embedBatchSize caps one embeddings request. Larger input slices are
	// split into consecutive requests preserving order.
	embedBatchSize = 256
)

// OpenAI implements ChatClient and Embedder against the OpenAI API.
type OpenAI struct {
	client          *openai.Client
	circuitBreaker  *circuitbreaker.CircuitBreaker
	retryConfig     retry.Config
	config          OpenAIConfig
	metricsRecorder CallMetricsRecorder
}

// NewOpenAI creates an OpenAI client with circuit breaker and retry.
func NewOpenAI(config OpenAIConfig, recorder CallMetricsRecorder) *OpenAI {
	if recorder == nil {
		recorder = NoopCallMetrics{}
	}
	return &OpenAI{
		client:          openai.NewClient(config.APIKey),
		circuitBreaker:  circuitbreaker.New(circuitbreaker.OpenAIAPIConfig()),
		retryConfig:     retry.NeutralizeConfig(),
		config:          config,
		metricsRecorder: recorder,
	}
}

// CompleteJSON sends the prompts in JSON mode and returns the raw JSON
// response text. Rate-limit and context-length failures are returned
// unretried so the caller can apply its cooldown / truncation policy.
func (o *OpenAI) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.config.Timeout)
	defer cancel()

	var result string
	start := time.Now()

	retryErr := retry.WithBackoff(ctx, o.retryConfig, func() error {
		cbResult, err := o.circuitBreaker.Execute(func() (interface{}, error) {
			return o.doComplete(ctx, systemPrompt, userPrompt)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("openai api circuit breaker open, request rejected",
					slog.String("service", "openai-api"),
					slog.String("state", o.circuitBreaker.State().String()))
				return fmt.Errorf("openai api unavailable: circuit breaker open")
			}
			return err
		}

		result = cbResult.(string)
		return nil
	})

	o.metricsRecorder.RecordDuration(providerOpenAI, time.Since(start))
	o.metricsRecorder.RecordCall(providerOpenAI, outcomeFor(retryErr))
	if retryErr != nil {
		return "", fmt.Errorf("CompleteJSON: %w", retryErr)
	}
	return result, nil
}

// wrapAPIError lifts server-side API failures into retry.HTTPError so the
// backoff loop retries them at 2/4/8s. Client-side rejections (429 quota,
// context length) pass through untouched for the caller's cooldown and
// truncation policies.
func wrapAPIError(err error) error {
	var apiErr *openai.APIError
	if err == nil || !errors.As(err, &apiErr) {
		return err
	}
	if apiErr.HTTPStatusCode >= 500 || apiErr.HTTPStatusCode == http.StatusRequestTimeout {
		return &retry.HTTPError{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
	}
	return err
}

func (o *OpenAI) doComplete(ctx context.Context, systemPrompt, userPrompt string) (interface{}, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.config.ChatModel,
		Temperature: o.config.Temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion failed: %w", wrapAPIError(err))
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai api returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Embed encodes the inputs into 1536-dimension vectors, preserving input
// order. Inputs are sent in batches of at most embedBatchSize.
func (o *OpenAI) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(inputs))
	for offset := 0; offset < len(inputs); offset += embedBatchSize {
		end := offset + embedBatchSize
		if end > len(inputs) {
			end = len(inputs)
		}
		batch, err := o.embedBatch(ctx, inputs[offset:end])
		if err != nil {
			return nil, fmt.Errorf("Embed: batch at offset %d: %w", offset, err)
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

func (o *OpenAI) embedBatch(ctx context.Context, inputs []string) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, o.config.Timeout)
	defer cancel()

	var vectors [][]float32
	start := time.Now()

	retryErr := retry.WithBackoff(ctx, o.retryConfig, func() error {
		cbResult, err := o.circuitBreaker.Execute(func() (interface{}, error) {
			resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
				Input:      inputs,
				Model:      openai.EmbeddingModel(o.config.EmbedModel),
				Dimensions: EmbeddingDimensions,
			})
			if err != nil {
				return nil, fmt.Errorf("openai embeddings failed: %w", wrapAPIError(err))
			}
			if len(resp.Data) != len(inputs) {
				return nil, fmt.Errorf("openai api returned %d embeddings for %d inputs",
					len(resp.Data), len(inputs))
			}
			out := make([][]float32, len(inputs))
			for _, item := range resp.Data {
				if item.Index < 0 || item.Index >= len(out) {
					return nil, fmt.Errorf("openai api returned out-of-range embedding index %d", item.Index)
				}
				out[item.Index] = item.Embedding
			}
			return out, nil
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("openai api circuit breaker open, request rejected",
					slog.String("service", "openai-api"),
					slog.String("state", o.circuitBreaker.State().String()))
				return fmt.Errorf("openai api unavailable: circuit breaker open")
			}
			return err
		}

		vectors = cbResult.([][]float32)
		return nil
	})

	o.metricsRecorder.RecordDuration(providerOpenAI, time.Since(start))
	o.metricsRecorder.RecordCall(providerOpenAI, outcomeFor(retryErr))
	if retryErr != nil {
		return nil, retryErr
	}
	return vectors, nil
}
