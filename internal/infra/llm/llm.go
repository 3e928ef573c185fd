// Package llm wraps the OpenAI and Anthropic APIs behind small interfaces
// used by the neutralization and embedding pipelines. Both providers share
// the same resilience layering: retry with backoff around a circuit breaker.
package llm

import "context"

// ChatClient produces a single JSON completion for a system/user prompt
// pair. Implementations must request structured (JSON) output from the
// provider so the caller can unmarshal the response directly.
type ChatClient interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Embedder encodes input texts into dense vectors, preserving input order.
type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}
