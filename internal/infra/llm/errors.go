package llm

import "strings"

// rateLimitMarkers are substrings the OpenAI and Anthropic SDKs surface on
// quota or rate-limit failures. Provider error types differ across SDK
// versions, so classification is by message content.
var rateLimitMarkers = []string{
	"429",
	"rate_limit",
	"insufficient_quota",
}

// IsRateLimited reports whether the error indicates the provider rejected
// the call for rate or quota reasons. Callers react with a global cooldown
// rather than immediate retries.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range rateLimitMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// IsContextLengthExceeded reports whether the provider rejected the request
// because the prompt exceeded the model's context window. Callers retry
// with aggressively truncated input.
func IsContextLengthExceeded(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "context_length_exceeded")
}
