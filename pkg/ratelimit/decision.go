package ratelimit

import (
	"fmt"
	"time"
)

// Decision represents the result of a rate limit check.
type Decision struct {
	// Allowed indicates whether the call should proceed.
	Allowed bool

	// Limit is the maximum number of calls allowed in the window.
	Limit int

	// Remaining is the number of calls remaining in the current window.
	Remaining int

	// RetryAfter is how long the caller should wait before retrying.
	// Zero when the call is allowed.
	RetryAfter time.Duration

	// Cooldown reports whether the denial came from a forced cooldown
	// rather than window exhaustion.
	Cooldown bool
}

// String returns a human-readable representation of the decision.
func (d *Decision) String() string {
	if d.Allowed {
		return fmt.Sprintf("Decision{Allowed: true, Remaining: %d/%d}", d.Remaining, d.Limit)
	}
	reason := "window exhausted"
	if d.Cooldown {
		reason = "cooldown"
	}
	return fmt.Sprintf("Decision{Allowed: false, Reason: %s, RetryAfter: %s}", reason, d.RetryAfter)
}
