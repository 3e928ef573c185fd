// Package ratelimit provides a process-wide sliding window limiter for
// outbound API calls. It caps the number of calls per minute and supports
// a forced cooldown that pauses all callers when the provider signals a
// rate or quota violation.
package ratelimit

import "time"

// Clock provides an abstraction for time operations to enable testing.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// SystemClock is a Clock implementation that uses the system time.
type SystemClock struct{}

// Now returns the current system time.
func (c *SystemClock) Now() time.Time {
	return time.Now()
}
