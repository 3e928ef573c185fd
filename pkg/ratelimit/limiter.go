package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Limiter enforces a sliding one-minute call budget shared by all workers
// in the process. It also exposes ForceCooldown, which pauses every caller
// for a fixed period after the provider signals a rate or quota violation.
//
// All methods are safe for concurrent use.
type Limiter struct {
	mu            sync.Mutex
	timestamps    []time.Time
	cooldownUntil time.Time

	config  Config
	metrics MetricsRecorder
}

// New creates a Limiter. A nil recorder disables metrics.
func New(config Config, metrics MetricsRecorder) *Limiter {
	if config.CallsPerMinute < 1 {
		config.CallsPerMinute = defaultCallsPerMinute
	}
	if config.Window <= 0 {
		config.Window = time.Minute
	}
	if config.Cooldown <= 0 {
		config.Cooldown = defaultCooldown
	}
	if config.Clock == nil {
		config.Clock = &SystemClock{}
	}
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &Limiter{
		config:  config,
		metrics: metrics,
	}
}

// Check atomically reserves a call slot if one is available. The check and
// the reservation happen under one lock so concurrent callers cannot
// overshoot the budget.
func (l *Limiter) Check() *Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.config.Clock.Now()

	if now.Before(l.cooldownUntil) {
		l.metrics.RecordDenied("cooldown")
		return &Decision{
			Allowed:    false,
			Limit:      l.config.CallsPerMinute,
			RetryAfter: l.cooldownUntil.Sub(now),
			Cooldown:   true,
		}
	}

	l.pruneLocked(now)

	if len(l.timestamps) >= l.config.CallsPerMinute {
		// The slot held by the oldest call frees up when it leaves
		// the window.
		retryAfter := l.timestamps[0].Add(l.config.Window).Sub(now)
		if retryAfter < 0 {
			retryAfter = 0
		}
		l.metrics.RecordDenied("window")
		return &Decision{
			Allowed:    false,
			Limit:      l.config.CallsPerMinute,
			RetryAfter: retryAfter,
		}
	}

	l.timestamps = append(l.timestamps, now)
	l.metrics.RecordAllowed()
	return &Decision{
		Allowed:   true,
		Limit:     l.config.CallsPerMinute,
		Remaining: l.config.CallsPerMinute - len(l.timestamps),
	}
}

// Wait blocks until a call slot is reserved or the context is cancelled.
// Cooldowns imposed while waiting are honored.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		decision := l.Check()
		if decision.Allowed {
			return nil
		}

		delay := decision.RetryAfter
		if delay <= 0 {
			delay = 50 * time.Millisecond
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// ForceCooldown pauses all callers for the configured cooldown duration.
// Repeated calls extend the pause only if the new deadline is later.
func (l *Limiter) ForceCooldown() {
	l.mu.Lock()
	defer l.mu.Unlock()

	until := l.config.Clock.Now().Add(l.config.Cooldown)
	if until.After(l.cooldownUntil) {
		l.cooldownUntil = until
		l.metrics.RecordCooldown()
		slog.Warn("rate limiter entering forced cooldown",
			slog.Duration("cooldown", l.config.Cooldown),
			slog.Time("until", until))
	}
}

// InCooldown reports whether a forced cooldown is currently active.
func (l *Limiter) InCooldown() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.config.Clock.Now().Before(l.cooldownUntil)
}

// CallsInWindow returns the number of calls recorded in the current window.
func (l *Limiter) CallsInWindow() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pruneLocked(l.config.Clock.Now())
	return len(l.timestamps)
}

// pruneLocked drops timestamps older than the window. Callers must hold mu.
func (l *Limiter) pruneLocked(now time.Time) {
	cutoff := now.Add(-l.config.Window)
	idx := 0
	for idx < len(l.timestamps) && !l.timestamps[idx].After(cutoff) {
		idx++
	}
	if idx > 0 {
		l.timestamps = append(l.timestamps[:0], l.timestamps[idx:]...)
	}
}
