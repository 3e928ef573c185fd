package ratelimit

// NoopMetrics discards all recordings. Used in tests and when metrics are
// disabled.
type NoopMetrics struct{}

func (NoopMetrics) RecordAllowed()             {}
func (NoopMetrics) RecordDenied(reason string) {}
func (NoopMetrics) RecordCooldown()            {}
