// Package resilience groups the fault tolerance building blocks the
// pipeline wraps around every external dependency: outlet feeds, article
// pages, the model APIs, and Postgres.
//
// Subpackages:
//   - retry: exponential backoff with jitter and per-dependency presets
//   - circuitbreaker: gobreaker wrappers that stop hammering a failing host
//
// Both compose; a typical call site retries inside an open-circuit check:
//
//	cb := circuitbreaker.New(circuitbreaker.FeedFetchConfig())
//	err := retry.WithBackoff(ctx, retry.FeedFetchConfig(), func() error {
//	    _, err := cb.Execute(fetch)
//	    return err
//	})
package resilience
