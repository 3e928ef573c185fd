package ingest

import (
	"sync"
	"time"
)

// OutletStats counts scrape outcomes for one outlet during a single run.
type OutletStats struct {
	RequestsMade     int64
	SuccessfulScrape int64
	EmptyContent     int64
	ShortContent     int64
	DuplicateContent int64
	BlockedByRobots  int64
}

// Stats aggregates one ingest run.
type Stats struct {
	mu sync.Mutex

	Outlets   int
	FeedItems int64
	Scraped   int64
	Inserted  int64
	Skipped   int64
	Duration  time.Duration

	PerOutlet map[string]*OutletStats
}

func newStats() *Stats {
	return &Stats{PerOutlet: make(map[string]*OutletStats)}
}

// outlet returns the counter block for the outlet, creating it on first use.
func (s *Stats) outlet(tag string) *OutletStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	os, ok := s.PerOutlet[tag]
	if !ok {
		os = &OutletStats{}
		s.PerOutlet[tag] = os
	}
	return os
}
