// Package robots enforces crawler etiquette: robots.txt permission checks
// and per-domain pacing shared by the feed fetcher and the body scraper.
package robots

import (
	"container/list"
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"golang.org/x/time/rate"
)

// Purpose qualifies a robots check. Feed polls are advisory: a denial is
// logged but the poll proceeds, since feeds are published for consumption.
// Body scrapes honor denials strictly.
type Purpose string

const (
	PurposeFeed Purpose = "feed"
	PurposeBody Purpose = "body"
)

const (
	// MaxDomains bounds the per-domain cache; least recently used entries
	// are evicted beyond this.
	MaxDomains = 50

	// fetchTimeout bounds one robots.txt download.
	fetchTimeout = 8 * time.Second

	// minDelay and maxDelay bound the per-domain request spacing.
	minDelay = 500 * time.Millisecond
	maxDelay = 1 * time.Second
)

// Checker is the gate surface used by the ingest pipeline.
type Checker interface {
	// Allow reports whether the URL may be fetched for the purpose.
	Allow(ctx context.Context, rawURL string, purpose Purpose) bool

	// Wait blocks until the URL's domain may be hit again.
	Wait(ctx context.Context, rawURL string) error
}

type domainState struct {
	element *list.Element
	// data is nil when the robots.txt fetch failed; unknown policies allow.
	data    *robotstxt.RobotsData
	limiter *rate.Limiter
}

// Gate caches robots.txt per domain with LRU eviction and paces requests
// with a per-domain rate limiter. Safe for concurrent use.
type Gate struct {
	client    *http.Client
	logger    *slog.Logger
	userAgent string

	mu      sync.Mutex
	domains map[string]*domainState
	order   *list.List // front = most recently used
	max     int
}

func NewGate(client *http.Client, logger *slog.Logger, userAgent string) *Gate {
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		client:    client,
		logger:    logger,
		userAgent: userAgent,
		domains:   make(map[string]*domainState),
		order:     list.New(),
		max:       MaxDomains,
	}
}

// Allow reports whether the URL may be fetched for the given purpose.
// Malformed URLs are allowed through; the fetch itself will fail with a
// clearer error.
func (g *Gate) Allow(ctx context.Context, rawURL string, purpose Purpose) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return true
	}

	state := g.domainState(ctx, u)
	if state.data == nil {
		// Unknown policy: the robots.txt fetch failed.
		return true
	}

	path := u.Path
	if path == "" {
		path = "/"
	}
	if state.data.TestAgent(path, g.userAgent) {
		return true
	}

	if purpose == PurposeFeed {
		g.logger.Warn("robots.txt disallows feed URL, polling anyway",
			slog.String("url", rawURL))
		return true
	}
	return false
}

// Wait blocks until the URL's domain may be hit again, spacing requests to
// the same domain by 0.5-1s. Returns early when the context is cancelled.
func (g *Gate) Wait(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil
	}

	g.mu.Lock()
	state, ok := g.domains[u.Host]
	if !ok {
		state = g.newDomainState(u.Host)
	} else {
		g.order.MoveToFront(state.element)
	}
	limiter := state.limiter
	g.mu.Unlock()

	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("robots: wait for %s: %w", u.Host, err)
	}
	return nil
}

// domainState returns the cached state for the URL's domain, fetching
// robots.txt on first sight.
func (g *Gate) domainState(ctx context.Context, u *url.URL) *domainState {
	g.mu.Lock()
	if state, ok := g.domains[u.Host]; ok {
		g.order.MoveToFront(state.element)
		g.mu.Unlock()
		return state
	}
	state := g.newDomainState(u.Host)
	g.mu.Unlock()

	// Fetch outside the lock; concurrent first hits on the same domain may
	// fetch twice, which is harmless.
	data := g.fetchRobots(ctx, u)

	g.mu.Lock()
	state.data = data
	g.mu.Unlock()
	return state
}

// newDomainState inserts a fresh state for the host, evicting the least
// recently used domain when the cache is full. Caller holds g.mu.
func (g *Gate) newDomainState(host string) *domainState {
	for g.order.Len() >= g.max {
		oldest := g.order.Back()
		g.order.Remove(oldest)
		delete(g.domains, oldest.Value.(string))
	}

	delay := minDelay + time.Duration(rand.Int63n(int64(maxDelay-minDelay)))
	state := &domainState{
		element: g.order.PushFront(host),
		limiter: rate.NewLimiter(rate.Every(delay), 1),
	}
	g.domains[host] = state
	return state
}

func (g *Gate) fetchRobots(ctx context.Context, u *url.URL) *robotstxt.RobotsData {
	robotsURL := fmt.Sprintf("%s://%s/robots.txt", u.Scheme, u.Host)

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Debug("robots.txt fetch failed, treating policy as unknown",
			slog.String("url", robotsURL), slog.String("error", err.Error()))
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		g.logger.Debug("robots.txt parse failed, treating policy as unknown",
			slog.String("url", robotsURL), slog.String("error", err.Error()))
		return nil
	}
	return data
}
