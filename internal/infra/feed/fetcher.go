// Package feed fetches and parses outlet RSS/Atom feeds. It uses the gofeed
// library wrapped in the shared retry and circuit breaker patterns; a failing
// outlet never aborts the hourly run, it just contributes zero items.
package feed

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"neutralnews/internal/domain/entity"
	"neutralnews/internal/infra/robots"
	"neutralnews/internal/observability/metrics"
	"neutralnews/internal/resilience/circuitbreaker"
	"neutralnews/internal/resilience/retry"

	"github.com/mmcdole/gofeed"
	"github.com/sony/gobreaker"
)

const (
	// UserAgent identifies the crawler to outlets and robots.txt policies.
	UserAgent = "NeutralNews/1.0 (+https://ezequielgaribotto.com)"

	// acceptLanguage prefers Spanish content from multi-language outlets.
	acceptLanguage = "es-ES,es;q=0.9,en;q=0.5"
)

// Item is one parsed feed entry, normalized for ingestion. Category is the
// feed's first category element, empty when the outlet publishes none.
type Item struct {
	Title       string
	Link        string
	Description string
	Category    string
	ImageURL    string
	PubDate     time.Time
}

// Fetcher retrieves outlet feeds with retry and circuit breaker protection.
type Fetcher struct {
	client         *http.Client
	gate           robots.Checker
	logger         *slog.Logger
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	now            func() time.Time
}

func NewFetcher(client *http.Client, gate robots.Checker, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		client:         client,
		gate:           gate,
		logger:         logger,
		circuitBreaker: circuitbreaker.New(circuitbreaker.FeedFetchConfig()),
		retryConfig:    retry.FeedFetchConfig(),
		now:            time.Now,
	}
}

// FetchOutlet retrieves and parses one outlet's feed. Failures are logged
// and recorded; the return value is then an empty slice, never an error,
// so one broken outlet cannot abort the run.
func (f *Fetcher) FetchOutlet(ctx context.Context, outlet entity.Outlet, feedURL string) []Item {
	start := f.now()
	logger := f.logger.With(slog.String("outlet", string(outlet)))

	// Feed denials are advisory; Allow logs and lets the poll through.
	f.gate.Allow(ctx, feedURL, robots.PurposeFeed)
	if err := f.gate.Wait(ctx, feedURL); err != nil {
		logger.Warn("feed fetch cancelled while pacing", slog.String("error", err.Error()))
		metrics.RecordFeedFetchError(string(outlet), "cancelled")
		return nil
	}

	var items []Item
	retryErr := retry.WithBackoff(ctx, f.retryConfig, func() error {
		cbResult, err := f.circuitBreaker.Execute(func() (interface{}, error) {
			return f.doFetch(ctx, feedURL)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				logger.Warn("feed fetch circuit breaker open, request rejected",
					slog.String("url", feedURL),
					slog.String("state", f.circuitBreaker.State().String()))
			}
			return err
		}
		items = cbResult.([]Item)
		return nil
	})

	if retryErr != nil {
		logger.Warn("feed fetch failed, continuing with empty feed",
			slog.String("url", feedURL),
			slog.String("error", retryErr.Error()))
		metrics.RecordFeedFetchError(string(outlet), classifyFetchError(retryErr))
		return nil
	}

	metrics.RecordFeedFetch(string(outlet), time.Since(start))
	metrics.RecordArticlesFetched(string(outlet), len(items))
	return items
}

// doFetch performs the actual fetch and parse without retry or breaker.
func (f *Fetcher) doFetch(ctx context.Context, feedURL string) ([]Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept-Language", acceptLanguage)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &retry.HTTPError{StatusCode: resp.StatusCode, Message: "feed fetch"}
	}

	parsed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		if it.Link == "" || it.Title == "" {
			continue
		}

		var pubDate time.Time
		if it.PublishedParsed != nil {
			pubDate = it.PublishedParsed.UTC()
		} else {
			pubDate = ParsePubDate(it.Published, f.now())
		}

		description := it.Description
		if description == "" {
			description = it.Content
		}

		category := ""
		if len(it.Categories) > 0 {
			category = strings.TrimSpace(it.Categories[0])
		}

		items = append(items, Item{
			Title:       it.Title,
			Link:        it.Link,
			Description: description,
			Category:    category,
			ImageURL:    ExtractImageURL(it),
			PubDate:     pubDate,
		})
	}
	return items, nil
}

func classifyFetchError(err error) string {
	var httpErr *retry.HTTPError
	if errors.As(err, &httpErr) {
		return "http"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "network"
}
