// Package ingest implements the hourly fetch-and-enrich stage: it pulls
// every outlet feed, scrapes article bodies where the feed description is
// too thin, deduplicates, and persists the new articles.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"neutralnews/internal/domain/entity"
	"neutralnews/internal/observability/metrics"
	"neutralnews/internal/repository"
	"neutralnews/internal/utils/text"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	// fetchParallelism bounds concurrent feed downloads.
	fetchParallelism = 16

	// enrichParallelism bounds concurrent body scrapes.
	enrichParallelism = 20

	// defaultMinWords gates scraping and accepts scraped bodies: feed
	// descriptions shorter than this trigger a scrape, and scraped bodies
	// shorter than this are discarded.
	defaultMinWords = 100

	// defaultCategory labels articles whose feed carries no category.
	defaultCategory = "sinCategoria"
)

// FeedItem is one entry from an outlet feed.
type FeedItem struct {
	Title       string
	Link        string
	Description string
	Category    string
	ImageURL    string
	PubDate     time.Time
}

// FeedFetcher downloads and parses one outlet feed. Implementations never
// fail the run: on error they return an empty slice.
type FeedFetcher interface {
	FetchOutlet(ctx context.Context, outlet entity.Outlet, feedURL string) []FeedItem
}

// BodyExtractor fetches an article page and returns its readable text.
type BodyExtractor interface {
	Extract(ctx context.Context, url string) (string, error)
}

// BodyGate answers whether an article page may be scraped and paces
// requests per domain.
type BodyGate interface {
	Allow(ctx context.Context, rawURL string) bool
	Wait(ctx context.Context, rawURL string) error
}

// Config controls one ingest service instance.
type Config struct {
	// MinWords is the scrape gate and scraped-body acceptance threshold.
	// Default: 100.
	MinWords int
}

// Service orchestrates fetch, enrichment, and persistence.
type Service struct {
	ArticleRepo repository.ArticleRepository
	Fetcher     FeedFetcher
	Extractor   BodyExtractor
	Gate        BodyGate
	Registry    map[entity.Outlet]entity.OutletInfo

	config Config
	now    func() time.Time
	newID  func() string
}

// NewService creates an ingest Service. Extractor and Gate may be nil to
// disable scraping (feed descriptions are stored as-is).
func NewService(
	articleRepo repository.ArticleRepository,
	fetcher FeedFetcher,
	extractor BodyExtractor,
	gate BodyGate,
	registry map[entity.Outlet]entity.OutletInfo,
	config Config,
) *Service {
	if config.MinWords <= 0 {
		config.MinWords = defaultMinWords
	}
	return &Service{
		ArticleRepo: articleRepo,
		Fetcher:     fetcher,
		Extractor:   extractor,
		Gate:        gate,
		Registry:    registry,
		config:      config,
		now:         time.Now,
		newID:       func() string { return uuid.New().String() },
	}
}

// Run executes one ingest pass over every registered outlet. Individual
// outlet failures never abort the pass; only persistence errors do.
func (s *Service) Run(ctx context.Context) (*Stats, error) {
	logger := slog.Default()
	start := s.now()
	stats := newStats()

	tags := entity.OutletTags(s.Registry)
	stats.Outlets = len(tags)

	items := s.fetchAll(ctx, tags, stats)
	articles, err := s.enrichAll(ctx, tags, items, stats)
	if err != nil {
		return stats, err
	}

	inserted, err := s.ArticleRepo.PutArticles(ctx, articles)
	if err != nil {
		return stats, fmt.Errorf("persist articles: %w", err)
	}
	stats.Inserted = int64(inserted)
	metrics.RecordArticlesPersisted(inserted)

	stats.Duration = time.Since(start)
	logger.Info("ingest pass completed",
		slog.Int("outlets", stats.Outlets),
		slog.Int64("feed_items", stats.FeedItems),
		slog.Int64("scraped", stats.Scraped),
		slog.Int64("inserted", stats.Inserted),
		slog.Int64("skipped", stats.Skipped),
		slog.Duration("duration", stats.Duration),
	)
	return stats, nil
}

// fetchAll downloads every outlet feed with bounded parallelism.
func (s *Service) fetchAll(ctx context.Context, tags []entity.Outlet, stats *Stats) map[entity.Outlet][]FeedItem {
	var mu sync.Mutex
	items := make(map[entity.Outlet][]FeedItem, len(tags))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(fetchParallelism)

	for _, tag := range tags {
		outlet := tag
		info := s.Registry[outlet]
		eg.Go(func() error {
			fetched := s.Fetcher.FetchOutlet(egCtx, outlet, info.FeedURL)
			atomic.AddInt64(&stats.FeedItems, int64(len(fetched)))
			mu.Lock()
			items[outlet] = fetched
			mu.Unlock()
			return nil
		})
	}
	// Workers never return errors; Wait only surfaces ctx cancellation.
	_ = eg.Wait()
	return items
}

// enrichAll deduplicates, scrapes, and builds article entities for every
// fetched item.
func (s *Service) enrichAll(
	ctx context.Context,
	tags []entity.Outlet,
	items map[entity.Outlet][]FeedItem,
	stats *Stats,
) ([]*entity.Article, error) {
	logger := slog.Default()

	// Per-outlet sets of links already stored, for dedup before scraping.
	knownLinks := make(map[entity.Outlet]map[string]bool, len(tags))
	for _, outlet := range tags {
		links, err := s.ArticleRepo.ListLinksByOutlet(ctx, outlet)
		if err != nil {
			logger.Warn("failed to list stored links, relying on insert conflict dedup",
				slog.String("outlet", string(outlet)),
				slog.Any("error", err))
			knownLinks[outlet] = make(map[string]bool)
			continue
		}
		set := make(map[string]bool, len(links))
		for _, link := range links {
			set[entity.NormalizeLink(link)] = true
		}
		knownLinks[outlet] = set
	}

	var mu sync.Mutex
	var articles []*entity.Article
	seenHashes := make(map[string]bool)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(enrichParallelism)

	for _, tag := range tags {
		outlet := tag
		known := knownLinks[outlet]
		for _, feedItem := range items[outlet] {
			item := feedItem
			normalized := entity.NormalizeLink(item.Link)

			// Link dedup is run under the loop, not the worker, so one
			// item claims its link before a sibling checks it.
			mu.Lock()
			if known[normalized] {
				mu.Unlock()
				atomic.AddInt64(&stats.Skipped, 1)
				continue
			}
			known[normalized] = true
			mu.Unlock()

			eg.Go(func() error {
				article := s.buildArticle(egCtx, outlet, item, stats)

				hash := contentHash(article.Title, article.Body())
				mu.Lock()
				if seenHashes[hash] {
					mu.Unlock()
					atomic.AddInt64(&stats.outlet(string(outlet)).DuplicateContent, 1)
					metrics.RecordScrapeOutcome(string(outlet), "duplicate_content")
					atomic.AddInt64(&stats.Skipped, 1)
					return nil
				}
				seenHashes[hash] = true
				articles = append(articles, article)
				mu.Unlock()
				return nil
			})
		}
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return articles, nil
}

// buildArticle assembles the entity, scraping the body when the feed
// description is below the word gate. Scrape failures fall back to the
// feed description.
func (s *Service) buildArticle(ctx context.Context, outlet entity.Outlet, item FeedItem, stats *Stats) *entity.Article {
	category := item.Category
	if category == "" {
		category = defaultCategory
	}
	article := &entity.Article{
		ID:             s.newID(),
		Outlet:         outlet,
		Link:           item.Link,
		Title:          item.Title,
		RawDescription: item.Description,
		Category:       category,
		ImageURL:       item.ImageURL,
		PubDate:        item.PubDate,
		CreatedAt:      s.now(),
	}

	if s.Extractor == nil || text.CountWords(item.Description) >= s.config.MinWords {
		return article
	}

	counters := stats.outlet(string(outlet))
	atomic.AddInt64(&counters.RequestsMade, 1)

	if s.Gate != nil {
		if !s.Gate.Allow(ctx, item.Link) {
			atomic.AddInt64(&counters.BlockedByRobots, 1)
			metrics.RecordScrapeOutcome(string(outlet), "blocked_by_robots")
			return article
		}
		if err := s.Gate.Wait(ctx, item.Link); err != nil {
			return article
		}
	}

	body, err := s.Extractor.Extract(ctx, item.Link)
	if err != nil || body == "" {
		atomic.AddInt64(&counters.EmptyContent, 1)
		metrics.RecordScrapeOutcome(string(outlet), "empty_content")
		if err != nil {
			slog.Debug("body extraction failed, keeping feed description",
				slog.String("outlet", string(outlet)),
				slog.String("url", item.Link),
				slog.Any("error", err))
		}
		return article
	}

	if text.CountWords(body) < s.config.MinWords {
		atomic.AddInt64(&counters.ShortContent, 1)
		metrics.RecordScrapeOutcome(string(outlet), "short_content")
		return article
	}

	atomic.AddInt64(&counters.SuccessfulScrape, 1)
	atomic.AddInt64(&stats.Scraped, 1)
	metrics.RecordScrapeOutcome(string(outlet), "success")
	article.ScrapedDescription = body
	return article
}

// contentHash fingerprints an article's visible text for in-run dedup of
// identical stories syndicated under different links.
func contentHash(title, body string) string {
	sum := sha256.Sum256([]byte(title + "\n" + body))
	return hex.EncodeToString(sum[:])
}
