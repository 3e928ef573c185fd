package ingest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"neutralnews/internal/domain/entity"
	"neutralnews/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeArticleRepo implements repository.ArticleRepository in memory.
type fakeArticleRepo struct {
	mu        sync.Mutex
	links     map[entity.Outlet][]string
	persisted []*entity.Article
	putErr    error
}

func newFakeArticleRepo() *fakeArticleRepo {
	return &fakeArticleRepo{links: make(map[entity.Outlet][]string)}
}

func (r *fakeArticleRepo) PutArticles(ctx context.Context, articles []*entity.Article) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.putErr != nil {
		return 0, r.putErr
	}
	r.persisted = append(r.persisted, articles...)
	return len(articles), nil
}

func (r *fakeArticleRepo) ExistsByLink(ctx context.Context, link string) (bool, error) {
	return false, nil
}

func (r *fakeArticleRepo) ListLinksByOutlet(ctx context.Context, outlet entity.Outlet) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.links[outlet], nil
}

func (r *fakeArticleRepo) QueryArticles(ctx context.Context, q repository.ArticleQuery) ([]*entity.Article, error) {
	return nil, nil
}

func (r *fakeArticleRepo) PutEmbeddings(ctx context.Context, vectors map[string][]float32) error {
	return nil
}

func (r *fakeArticleRepo) ListGroupIDs(ctx context.Context) ([]int64, error) { return nil, nil }

func (r *fakeArticleRepo) ListGroupItems(ctx context.Context, groupID int64) ([]*entity.Article, error) {
	return nil, nil
}

func (r *fakeArticleRepo) CountGroupItems(ctx context.Context, groupID int64) (int, error) {
	return 0, nil
}

func (r *fakeArticleRepo) UpdateGroupID(ctx context.Context, articleID string, groupID *int64) error {
	return nil
}

func (r *fakeArticleRepo) UpdateNeutralScore(ctx context.Context, articleID string, score int) error {
	return nil
}

func (r *fakeArticleRepo) UpdatePubDate(ctx context.Context, articleID string, pubDate time.Time) error {
	return nil
}

func (r *fakeArticleRepo) DeleteArticles(ctx context.Context, ids []string) (int, error) {
	return 0, nil
}

func (r *fakeArticleRepo) ListAgedIDs(ctx context.Context, threshold time.Time) ([]string, error) {
	return nil, nil
}

// fakeFetcher serves canned items per outlet.
type fakeFetcher struct {
	items map[entity.Outlet][]FeedItem
}

func (f *fakeFetcher) FetchOutlet(ctx context.Context, outlet entity.Outlet, feedURL string) []FeedItem {
	return f.items[outlet]
}

// fakeExtractor returns a fixed body per URL.
type fakeExtractor struct {
	mu     sync.Mutex
	bodies map[string]string
	err    error
	calls  []string
}

func (e *fakeExtractor) Extract(ctx context.Context, url string) (string, error) {
	e.mu.Lock()
	e.calls = append(e.calls, url)
	e.mu.Unlock()
	if e.err != nil {
		return "", e.err
	}
	return e.bodies[url], nil
}

// fakeGate blocks the URLs in its deny set.
type fakeGate struct {
	deny map[string]bool
}

func (g *fakeGate) Allow(ctx context.Context, rawURL string) bool { return !g.deny[rawURL] }
func (g *fakeGate) Wait(ctx context.Context, rawURL string) error { return nil }

func testRegistry() map[entity.Outlet]entity.OutletInfo {
	return map[entity.Outlet]entity.OutletInfo{
		entity.OutletElPais: {DisplayName: "El País", FeedURL: "https://elpais.example/rss"},
		entity.OutletRTVE:   {DisplayName: "RTVE", FeedURL: "https://rtve.example/rss"},
	}
}

func longText(words int) string {
	return strings.TrimSpace(strings.Repeat("palabra ", words))
}

func newTestService(repo *fakeArticleRepo, fetcher *fakeFetcher, extractor *fakeExtractor, gate *fakeGate) *Service {
	s := NewService(repo, fetcher, extractor, gate, testRegistry(), Config{MinWords: 100})
	s.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestRun_PersistsFetchedArticles(t *testing.T) {
	repo := newFakeArticleRepo()
	fetcher := &fakeFetcher{items: map[entity.Outlet][]FeedItem{
		entity.OutletElPais: {
			{Title: "Noticia A", Link: "https://elpais.example/a", Description: longText(150)},
		},
		entity.OutletRTVE: {
			{Title: "Noticia B", Link: "https://rtve.example/b", Description: longText(150)},
		},
	}}

	s := newTestService(repo, fetcher, &fakeExtractor{}, &fakeGate{})
	stats, err := s.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.FeedItems)
	assert.Equal(t, int64(2), stats.Inserted)
	assert.Len(t, repo.persisted, 2)
	for _, a := range repo.persisted {
		assert.NotEmpty(t, a.ID)
		assert.True(t, a.Outlet.Valid())
	}
}

func TestRun_FeedCategoryIsKeptWithFallback(t *testing.T) {
	repo := newFakeArticleRepo()
	fetcher := &fakeFetcher{items: map[entity.Outlet][]FeedItem{
		entity.OutletElPais: {
			{Title: "Con categoría", Link: "https://elpais.example/a", Description: longText(150), Category: "economía"},
			{Title: "Sin categoría", Link: "https://elpais.example/b", Description: longText(150)},
		},
	}}

	s := newTestService(repo, fetcher, &fakeExtractor{}, &fakeGate{})
	_, err := s.Run(context.Background())

	require.NoError(t, err)
	require.Len(t, repo.persisted, 2)
	byTitle := map[string]*entity.Article{}
	for _, a := range repo.persisted {
		byTitle[a.Title] = a
	}
	assert.Equal(t, "economía", byTitle["Con categoría"].Category)
	assert.Equal(t, "sinCategoria", byTitle["Sin categoría"].Category)
}

func TestRun_SkipsLinksAlreadyStored(t *testing.T) {
	repo := newFakeArticleRepo()
	// Stored with scheme and trailing slash differences; dedup is on the
	// normalized form.
	repo.links[entity.OutletElPais] = []string{"http://elpais.example/a/"}

	fetcher := &fakeFetcher{items: map[entity.Outlet][]FeedItem{
		entity.OutletElPais: {
			{Title: "Repetida", Link: "https://elpais.example/a", Description: longText(150)},
			{Title: "Nueva", Link: "https://elpais.example/b", Description: longText(150)},
		},
	}}

	s := newTestService(repo, fetcher, &fakeExtractor{}, &fakeGate{})
	stats, err := s.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Inserted)
	assert.Equal(t, int64(1), stats.Skipped)
	require.Len(t, repo.persisted, 1)
	assert.Equal(t, "Nueva", repo.persisted[0].Title)
}

func TestRun_ScrapesThinDescriptions(t *testing.T) {
	repo := newFakeArticleRepo()
	fetcher := &fakeFetcher{items: map[entity.Outlet][]FeedItem{
		entity.OutletElPais: {
			{Title: "Corta", Link: "https://elpais.example/corta", Description: "resumen breve"},
			{Title: "Larga", Link: "https://elpais.example/larga", Description: longText(150)},
		},
	}}
	extractor := &fakeExtractor{bodies: map[string]string{
		"https://elpais.example/corta": longText(200),
	}}

	s := newTestService(repo, fetcher, extractor, &fakeGate{})
	stats, err := s.Run(context.Background())

	require.NoError(t, err)
	// Only the thin description triggered a scrape.
	assert.Equal(t, []string{"https://elpais.example/corta"}, extractor.calls)
	assert.Equal(t, int64(1), stats.Scraped)

	counters := stats.PerOutlet[string(entity.OutletElPais)]
	require.NotNil(t, counters)
	assert.Equal(t, int64(1), counters.RequestsMade)
	assert.Equal(t, int64(1), counters.SuccessfulScrape)

	byTitle := map[string]*entity.Article{}
	for _, a := range repo.persisted {
		byTitle[a.Title] = a
	}
	assert.NotEmpty(t, byTitle["Corta"].ScrapedDescription)
	assert.Empty(t, byTitle["Larga"].ScrapedDescription)
}

func TestRun_ShortScrapeFallsBackToFeedDescription(t *testing.T) {
	repo := newFakeArticleRepo()
	fetcher := &fakeFetcher{items: map[entity.Outlet][]FeedItem{
		entity.OutletElPais: {
			{Title: "Corta", Link: "https://elpais.example/corta", Description: "resumen breve"},
		},
	}}
	extractor := &fakeExtractor{bodies: map[string]string{
		"https://elpais.example/corta": "texto escaso",
	}}

	s := newTestService(repo, fetcher, extractor, &fakeGate{})
	stats, err := s.Run(context.Background())

	require.NoError(t, err)
	counters := stats.PerOutlet[string(entity.OutletElPais)]
	assert.Equal(t, int64(1), counters.ShortContent)
	assert.Equal(t, int64(0), counters.SuccessfulScrape)
	require.Len(t, repo.persisted, 1)
	assert.Empty(t, repo.persisted[0].ScrapedDescription)
	assert.Equal(t, "resumen breve", repo.persisted[0].RawDescription)
}

func TestRun_RobotsDenialSkipsScrape(t *testing.T) {
	repo := newFakeArticleRepo()
	fetcher := &fakeFetcher{items: map[entity.Outlet][]FeedItem{
		entity.OutletElPais: {
			{Title: "Vetada", Link: "https://elpais.example/vetada", Description: "breve"},
		},
	}}
	extractor := &fakeExtractor{}
	gate := &fakeGate{deny: map[string]bool{"https://elpais.example/vetada": true}}

	s := newTestService(repo, fetcher, extractor, gate)
	stats, err := s.Run(context.Background())

	require.NoError(t, err)
	assert.Empty(t, extractor.calls)
	counters := stats.PerOutlet[string(entity.OutletElPais)]
	assert.Equal(t, int64(1), counters.BlockedByRobots)
	// Article still persisted with the feed description.
	require.Len(t, repo.persisted, 1)
	assert.Equal(t, "breve", repo.persisted[0].RawDescription)
}

func TestRun_ExtractionErrorKeepsArticle(t *testing.T) {
	repo := newFakeArticleRepo()
	fetcher := &fakeFetcher{items: map[entity.Outlet][]FeedItem{
		entity.OutletElPais: {
			{Title: "Fallida", Link: "https://elpais.example/fallida", Description: "breve"},
		},
	}}
	extractor := &fakeExtractor{err: errors.New("connection refused")}

	s := newTestService(repo, fetcher, extractor, &fakeGate{})
	stats, err := s.Run(context.Background())

	require.NoError(t, err)
	counters := stats.PerOutlet[string(entity.OutletElPais)]
	assert.Equal(t, int64(1), counters.EmptyContent)
	assert.Len(t, repo.persisted, 1)
}

func TestRun_DuplicateContentHashDropsClone(t *testing.T) {
	repo := newFakeArticleRepo()
	shared := longText(150)
	fetcher := &fakeFetcher{items: map[entity.Outlet][]FeedItem{
		entity.OutletElPais: {
			{Title: "Teletipo", Link: "https://elpais.example/a", Description: shared},
			{Title: "Teletipo", Link: "https://elpais.example/b", Description: shared},
		},
	}}

	s := newTestService(repo, fetcher, &fakeExtractor{}, &fakeGate{})
	stats, err := s.Run(context.Background())

	require.NoError(t, err)
	assert.Len(t, repo.persisted, 1)
	counters := stats.PerOutlet[string(entity.OutletElPais)]
	assert.Equal(t, int64(1), counters.DuplicateContent)
	assert.Equal(t, int64(1), stats.Inserted)
}

func TestRun_PersistErrorPropagates(t *testing.T) {
	repo := newFakeArticleRepo()
	repo.putErr = errors.New("connection lost")
	fetcher := &fakeFetcher{items: map[entity.Outlet][]FeedItem{
		entity.OutletElPais: {
			{Title: "Noticia", Link: "https://elpais.example/a", Description: longText(150)},
		},
	}}

	s := newTestService(repo, fetcher, &fakeExtractor{}, &fakeGate{})
	_, err := s.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "persist articles")
}

func TestRun_NilExtractorDisablesScraping(t *testing.T) {
	repo := newFakeArticleRepo()
	fetcher := &fakeFetcher{items: map[entity.Outlet][]FeedItem{
		entity.OutletElPais: {
			{Title: "Corta", Link: "https://elpais.example/corta", Description: "breve"},
		},
	}}

	s := NewService(repo, fetcher, nil, nil, testRegistry(), Config{})
	stats, err := s.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Scraped)
	require.Len(t, repo.persisted, 1)
	assert.Empty(t, repo.persisted[0].ScrapedDescription)
}
