// Package embedding encodes recent articles into dense vectors for the
// grouping stage. Articles are selected from a recency window, encoded from
// title plus body, and the vectors written back write-once.
package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"neutralnews/internal/domain/entity"
	"neutralnews/internal/observability/metrics"
	"neutralnews/internal/repository"
)

const (
	// Dimensions is the embedding vector size; it matches the vector
	// column in the articles table.
	Dimensions = 1536

	// defaultWindowHours selects articles recent enough to group.
	defaultWindowHours = 48
)

// Embedder encodes texts into vectors, preserving input order.
type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

// Config controls one embedding service instance.
type Config struct {
	// WindowHours bounds how far back articles are considered. Default: 48.
	WindowHours int
}

// Stats aggregates one embedding run.
type Stats struct {
	Candidates int
	Encoded    int
	Fallback   int
	Duration   time.Duration
}

// Service encodes and persists article embeddings.
type Service struct {
	ArticleRepo repository.ArticleRepository
	Embedder    Embedder

	config Config
	now    func() time.Time
}

// NewService creates an embedding Service.
func NewService(articleRepo repository.ArticleRepository, embedder Embedder, config Config) *Service {
	if config.WindowHours <= 0 {
		config.WindowHours = defaultWindowHours
	}
	return &Service{
		ArticleRepo: articleRepo,
		Embedder:    embedder,
		config:      config,
		now:         time.Now,
	}
}

// Run encodes every recent article that has no embedding yet. Encoder
// failures degrade to zero vectors so grouping still sees every article;
// a zero vector never matches anything and leaves the article ungrouped.
func (s *Service) Run(ctx context.Context) (*Stats, error) {
	logger := slog.Default()
	start := s.now()
	stats := &Stats{}

	since := s.now().Add(-time.Duration(s.config.WindowHours) * time.Hour)
	articles, err := s.ArticleRepo.QueryArticles(ctx, repository.ArticleQuery{PubDateSince: since})
	if err != nil {
		return stats, fmt.Errorf("query recent articles: %w", err)
	}

	pending := make([]*entity.Article, 0, len(articles))
	for _, a := range articles {
		if len(a.Embedding) == 0 {
			pending = append(pending, a)
		}
	}
	stats.Candidates = len(pending)
	if len(pending) == 0 {
		stats.Duration = time.Since(start)
		return stats, nil
	}

	inputs := make([]string, len(pending))
	for i, a := range pending {
		inputs[i] = a.Title + " " + a.Body()
	}

	encodeStart := time.Now()
	vectors, err := s.Embedder.Embed(ctx, inputs)
	if err != nil || len(vectors) != len(pending) {
		if err != nil {
			logger.Warn("embedding encode failed, falling back to zero vectors",
				slog.Int("articles", len(pending)),
				slog.Any("error", err))
		} else {
			logger.Warn("embedding encode returned wrong count, falling back to zero vectors",
				slog.Int("expected", len(pending)),
				slog.Int("got", len(vectors)))
		}
		vectors = make([][]float32, len(pending))
		for i := range vectors {
			vectors[i] = make([]float32, Dimensions)
		}
		stats.Fallback = len(pending)
	}
	metrics.RecordEmbeddingsEncoded(len(pending), time.Since(encodeStart))

	writeback := make(map[string][]float32, len(pending))
	for i, a := range pending {
		writeback[a.ID] = vectors[i]
	}
	if err := s.ArticleRepo.PutEmbeddings(ctx, writeback); err != nil {
		return stats, fmt.Errorf("persist embeddings: %w", err)
	}
	stats.Encoded = len(pending)

	stats.Duration = time.Since(start)
	logger.Info("embedding pass completed",
		slog.Int("candidates", stats.Candidates),
		slog.Int("encoded", stats.Encoded),
		slog.Int("fallback", stats.Fallback),
		slog.Duration("duration", stats.Duration),
	)
	return stats, nil
}
