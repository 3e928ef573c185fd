// Package retention prunes aged articles and neutral groups while keeping
// every article that still backs a recent group.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"neutralnews/internal/observability/metrics"
	"neutralnews/internal/repository"
)

// DefaultRetentionDays is how long articles and groups are kept.
const DefaultRetentionDays = 7

// Config tunes the retention window.
type Config struct {
	// RetentionDays overrides DefaultRetentionDays when positive.
	RetentionDays int
}

// Stats aggregates one retention run.
type Stats struct {
	Protected       int
	ArticlesDeleted int
	GroupsDeleted   int
	Duration        time.Duration
}

// Service deletes expired documents.
type Service struct {
	ArticleRepo repository.ArticleRepository
	GroupRepo   repository.NeutralGroupRepository

	config Config
	now    func() time.Time
}

// NewService creates a retention Service.
func NewService(articleRepo repository.ArticleRepository, groupRepo repository.NeutralGroupRepository, config Config) *Service {
	if config.RetentionDays <= 0 {
		config.RetentionDays = DefaultRetentionDays
	}
	return &Service{
		ArticleRepo: articleRepo,
		GroupRepo:   groupRepo,
		config:      config,
		now:         time.Now,
	}
}

// Run deletes articles and groups older than the retention window.
// Articles referenced by a group whose date is still inside the window are
// protected regardless of their own age, so a long-running story never
// loses its sources.
func (s *Service) Run(ctx context.Context) (*Stats, error) {
	logger := slog.Default()
	start := s.now()
	stats := &Stats{}

	threshold := s.now().AddDate(0, 0, -s.config.RetentionDays)

	recent, err := s.GroupRepo.QueryRecentGroups(ctx, threshold)
	if err != nil {
		return stats, fmt.Errorf("query recent groups: %w", err)
	}
	protected := make(map[string]bool)
	for _, g := range recent {
		for _, id := range g.SourceIDs {
			protected[id] = true
		}
	}
	stats.Protected = len(protected)

	agedArticles, err := s.ArticleRepo.ListAgedIDs(ctx, threshold)
	if err != nil {
		return stats, fmt.Errorf("list aged articles: %w", err)
	}
	doomed := make([]string, 0, len(agedArticles))
	for _, id := range agedArticles {
		if !protected[id] {
			doomed = append(doomed, id)
		}
	}
	if len(doomed) > 0 {
		deleted, err := s.ArticleRepo.DeleteArticles(ctx, doomed)
		if err != nil {
			return stats, fmt.Errorf("delete aged articles: %w", err)
		}
		stats.ArticlesDeleted = deleted
		metrics.RecordRetentionDeletions("articles", deleted)
	}

	agedGroups, err := s.GroupRepo.ListAgedGroupIDs(ctx, threshold)
	if err != nil {
		return stats, fmt.Errorf("list aged groups: %w", err)
	}
	if len(agedGroups) > 0 {
		deleted, err := s.GroupRepo.DeleteGroups(ctx, agedGroups)
		if err != nil {
			return stats, fmt.Errorf("delete aged groups: %w", err)
		}
		stats.GroupsDeleted = deleted
		metrics.RecordRetentionDeletions("neutral_groups", deleted)
	}

	stats.Duration = time.Since(start)
	logger.Info("retention run completed",
		slog.Time("threshold", threshold),
		slog.Int("protected", stats.Protected),
		slog.Int("articles_deleted", stats.ArticlesDeleted),
		slog.Int("groups_deleted", stats.GroupsDeleted),
		slog.Duration("duration", stats.Duration),
	)
	return stats, nil
}
