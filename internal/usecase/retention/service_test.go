package retention

import (
	"context"
	"errors"
	"testing"
	"time"

	"neutralnews/internal/domain/entity"
	"neutralnews/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeArticleRepo struct {
	repository.ArticleRepository

	agedIDs       []string
	lastThreshold time.Time
	deleted       []string
	deleteErr     error
}

func (r *fakeArticleRepo) ListAgedIDs(ctx context.Context, threshold time.Time) ([]string, error) {
	r.lastThreshold = threshold
	return r.agedIDs, nil
}

func (r *fakeArticleRepo) DeleteArticles(ctx context.Context, ids []string) (int, error) {
	if r.deleteErr != nil {
		return 0, r.deleteErr
	}
	r.deleted = ids
	return len(ids), nil
}

type fakeGroupRepo struct {
	repository.NeutralGroupRepository

	recent       []*entity.NeutralGroup
	agedGroupIDs []int64
	deleted      []int64
}

func (r *fakeGroupRepo) QueryRecentGroups(ctx context.Context, since time.Time) ([]*entity.NeutralGroup, error) {
	return r.recent, nil
}

func (r *fakeGroupRepo) ListAgedGroupIDs(ctx context.Context, threshold time.Time) ([]int64, error) {
	return r.agedGroupIDs, nil
}

func (r *fakeGroupRepo) DeleteGroups(ctx context.Context, groupIDs []int64) (int, error) {
	r.deleted = groupIDs
	return len(groupIDs), nil
}

func TestRun_DeletesAgedUnprotectedArticlesAndGroups(t *testing.T) {
	articleRepo := &fakeArticleRepo{agedIDs: []string{"a-1", "a-2", "a-3"}}
	groupRepo := &fakeGroupRepo{
		recent: []*entity.NeutralGroup{
			{GroupID: 9, SourceIDs: []string{"a-2", "a-9"}},
		},
		agedGroupIDs: []int64{3, 4},
	}

	s := NewService(articleRepo, groupRepo, Config{})
	stats, err := s.Run(context.Background())

	require.NoError(t, err)
	// a-2 backs a still-recent group and survives its own age.
	assert.Equal(t, []string{"a-1", "a-3"}, articleRepo.deleted)
	assert.Equal(t, []int64{3, 4}, groupRepo.deleted)
	assert.Equal(t, 2, stats.ArticlesDeleted)
	assert.Equal(t, 2, stats.GroupsDeleted)
	assert.Equal(t, 2, stats.Protected)
}

func TestRun_ThresholdUsesConfiguredWindow(t *testing.T) {
	articleRepo := &fakeArticleRepo{}
	groupRepo := &fakeGroupRepo{}
	now := time.Date(2025, 6, 10, 4, 30, 0, 0, time.UTC)

	s := NewService(articleRepo, groupRepo, Config{RetentionDays: 14})
	s.now = func() time.Time { return now }

	_, err := s.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, now.AddDate(0, 0, -14), articleRepo.lastThreshold)
}

func TestRun_NothingAgedDeletesNothing(t *testing.T) {
	articleRepo := &fakeArticleRepo{}
	groupRepo := &fakeGroupRepo{}

	s := NewService(articleRepo, groupRepo, Config{})
	stats, err := s.Run(context.Background())

	require.NoError(t, err)
	assert.Nil(t, articleRepo.deleted)
	assert.Nil(t, groupRepo.deleted)
	assert.Zero(t, stats.ArticlesDeleted)
	assert.Zero(t, stats.GroupsDeleted)
}

func TestRun_ArticleDeleteErrorStopsBeforeGroups(t *testing.T) {
	articleRepo := &fakeArticleRepo{
		agedIDs:   []string{"a-1"},
		deleteErr: errors.New("write conflict"),
	}
	groupRepo := &fakeGroupRepo{agedGroupIDs: []int64{3}}

	s := NewService(articleRepo, groupRepo, Config{})
	_, err := s.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "delete aged articles")
	assert.Nil(t, groupRepo.deleted)
}
