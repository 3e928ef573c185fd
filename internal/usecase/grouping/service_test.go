package grouping

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"neutralnews/internal/domain/entity"
	"neutralnews/internal/repository"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeArticleRepo implements the subset of repository.ArticleRepository
// the grouping service touches and records assignment writes.
type fakeArticleRepo struct {
	repository.ArticleRepository

	articles   []*entity.Article
	groupIDs   []int64
	liveCounts map[int64]int
	members    map[int64][]*entity.Article
	updateErr  map[string]error

	updates map[string]*int64
}

func (r *fakeArticleRepo) QueryArticles(ctx context.Context, q repository.ArticleQuery) ([]*entity.Article, error) {
	return r.articles, nil
}

func (r *fakeArticleRepo) ListGroupIDs(ctx context.Context) ([]int64, error) {
	return r.groupIDs, nil
}

func (r *fakeArticleRepo) CountGroupItems(ctx context.Context, groupID int64) (int, error) {
	return r.liveCounts[groupID], nil
}

func (r *fakeArticleRepo) ListGroupItems(ctx context.Context, groupID int64) ([]*entity.Article, error) {
	return r.members[groupID], nil
}

func (r *fakeArticleRepo) UpdateGroupID(ctx context.Context, id string, groupID *int64) error {
	if err := r.updateErr[id]; err != nil {
		return err
	}
	if r.updates == nil {
		r.updates = make(map[string]*int64)
	}
	r.updates[id] = groupID
	return nil
}

type fakeGroupRepo struct {
	repository.NeutralGroupRepository

	recentIDs []int64
	storedIDs []int64
}

func (r *fakeGroupRepo) ListRecentGroupIDs(ctx context.Context, since time.Time) ([]int64, error) {
	return r.recentIDs, nil
}

func (r *fakeGroupRepo) ListGroupIDs(ctx context.Context) ([]int64, error) {
	return r.storedIDs, nil
}

// axis returns a 4-dimensional basis vector.
func axis(i int) []float32 {
	v := make([]float32, 4)
	v[i] = 1
	return v
}

// angled returns a 2D unit vector at the given angle in degrees.
func angled(degrees float64) []float32 {
	rad := degrees * math.Pi / 180
	return []float32{float32(math.Cos(rad)), float32(math.Sin(rad))}
}

func gid(v int64) *int64 { return &v }

func testArticle(id string, outlet entity.Outlet, vec []float32, groupID *int64) *entity.Article {
	return &entity.Article{
		ID:        id,
		Outlet:    outlet,
		Title:     "Titular " + id,
		Link:      "https://example.com/" + id,
		Embedding: vec,
		GroupID:   groupID,
	}
}

func assigned(t *testing.T, updates map[string]*int64, id string) int64 {
	t.Helper()
	got, ok := updates[id]
	require.True(t, ok, "expected an assignment write for %s", id)
	require.NotNil(t, got, "expected %s to be grouped", id)
	return *got
}

func TestRun_FormsNewGroupFromCluster(t *testing.T) {
	repo := &fakeArticleRepo{articles: []*entity.Article{
		testArticle("a-1", "el_pais", axis(0), nil),
		testArticle("a-2", "el_mundo", axis(0), nil),
		testArticle("a-3", "rtve", axis(0), nil),
	}}
	s := NewService(repo, &fakeGroupRepo{})

	stats, err := s.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Clusters)
	assert.Equal(t, 1, stats.NewGroups)
	assert.Equal(t, 3, stats.Updated)
	for _, id := range []string{"a-1", "a-2", "a-3"} {
		assert.Equal(t, int64(1), assigned(t, repo.updates, id))
	}
}

func TestRun_NoNewItems_LeavesReferencesUntouched(t *testing.T) {
	repo := &fakeArticleRepo{articles: []*entity.Article{
		testArticle("a-1", "el_pais", axis(0), gid(7)),
		testArticle("a-2", "el_mundo", axis(0), gid(7)),
		testArticle("a-3", "rtve", axis(0), gid(7)),
	}}
	s := NewService(repo, &fakeGroupRepo{recentIDs: []int64{7}})

	stats, err := s.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, stats.References)
	assert.Equal(t, 0, stats.Updated)
	assert.Empty(t, repo.updates)
}

func TestRun_SingleNewItemWithoutReferencesEndsUngrouped(t *testing.T) {
	// The stale assignment points at a group that is no longer recent, so
	// the article counts as new and gets cleared rather than re-minted.
	repo := &fakeArticleRepo{articles: []*entity.Article{
		testArticle("a-1", "el_pais", axis(0), gid(5)),
	}}
	s := NewService(repo, &fakeGroupRepo{storedIDs: []int64{5}})

	stats, err := s.Run(context.Background())

	require.NoError(t, err)
	got, ok := repo.updates["a-1"]
	require.True(t, ok)
	assert.Nil(t, got)
	assert.Equal(t, 1, stats.Ungrouped)
}

func TestRun_AttachesNewItemsToReferenceGroup(t *testing.T) {
	repo := &fakeArticleRepo{
		articles: []*entity.Article{
			testArticle("r-1", "el_pais", axis(0), gid(7)),
			testArticle("r-2", "el_mundo", axis(0), gid(7)),
			testArticle("n-1", "rtve", axis(0), nil),
			testArticle("n-2", "abc", axis(0), nil),
		},
		groupIDs:   []int64{7},
		liveCounts: map[int64]int{7: 2},
	}
	s := NewService(repo, &fakeGroupRepo{recentIDs: []int64{7}, storedIDs: []int64{7}})

	stats, err := s.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(7), assigned(t, repo.updates, "n-1"))
	assert.Equal(t, int64(7), assigned(t, repo.updates, "n-2"))
	assert.NotContains(t, repo.updates, "r-1")
	assert.NotContains(t, repo.updates, "r-2")
	assert.Equal(t, 2, stats.Updated)
}

func TestRun_LooseClusterMintsNewGroupInsteadOfReference(t *testing.T) {
	// Points 30 degrees apart chain into one density cluster, but the mean
	// pairwise similarity across the whole cluster falls below the fold-in
	// threshold, so the new items get a fresh id.
	repo := &fakeArticleRepo{
		articles: []*entity.Article{
			testArticle("r-1", "el_pais", angled(0), gid(7)),
			testArticle("n-1", "el_mundo", angled(30), nil),
			testArticle("n-2", "rtve", angled(60), nil),
			testArticle("n-3", "abc", angled(90), nil),
		},
		groupIDs:   []int64{7},
		liveCounts: map[int64]int{7: 1},
	}
	s := NewService(repo, &fakeGroupRepo{recentIDs: []int64{7}, storedIDs: []int64{7}})

	stats, err := s.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, stats.NewGroups)
	for _, id := range []string{"n-1", "n-2", "n-3"} {
		assert.Equal(t, int64(8), assigned(t, repo.updates, id))
	}
	assert.NotContains(t, repo.updates, "r-1")
}

func TestRun_MintingSkipsSubdivisionIDsInMax(t *testing.T) {
	repo := &fakeArticleRepo{articles: []*entity.Article{
		testArticle("a-1", "el_pais", axis(0), nil),
		testArticle("a-2", "el_mundo", axis(0), nil),
		testArticle("a-3", "rtve", axis(0), nil),
	}}
	// 4200001 is a subdivision id and must not drag the minting maximum up.
	s := NewService(repo, &fakeGroupRepo{storedIDs: []int64{42, 4200001}})

	_, err := s.Run(context.Background())

	require.NoError(t, err)
	for _, id := range []string{"a-1", "a-2", "a-3"} {
		assert.Equal(t, int64(43), assigned(t, repo.updates, id))
	}
}

func TestRun_OutletDuplicateInGroupIsDropped(t *testing.T) {
	repo := &fakeArticleRepo{articles: []*entity.Article{
		testArticle("a-1", "el_pais", axis(0), nil),
		testArticle("a-2", "el_mundo", axis(0), nil),
		testArticle("a-3", "rtve", axis(0), nil),
		testArticle("a-4", "el_pais", axis(0), nil),
	}}
	s := NewService(repo, &fakeGroupRepo{})

	_, err := s.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(1), assigned(t, repo.updates, "a-1"))
	assert.Equal(t, int64(1), assigned(t, repo.updates, "a-2"))
	assert.Equal(t, int64(1), assigned(t, repo.updates, "a-3"))
	// The second el_pais article loses the dedup and stays ungrouped.
	assert.NotContains(t, repo.updates, "a-4")
}

func TestRun_UndersizedGroupWithoutReferenceDissolves(t *testing.T) {
	repo := &fakeArticleRepo{articles: []*entity.Article{
		// Healthy cluster keeps its group.
		testArticle("a-1", "el_pais", axis(0), nil),
		testArticle("a-2", "el_mundo", axis(0), nil),
		testArticle("a-3", "rtve", axis(0), nil),
		// Duplicate outlet shrinks this one below the source minimum.
		testArticle("b-1", "abc", axis(1), nil),
		testArticle("b-2", "abc", axis(1), nil),
		testArticle("b-3", "la_vanguardia", axis(1), nil),
	}}
	s := NewService(repo, &fakeGroupRepo{})

	_, err := s.Run(context.Background())

	require.NoError(t, err)
	require.Len(t, repo.updates, 3)
	for _, id := range []string{"a-1", "a-2", "a-3"} {
		assert.Equal(t, int64(1), assigned(t, repo.updates, id))
	}
}

func TestRun_AllUngroupedFallsBackToSequentialIDs(t *testing.T) {
	// The only cluster dissolves after outlet dedup, leaving everything
	// ungrouped, so each article receives its own sequential id.
	repo := &fakeArticleRepo{articles: []*entity.Article{
		testArticle("a-1", "el_pais", axis(0), nil),
		testArticle("a-2", "el_pais", axis(0), nil),
		testArticle("a-3", "el_mundo", axis(0), nil),
	}}
	s := NewService(repo, &fakeGroupRepo{})

	_, err := s.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(2), assigned(t, repo.updates, "a-1"))
	assert.Equal(t, int64(3), assigned(t, repo.updates, "a-2"))
	assert.Equal(t, int64(4), assigned(t, repo.updates, "a-3"))
}

func TestRun_OversizedNewClusterSubdivides(t *testing.T) {
	// A 26-article chain, one degree apart, forms a single density cluster
	// above the size cap and splits into 7-digit subdivision groups.
	var articles []*entity.Article
	for i := 0; i < 26; i++ {
		id := fmt.Sprintf("a-%02d", i)
		outlet := entity.Outlet(fmt.Sprintf("medio-%02d", i))
		articles = append(articles, testArticle(id, outlet, angled(float64(i)), nil))
	}
	repo := &fakeArticleRepo{articles: articles}
	s := NewService(repo, &fakeGroupRepo{})

	stats, err := s.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Subdivided)
	require.Len(t, repo.updates, 26)
	inSubdivision := 0
	for id, got := range repo.updates {
		require.NotNil(t, got, "article %s lost its assignment", id)
		if entity.IsSubdivisionID(*got) {
			assert.GreaterOrEqual(t, *got, int64(1000000))
			assert.LessOrEqual(t, *got, int64(1000004))
			inSubdivision++
		} else {
			// Rejected subgroup members stay in the parent group.
			assert.Equal(t, int64(1), *got)
		}
	}
	assert.Greater(t, inSubdivision, 0)
}

func TestRun_OversizedReferenceGroupSubdividesNewItems(t *testing.T) {
	stored := []*entity.Article{
		testArticle("s-1", "el_diario", axis(0), gid(3)),
		testArticle("s-2", "publico", axis(0), gid(3)),
	}
	repo := &fakeArticleRepo{
		articles: []*entity.Article{
			testArticle("r-1", "el_pais", axis(0), gid(3)),
			testArticle("n-1", "el_mundo", axis(0), nil),
			testArticle("n-2", "rtve", axis(0), nil),
			testArticle("n-3", "abc", axis(0), nil),
		},
		groupIDs:   []int64{3},
		liveCounts: map[int64]int{3: 24},
		members:    map[int64][]*entity.Article{3: stored},
	}
	s := NewService(repo, &fakeGroupRepo{recentIDs: []int64{3}, storedIDs: []int64{3}})

	stats, err := s.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Subdivided)
	for _, id := range []string{"n-1", "n-2", "n-3"} {
		assert.Equal(t, int64(3000000), assigned(t, repo.updates, id))
	}
	// The reference member stays on the parent group.
	assert.NotContains(t, repo.updates, "r-1")
}

func TestRun_SubdivisionIDConflictsBumpPastExisting(t *testing.T) {
	repo := &fakeArticleRepo{
		articles: []*entity.Article{
			testArticle("r-1", "el_pais", axis(0), gid(3)),
			testArticle("n-1", "el_mundo", axis(0), nil),
			testArticle("n-2", "rtve", axis(0), nil),
			testArticle("n-3", "abc", axis(0), nil),
		},
		groupIDs:   []int64{3},
		liveCounts: map[int64]int{3: 24},
	}
	s := NewService(repo, &fakeGroupRepo{
		recentIDs: []int64{3},
		storedIDs: []int64{3, 3000000, 3000001},
	})

	_, err := s.Run(context.Background())

	require.NoError(t, err)
	for _, id := range []string{"n-1", "n-2", "n-3"} {
		assert.Equal(t, int64(3000002), assigned(t, repo.updates, id))
	}
}

func TestRun_WriteFailureSkipsArticleAndContinues(t *testing.T) {
	repo := &fakeArticleRepo{
		articles: []*entity.Article{
			testArticle("a-1", "el_pais", axis(0), nil),
			testArticle("a-2", "el_mundo", axis(0), nil),
			testArticle("a-3", "rtve", axis(0), nil),
		},
		updateErr: map[string]error{"a-2": errors.New("connection reset")},
	}
	s := NewService(repo, &fakeGroupRepo{})

	stats, err := s.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, stats.Updated)
	assert.Contains(t, repo.updates, "a-1")
	assert.Contains(t, repo.updates, "a-3")
	assert.NotContains(t, repo.updates, "a-2")
}

func TestRun_DeterministicAcrossRuns(t *testing.T) {
	build := func() *fakeArticleRepo {
		var articles []*entity.Article
		for i := 0; i < 30; i++ {
			id := fmt.Sprintf("a-%02d", i)
			outlet := entity.Outlet(fmt.Sprintf("medio-%02d", i))
			articles = append(articles, testArticle(id, outlet, angled(float64(i)), nil))
		}
		return &fakeArticleRepo{articles: articles}
	}

	first := build()
	_, err := NewService(first, &fakeGroupRepo{}).Run(context.Background())
	require.NoError(t, err)

	second := build()
	_, err = NewService(second, &fakeGroupRepo{}).Run(context.Background())
	require.NoError(t, err)

	if diff := cmp.Diff(first.updates, second.updates); diff != "" {
		t.Errorf("assignments differ between runs (-first +second):\n%s", diff)
	}
}
