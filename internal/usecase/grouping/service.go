// Package grouping assigns recent articles to event groups. It density
// clusters unit-normalized embeddings over a kNN cosine graph, folds the
// clusters into existing recent groups where similarity allows, subdivides
// oversized groups with seeded k-means, and enforces one article per
// outlet within each group.
package grouping

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"neutralnews/internal/domain/entity"
	"neutralnews/internal/observability/metrics"
	"neutralnews/internal/repository"
)

// Clustering tunables. Changing any of these changes group assignment for
// identical inputs.
const (
	// ClusterEps is the cosine-distance radius for density clustering.
	ClusterEps = 0.2125

	// NeighborK is the kNN graph width.
	NeighborK = 5

	// MaxGroupSize caps a group before subdivision kicks in.
	MaxGroupSize = 25

	// MinSubdivisionSize is the smallest cluster worth subdividing.
	MinSubdivisionSize = 5

	// TargetSubgroupSize steers how many k-means subgroups to request.
	TargetSubgroupSize = 8

	// SubdivSim is the minimum mean pairwise similarity for an accepted
	// subdivision subgroup.
	SubdivSim = 0.65

	// NewGroupSim is the minimum mean pairwise similarity for folding a
	// cluster into an existing group rather than minting a new one.
	NewGroupSim = 0.85

	// RecentWindowHours bounds both the articles considered and the groups
	// treated as reference targets.
	RecentWindowHours = 48

	// fallbackSubdivisionID is used when the subdivision id space around a
	// parent is exhausted.
	fallbackSubdivisionID = 7777777

	maxSubdivisionID = 9999999
)

// item is one article in the clustering working set.
type item struct {
	article *entity.Article
	vec     []float32

	// ref marks members of a recent neutral group; they never move.
	ref   bool
	refID int64
}

// Stats aggregates one grouping run.
type Stats struct {
	Items      int
	References int
	Clusters   int
	NewGroups  int
	Subdivided int
	Updated    int
	Ungrouped  int
	Duration   time.Duration
}

// Service computes and persists group assignments.
type Service struct {
	ArticleRepo repository.ArticleRepository
	GroupRepo   repository.NeutralGroupRepository

	now func() time.Time
}

// NewService creates a grouping Service.
func NewService(articleRepo repository.ArticleRepository, groupRepo repository.NeutralGroupRepository) *Service {
	return &Service{
		ArticleRepo: articleRepo,
		GroupRepo:   groupRepo,
		now:         time.Now,
	}
}

// Run executes one grouping pass. Given identical articles and embeddings
// it produces identical assignments.
func (s *Service) Run(ctx context.Context) (*Stats, error) {
	logger := slog.Default()
	start := s.now()
	stats := &Stats{}

	since := s.now().Add(-RecentWindowHours * time.Hour)
	articles, err := s.ArticleRepo.QueryArticles(ctx, repository.ArticleQuery{PubDateSince: since})
	if err != nil {
		return stats, fmt.Errorf("query recent articles: %w", err)
	}

	recentIDs, err := s.GroupRepo.ListRecentGroupIDs(ctx, since)
	if err != nil {
		return stats, fmt.Errorf("list recent groups: %w", err)
	}
	recent := make(map[int64]bool, len(recentIDs))
	for _, id := range recentIDs {
		recent[id] = true
	}

	items := buildItems(articles, recent)
	stats.Items = len(items)
	newCount := 0
	for _, it := range items {
		if it.ref {
			stats.References++
		} else {
			newCount++
		}
	}

	// Nothing new to place: reference mapping stays as it is.
	if newCount == 0 {
		stats.Duration = time.Since(start)
		return stats, nil
	}

	known, maxKnown, err := s.knownGroupIDs(ctx)
	if err != nil {
		return stats, err
	}
	nextID := maxKnown
	mint := func() int64 {
		nextID++
		for known[nextID] {
			nextID++
		}
		known[nextID] = true
		return nextID
	}

	desired := s.computeAssignments(ctx, items, newCount, known, mint, stats)
	s.dedupeByOutlet(items, desired)
	if len(items) > 1 {
		s.sequentialFallback(items, desired, mint)
	}

	s.apply(ctx, items, desired, stats)

	stats.Duration = time.Since(start)
	metrics.RecordGroupingPass(stats.Duration)
	logger.Info("grouping pass completed",
		slog.Int("items", stats.Items),
		slog.Int("references", stats.References),
		slog.Int("clusters", stats.Clusters),
		slog.Int("new_groups", stats.NewGroups),
		slog.Int("subdivided", stats.Subdivided),
		slog.Int("updated", stats.Updated),
		slog.Int("ungrouped", stats.Ungrouped),
		slog.Duration("duration", stats.Duration),
	)
	return stats, nil
}

// buildItems selects the articles that can cluster (those carrying an
// embedding) and unit-normalizes their vectors. Order follows the input,
// which the repository returns sorted, keeping runs deterministic.
func buildItems(articles []*entity.Article, recent map[int64]bool) []*item {
	items := make([]*item, 0, len(articles))
	for _, a := range articles {
		if len(a.Embedding) == 0 {
			continue
		}
		it := &item{article: a, vec: normalize(a.Embedding)}
		if a.GroupID != nil && recent[*a.GroupID] {
			it.ref = true
			it.refID = *a.GroupID
		}
		items = append(items, it)
	}
	return items
}

// knownGroupIDs unions the ids present on articles and stored groups.
// Subdivision ids (7 digits) are excluded from the minting maximum.
func (s *Service) knownGroupIDs(ctx context.Context) (map[int64]bool, int64, error) {
	articleIDs, err := s.ArticleRepo.ListGroupIDs(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("list article group ids: %w", err)
	}
	groupIDs, err := s.GroupRepo.ListGroupIDs(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("list stored group ids: %w", err)
	}

	known := make(map[int64]bool, len(articleIDs)+len(groupIDs))
	var maxKnown int64
	for _, ids := range [][]int64{articleIDs, groupIDs} {
		for _, id := range ids {
			known[id] = true
			if !entity.IsSubdivisionID(id) && id > maxKnown {
				maxKnown = id
			}
		}
	}
	return known, maxKnown, nil
}

// computeAssignments runs density clustering and decides a group id (or
// nil) per item. Reference items always keep their stored id.
func (s *Service) computeAssignments(
	ctx context.Context,
	items []*item,
	newCount int,
	known map[int64]bool,
	mint func() int64,
	stats *Stats,
) map[int]*int64 {
	desired := make(map[int]*int64, len(items))

	// Baseline: references keep their id, everything else keeps whatever
	// assignment it already carries. Clustered items overwrite below.
	for i, it := range items {
		if it.ref {
			id := it.refID
			desired[i] = &id
		} else {
			desired[i] = it.article.GroupID
		}
	}

	// A single new item with no references cannot form a group.
	if newCount == 1 && newCount == len(items) {
		desired[0] = nil
		return desired
	}

	vectors := make([][]float32, len(items))
	for i, it := range items {
		vectors[i] = it.vec
	}
	labels := dbscan(vectors, ClusterEps, entity.MinSources, NeighborK)

	clusterCount := 0
	for _, l := range labels {
		if l+1 > clusterCount {
			clusterCount = l + 1
		}
	}
	stats.Clusters = clusterCount

	for label := 0; label < clusterCount; label++ {
		var member []int
		for i, l := range labels {
			if l == label {
				member = append(member, i)
			}
		}
		s.assignCluster(ctx, items, member, known, mint, desired, stats)
	}
	return desired
}

// assignCluster decides the id for one density cluster per the reference,
// size, and similarity rules.
func (s *Service) assignCluster(
	ctx context.Context,
	items []*item,
	member []int,
	known map[int64]bool,
	mint func() int64,
	desired map[int]*int64,
	stats *Stats,
) {
	logger := slog.Default()

	refVotes := make(map[int64]int)
	var nonRef []int
	for _, i := range member {
		if items[i].ref {
			refVotes[items[i].refID]++
		} else {
			nonRef = append(nonRef, i)
		}
	}

	setAll := func(ids []int, groupID int64) {
		for _, i := range ids {
			id := groupID
			desired[i] = &id
		}
	}

	if len(refVotes) == 0 {
		newID := mint()
		stats.NewGroups++
		metrics.RecordGroupFormed("new")
		if len(member) > MaxGroupSize && len(member) > MinSubdivisionSize {
			s.subdivideInto(items, member, newID, known, desired, stats)
			return
		}
		setAll(nonRef, newID)
		return
	}

	// Most voted reference id wins; ties break toward the smaller id.
	target := int64(0)
	best := 0
	ids := make([]int64, 0, len(refVotes))
	for id := range refVotes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	for _, id := range ids {
		if refVotes[id] > best {
			best = refVotes[id]
			target = id
		}
	}

	liveSize, err := s.ArticleRepo.CountGroupItems(ctx, target)
	if err != nil {
		logger.Warn("failed to count live group size, using cluster references",
			slog.Int64("group_id", target),
			slog.Any("error", err))
		liveSize = len(member) - len(nonRef)
	}

	if liveSize+len(nonRef) > MaxGroupSize {
		// Oversized target: subdivide across its stored members plus the
		// new arrivals. Stored members keep their id; only new items get
		// subdivision ids.
		storeVecs := s.storedMemberVectors(ctx, target)
		s.subdivideWithContext(items, nonRef, storeVecs, target, known, desired, stats)
		return
	}

	clusterVecs := make([][]float32, len(member))
	for i, idx := range member {
		clusterVecs[i] = items[idx].vec
	}
	if meanPairwiseSim(clusterVecs) < NewGroupSim {
		newID := mint()
		stats.NewGroups++
		metrics.RecordGroupFormed("new")
		setAll(nonRef, newID)
		return
	}
	setAll(nonRef, target)
}

// storedMemberVectors loads the embeddings of a group's current members.
// Failures degrade to an empty set; subdivision then works on the new
// items alone.
func (s *Service) storedMemberVectors(ctx context.Context, groupID int64) [][]float32 {
	members, err := s.ArticleRepo.ListGroupItems(ctx, groupID)
	if err != nil {
		slog.Warn("failed to load stored group members for subdivision",
			slog.Int64("group_id", groupID),
			slog.Any("error", err))
		return nil
	}
	vecs := make([][]float32, 0, len(members))
	for _, m := range members {
		if len(m.Embedding) > 0 {
			vecs = append(vecs, normalize(m.Embedding))
		}
	}
	return vecs
}

// subdivideInto splits a fresh oversized cluster. All members are new, so
// every accepted subgroup id applies directly.
func (s *Service) subdivideInto(
	items []*item,
	member []int,
	parentID int64,
	known map[int64]bool,
	desired map[int]*int64,
	stats *Stats,
) {
	vecs := make([][]float32, len(member))
	for i, idx := range member {
		vecs[i] = items[idx].vec
	}
	subIDs := subdivide(vecs, parentID, known)
	for i, idx := range member {
		id := subIDs[i]
		desired[idx] = &id
	}
	stats.Subdivided++
	metrics.RecordGroupFormed("subdivision")
}

// subdivideWithContext splits an oversized existing group. The stored
// members participate in the clustering so subgroup boundaries respect the
// whole group, but only the new items receive subdivision ids.
func (s *Service) subdivideWithContext(
	items []*item,
	nonRef []int,
	storeVecs [][]float32,
	parentID int64,
	known map[int64]bool,
	desired map[int]*int64,
	stats *Stats,
) {
	combined := make([][]float32, 0, len(storeVecs)+len(nonRef))
	combined = append(combined, storeVecs...)
	for _, idx := range nonRef {
		combined = append(combined, items[idx].vec)
	}
	subIDs := subdivide(combined, parentID, known)
	for i, idx := range nonRef {
		id := subIDs[len(storeVecs)+i]
		desired[idx] = &id
	}
	stats.Subdivided++
	metrics.RecordGroupFormed("subdivision")
}

// subdivide k-means-splits the vectors and returns an id per vector:
// an accepted subgroup's derived id, or parentID for rejected members.
func subdivide(vectors [][]float32, parentID int64, known map[int64]bool) []int64 {
	n := len(vectors)
	out := make([]int64, n)
	for i := range out {
		out[i] = parentID
	}
	if n < 2 {
		return out
	}

	subgroups := n / TargetSubgroupSize
	if subgroups < 2 {
		subgroups = 2
	}
	if subgroups > 5 {
		subgroups = 5
	}

	labels := kmeans(vectors, subgroups, kmeansSeed)
	base := subdivisionBase(parentID)

	for sub := 0; sub < subgroups; sub++ {
		var member []int
		for i, l := range labels {
			if l == sub {
				member = append(member, i)
			}
		}
		if len(member) < 2 {
			continue
		}
		vecs := make([][]float32, len(member))
		for i, idx := range member {
			vecs[i] = vectors[idx]
		}
		if meanPairwiseSim(vecs) < SubdivSim {
			continue
		}

		id := base + int64(sub)
		for known[id] {
			id++
		}
		if id > maxSubdivisionID {
			id = fallbackSubdivisionID
		}
		known[id] = true
		for _, idx := range member {
			out[idx] = id
		}
	}
	return out
}

// subdivisionBase left-pads the parent id's decimal digits to 7 with
// trailing zeros: 42 becomes 4200000.
func subdivisionBase(parentID int64) int64 {
	digits := strconv.FormatInt(parentID, 10)
	for len(digits) < 7 {
		digits += "0"
	}
	base, err := strconv.ParseInt(digits[:7], 10, 64)
	if err != nil {
		return fallbackSubdivisionID
	}
	return base
}

// dedupeByOutlet keeps at most one article per outlet within each final
// group: reference members win, then cluster insertion order. Groups that
// fall below the source minimum with no surviving reference dissolve.
func (s *Service) dedupeByOutlet(items []*item, desired map[int]*int64) {
	groups := make(map[int64][]int)
	for i := range items {
		if id := desired[i]; id != nil {
			groups[*id] = append(groups[*id], i)
		}
	}

	groupIDs := make([]int64, 0, len(groups))
	for id := range groups {
		groupIDs = append(groupIDs, id)
	}
	sort.Slice(groupIDs, func(a, b int) bool { return groupIDs[a] < groupIDs[b] })

	for _, id := range groupIDs {
		member := groups[id]
		ordered := make([]int, 0, len(member))
		for _, i := range member {
			if items[i].ref {
				ordered = append(ordered, i)
			}
		}
		for _, i := range member {
			if !items[i].ref {
				ordered = append(ordered, i)
			}
		}

		seen := make(map[entity.Outlet]bool)
		kept := make([]int, 0, len(ordered))
		for _, i := range ordered {
			outlet := items[i].article.Outlet
			if seen[outlet] {
				desired[i] = nil
				continue
			}
			seen[outlet] = true
			kept = append(kept, i)
		}

		refSurvives := false
		for _, i := range kept {
			if items[i].ref {
				refSurvives = true
				break
			}
		}
		if len(kept) < entity.MinSources && !refSurvives {
			for _, i := range kept {
				desired[i] = nil
			}
		}
	}
}

// sequentialFallback covers the degenerate case where every item ended
// ungrouped: each gets its own fresh sequential id so downstream stages
// still see the articles.
func (s *Service) sequentialFallback(items []*item, desired map[int]*int64, mint func() int64) {
	if len(items) == 0 {
		return
	}
	for i := range items {
		if desired[i] != nil {
			return
		}
	}
	for i := range items {
		id := mint()
		desired[i] = &id
	}
}

// apply writes changed assignments back to the store. Individual write
// failures are logged and skipped; the next run converges them.
func (s *Service) apply(ctx context.Context, items []*item, desired map[int]*int64, stats *Stats) {
	logger := slog.Default()
	for i, it := range items {
		want := desired[i]
		have := it.article.GroupID

		if want == nil && have == nil {
			continue
		}
		if want != nil && have != nil && *want == *have {
			continue
		}

		if err := s.ArticleRepo.UpdateGroupID(ctx, it.article.ID, want); err != nil {
			logger.Warn("failed to update article group assignment",
				slog.String("article_id", it.article.ID),
				slog.Any("error", err))
			continue
		}
		stats.Updated++
		if want == nil {
			stats.Ungrouped++
		}
	}
}
