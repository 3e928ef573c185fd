// Package neutralize turns grouped articles into neutral renditions: one
// model call per group producing a neutral title and description, a
// category, a relevance score, and per-outlet neutrality ratings.
package neutralize

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"neutralnews/internal/domain/entity"
	"neutralnews/internal/infra/llm"
	"neutralnews/internal/observability/metrics"
	"neutralnews/internal/repository"

	"golang.org/x/sync/errgroup"
)

const (
	// InitialWorkers is the pool floor; small batches still parallelize.
	InitialWorkers = 10

	// MaxWorkers caps concurrent model calls.
	MaxWorkers = 25

	// retryDrainDelay paces the serial drain of rate-limited groups.
	retryDrainDelay = time.Second

	// changeRatioThreshold gates update rewrites on membership churn.
	changeRatioThreshold = 0.5

	// groupDateClampDays bounds how far a member's pub_date may sit behind
	// its own created_at before it is rewritten.
	groupDateClampDays = 3
)

// ChatClient is the model side of the neutralizer.
type ChatClient interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// RateLimiter throttles outbound model calls across all workers.
type RateLimiter interface {
	Wait(ctx context.Context) error
	ForceCooldown()
}

type noopLimiter struct{}

func (noopLimiter) Wait(ctx context.Context) error { return nil }
func (noopLimiter) ForceCooldown()                 {}

// Stats aggregates one neutralization run.
type Stats struct {
	Groups       int
	New          int
	Updated      int
	Unchanged    int
	GateSkipped  int
	Insufficient int
	Failed       int
	Requeued     int
	Unassigned   int
	Duration     time.Duration
}

// job is one group to neutralize.
type job struct {
	groupID int64
	members []*entity.Article
	stored  *entity.NeutralGroup
	newest  time.Time
}

// runState is the shared mutable state of one run.
type runState struct {
	mu    sync.Mutex
	stats *Stats
	retry []*job
}

// Service runs the neutralization stage.
type Service struct {
	ArticleRepo repository.ArticleRepository
	GroupRepo   repository.NeutralGroupRepository
	Chat        ChatClient
	Limiter     RateLimiter

	now func() time.Time
}

// NewService creates a neutralization Service. A nil limiter disables
// client-side throttling.
func NewService(articleRepo repository.ArticleRepository, groupRepo repository.NeutralGroupRepository, chat ChatClient, limiter RateLimiter) *Service {
	if limiter == nil {
		limiter = noopLimiter{}
	}
	return &Service{
		ArticleRepo: articleRepo,
		GroupRepo:   groupRepo,
		Chat:        chat,
		Limiter:     limiter,
		now:         time.Now,
	}
}

// Run neutralizes every group whose membership moved since the last run.
// Unchanged groups are skipped without a model call. Rate-limited groups
// land on a retry queue drained serially once the pool finishes.
func (s *Service) Run(ctx context.Context) (*Stats, error) {
	logger := slog.Default()
	start := s.now()
	st := &runState{stats: &Stats{}}

	ids, err := s.ArticleRepo.ListGroupIDs(ctx)
	if err != nil {
		return st.stats, fmt.Errorf("list group ids: %w", err)
	}
	st.stats.Groups = len(ids)

	jobs := s.collectJobs(ctx, ids, st)

	// Newest groups first, so fresh news wins the rate budget.
	sort.Slice(jobs, func(a, b int) bool {
		if !jobs[a].newest.Equal(jobs[b].newest) {
			return jobs[a].newest.After(jobs[b].newest)
		}
		return jobs[a].groupID < jobs[b].groupID
	})

	workers := len(jobs) / 2
	if workers < InitialWorkers {
		workers = InitialWorkers
	}
	if workers > MaxWorkers {
		workers = MaxWorkers
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for _, j := range jobs {
		j := j
		g.Go(func() error {
			s.process(ctx, j, st, true)
			return nil
		})
	}
	_ = g.Wait()

	s.drainRetryQueue(ctx, st)

	st.stats.Duration = time.Since(start)
	logger.Info("neutralization run completed",
		slog.Int("groups", st.stats.Groups),
		slog.Int("new", st.stats.New),
		slog.Int("updated", st.stats.Updated),
		slog.Int("unchanged", st.stats.Unchanged),
		slog.Int("gate_skipped", st.stats.GateSkipped),
		slog.Int("insufficient", st.stats.Insufficient),
		slog.Int("failed", st.stats.Failed),
		slog.Int("requeued", st.stats.Requeued),
		slog.Int("unassigned", st.stats.Unassigned),
		slog.Duration("duration", st.stats.Duration),
	)
	return st.stats, nil
}

// collectJobs loads members and stored groups, classifying each group as
// unchanged (skipped), changed, or new.
func (s *Service) collectJobs(ctx context.Context, ids []int64, st *runState) []*job {
	logger := slog.Default()
	var jobs []*job
	for _, id := range ids {
		members, err := s.ArticleRepo.ListGroupItems(ctx, id)
		if err != nil {
			logger.Warn("failed to load group members",
				slog.Int64("group_id", id), slog.Any("error", err))
			st.stats.Failed++
			continue
		}
		if len(members) == 0 {
			continue
		}
		stored, err := s.GroupRepo.GetGroup(ctx, id)
		if err != nil {
			logger.Warn("failed to load stored group",
				slog.Int64("group_id", id), slog.Any("error", err))
			st.stats.Failed++
			continue
		}

		memberIDs := make([]string, len(members))
		for i, m := range members {
			memberIDs[i] = m.ID
		}
		if stored != nil && stored.SameMembership(memberIDs) {
			st.stats.Unchanged++
			continue
		}

		j := &job{groupID: id, members: members, stored: stored}
		for _, m := range members {
			if d := m.EffectiveDate(); d.After(j.newest) {
				j.newest = d
			}
		}
		jobs = append(jobs, j)
	}
	return jobs
}

// process runs selection, gating, the model call, and persistence for one
// group. allowRequeue distinguishes the pooled first pass from the serial
// retry drain.
func (s *Service) process(ctx context.Context, j *job, st *runState, allowRequeue bool) {
	logger := slog.Default()
	start := s.now()

	selected, losers := selectSources(j.members)

	// Outlet-dedup losers leave the group no matter what happens below.
	s.unassign(ctx, j, losers, st)

	if len(selected) < entity.MinSources {
		st.mu.Lock()
		st.stats.Insufficient++
		st.mu.Unlock()
		metrics.RecordNeutralization("insufficient_sources", time.Since(start))
		return
	}

	if j.stored != nil && !updateGate(j.stored, articleIDs(selected)) {
		st.mu.Lock()
		st.stats.GateSkipped++
		st.mu.Unlock()
		metrics.RecordNeutralization("gate_skipped", time.Since(start))
		return
	}

	if len(selected) > entity.SourcesLimit {
		s.unassign(ctx, j, selected[entity.SourcesLimit:], st)
		selected = selected[:entity.SourcesLimit]
	}
	if len(selected) < entity.MinSources {
		st.mu.Lock()
		st.stats.Insufficient++
		st.mu.Unlock()
		metrics.RecordNeutralization("insufficient_sources", time.Since(start))
		return
	}

	raw, err := s.complete(ctx, buildUserPrompt(buildSources(selected)))
	if err != nil && llm.IsContextLengthExceeded(err) {
		logger.Warn("prompt over context window, retrying with shortest sources",
			slog.Int64("group_id", j.groupID))
		raw, err = s.complete(ctx, buildUserPrompt(shortestFallbackSources(selected)))
	}
	if err != nil {
		s.handleModelError(ctx, j, err, st, allowRequeue, start)
		return
	}

	resp, err := parseResponse(raw)
	if err != nil {
		logger.Warn("unusable model response",
			slog.Int64("group_id", j.groupID), slog.Any("error", err))
		st.mu.Lock()
		st.stats.Failed++
		st.mu.Unlock()
		metrics.RecordNeutralization("parse_error", time.Since(start))
		return
	}

	s.persist(ctx, j, selected, resp, st, start)
}

func (s *Service) complete(ctx context.Context, userPrompt string) (string, error) {
	if err := s.Limiter.Wait(ctx); err != nil {
		return "", err
	}
	return s.Chat.CompleteJSON(ctx, systemPrompt, userPrompt)
}

// handleModelError routes provider failures: rate limits open a global
// cooldown and park the group on the retry queue; everything else fails
// the group for this run.
func (s *Service) handleModelError(ctx context.Context, j *job, err error, st *runState, allowRequeue bool, start time.Time) {
	logger := slog.Default()

	rateLimited := llm.IsRateLimited(err)
	if rateLimited {
		s.Limiter.ForceCooldown()
	}
	if allowRequeue && (rateLimited || llm.IsContextLengthExceeded(err)) {
		st.mu.Lock()
		st.retry = append(st.retry, j)
		st.stats.Requeued++
		st.mu.Unlock()
		metrics.RecordNeutralization("requeued", time.Since(start))
		return
	}

	logger.Warn("neutralization failed",
		slog.Int64("group_id", j.groupID), slog.Any("error", err))
	st.mu.Lock()
	st.stats.Failed++
	st.mu.Unlock()
	metrics.RecordNeutralization("failed", time.Since(start))
}

// drainRetryQueue replays rate-limited groups one at a time, paced, after
// the cooldown the pool triggered has a chance to lapse.
func (s *Service) drainRetryQueue(ctx context.Context, st *runState) {
	st.mu.Lock()
	queue := st.retry
	st.retry = nil
	st.mu.Unlock()

	metrics.SetRetryQueueDepth(len(queue))
	for i, j := range queue {
		select {
		case <-ctx.Done():
			st.mu.Lock()
			st.stats.Failed += len(queue) - i
			st.mu.Unlock()
			metrics.SetRetryQueueDepth(0)
			return
		case <-time.After(retryDrainDelay):
		}
		s.process(ctx, j, st, false)
		metrics.SetRetryQueueDepth(len(queue) - i - 1)
	}
	if len(queue) > 0 {
		metrics.SetRetryQueueDepth(0)
	}
}

// persist writes the neutral rendition: a full document for new groups, a
// content-only patch for updates, plus member bias scores.
func (s *Service) persist(ctx context.Context, j *job, selected []*entity.Article, resp *llmResponse, st *runState, start time.Time) {
	logger := slog.Default()
	now := s.now()
	ratings := ratingsByOutlet(resp)

	date := s.groupDate(ctx, selected)
	imageURL, imageMedium := pickImage(selected, ratings)
	sourceIDs := articleIDs(selected)

	if j.stored == nil {
		group := &entity.NeutralGroup{
			GroupID:            j.groupID,
			NeutralTitle:       resp.NeutralTitle,
			NeutralDescription: resp.NeutralDescription,
			Category:           resp.Category,
			Relevance:          resp.Relevance,
			SourceIDs:          sourceIDs,
			ImageURL:           imageURL,
			ImageMedium:        imageMedium,
			Date:               date,
			CreatedAt:          now,
		}
		if err := s.GroupRepo.PutGroup(ctx, group); err != nil {
			logger.Warn("failed to store neutral group",
				slog.Int64("group_id", j.groupID), slog.Any("error", err))
			st.mu.Lock()
			st.stats.Failed++
			st.mu.Unlock()
			metrics.RecordNeutralization("failed", time.Since(start))
			return
		}
		st.mu.Lock()
		st.stats.New++
		st.mu.Unlock()
		metrics.RecordNeutralization("created", time.Since(start))
	} else {
		patch := repository.NeutralGroupPatch{
			GroupID:            j.groupID,
			NeutralTitle:       &resp.NeutralTitle,
			NeutralDescription: &resp.NeutralDescription,
			Category:           &resp.Category,
			Relevance:          &resp.Relevance,
			SourceIDs:          sourceIDs,
			Date:               &date,
			UpdatedAt:          now,
		}
		if imageURL != "" {
			patch.ImageURL = &imageURL
			patch.ImageMedium = &imageMedium
		}
		if err := s.GroupRepo.PatchGroup(ctx, patch); err != nil {
			logger.Warn("failed to patch neutral group",
				slog.Int64("group_id", j.groupID), slog.Any("error", err))
			st.mu.Lock()
			st.stats.Failed++
			st.mu.Unlock()
			metrics.RecordNeutralization("failed", time.Since(start))
			return
		}
		st.mu.Lock()
		st.stats.Updated++
		st.mu.Unlock()
		metrics.RecordNeutralization("updated", time.Since(start))
	}

	for _, m := range selected {
		rating, ok := ratings[strings.ToLower(string(m.Outlet))]
		if !ok {
			continue
		}
		if m.NeutralScore != nil && *m.NeutralScore == rating {
			continue
		}
		if err := s.ArticleRepo.UpdateNeutralScore(ctx, m.ID, rating); err != nil {
			logger.Warn("failed to store neutral score",
				slog.String("article_id", m.ID), slog.Any("error", err))
		}
	}
}

// groupDate returns the oldest member date. A pub_date more than
// groupDateClampDays behind the member's own created_at is treated as feed
// garbage: it is rewritten to created_at in the store and the healed value
// feeds the group date.
func (s *Service) groupDate(ctx context.Context, members []*entity.Article) time.Time {
	var oldest time.Time
	for _, m := range members {
		d := m.EffectiveDate()
		if floor := m.CreatedAt.Add(-groupDateClampDays * 24 * time.Hour); d.Before(floor) {
			if err := s.ArticleRepo.UpdatePubDate(ctx, m.ID, m.CreatedAt); err != nil {
				slog.Warn("failed to heal member pub date",
					slog.String("article_id", m.ID), slog.Any("error", err))
			}
			d = m.CreatedAt
		}
		if oldest.IsZero() || d.Before(oldest) {
			oldest = d
		}
	}
	return oldest
}

// unassign clears the group assignment of the given members and, for
// stored groups, removes them from the group's source list.
func (s *Service) unassign(ctx context.Context, j *job, members []*entity.Article, st *runState) {
	logger := slog.Default()
	for _, m := range members {
		if err := s.ArticleRepo.UpdateGroupID(ctx, m.ID, nil); err != nil {
			logger.Warn("failed to unassign article",
				slog.String("article_id", m.ID), slog.Any("error", err))
			continue
		}
		if j.stored != nil {
			if err := s.GroupRepo.RemoveSourceFromGroup(ctx, j.groupID, m.ID); err != nil {
				logger.Warn("failed to remove source from stored group",
					slog.Int64("group_id", j.groupID),
					slog.String("article_id", m.ID),
					slog.Any("error", err))
			}
		}
		st.mu.Lock()
		st.stats.Unassigned++
		st.mu.Unlock()
	}
}

// selectSources drops members unusable as prompt sources (missing title,
// scraped body, or outlet) and keeps one article per outlet, latest date
// wins. Returns the keepers newest-first plus the dedup losers.
func selectSources(members []*entity.Article) (selected, losers []*entity.Article) {
	byOutlet := make(map[entity.Outlet]*entity.Article)
	for _, m := range members {
		if m.ID == "" || m.Title == "" || m.ScrapedDescription == "" || m.Outlet == "" {
			continue
		}
		cur, ok := byOutlet[m.Outlet]
		if !ok {
			byOutlet[m.Outlet] = m
			continue
		}
		if m.EffectiveDate().After(cur.EffectiveDate()) {
			byOutlet[m.Outlet] = m
			losers = append(losers, cur)
		} else {
			losers = append(losers, m)
		}
	}

	selected = make([]*entity.Article, 0, len(byOutlet))
	for _, m := range byOutlet {
		selected = append(selected, m)
	}
	sort.Slice(selected, func(a, b int) bool {
		da, db := selected[a].EffectiveDate(), selected[b].EffectiveDate()
		if !da.Equal(db) {
			return da.After(db)
		}
		return selected[a].ID < selected[b].ID
	})
	return selected, losers
}

func articleIDs(members []*entity.Article) []string {
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}
	return ids
}

// updateGate decides whether a changed group warrants another model call:
// at least half the stored membership must have churned AND the source
// count must have crossed a significance step (3→6, 6→9, 9→12, 12→14).
// A group below either bar keeps its stored rendition.
//
// TODO: confirm with product whether heavy churn at a steady source count
// should reopen a group on its own; today both signals are required.
func updateGate(stored *entity.NeutralGroup, candidateIDs []string) bool {
	existing := len(stored.SourceIDs)
	if existing == 0 {
		// A stored group with no members is malformed; regenerate it.
		return true
	}

	cand := make([]string, len(candidateIDs))
	copy(cand, candidateIDs)
	sort.Strings(cand)

	diff := symmetricDiff(stored.SortedSourceIDs(), cand)
	if float64(diff)/float64(existing) < changeRatioThreshold {
		return false
	}
	return significantIncrease(existing, len(cand))
}

// significantIncrease reports whether the source count grew across the step
// boundary of its stored bucket.
func significantIncrease(existing, current int) bool {
	switch {
	case existing >= 3 && existing < 6:
		return current >= 6
	case existing >= 6 && existing < 9:
		return current >= 9
	case existing >= 9 && existing < 12:
		return current >= 12
	case existing >= 12 && existing < 14:
		return current >= 14
	default:
		return false
	}
}

// symmetricDiff counts elements present in exactly one of two sorted
// string slices.
func symmetricDiff(a, b []string) int {
	i, j, diff := 0, 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			i++
			j++
		case a[i] < b[j]:
			diff++
			i++
		default:
			diff++
			j++
		}
	}
	return diff + (len(a) - i) + (len(b) - j)
}
