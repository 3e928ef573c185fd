package repository

import (
	"context"
	"time"

	"neutralnews/internal/domain/entity"
)

// ArticleQuery narrows QueryArticles results.
type ArticleQuery struct {
	// PubDateSince restricts results to articles with pub_date >= this time.
	PubDateSince time.Time

	// GroupIDs, when non-empty, restricts results to articles whose group_id
	// is in the set.
	GroupIDs []int64
}

// ArticleRepository is the article side of the store gateway.
//
// Writes are batched internally up to the store batch limit; callers never
// re-batch. PutArticles is idempotent on link: rows whose link already
// exists are skipped, so re-ingesting a feed snapshot inserts nothing.
type ArticleRepository interface {
	// PutArticles persists articles in batches, skipping existing links.
	// Returns the number of rows actually inserted.
	PutArticles(ctx context.Context, articles []*entity.Article) (int, error)

	// ExistsByLink reports whether an article with the exact link exists.
	ExistsByLink(ctx context.Context, link string) (bool, error)

	// ListLinksByOutlet returns every stored link for the outlet.
	// Used by the enricher for normalized-link dedup before scraping.
	ListLinksByOutlet(ctx context.Context, outlet entity.Outlet) ([]string, error)

	// QueryArticles returns articles matching the query, embedding included.
	QueryArticles(ctx context.Context, q ArticleQuery) ([]*entity.Article, error)

	// PutEmbeddings writes embeddings back in small batches.
	// Vectors are write-once; an existing embedding is left untouched.
	PutEmbeddings(ctx context.Context, vectors map[string][]float32) error

	// ListGroupIDs returns the distinct non-null group ids present on articles.
	ListGroupIDs(ctx context.Context) ([]int64, error)

	// ListGroupItems returns the articles currently assigned to the group.
	ListGroupItems(ctx context.Context, groupID int64) ([]*entity.Article, error)

	// CountGroupItems returns the live size of the group.
	CountGroupItems(ctx context.Context, groupID int64) (int, error)

	// UpdateGroupID sets or clears (nil) the article's group assignment.
	UpdateGroupID(ctx context.Context, articleID string, groupID *int64) error

	// UpdateNeutralScore sets the article's per-source bias score (0-100).
	UpdateNeutralScore(ctx context.Context, articleID string, score int) error

	// UpdatePubDate rewrites the article's pub_date (clamp self-heal).
	UpdatePubDate(ctx context.Context, articleID string, pubDate time.Time) error

	// DeleteArticles removes the articles in batches, returning the count
	// actually deleted.
	DeleteArticles(ctx context.Context, ids []string) (int, error)

	// ListAgedIDs returns ids of articles with created_at < threshold.
	ListAgedIDs(ctx context.Context, threshold time.Time) ([]string, error)
}
