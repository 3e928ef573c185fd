package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"neutralnews/internal/domain/entity"
	"neutralnews/internal/observability/metrics"
	"neutralnews/internal/repository"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

const (
	// insertBatchSize bounds one multi-row INSERT.
	insertBatchSize = 450

	// embeddingBatchSize bounds one embedding write-back transaction.
	embeddingBatchSize = 50

	// articleDeleteBatchSize bounds one retention DELETE.
	articleDeleteBatchSize = 200
)

const articleColumns = `id, outlet, link, title, raw_description, scraped_description,
       category, image_url, pub_date, created_at, updated_at, group_id, embedding, neutral_score`

type ArticleRepo struct {
	db *sql.DB
}

func NewArticleRepo(db *sql.DB) repository.ArticleRepository {
	return &ArticleRepo{db: db}
}

// PutArticles inserts articles in batches, skipping rows whose link already
// exists. The returned count is the number of rows actually inserted.
func (repo *ArticleRepo) PutArticles(ctx context.Context, articles []*entity.Article) (int, error) {
	if len(articles) == 0 {
		return 0, nil
	}
	start := time.Now()
	defer func() { metrics.RecordOperationDuration("put_articles", time.Since(start)) }()

	inserted := 0
	for offset := 0; offset < len(articles); offset += insertBatchSize {
		end := offset + insertBatchSize
		if end > len(articles) {
			end = len(articles)
		}
		n, err := repo.insertBatch(ctx, articles[offset:end])
		if err != nil {
			return inserted, fmt.Errorf("PutArticles: %w", err)
		}
		inserted += n
	}
	return inserted, nil
}

func (repo *ArticleRepo) insertBatch(ctx context.Context, batch []*entity.Article) (int, error) {
	const cols = 10
	placeholders := make([]string, 0, len(batch))
	args := make([]interface{}, 0, len(batch)*cols)
	for i, a := range batch {
		base := i * cols
		placeholders = append(placeholders, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9, base+10,
		))
		args = append(args,
			a.ID, string(a.Outlet), a.Link, a.Title,
			a.RawDescription, nullString(a.ScrapedDescription),
			nullString(a.Category), nullString(a.ImageURL),
			nullTime(a.PubDate), a.CreatedAt,
		)
	}

	query := `
INSERT INTO articles
       (id, outlet, link, title, raw_description, scraped_description,
        category, image_url, pub_date, created_at)
VALUES ` + strings.Join(placeholders, ", ") + `
ON CONFLICT (link) DO NOTHING`

	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (repo *ArticleRepo) ExistsByLink(ctx context.Context, link string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM articles WHERE link = $1)`
	var existsFlag bool
	if err := repo.db.QueryRowContext(ctx, query, link).Scan(&existsFlag); err != nil {
		return false, fmt.Errorf("ExistsByLink: %w", err)
	}
	return existsFlag, nil
}

func (repo *ArticleRepo) ListLinksByOutlet(ctx context.Context, outlet entity.Outlet) ([]string, error) {
	const query = `SELECT link FROM articles WHERE outlet = $1`
	rows, err := repo.db.QueryContext(ctx, query, string(outlet))
	if err != nil {
		return nil, fmt.Errorf("ListLinksByOutlet: %w", err)
	}
	defer func() { _ = rows.Close() }()

	links := make([]string, 0, 100)
	for rows.Next() {
		var link string
		if err := rows.Scan(&link); err != nil {
			return nil, fmt.Errorf("ListLinksByOutlet: Scan: %w", err)
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

func (repo *ArticleRepo) QueryArticles(ctx context.Context, q repository.ArticleQuery) ([]*entity.Article, error) {
	start := time.Now()
	defer func() { metrics.RecordOperationDuration("query_articles", time.Since(start)) }()

	var conds []string
	var args []interface{}
	if !q.PubDateSince.IsZero() {
		args = append(args, q.PubDateSince)
		conds = append(conds, fmt.Sprintf("pub_date >= $%d", len(args)))
	}
	if len(q.GroupIDs) > 0 {
		args = append(args, pq.Array(q.GroupIDs))
		conds = append(conds, fmt.Sprintf("group_id = ANY($%d)", len(args)))
	}

	query := `SELECT ` + articleColumns + ` FROM articles`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY pub_date DESC"

	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("QueryArticles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	articles := make([]*entity.Article, 0, 100)
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("QueryArticles: %w", err)
		}
		articles = append(articles, article)
	}
	return articles, rows.Err()
}

// PutEmbeddings writes vectors back in transactions of at most
// embeddingBatchSize rows. Existing embeddings are left untouched.
func (repo *ArticleRepo) PutEmbeddings(ctx context.Context, vectors map[string][]float32) error {
	if len(vectors) == 0 {
		return nil
	}
	start := time.Now()
	defer func() { metrics.RecordOperationDuration("put_embeddings", time.Since(start)) }()

	ids := make([]string, 0, len(vectors))
	for id := range vectors {
		ids = append(ids, id)
	}

	const query = `
UPDATE articles SET embedding = $1, updated_at = now()
WHERE id = $2 AND embedding IS NULL`

	for offset := 0; offset < len(ids); offset += embeddingBatchSize {
		end := offset + embeddingBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		tx, err := repo.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("PutEmbeddings: BeginTx: %w", err)
		}
		for _, id := range ids[offset:end] {
			if _, err := tx.ExecContext(ctx, query, pgvector.NewVector(vectors[id]), id); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("PutEmbeddings: %w", err)
			}
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("PutEmbeddings: Commit: %w", err)
		}
	}
	return nil
}

func (repo *ArticleRepo) ListGroupIDs(ctx context.Context) ([]int64, error) {
	const query = `SELECT DISTINCT group_id FROM articles WHERE group_id IS NOT NULL`
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ListGroupIDs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ListGroupIDs: Scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (repo *ArticleRepo) ListGroupItems(ctx context.Context, groupID int64) ([]*entity.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles WHERE group_id = $1 ORDER BY pub_date DESC`
	rows, err := repo.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("ListGroupItems: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var articles []*entity.Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("ListGroupItems: %w", err)
		}
		articles = append(articles, article)
	}
	return articles, rows.Err()
}

func (repo *ArticleRepo) CountGroupItems(ctx context.Context, groupID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM articles WHERE group_id = $1`
	var count int
	if err := repo.db.QueryRowContext(ctx, query, groupID).Scan(&count); err != nil {
		return 0, fmt.Errorf("CountGroupItems: %w", err)
	}
	return count, nil
}

func (repo *ArticleRepo) UpdateGroupID(ctx context.Context, articleID string, groupID *int64) error {
	const query = `UPDATE articles SET group_id = $1, updated_at = now() WHERE id = $2`
	res, err := repo.db.ExecContext(ctx, query, groupID, articleID)
	if err != nil {
		return fmt.Errorf("UpdateGroupID: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("UpdateGroupID: no rows affected")
	}
	return nil
}

func (repo *ArticleRepo) UpdateNeutralScore(ctx context.Context, articleID string, score int) error {
	const query = `UPDATE articles SET neutral_score = $1, updated_at = now() WHERE id = $2`
	res, err := repo.db.ExecContext(ctx, query, score, articleID)
	if err != nil {
		return fmt.Errorf("UpdateNeutralScore: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("UpdateNeutralScore: no rows affected")
	}
	return nil
}

func (repo *ArticleRepo) UpdatePubDate(ctx context.Context, articleID string, pubDate time.Time) error {
	const query = `UPDATE articles SET pub_date = $1, updated_at = now() WHERE id = $2`
	res, err := repo.db.ExecContext(ctx, query, pubDate, articleID)
	if err != nil {
		return fmt.Errorf("UpdatePubDate: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("UpdatePubDate: no rows affected")
	}
	return nil
}

func (repo *ArticleRepo) DeleteArticles(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	start := time.Now()
	defer func() { metrics.RecordOperationDuration("delete_articles", time.Since(start)) }()

	const query = `DELETE FROM articles WHERE id = ANY($1)`
	deleted := 0
	for offset := 0; offset < len(ids); offset += articleDeleteBatchSize {
		end := offset + articleDeleteBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		res, err := repo.db.ExecContext(ctx, query, pq.Array(ids[offset:end]))
		if err != nil {
			return deleted, fmt.Errorf("DeleteArticles: %w", err)
		}
		n, _ := res.RowsAffected()
		deleted += int(n)
	}
	return deleted, nil
}

func (repo *ArticleRepo) ListAgedIDs(ctx context.Context, threshold time.Time) ([]string, error) {
	const query = `SELECT id FROM articles WHERE created_at < $1`
	rows, err := repo.db.QueryContext(ctx, query, threshold)
	if err != nil {
		return nil, fmt.Errorf("ListAgedIDs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ListAgedIDs: Scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// scanArticle reads one row in articleColumns order.
func scanArticle(rows *sql.Rows) (*entity.Article, error) {
	var (
		article      entity.Article
		outlet       string
		scrapedDesc  sql.NullString
		category     sql.NullString
		imageURL     sql.NullString
		pubDate      sql.NullTime
		updatedAt    sql.NullTime
		groupID      sql.NullInt64
		embedding    sql.Null[pgvector.Vector]
		neutralScore sql.NullInt64
	)
	if err := rows.Scan(&article.ID, &outlet, &article.Link, &article.Title,
		&article.RawDescription, &scrapedDesc, &category, &imageURL,
		&pubDate, &article.CreatedAt, &updatedAt, &groupID, &embedding, &neutralScore); err != nil {
		return nil, fmt.Errorf("Scan: %w", err)
	}

	article.Outlet = entity.Outlet(outlet)
	article.ScrapedDescription = scrapedDesc.String
	article.Category = category.String
	article.ImageURL = imageURL.String
	if pubDate.Valid {
		article.PubDate = pubDate.Time
	}
	if updatedAt.Valid {
		t := updatedAt.Time
		article.UpdatedAt = &t
	}
	if groupID.Valid {
		id := groupID.Int64
		article.GroupID = &id
	}
	if embedding.Valid {
		article.Embedding = embedding.V.Slice()
	}
	if neutralScore.Valid {
		score := int(neutralScore.Int64)
		article.NeutralScore = &score
	}
	return &article, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
