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
)

// groupDeleteBatchSize bounds one retention DELETE on neutral_groups.
const groupDeleteBatchSize = 450

const groupColumns = `group_id, neutral_title, neutral_description, category, relevance,
       source_ids, image_url, image_medium, date, created_at, updated_at`

type NeutralGroupRepo struct {
	db *sql.DB
}

func NewNeutralGroupRepo(db *sql.DB) repository.NeutralGroupRepository {
	return &NeutralGroupRepo{db: db}
}

func (repo *NeutralGroupRepo) GetGroup(ctx context.Context, groupID int64) (*entity.NeutralGroup, error) {
	query := `SELECT ` + groupColumns + ` FROM neutral_groups WHERE group_id = $1 LIMIT 1`
	group, err := scanGroup(repo.db.QueryRowContext(ctx, query, groupID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetGroup: %w", err)
	}
	return group, nil
}

func (repo *NeutralGroupRepo) PutGroup(ctx context.Context, group *entity.NeutralGroup) error {
	start := time.Now()
	defer func() { metrics.RecordOperationDuration("put_group", time.Since(start)) }()

	const query = `
INSERT INTO neutral_groups
       (group_id, neutral_title, neutral_description, category, relevance,
        source_ids, image_url, image_medium, date, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (group_id) DO UPDATE SET
       neutral_title       = EXCLUDED.neutral_title,
       neutral_description = EXCLUDED.neutral_description,
       category            = EXCLUDED.category,
       relevance           = EXCLUDED.relevance,
       source_ids          = EXCLUDED.source_ids,
       image_url           = EXCLUDED.image_url,
       image_medium        = EXCLUDED.image_medium,
       date                = EXCLUDED.date,
       updated_at          = EXCLUDED.updated_at`

	createdAt := group.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	var updatedAt interface{}
	if group.UpdatedAt != nil {
		updatedAt = *group.UpdatedAt
	}

	_, err := repo.db.ExecContext(ctx, query,
		group.GroupID, group.NeutralTitle, group.NeutralDescription,
		nullString(group.Category), group.Relevance, pq.Array(group.SourceIDs),
		nullString(group.ImageURL), nullString(group.ImageMedium),
		nullTime(group.Date), createdAt, updatedAt,
	)
	if err != nil {
		return fmt.Errorf("PutGroup: %w", err)
	}
	return nil
}

// PatchGroup applies the non-nil fields of the patch. CreatedAt is never
// touched so group age keeps counting from first publication.
func (repo *NeutralGroupRepo) PatchGroup(ctx context.Context, patch repository.NeutralGroupPatch) error {
	sets := make([]string, 0, 9)
	args := make([]interface{}, 0, 10)

	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.NeutralTitle != nil {
		add("neutral_title", *patch.NeutralTitle)
	}
	if patch.NeutralDescription != nil {
		add("neutral_description", *patch.NeutralDescription)
	}
	if patch.Category != nil {
		add("category", *patch.Category)
	}
	if patch.Relevance != nil {
		add("relevance", *patch.Relevance)
	}
	if patch.SourceIDs != nil {
		add("source_ids", pq.Array(patch.SourceIDs))
	}
	if patch.ImageURL != nil {
		add("image_url", *patch.ImageURL)
	}
	if patch.ImageMedium != nil {
		add("image_medium", *patch.ImageMedium)
	}
	if patch.Date != nil {
		add("date", *patch.Date)
	}
	if len(sets) == 0 {
		return nil
	}
	updatedAt := patch.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	add("updated_at", updatedAt)

	args = append(args, patch.GroupID)
	query := fmt.Sprintf("UPDATE neutral_groups SET %s WHERE group_id = $%d",
		strings.Join(sets, ", "), len(args))

	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("PatchGroup: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("PatchGroup: no rows affected")
	}
	return nil
}

func (repo *NeutralGroupRepo) DeleteGroups(ctx context.Context, groupIDs []int64) (int, error) {
	if len(groupIDs) == 0 {
		return 0, nil
	}
	start := time.Now()
	defer func() { metrics.RecordOperationDuration("delete_groups", time.Since(start)) }()

	const query = `DELETE FROM neutral_groups WHERE group_id = ANY($1)`
	deleted := 0
	for offset := 0; offset < len(groupIDs); offset += groupDeleteBatchSize {
		end := offset + groupDeleteBatchSize
		if end > len(groupIDs) {
			end = len(groupIDs)
		}
		res, err := repo.db.ExecContext(ctx, query, pq.Array(groupIDs[offset:end]))
		if err != nil {
			return deleted, fmt.Errorf("DeleteGroups: %w", err)
		}
		n, _ := res.RowsAffected()
		deleted += int(n)
	}
	return deleted, nil
}

func (repo *NeutralGroupRepo) QueryRecentGroups(ctx context.Context, since time.Time) ([]*entity.NeutralGroup, error) {
	query := `SELECT ` + groupColumns + ` FROM neutral_groups WHERE date >= $1 ORDER BY date DESC`
	rows, err := repo.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("QueryRecentGroups: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var groups []*entity.NeutralGroup
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("QueryRecentGroups: %w", err)
		}
		groups = append(groups, group)
	}
	return groups, rows.Err()
}

func (repo *NeutralGroupRepo) ListRecentGroupIDs(ctx context.Context, since time.Time) ([]int64, error) {
	const query = `SELECT group_id FROM neutral_groups WHERE date >= $1`
	return repo.listIDs(ctx, "ListRecentGroupIDs", query, since)
}

func (repo *NeutralGroupRepo) ListGroupIDs(ctx context.Context) ([]int64, error) {
	const query = `SELECT group_id FROM neutral_groups`
	return repo.listIDs(ctx, "ListGroupIDs", query)
}

func (repo *NeutralGroupRepo) ListAgedGroupIDs(ctx context.Context, threshold time.Time) ([]int64, error) {
	const query = `SELECT group_id FROM neutral_groups WHERE created_at < $1`
	return repo.listIDs(ctx, "ListAgedGroupIDs", query, threshold)
}

func (repo *NeutralGroupRepo) RemoveSourceFromGroup(ctx context.Context, groupID int64, articleID string) error {
	const query = `
UPDATE neutral_groups
SET source_ids = array_remove(source_ids, $1), updated_at = now()
WHERE group_id = $2`
	res, err := repo.db.ExecContext(ctx, query, articleID, groupID)
	if err != nil {
		return fmt.Errorf("RemoveSourceFromGroup: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("RemoveSourceFromGroup: no rows affected")
	}
	return nil
}

func (repo *NeutralGroupRepo) listIDs(ctx context.Context, op, query string, args ...interface{}) ([]int64, error) {
	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%s: Scan: %w", op, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanGroup(row rowScanner) (*entity.NeutralGroup, error) {
	var (
		group       entity.NeutralGroup
		description sql.NullString
		category    sql.NullString
		relevance   sql.NullInt64
		imageURL    sql.NullString
		imageMedium sql.NullString
		date        sql.NullTime
		updatedAt   sql.NullTime
	)
	if err := row.Scan(&group.GroupID, &group.NeutralTitle, &description,
		&category, &relevance, pq.Array(&group.SourceIDs),
		&imageURL, &imageMedium, &date, &group.CreatedAt, &updatedAt); err != nil {
		return nil, err
	}

	group.NeutralDescription = description.String
	group.Category = category.String
	group.Relevance = int(relevance.Int64)
	group.ImageURL = imageURL.String
	group.ImageMedium = imageMedium.String
	if date.Valid {
		group.Date = date.Time
	}
	if updatedAt.Valid {
		t := updatedAt.Time
		group.UpdatedAt = &t
	}
	return &group, nil
}
