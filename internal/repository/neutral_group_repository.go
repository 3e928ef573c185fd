package repository

import (
	"context"
	"time"

	"neutralnews/internal/domain/entity"
)

// NeutralGroupPatch is a partial update of a neutral group. Nil fields are
// left untouched; the update path patches only the neutralized content plus
// membership, never CreatedAt.
type NeutralGroupPatch struct {
	GroupID            int64
	NeutralTitle       *string
	NeutralDescription *string
	Category           *string
	Relevance          *int
	SourceIDs          []string
	ImageURL           *string
	ImageMedium        *string
	Date               *time.Time
	UpdatedAt          time.Time
}

// NeutralGroupRepository is the neutral-group side of the store gateway.
type NeutralGroupRepository interface {
	// GetGroup returns the group, or (nil, nil) when it does not exist.
	GetGroup(ctx context.Context, groupID int64) (*entity.NeutralGroup, error)

	// PutGroup writes a full neutral group document.
	PutGroup(ctx context.Context, group *entity.NeutralGroup) error

	// PatchGroup applies a partial update to an existing group.
	PatchGroup(ctx context.Context, patch NeutralGroupPatch) error

	// DeleteGroups removes groups in batches, returning the count deleted.
	DeleteGroups(ctx context.Context, groupIDs []int64) (int, error)

	// QueryRecentGroups returns groups with date >= since.
	QueryRecentGroups(ctx context.Context, since time.Time) ([]*entity.NeutralGroup, error)

	// ListRecentGroupIDs returns the ids of groups with date >= since.
	// The grouping stage tags articles in these groups as reference items.
	ListRecentGroupIDs(ctx context.Context, since time.Time) ([]int64, error)

	// ListGroupIDs returns every stored group id.
	ListGroupIDs(ctx context.Context) ([]int64, error)

	// ListAgedGroupIDs returns ids of groups with created_at < threshold.
	ListAgedGroupIDs(ctx context.Context, threshold time.Time) ([]int64, error)

	// RemoveSourceFromGroup removes one article id from the group's
	// source_ids without touching the neutralized content.
	RemoveSourceFromGroup(ctx context.Context, groupID int64, articleID string) error
}
