package entity

import (
	"sort"
	"time"
)

// NeutralGroup is the neutral rendition of a set of articles covering the
// same event, each from a distinct outlet.
//
// Invariants:
//   - every SourceIDs member exists and carries GroupID == this GroupID
//   - no two members share an outlet
//   - MinSources <= len(SourceIDs) <= SourcesLimit
type NeutralGroup struct {
	GroupID            int64
	NeutralTitle       string
	NeutralDescription string
	Category           string
	Relevance          int
	SourceIDs          []string
	ImageURL           string
	ImageMedium        string
	Date               time.Time
	CreatedAt          time.Time
	UpdatedAt          *time.Time
}

// IsSubdivisionID reports whether the group id comes from the subdivision
// id space (7 decimal digits derived from a parent base id).
func IsSubdivisionID(id int64) bool {
	return id >= 1000000 && id <= 9999999
}

// SortedSourceIDs returns a sorted copy of SourceIDs. Membership comparison
// between runs is done on the sorted form.
func (g *NeutralGroup) SortedSourceIDs() []string {
	ids := make([]string, len(g.SourceIDs))
	copy(ids, g.SourceIDs)
	sort.Strings(ids)
	return ids
}

// SameMembership reports whether the given article ids match the stored
// membership, ignoring order.
func (g *NeutralGroup) SameMembership(ids []string) bool {
	if len(ids) != len(g.SourceIDs) {
		return false
	}
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Strings(sorted)
	stored := g.SortedSourceIDs()
	for i := range stored {
		if stored[i] != sorted[i] {
			return false
		}
	}
	return true
}

// Validate checks the published-group contract.
func (g *NeutralGroup) Validate() error {
	if g.GroupID <= 0 {
		return &ValidationError{Field: "group_id", Message: "group id must be positive"}
	}
	if g.NeutralTitle == "" {
		return &ValidationError{Field: "neutral_title", Message: "neutral title is required"}
	}
	if g.Relevance < 1 || g.Relevance > 5 {
		return &ValidationError{Field: "relevance", Message: "relevance must be between 1 and 5"}
	}
	if len(g.SourceIDs) < MinSources {
		return &ValidationError{Field: "source_ids", Message: "too few sources"}
	}
	if len(g.SourceIDs) > SourcesLimit {
		return &ValidationError{Field: "source_ids", Message: "too many sources"}
	}
	return nil
}
