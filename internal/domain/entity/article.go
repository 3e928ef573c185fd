// Package entity defines the domain entities of the news neutralization
// pipeline and their invariants.
package entity

import (
	"net/url"
	"strings"
	"time"
)

// Process-wide size bounds shared by the grouping and neutralization stages.
const (
	// MinSources is the minimum number of distinct outlets a neutral group
	// must cover to be published.
	MinSources = 3

	// SourcesLimit is the maximum number of member articles sent to the LLM
	// for a single group.
	SourcesLimit = 16
)

// Article is a single fetched and enriched news item.
// Identity is the opaque ID; Link is globally unique across articles.
type Article struct {
	ID                 string
	Outlet             Outlet
	Link               string
	Title              string
	RawDescription     string
	ScrapedDescription string
	Category           string
	ImageURL           string
	PubDate            time.Time
	CreatedAt          time.Time
	UpdatedAt          *time.Time
	GroupID            *int64
	Embedding          []float32
	NeutralScore       *int
}

// Body returns the text used for embedding and neutralization:
// the scraped description when present, otherwise the raw feed description.
func (a *Article) Body() string {
	if a.ScrapedDescription != "" {
		return a.ScrapedDescription
	}
	return a.RawDescription
}

// EffectiveDate returns PubDate when set, otherwise CreatedAt.
// Used for per-outlet dedup tie-breaking and group date computation.
func (a *Article) EffectiveDate() time.Time {
	if !a.PubDate.IsZero() {
		return a.PubDate
	}
	return a.CreatedAt
}

// Validate checks the fields required before persistence.
func (a *Article) Validate() error {
	if a.ID == "" {
		return &ValidationError{Field: "id", Message: "id is required"}
	}
	if !a.Outlet.Valid() {
		return &ValidationError{Field: "outlet", Message: "unknown outlet tag"}
	}
	if a.Title == "" {
		return &ValidationError{Field: "title", Message: "title is required"}
	}
	return ValidateURL(a.Link)
}

// NormalizeLink canonicalizes an article link for dedup purposes:
// the scheme is stripped, the result is lower-cased, and a trailing
// slash is removed. Two links that normalize equal are the same article.
func NormalizeLink(link string) string {
	s := strings.TrimSpace(link)
	if u, err := url.Parse(s); err == nil && u.Scheme != "" {
		s = strings.TrimPrefix(s, u.Scheme+"://")
	}
	s = strings.ToLower(s)
	return strings.TrimSuffix(s, "/")
}
