// Package fixtures provides reusable test data generators shared across
// test suites: article builders and embedding vectors with predictable
// contents.
package fixtures

import (
	"fmt"
	"strings"
	"time"

	"neutralnews/internal/domain/entity"
)

// baseTime anchors generated timestamps so tests are reproducible.
var baseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// ArticleOption customizes a generated article.
type ArticleOption func(*entity.Article)

// NewTestArticle creates a valid Article with sensible defaults. Use
// functional options to adjust it per test case.
//
// Example:
//
//	a := fixtures.NewTestArticle("abc-1")
//	a := fixtures.NewTestArticle("abc-2", fixtures.WithOutlet("el_mundo"), fixtures.WithGroupID(7))
func NewTestArticle(id string, opts ...ArticleOption) *entity.Article {
	a := &entity.Article{
		ID:                 id,
		Outlet:             entity.OutletElPais,
		Link:               fmt.Sprintf("https://example.com/noticias/%s", id),
		Title:              fmt.Sprintf("Titular de prueba %s", id),
		RawDescription:     fmt.Sprintf("Descripción breve de la noticia %s.", id),
		ScrapedDescription: GenerateSpanishBody(600),
		Category:           "política",
		PubDate:            baseTime,
		CreatedAt:          baseTime,
		UpdatedAt:          &baseTime,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// WithOutlet sets the outlet tag.
func WithOutlet(outlet entity.Outlet) ArticleOption {
	return func(a *entity.Article) {
		a.Outlet = outlet
	}
}

// WithGroupID assigns the article to a group.
func WithGroupID(groupID int64) ArticleOption {
	return func(a *entity.Article) {
		a.GroupID = &groupID
	}
}

// WithPubDate sets the publication date.
func WithPubDate(t time.Time) ArticleOption {
	return func(a *entity.Article) {
		a.PubDate = t
	}
}

// WithArticleEmbedding sets the embedding vector.
func WithArticleEmbedding(vec []float32) ArticleOption {
	return func(a *entity.Article) {
		a.Embedding = vec
	}
}

// WithScrapedBody replaces the scraped description.
func WithScrapedBody(body string) ArticleOption {
	return func(a *entity.Article) {
		a.ScrapedDescription = body
	}
}

// WithImage sets the article image URL.
func WithImage(url string) ArticleOption {
	return func(a *entity.Article) {
		a.ImageURL = url
	}
}

// spanishSentences is the pool the body generator cycles through.
var spanishSentences = []string{
	"El Gobierno anunció este martes un nuevo paquete de medidas económicas.",
	"Los sindicatos convocaron movilizaciones en varias ciudades del país.",
	"La oposición exigió explicaciones en el Congreso de los Diputados.",
	"Fuentes del ministerio confirmaron que la propuesta sigue en estudio.",
	"Los expertos consultados discrepan sobre el alcance de la reforma.",
	"La medida entrará en vigor el próximo mes según el calendario previsto.",
	"Varias comunidades autónomas reclamaron más financiación al Estado.",
	"El portavoz declinó valorar las cifras publicadas esta semana.",
}

// GenerateSpanishBody produces coherent Spanish text of at least length
// runes, built from a fixed sentence pool so output is deterministic.
func GenerateSpanishBody(length int) string {
	if length <= 0 {
		return ""
	}
	var b strings.Builder
	for i := 0; b.Len() < length; i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(spanishSentences[i%len(spanishSentences)])
	}
	return b.String()
}

// NewTestGroup creates a valid NeutralGroup with the given id and sources.
func NewTestGroup(groupID int64, sourceIDs ...string) *entity.NeutralGroup {
	return &entity.NeutralGroup{
		GroupID:            groupID,
		NeutralTitle:       fmt.Sprintf("Titular neutral del grupo %d", groupID),
		NeutralDescription: GenerateSpanishBody(400),
		Category:           "política",
		Relevance:          3,
		SourceIDs:          sourceIDs,
		Date:               baseTime,
		CreatedAt:          baseTime,
	}
}
