package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLink(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"strips scheme", "https://www.elpais.com/a/b", "www.elpais.com/a/b"},
		{"strips http scheme", "http://www.abc.es/news", "www.abc.es/news"},
		{"lowercases", "https://WWW.RTVE.es/Noticias", "www.rtve.es/noticias"},
		{"removes trailing slash", "https://www.cope.es/a/", "www.cope.es/a"},
		{"trims whitespace", "  https://www.cope.es/a ", "www.cope.es/a"},
		{"bare link unchanged", "www.elmundo.es/x", "www.elmundo.es/x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeLink(tt.in))
		})
	}
}

func TestNormalizeLink_SameArticleDifferentSchemes(t *testing.T) {
	a := NormalizeLink("https://www.eldiario.es/politica/item-1/")
	b := NormalizeLink("http://WWW.eldiario.es/politica/item-1")
	assert.Equal(t, a, b)
}

func TestArticleBody(t *testing.T) {
	a := &Article{RawDescription: "raw", ScrapedDescription: "scraped"}
	assert.Equal(t, "scraped", a.Body())

	a.ScrapedDescription = ""
	assert.Equal(t, "raw", a.Body())
}

func TestArticleEffectiveDate(t *testing.T) {
	pub := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	created := time.Date(2026, 8, 21, 11, 0, 0, 0, time.UTC)

	a := &Article{PubDate: pub, CreatedAt: created}
	assert.Equal(t, pub, a.EffectiveDate())

	a.PubDate = time.Time{}
	assert.Equal(t, created, a.EffectiveDate())
}

func TestArticleValidate(t *testing.T) {
	valid := &Article{
		ID:     "a1",
		Outlet: OutletElPais,
		Link:   "https://www.elpais.com/a",
		Title:  "title",
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Article)
	}{
		{"missing id", func(a *Article) { a.ID = "" }},
		{"unknown outlet", func(a *Article) { a.Outlet = "notAnOutlet" }},
		{"missing title", func(a *Article) { a.Title = "" }},
		{"empty link", func(a *Article) { a.Link = "" }},
		{"bad scheme", func(a *Article) { a.Link = "ftp://x/y" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := *valid
			tt.mutate(&a)
			assert.Error(t, a.Validate())
		})
	}
}
