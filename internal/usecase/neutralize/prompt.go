package neutralize

import (
	"fmt"
	"strings"

	"neutralnews/internal/domain/entity"
	"neutralnews/internal/utils/text"
)

// systemPrompt instructs the model to merge the member articles into one
// neutral rendition and to score each outlet's slant. The response contract
// is a single JSON object; both chat providers are driven into JSON-only
// output.
const systemPrompt = `Eres un redactor de prensa especializado en neutralizar noticias en español. Recibirás varias versiones de una misma noticia publicadas por distintos medios.

Tu tarea:
1. Redacta un titular neutral que recoja los hechos compartidos por las fuentes, sin carga ideológica ni sensacionalismo.
2. Redacta una descripción neutral de entre dos y cuatro párrafos que combine la información de todas las fuentes, citando solo hechos contrastados entre ellas.
3. Clasifica la noticia en una de estas categorías: política, economía, internacional, sociedad, sucesos, deportes, cultura, ciencia, tecnología, salud, otros.
4. Asigna una relevancia de 1 (anecdótica) a 5 (máxima actualidad).
5. Puntúa la neutralidad de cada medio de 0 (totalmente sesgado) a 100 (totalmente neutral), según cuánto se aleja su versión de los hechos compartidos.

Responde únicamente con un objeto JSON con esta estructura exacta:
{
  "neutral_title": "...",
  "neutral_description": "...",
  "category": "...",
  "relevance": 3,
  "source_ratings": [
    {"source_medium": "etiqueta_del_medio", "rating": 80}
  ]
}`

// truncationFloor is the minimum per-source body cap. A body is truncated
// only when it exceeds both three times the group average and this floor;
// the cut lands at the larger of the floor and twice the average, so one
// outsized article cannot dominate the prompt.
const truncationFloor = 10000

const truncationMarker = "... [truncated due to excessive length]"

// fallbackMarker tags the harder cuts of the reduced context-overflow prompt.
const fallbackMarker = "... [truncated]"

// promptSource is one article as presented to the model.
type promptSource struct {
	Outlet string
	Title  string
	Date   string
	Body   string
}

// buildSources formats the members for the prompt, trimming bodies longer
// than both 3x the group average and the floor down to max(2*avg, floor).
func buildSources(members []*entity.Article) []promptSource {
	total := 0
	for _, m := range members {
		total += text.CountRunes(m.Body())
	}
	avg := 0
	if len(members) > 0 {
		avg = total / len(members)
	}
	limit := truncationFloor
	if avg2 := 2 * avg; avg2 > limit {
		limit = avg2
	}

	out := make([]promptSource, len(members))
	for i, m := range members {
		body := m.Body()
		if n := text.CountRunes(body); n > 3*avg && n > truncationFloor {
			body = text.TruncateRunes(body, limit, truncationMarker)
		}
		out[i] = promptSource{
			Outlet: string(m.Outlet),
			Title:  m.Title,
			Date:   m.EffectiveDate().Format("2006-01-02 15:04"),
			Body:   body,
		}
	}
	return out
}

// buildUserPrompt renders the numbered source list sent as the user turn.
func buildUserPrompt(sources []promptSource) string {
	var b strings.Builder
	b.WriteString("Estas son las versiones de la noticia:\n\n")
	for i, s := range sources {
		fmt.Fprintf(&b, "Fuente %d (medio: %s, fecha: %s)\nTitular: %s\nTexto: %s\n\n", i+1, s.Outlet, s.Date, s.Title, s.Body)
	}
	b.WriteString("Genera el objeto JSON descrito en las instrucciones.")
	return b.String()
}

// shortestFallbackSources builds the reduced prompt used after a
// context-length failure: the three shortest members, capped hard at
// descending limits.
func shortestFallbackSources(members []*entity.Article) []promptSource {
	caps := []int{5000, 3000, 2000}

	sorted := make([]*entity.Article, len(members))
	copy(sorted, members)
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			li, lj := text.CountRunes(sorted[i].Body()), text.CountRunes(sorted[j].Body())
			if lj < li || (lj == li && sorted[j].ID < sorted[i].ID) {
				sorted[i], sorted[j] = sorted[j], sorted[i]
			}
		}
	}
	if len(sorted) > len(caps) {
		sorted = sorted[:len(caps)]
	}

	out := make([]promptSource, len(sorted))
	for i, m := range sorted {
		body := text.TruncateRunes(m.Body(), caps[i], fallbackMarker)
		out[i] = promptSource{
			Outlet: string(m.Outlet),
			Title:  m.Title,
			Date:   m.EffectiveDate().Format("2006-01-02 15:04"),
			Body:   body,
		}
	}
	return out
}
