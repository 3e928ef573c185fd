package neutralize

import (
	"net/url"
	"path"
	"strings"

	"neutralnews/internal/domain/entity"
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".gif":  true,
	".avif": true,
}

// validImageURL accepts absolute http(s) URLs with a whitelisted image
// extension. Anything that smells like a clip or an embedded player is
// rejected even with an image extension.
func validImageURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return false
	}
	lower := strings.ToLower(raw)
	if strings.Contains(lower, "video") || strings.Contains(lower, "player") {
		return false
	}
	return imageExtensions[strings.ToLower(path.Ext(u.Path))]
}

// pickImage chooses the group image from the member rated most neutral
// that carries a usable image URL. Ties keep the earlier member in
// selection order. Returns empty values when no member qualifies.
func pickImage(members []*entity.Article, ratings map[string]int) (imageURL, imageMedium string) {
	bestRating := -1
	for _, m := range members {
		if !validImageURL(m.ImageURL) {
			continue
		}
		r := ratings[strings.ToLower(string(m.Outlet))]
		if r > bestRating {
			bestRating = r
			imageURL = m.ImageURL
			imageMedium = string(m.Outlet)
		}
	}
	return imageURL, imageMedium
}
