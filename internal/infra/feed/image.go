package feed

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

// ExtractImageURL picks the best available image for a feed item:
// media:content first, then an image enclosure, then the first <img> tag
// embedded in the item description. Returns "" when none is found.
func ExtractImageURL(item *gofeed.Item) string {
	if u := mediaContentURL(item); u != "" {
		return u
	}
	if u := enclosureImageURL(item); u != "" {
		return u
	}
	return firstImgSrc(item.Description)
}

func mediaContentURL(item *gofeed.Item) string {
	media, ok := item.Extensions["media"]
	if !ok {
		return ""
	}
	for _, name := range []string{"content", "thumbnail"} {
		for _, ext := range media[name] {
			if u := strings.TrimSpace(ext.Attrs["url"]); u != "" {
				return u
			}
		}
	}
	return ""
}

func enclosureImageURL(item *gofeed.Item) string {
	for _, enc := range item.Enclosures {
		if enc == nil || enc.URL == "" {
			continue
		}
		if strings.HasPrefix(enc.Type, "image/") || enc.Type == "" {
			return enc.URL
		}
	}
	return ""
}

func firstImgSrc(description string) string {
	if !strings.Contains(description, "<img") {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(description))
	if err != nil {
		return ""
	}
	src, _ := doc.Find("img").First().Attr("src")
	return strings.TrimSpace(src)
}
