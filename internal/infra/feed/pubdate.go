package feed

import (
	"strings"
	"time"
)

// tzOffsets maps timezone abbreviations seen in outlet feeds to numeric
// offsets. Go cannot resolve abbreviations to offsets on its own.
var tzOffsets = map[string]string{
	"UTC":  "+0000",
	"GMT":  "+0000",
	"CET":  "+0100",
	"CEST": "+0200",
	"BST":  "+0100",
	"WET":  "+0000",
	"WEST": "+0100",
	"EST":  "-0500",
	"EDT":  "-0400",
	"PST":  "-0800",
	"PDT":  "-0700",
}

// pubDateLayouts covers the date formats observed across the outlet feeds.
var pubDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05",
	"2 Jan 2006 15:04:05 -0700",
	"2006-01-02T15:04:05-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParsePubDate parses a feed publication date, mapping timezone
// abbreviations to numeric offsets first. Returns fallback (typically the
// ingest time) when no layout matches; the result is always UTC.
func ParsePubDate(raw string, fallback time.Time) time.Time {
	s := strings.TrimSpace(raw)
	if s == "" {
		return fallback.UTC()
	}

	// Rewrite a trailing timezone abbreviation as a numeric offset so the
	// parsed time carries the real offset instead of a zero one.
	fields := strings.Fields(s)
	if len(fields) > 1 {
		if offset, ok := tzOffsets[fields[len(fields)-1]]; ok {
			fields[len(fields)-1] = offset
			s = strings.Join(fields, " ")
		}
	}

	for _, layout := range pubDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return fallback.UTC()
}
