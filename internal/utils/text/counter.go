// Package text provides utilities for text measurement and trimming.
// These functions are shared by the scrape gates and the LLM prompt
// builders so that length thresholds behave identically everywhere.
package text

import "strings"

// CountRunes counts the number of Unicode characters (runes) in the given text.
// Counting runes instead of bytes keeps accented Spanish text, typographic
// quotes and emoji from inflating the count.
//
// Examples:
//
//	CountRunes("hello")     // returns 5
//	CountRunes("señal")     // returns 5
//	CountRunes("")          // returns 0
func CountRunes(text string) int {
	return len([]rune(text))
}

// CountWords counts whitespace-separated tokens in the given text.
// Used by the minimum-length gates that decide whether a description is
// worth scraping and whether a scraped body is worth keeping.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// TruncateRunes limits text to max runes, appending suffix when trimmed.
// A non-positive max returns the text unchanged.
func TruncateRunes(text string, max int, suffix string) string {
	if max <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + suffix
}
