// Package chunker selects representative paragraphs from block text.
package chunker

import (
	"slices"
	"strings"
	"unicode/utf8"
)

// FallbackChars is the length of the excerpt used when text has no
// paragraph boundaries.
const FallbackChars = 300

// SplitParagraphs splits text at every maximal run of two or more line
// breaks. "\n" and "\r\n" each count as one line break. The second return
// value reports whether any boundary was found.
func SplitParagraphs(text string) ([]string, bool) {
	var parts []string
	start := 0
	found := false

	for i := 0; i < len(text); {
		j, breaks := scanBreaks(text, i)
		switch {
		case breaks >= 2:
			parts = append(parts, text[start:i])
			start = j
			found = true
			i = j
		case breaks == 1:
			i = j
		default:
			i++
		}
	}
	parts = append(parts, text[start:])
	return parts, found
}

// scanBreaks counts consecutive line breaks starting at i and returns the
// index just past them.
func scanBreaks(text string, i int) (int, int) {
	breaks := 0
	for i < len(text) {
		switch {
		case text[i] == '\n':
			i++
		case text[i] == '\r' && i+1 < len(text) && text[i+1] == '\n':
			i += 2
		default:
			return i, breaks
		}
		breaks++
	}
	return i, breaks
}

// TopParagraphs returns the k longest paragraphs of text, trimmed, longest
// first. Ties keep their order of appearance. Paragraphs that are blank
// after trimming are never selected. When the text has no boundaries, or
// every paragraph is blank, the result is the first FallbackChars
// characters of text.
func TopParagraphs(text string, k int) []string {
	if k <= 0 {
		k = 1
	}
	parts, found := SplitParagraphs(text)
	if !found {
		return []string{Prefix(text, FallbackChars)}
	}

	candidates := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return []string{Prefix(text, FallbackChars)}
	}

	slices.SortStableFunc(candidates, func(a, b string) int {
		return utf8.RuneCountInString(b) - utf8.RuneCountInString(a)
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	for i := range candidates {
		candidates[i] = strings.TrimSpace(candidates[i])
	}
	return candidates
}

// Prefix returns the first n characters of s.
func Prefix(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
