package meta

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// CleanString performs basic string cleaning: Unicode NFC, control
// characters removed, whitespace trimmed and collapsed. Control characters
// include the separators of the song catalog, so cleaned values can always
// be stored.
func CleanString(s string) string {
	if s == "" {
		return ""
	}

	s = norm.NFC.String(s)
	s = removeControlChars(s)
	return collapseWhitespace(s)
}

// CleanList cleans every item and drops empty items and repeats, keeping
// the first occurrence of each.
func CleanList(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		item = CleanString(item)
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}

// SplitGenres splits a free-form genre tag such as "Rock; Pop" or
// "Rock/Pop" into separate genres.
func SplitGenres(genre string) []string {
	return CleanList(strings.FieldsFunc(genre, func(r rune) bool {
		return r == ';' || r == '/' || r == ',' || r == '\x00'
	}))
}

// collapseWhitespace replaces multiple spaces with a single space
func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// removeControlChars removes non-printable control characters
func removeControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
