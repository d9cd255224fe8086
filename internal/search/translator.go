// Package search turns raw search text into index queries and index hits
// into record-store filters.
package search

import (
	"regexp"
	"strings"
	"unicode/utf8"

	ftserr "github.com/Aman-CERP/ftsync/internal/errors"
)

// DefaultMinLength is the shortest accepted search string.
const DefaultMinLength = 3

var whitespaceRun = regexp.MustCompile(`\s+`)

// Translator prepares raw user text for the query parser.
type Translator struct {
	// MinLength is measured in characters after trimming and stripping
	// wildcards. Zero means DefaultMinLength.
	MinLength int
}

// Prepare trims raw, strips user wildcards and enforces the minimum length.
// When matchSubstrings is set every whitespace-separated token is wrapped
// as *token* so it matches anywhere inside a word.
func (t Translator) Prepare(raw string, matchSubstrings bool) (string, error) {
	min := t.MinLength
	if min <= 0 {
		min = DefaultMinLength
	}

	s := strings.NewReplacer("*", "", "?", "").Replace(strings.TrimSpace(raw))
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) < min {
		return "", ftserr.QueryTooShortError(raw, min)
	}

	if matchSubstrings {
		s = "*" + whitespaceRun.ReplaceAllString(s, "* *") + "*"
	}
	return s, nil
}
