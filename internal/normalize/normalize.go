// Package normalize reduces free text to the canonical form used for
// similarity scoring and banned-word matching.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Text lower-cases s, collapses every whitespace run to a single space,
// removes runes that are neither word characters nor whitespace and trims
// the result. Punctuation is removed after the collapse, so "a , b" keeps
// two spaces: "a  b".
func Text(s string) string {
	if s == "" {
		return ""
	}
	s = Lower(s)

	var b strings.Builder
	b.Grow(len(s))

	inSpace := false
	for _, r := range s {
		if IsSpace(r) {
			if !inSpace {
				b.WriteByte(' ')
			}
			inSpace = true
			continue
		}
		inSpace = false
		if IsWordRune(r) {
			b.WriteRune(r)
		}
	}

	return strings.TrimFunc(b.String(), IsSpace)
}

// Words returns the set of whole words in s after lower-casing, where a word
// is a maximal run of word characters.
func Words(s string) map[string]struct{} {
	words := make(map[string]struct{})
	if s == "" {
		return words
	}
	for _, w := range strings.FieldsFunc(Lower(s), func(r rune) bool { return !IsWordRune(r) }) {
		words[w] = struct{}{}
	}
	return words
}

// Lower applies full Unicode lower-casing, including final-sigma handling.
// A Caser is stateful, so one is created per call.
func Lower(s string) string {
	return cases.Lower(language.Und).String(s)
}

// IsWordRune reports whether r is a letter, a number, or an underscore.
func IsWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

// IsSpace reports whether r is whitespace. It extends unicode.IsSpace with
// the ASCII information separators U+001C..U+001F.
func IsSpace(r rune) bool {
	return unicode.IsSpace(r) || (r >= 0x1c && r <= 0x1f)
}
