// Package util provides common utility functions.
package util

import (
	"regexp"
	"strings"

	"github.com/ProtheticGlitch/Enterra/internal/normalize"
)

var (
	// Runs of anything that is not a word character or a dash.
	nonSlugRe = regexp.MustCompile(`[^\p{L}\p{N}_-]+`)
	// Multiple consecutive dashes.
	multipleDashRe = regexp.MustCompile(`-+`)
)

// NormalizeTagSlug converts a tag name to its canonical slug.
// The slug is the source of truth for tag identity.
//
// Normalization rules:
//  1. Lowercase and trim whitespace
//  2. Replace every run of non-word characters (except dashes) with a dash
//  3. Collapse multiple dashes
//  4. Trim leading/trailing dashes
//
// Letters of any script survive, so Cyrillic names keep their spelling.
//
// Examples:
//
//	"Slow Burn"      → "slow-burn"
//	"Научная фантастика" → "научная-фантастика"
//	"🐉 Dragons!"    → "dragons"
//	"snake_case"     → "snake_case"
//	"--leading--"    → "leading"
func NormalizeTagSlug(input string) string {
	s := strings.TrimFunc(normalize.Lower(input), normalize.IsSpace)
	s = nonSlugRe.ReplaceAllString(s, "-")
	s = multipleDashRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
