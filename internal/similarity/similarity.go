// Package similarity scores how alike two pieces of text are using a
// longest-matching-block sequence ratio over runes.
package similarity

import (
	"github.com/pmezard/go-difflib/difflib"

	"github.com/ProtheticGlitch/Enterra/internal/normalize"
)

// Ratio normalizes a and b and returns their matching ratio in [0, 1].
// It returns 0 when either normalized string is empty. The pair is put in a
// canonical order before matching so Ratio(a, b) == Ratio(b, a).
func Ratio(a, b string) float64 {
	na, nb := normalize.Text(a), normalize.Text(b)
	if na == "" || nb == "" {
		return 0
	}
	if na > nb {
		na, nb = nb, na
	}
	return NewMatcher(na, nb).Ratio()
}

// Block is a run of Size runes where a[I:I+Size] == b[J:J+Size].
type Block struct {
	I, J, Size int
}

// Matcher compares one fixed pair of strings rune by rune. When b is 200
// runes or longer its most frequent runes are left out of the match index,
// though matches may still extend across them.
type Matcher struct {
	seq *difflib.SequenceMatcher
}

// NewMatcher indexes b for matching against a.
func NewMatcher(a, b string) *Matcher {
	return &Matcher{seq: difflib.NewMatcher(splitRunes(a), splitRunes(b))}
}

// Ratio returns 2*M/T where M is the number of runes in matching blocks and
// T is the combined length of both strings. Two empty strings have ratio 1.
func (m *Matcher) Ratio() float64 {
	return m.seq.Ratio()
}

// MatchingBlocks returns the non-overlapping matching blocks ordered by
// their position in a.
func (m *Matcher) MatchingBlocks() []Block {
	matches := m.seq.GetMatchingBlocks()
	blocks := make([]Block, 0, len(matches))
	for _, x := range matches {
		if x.Size == 0 {
			continue
		}
		blocks = append(blocks, Block{I: x.A, J: x.B, Size: x.Size})
	}
	return blocks
}

func splitRunes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
