package moderation

import (
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ProtheticGlitch/Enterra/internal/domain"
	"github.com/ProtheticGlitch/Enterra/internal/normalize"
)

// WordList is the in-memory banned word set. Readers always see one
// complete version: Replace swaps the whole snapshot atomically.
type WordList struct {
	current atomic.Pointer[wordSnapshot]
}

type wordSnapshot struct {
	list  domain.BannedWordList
	words map[string]struct{}
}

// NewWordList creates an empty word list at version 0.
func NewWordList() *WordList {
	w := &WordList{}
	w.current.Store(&wordSnapshot{
		list:  domain.BannedWordList{Words: []string{}},
		words: map[string]struct{}{},
	})
	return w
}

// Replace installs list as the current snapshot. Call it only after the
// list has been committed.
func (w *WordList) Replace(list *domain.BannedWordList) {
	words := make(map[string]struct{}, len(list.Words))
	for _, word := range list.Words {
		words[word] = struct{}{}
	}
	snap := &wordSnapshot{list: *list, words: words}
	snap.list.Words = slices.Clone(list.Words)
	w.current.Store(snap)
}

// Snapshot returns a copy of the current list.
func (w *WordList) Snapshot() domain.BannedWordList {
	snap := w.current.Load()
	list := snap.list
	list.Words = slices.Clone(snap.list.Words)
	return list
}

// Len returns the number of banned words.
func (w *WordList) Len() int {
	return len(w.current.Load().words)
}

// Contains reports whether any whole word of text is banned.
func (w *WordList) Contains(text string) bool {
	words := w.current.Load().words
	if len(words) == 0 || text == "" {
		return false
	}
	for word := range normalize.Words(text) {
		if _, ok := words[word]; ok {
			return true
		}
	}
	return false
}

// Matches returns the banned words found in text, sorted.
func (w *WordList) Matches(text string) []string {
	words := w.current.Load().words
	var found []string
	for word := range normalize.Words(text) {
		if _, ok := words[word]; ok {
			found = append(found, word)
		}
	}
	slices.Sort(found)
	return found
}

// ParseWords turns admin input (one word per line) into a clean word list:
// trimmed, lower-cased, blank lines dropped, duplicates removed, first
// occurrence order kept.
func ParseWords(raw string) []string {
	seen := make(map[string]struct{})
	words := []string{}
	for line := range strings.Lines(raw) {
		word := normalize.Lower(strings.TrimSpace(line))
		if word == "" {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		words = append(words, word)
	}
	return words
}

// Seed builds the version-0 list used when nothing is persisted yet.
func Seed(words []string) *domain.BannedWordList {
	return &domain.BannedWordList{
		Words:     ParseWords(strings.Join(words, "\n")),
		UpdatedAt: time.Now().UTC(),
	}
}
