// Package moderation screens submitted content. It decides; callers persist
// the outcome and the audit entries in one transaction.
package moderation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ProtheticGlitch/Enterra/internal/domain"
	"github.com/ProtheticGlitch/Enterra/internal/normalize"
)

// Source is the storage the gate reads its settings from.
type Source interface {
	GetModerationSettings(ctx context.Context) (domain.ModerationSettings, error)
	ListModeratedTags(ctx context.Context) ([]domain.ModeratedTag, error)
}

// FileVerdict is the decision on an uploaded file name.
type FileVerdict int

const (
	FileNone     FileVerdict = iota // No file submitted
	FileAccepted                    // Allowed extension, clean name
	FileBlocked                     // Rejected by policy; audited
	FileInvalid                     // Disallowed extension with auto moderation off; plain validation error
)

// Submission is the content of a post create or edit.
type Submission struct {
	Text     string // Title, summary and body
	Tags     []domain.Tag
	Filename string
}

// Review is the gate's decision on a submission.
type Review struct {
	AutoEnabled bool
	BadWords    bool // Post must not be kept
	File        FileVerdict
	Hidden      bool // Post must be stored unpublished
}

// Gate applies the banned-word and tag-moderation checks.
type Gate struct {
	source Source
	words  *WordList
	logger *slog.Logger
}

// NewGate creates a gate reading settings from source and words from words.
func NewGate(source Source, words *WordList, logger *slog.Logger) *Gate {
	return &Gate{source: source, words: words, logger: logger}
}

// Words returns the live banned word list.
func (g *Gate) Words() *WordList {
	return g.words
}

// AutoEnabled reports whether automatic banned-word moderation is on.
func (g *Gate) AutoEnabled(ctx context.Context) (bool, error) {
	settings, err := g.source.GetModerationSettings(ctx)
	if err != nil {
		return false, fmt.Errorf("load moderation settings: %w", err)
	}
	return settings.AutoEnabled, nil
}

// ReviewPost runs both checks on a post submission. The tag check runs
// whatever the banned-word outcome, so callers can log it.
func (g *Gate) ReviewPost(ctx context.Context, sub Submission) (Review, error) {
	auto, err := g.AutoEnabled(ctx)
	if err != nil {
		return Review{}, err
	}

	r := Review{AutoEnabled: auto}
	if auto {
		r.BadWords = g.words.Contains(sub.Text)
	}
	r.File = g.reviewFile(sub.Filename, auto)

	hidden, err := g.HasModeratedTag(ctx, sub.Tags)
	if err != nil {
		return Review{}, err
	}
	r.Hidden = hidden

	if r.BadWords || r.Hidden || r.File == FileBlocked {
		g.logger.Debug("submission flagged",
			"bad_words", r.BadWords,
			"hidden", r.Hidden,
			"file", r.File,
		)
	}
	return r, nil
}

// ReviewComment reports whether a comment body must be blocked.
func (g *Gate) ReviewComment(ctx context.Context, body string) (bool, error) {
	auto, err := g.AutoEnabled(ctx)
	if err != nil {
		return false, err
	}
	return auto && g.words.Contains(body), nil
}

func (g *Gate) reviewFile(filename string, auto bool) FileVerdict {
	if filename == "" {
		return FileNone
	}
	allowed := IsAllowedMedia(filename)
	if !auto {
		if !allowed {
			return FileInvalid
		}
		return FileAccepted
	}
	if !allowed || g.words.Contains(filename) {
		return FileBlocked
	}
	return FileAccepted
}

// HasModeratedTag reports whether any tag is under moderation, matching
// either its slug or its lower-cased name against moderated slugs.
func (g *Gate) HasModeratedTag(ctx context.Context, tags []domain.Tag) (bool, error) {
	if len(tags) == 0 {
		return false, nil
	}

	moderated, err := g.source.ListModeratedTags(ctx)
	if err != nil {
		return false, fmt.Errorf("load moderated tags: %w", err)
	}
	if len(moderated) == 0 {
		return false, nil
	}

	slugs := make(map[string]struct{}, len(moderated))
	for _, m := range moderated {
		slugs[m.Slug] = struct{}{}
	}
	for _, t := range tags {
		if _, ok := slugs[t.Slug]; ok {
			return true, nil
		}
		if _, ok := slugs[normalize.Lower(t.Name)]; ok {
			return true, nil
		}
	}
	return false, nil
}

// NewLog builds an audit entry. text is reduced to a snippet.
func NewLog(kind domain.LogKind, reason, userID, postID, commentID, text string) *domain.ModerationLog {
	return &domain.ModerationLog{
		Kind:      kind,
		Reason:    reason,
		Snippet:   Snippet(text),
		UserID:    userID,
		PostID:    postID,
		CommentID: commentID,
	}
}
