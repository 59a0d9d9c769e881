// Package affinity maintains per-user tag scores driven by reactions.
package affinity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ProtheticGlitch/Enterra/internal/domain"
)

// Score bounds and steps.
const (
	MinScore     = 0.1
	MaxScore     = 10.0
	InitialScore = 1.0
	LikeBoost    = 0.5
	UnlikeDecay  = 0.2
	SwitchDecay  = 0.3 // Like replaced by dislike
	DropBelow    = 0.2 // Rows decayed under this are deleted
)

// Read-side sizes.
const (
	TopLimit     = 10
	PadBelow     = 5 // Pad with popular tags when fewer preferences exist
	PopularLimit = 5
	PaddingScore = 0.5
)

// Reader is the storage the ledger reads from.
type Reader interface {
	ListTopPreferences(ctx context.Context, userID string, limit int) ([]domain.TagScore, error)
	ListTagCounts(ctx context.Context, limit int) ([]domain.TagCount, error)
}

// Ledger scores tags for a user. It is the store.PreferenceRule applied on
// every reaction toggle and serves tag recommendations.
type Ledger struct {
	reader Reader
	logger *slog.Logger
}

// NewLedger creates a ledger over reader.
func NewLedger(reader Reader, logger *slog.Logger) *Ledger {
	return &Ledger{reader: reader, logger: logger}
}

// Adjust returns the new score for one tag of a post whose reaction moved
// as described by change. ok is false when the tag is left alone.
//
// A fresh like boosts the tag (or starts it at 1.0). Removing a like decays
// by 0.2, replacing it with a dislike decays by 0.3. Nothing else moves
// scores: a dislike, its removal, or a dislike turned into a like.
func (l *Ledger) Adjust(change domain.ReactionChange, score float64, exists bool) (float64, bool, bool) {
	switch {
	case change.Previous == "" && change.Current == domain.ReactionLike:
		if !exists {
			return InitialScore, true, true
		}
		return min(MaxScore, score+LikeBoost), true, true

	case change.Previous == domain.ReactionLike && change.Current == "":
		return decay(score, exists, UnlikeDecay)

	case change.Previous == domain.ReactionLike && change.Current == domain.ReactionDislike:
		return decay(score, exists, SwitchDecay)
	}
	return score, exists, false
}

func decay(score float64, exists bool, by float64) (float64, bool, bool) {
	if !exists {
		return score, false, false
	}
	next := max(MinScore, score-by)
	return next, next >= DropBelow, true
}

// Recommendations returns the user's top tags by score. When the user has
// fewer than five, popular tags not already listed are appended with a
// synthetic score of 0.5.
func (l *Ledger) Recommendations(ctx context.Context, userID string) ([]domain.TagScore, error) {
	scores, err := l.reader.ListTopPreferences(ctx, userID, TopLimit)
	if err != nil {
		return nil, fmt.Errorf("list preferences: %w", err)
	}

	if len(scores) < PadBelow {
		popular, err := l.reader.ListTagCounts(ctx, PopularLimit)
		if err != nil {
			return nil, fmt.Errorf("list popular tags: %w", err)
		}

		seen := make(map[string]struct{}, len(scores))
		for _, s := range scores {
			seen[s.Slug] = struct{}{}
		}
		for _, tc := range popular {
			if _, ok := seen[tc.Slug]; ok {
				continue
			}
			scores = append(scores, domain.TagScore{Name: tc.Name, Slug: tc.Slug, Score: PaddingScore})
		}

		l.logger.Debug("padded tag recommendations",
			"user_id", userID,
			"count", len(scores),
		)
	}

	if len(scores) > TopLimit {
		scores = scores[:TopLimit]
	}
	return scores, nil
}
