// Package recommend builds a user's personal feed from their interactions.
package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/ProtheticGlitch/Enterra/internal/domain"
)

// Interaction weights.
const (
	FullWatchSeconds = 300.0
	WatchWeight      = 2.0
	ProgressWeight   = 1.0
	CompleteBonus    = 0.5
	CommentScore     = 3.0
	LikeScore        = 5.0
	DislikeScore     = -2.0
)

// Sizes.
const (
	DefaultLimit = 20
	SeedSize     = 10
)

// Strategy names which rule produced a feed.
type Strategy string

const (
	StrategyAffinity Strategy = "affinity"
	StrategyPopular  Strategy = "popular"
	StrategyFresh    Strategy = "fresh"
)

// Source is the read-only storage the recommender needs.
type Source interface {
	ListUserViews(ctx context.Context, userID string) ([]*domain.PostView, error)
	ListUserComments(ctx context.Context, userID string) ([]*domain.Comment, error)
	ListUserReactions(ctx context.Context, userID string) ([]*domain.Reaction, error)
	GetPostTagIDs(ctx context.Context, postIDs []string) (map[string][]string, error)
	ListPublishedByTags(ctx context.Context, tagIDs, excludeIDs []string, limit int) ([]*domain.Post, error)
	ListPopularPosts(ctx context.Context, limit int) ([]*domain.Post, error)
	ListFreshPosts(ctx context.Context, excludeIDs []string, limit int) ([]*domain.Post, error)
}

// Result is a recommended feed and the strategy that filled it.
type Result struct {
	Posts    []*domain.Post `json:"posts"`
	Strategy Strategy       `json:"strategy"`
}

// Recommender ranks posts for a user. It never writes.
type Recommender struct {
	source Source
	logger *slog.Logger
}

// New creates a recommender.
func New(source Source, logger *slog.Logger) *Recommender {
	return &Recommender{source: source, logger: logger}
}

// profile is what a user's history says about them.
type profile struct {
	scores     map[string]float64
	order      []string // Post ids in first-touch order
	interacted map[string]struct{}
}

func (p *profile) add(postID string, delta float64) {
	if _, ok := p.scores[postID]; !ok {
		p.order = append(p.order, postID)
	}
	p.scores[postID] += delta
}

// seed returns up to SeedSize positively scored posts, best first.
func (p *profile) seed() []string {
	ids := make([]string, 0, len(p.order))
	for _, id := range p.order {
		if p.scores[id] > 0 {
			ids = append(ids, id)
		}
	}
	sort.SliceStable(ids, func(i, j int) bool {
		return p.scores[ids[i]] > p.scores[ids[j]]
	})
	if len(ids) > SeedSize {
		ids = ids[:SeedSize]
	}
	return ids
}

func (p *profile) interactedIDs() []string {
	ids := make([]string, 0, len(p.interacted))
	for _, id := range p.order {
		if _, ok := p.interacted[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// ViewScore is the interest signal of one view.
func ViewScore(v *domain.PostView) float64 {
	watch := min(1.0, max(0, v.ViewDuration)/FullWatchSeconds)
	score := watch*WatchWeight + v.Progress*ProgressWeight
	if v.IsComplete {
		score += CompleteBonus
	}
	return score
}

func (r *Recommender) buildProfile(ctx context.Context, userID string) (*profile, error) {
	views, err := r.source.ListUserViews(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list views: %w", err)
	}
	comments, err := r.source.ListUserComments(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	reactions, err := r.source.ListUserReactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list reactions: %w", err)
	}

	p := &profile{scores: map[string]float64{}, interacted: map[string]struct{}{}}
	for _, v := range views {
		p.add(v.PostID, ViewScore(v))
		p.interacted[v.PostID] = struct{}{}
	}
	for _, c := range comments {
		p.add(c.PostID, CommentScore)
		p.interacted[c.PostID] = struct{}{}
	}
	for _, rc := range reactions {
		switch rc.Code {
		case domain.ReactionLike:
			p.add(rc.PostID, LikeScore)
			p.interacted[rc.PostID] = struct{}{}
		case domain.ReactionDislike:
			// Disliked posts are not excluded from candidates.
			p.add(rc.PostID, DislikeScore)
		}
	}
	return p, nil
}

// Recommend returns up to limit posts for userID. Tag affinity with the
// user's best posts comes first; users with no history get the most liked
// posts; anything left falls back to the newest unseen posts.
func (r *Recommender) Recommend(ctx context.Context, userID string, limit int) (*Result, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	p, err := r.buildProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	exclude := p.interactedIDs()

	if seed := p.seed(); len(seed) > 0 {
		posts, err := r.byAffinity(ctx, seed, exclude, limit)
		if err != nil {
			return nil, err
		}
		if len(posts) > 0 {
			return r.result(userID, posts, StrategyAffinity), nil
		}
	}

	if len(exclude) == 0 {
		posts, err := r.source.ListPopularPosts(ctx, limit)
		if err != nil {
			return nil, fmt.Errorf("list popular posts: %w", err)
		}
		if len(posts) > 0 {
			return r.result(userID, posts, StrategyPopular), nil
		}
	}

	posts, err := r.source.ListFreshPosts(ctx, exclude, limit)
	if err != nil {
		return nil, fmt.Errorf("list fresh posts: %w", err)
	}
	return r.result(userID, posts, StrategyFresh), nil
}

func (r *Recommender) byAffinity(ctx context.Context, seed, exclude []string, limit int) ([]*domain.Post, error) {
	tagsByPost, err := r.source.GetPostTagIDs(ctx, seed)
	if err != nil {
		return nil, fmt.Errorf("load seed tags: %w", err)
	}

	preferred := map[string]struct{}{}
	var tagIDs []string
	for _, postID := range seed {
		for _, tagID := range tagsByPost[postID] {
			if _, ok := preferred[tagID]; !ok {
				preferred[tagID] = struct{}{}
				tagIDs = append(tagIDs, tagID)
			}
		}
	}
	if len(tagIDs) == 0 {
		return nil, nil
	}

	candidates, err := r.source.ListPublishedByTags(ctx, tagIDs, exclude, limit*2)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}

	relevance := make(map[string]int, len(candidates))
	for _, c := range candidates {
		for _, t := range c.Tags {
			if _, ok := preferred[t.ID]; ok {
				relevance[c.ID]++
			}
		}
	}

	// Candidates arrive newest first; a stable sort on relevance keeps that
	// order among equals.
	sort.SliceStable(candidates, func(i, j int) bool {
		ri, rj := relevance[candidates[i].ID], relevance[candidates[j].ID]
		if ri != rj {
			return ri > rj
		}
		return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

func (r *Recommender) result(userID string, posts []*domain.Post, s Strategy) *Result {
	if posts == nil {
		posts = []*domain.Post{}
	}
	r.logger.Debug("recommendations built",
		"user_id", userID,
		"strategy", s,
		"count", len(posts),
	)
	return &Result{Posts: posts, Strategy: s}
}
