package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/ProtheticGlitch/Enterra/internal/domain"
	"github.com/ProtheticGlitch/Enterra/internal/duplicate"
	"github.com/ProtheticGlitch/Enterra/internal/search"
)

// similarTagsLimit caps the "similar tags" shown to a viewer who liked a post.
const similarTagsLimit = 5

// PostDetail is a post as shown to one viewer.
type PostDetail struct {
	Post           *domain.Post                `json:"post"`
	Comments       []*domain.Comment           `json:"comments"`
	Reactions      map[domain.ReactionCode]int `json:"reactions"`
	ViewerReaction domain.ReactionCode         `json:"viewer_reaction,omitempty"`
	ViewerView     *domain.PostView            `json:"viewer_view,omitempty"`
	SimilarTags    []domain.Tag                `json:"similar_tags"`
}

// Get returns a post with its comments, reaction counts and the viewer's
// own interaction. Hidden posts read as not found for everyone except
// their author and admins.
func (s *PostService) Get(ctx context.Context, caller domain.Identity, postID string) (*PostDetail, error) {
	post, err := visiblePost(ctx, s.store, caller, postID)
	if err != nil {
		return nil, err
	}

	detail := &PostDetail{Post: post, SimilarTags: []domain.Tag{}}

	if detail.Comments, err = s.store.ListComments(ctx, post.ID); err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	if detail.Reactions, err = s.store.CountReactions(ctx, post.ID); err != nil {
		return nil, fmt.Errorf("count reactions: %w", err)
	}

	if caller.UserID == "" {
		return detail, nil
	}

	reaction, err := s.store.GetReaction(ctx, caller.UserID, post.ID)
	switch {
	case err == nil:
		detail.ViewerReaction = reaction.Code
	case !isNotFound(err):
		return nil, fmt.Errorf("get reaction: %w", err)
	}

	if detail.ViewerReaction == domain.ReactionLike {
		if detail.SimilarTags, err = s.store.ListLikedTags(ctx, caller.UserID, post.ID, similarTagsLimit); err != nil {
			return nil, fmt.Errorf("list liked tags: %w", err)
		}
	}

	view, err := s.store.GetView(ctx, caller.UserID, post.ID)
	switch {
	case err == nil:
		detail.ViewerView = view
	case !isNotFound(err):
		return nil, fmt.Errorf("get view: %w", err)
	}

	return detail, nil
}

// List returns the public feed: published posts newest-first narrowed by
// category, tag and a case-insensitive text query.
func (s *PostService) List(ctx context.Context, filter domain.PostFilter) ([]*domain.Post, error) {
	filter.Query = strings.TrimSpace(filter.Query)
	return s.store.ListPublishedPosts(ctx, filter)
}

// Random returns one published post.
func (s *PostService) Random(ctx context.Context) (*domain.Post, error) {
	p, err := s.store.RandomPublishedPost(ctx)
	if err != nil {
		return nil, notFoundOr(err, "no published posts yet")
	}
	return p, nil
}

// Similar lists published posts that read like postID, most similar first.
func (s *PostService) Similar(ctx context.Context, caller domain.Identity, postID string) ([]duplicate.Match, error) {
	post, err := visiblePost(ctx, s.store, caller, postID)
	if err != nil {
		return nil, err
	}
	return s.detector.FindSimilar(ctx, post.ID, post.Title, post.Body, s.thresholds.Similar)
}

// Search runs a full-text query over published posts. Without an index it
// falls back to the feed's substring match.
func (s *PostService) Search(ctx context.Context, params search.SearchParams) ([]*domain.Post, error) {
	params.Query = strings.TrimSpace(params.Query)
	params.IncludeHidden = false

	if s.fx.index == nil {
		return s.store.ListPublishedPosts(ctx, domain.PostFilter{
			Query:        params.Query,
			TagSlug:      params.TagSlug,
			CategorySlug: params.CategorySlug,
			Limit:        params.Limit,
		})
	}

	result, err := s.fx.index.Search(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("search posts: %w", err)
	}
	posts, err := s.store.GetPostsByIDs(ctx, result.IDs())
	if err != nil {
		return nil, fmt.Errorf("load search hits: %w", err)
	}

	// The index may lag a bulk hide; the database decides visibility.
	visible := posts[:0]
	for _, p := range posts {
		if p.IsPublished {
			visible = append(visible, p)
		}
	}
	return visible, nil
}

