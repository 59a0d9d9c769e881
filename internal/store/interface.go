// Package store defines the persistence interface for the feed.
package store

import (
	"context"
	"time"

	"github.com/ProtheticGlitch/Enterra/internal/domain"
)

// PreferenceRule decides how a reaction change moves a user's tag scores.
// Adjust is called once per tag on the post, inside the reaction
// transaction. It returns the new score, whether the row should exist
// afterwards, and ok=false when the row is left untouched.
type PreferenceRule interface {
	Adjust(change domain.ReactionChange, score float64, exists bool) (newScore float64, keep bool, ok bool)
}

// Store defines every persistence operation used by the services.
// Methods that take moderation logs write them in the same transaction as
// the entity change, so neither can commit without the other.
type Store interface {
	Close() error

	// Posts
	CreatePost(ctx context.Context, p *domain.Post, logs ...*domain.ModerationLog) error
	UpdatePost(ctx context.Context, p *domain.Post, logs ...*domain.ModerationLog) error
	GetPost(ctx context.Context, id string) (*domain.Post, error)
	GetPostsByIDs(ctx context.Context, ids []string) ([]*domain.Post, error)
	DeletePost(ctx context.Context, id string, logs ...*domain.ModerationLog) error
	SetPostPublished(ctx context.Context, id string, published bool) error
	ListPublishedPosts(ctx context.Context, filter domain.PostFilter) ([]*domain.Post, error)
	ListPublishedCorpus(ctx context.Context, excludeID string) ([]*domain.Post, error)
	RandomPublishedPost(ctx context.Context) (*domain.Post, error)
	SearchAllPosts(ctx context.Context, query string, limit int) ([]*domain.Post, error)

	// Recommendation candidates
	ListPublishedByTags(ctx context.Context, tagIDs, excludeIDs []string, limit int) ([]*domain.Post, error)
	ListPopularPosts(ctx context.Context, limit int) ([]*domain.Post, error)
	ListFreshPosts(ctx context.Context, excludeIDs []string, limit int) ([]*domain.Post, error)

	// Tags
	FindOrCreateTagBySlug(ctx context.Context, slug, name string) (*domain.Tag, bool, error)
	GetTag(ctx context.Context, id string) (*domain.Tag, error)
	GetTagBySlug(ctx context.Context, slug string) (*domain.Tag, error)
	SearchTagsByName(ctx context.Context, query string, limit int) ([]*domain.Tag, error)
	ListTagCounts(ctx context.Context, limit int) ([]domain.TagCount, error)
	GetPostTagIDs(ctx context.Context, postIDs []string) (map[string][]string, error)
	ListLikedTags(ctx context.Context, userID, excludePostID string, limit int) ([]domain.Tag, error)

	// Categories
	FindOrCreateCategory(ctx context.Context, slug, title string) (*domain.Category, error)
	ListCategories(ctx context.Context) ([]*domain.Category, error)

	// Comments
	CreateComment(ctx context.Context, c *domain.Comment) error
	GetComment(ctx context.Context, id string) (*domain.Comment, error)
	ListComments(ctx context.Context, postID string) ([]*domain.Comment, error)
	ListUserComments(ctx context.Context, userID string) ([]*domain.Comment, error)
	ListAllComments(ctx context.Context) ([]*domain.Comment, error)
	DeleteComment(ctx context.Context, id string, logs ...*domain.ModerationLog) error

	// Reactions
	GetReaction(ctx context.Context, userID, postID string) (*domain.Reaction, error)
	ToggleReaction(ctx context.Context, userID, postID string, code domain.ReactionCode, rule PreferenceRule) (domain.ReactionChange, error)
	ListUserReactions(ctx context.Context, userID string) ([]*domain.Reaction, error)
	CountReactions(ctx context.Context, postID string) (map[domain.ReactionCode]int, error)

	// Views
	RecordView(ctx context.Context, userID, postID string, progress float64, complete bool, duration float64, at time.Time) (*domain.PostView, error)
	GetView(ctx context.Context, userID, postID string) (*domain.PostView, error)
	ListUserViews(ctx context.Context, userID string) ([]*domain.PostView, error)

	// Tag preferences
	ListTopPreferences(ctx context.Context, userID string, limit int) ([]domain.TagScore, error)
	GetPreference(ctx context.Context, userID, tagID string) (*domain.TagPreference, error)

	// Moderation
	CreateModerationLog(ctx context.Context, log *domain.ModerationLog) error
	ListModerationLogs(ctx context.Context, limit int) ([]*domain.ModerationLog, error)
	GetModerationSettings(ctx context.Context) (domain.ModerationSettings, error)
	SaveModerationSettings(ctx context.Context, settings domain.ModerationSettings) error
	GetBannedWords(ctx context.Context) (*domain.BannedWordList, error)
	ReplaceBannedWords(ctx context.Context, words []string, updatedBy string, log *domain.ModerationLog) (*domain.BannedWordList, error)
	ListModeratedTags(ctx context.Context) ([]domain.ModeratedTag, error)
	ToggleTagModeration(ctx context.Context, tagID string) (moderated bool, hidden int, err error)
}
