package domain

import "time"

// ReactionCode is the kind of reaction a user left on a post.
type ReactionCode string

const (
	ReactionLike    ReactionCode = "like"
	ReactionDislike ReactionCode = "dislike"
)

// Valid reports whether c is a known reaction code.
func (c ReactionCode) Valid() bool {
	return c == ReactionLike || c == ReactionDislike
}

// Reaction is the single reaction of a user on a post.
// Reacting again with the same code removes it; a different code replaces it.
type Reaction struct {
	UserID    string       `json:"user_id"`
	PostID    string       `json:"post_id"`
	Code      ReactionCode `json:"code"`
	CreatedAt time.Time    `json:"created_at"`
}

// ReactionChange describes what a toggle did, from Previous to Current.
// An empty code means no reaction.
type ReactionChange struct {
	Previous ReactionCode `json:"previous,omitempty"`
	Current  ReactionCode `json:"current,omitempty"`
}

// PostView is the per (user, post) viewing record.
type PostView struct {
	UserID       string    `json:"user_id"`
	PostID       string    `json:"post_id"`
	Progress     float64   `json:"progress"` // 0.0 - 1.0
	IsComplete   bool      `json:"is_complete"`
	ViewDuration float64   `json:"view_duration"` // Seconds
	ViewedAt     time.Time `json:"viewed_at"`
}

// Merge folds an incoming observation into v. Progress and duration never
// decrease and completion is sticky; ViewedAt always moves to at.
func (v *PostView) Merge(progress float64, complete bool, duration float64, at time.Time) {
	v.Progress = max(v.Progress, clamp01(progress))
	v.IsComplete = v.IsComplete || complete
	v.ViewDuration = max(v.ViewDuration, max(duration, 0))
	v.ViewedAt = at
}

func clamp01(f float64) float64 {
	return min(max(f, 0), 1)
}

// Comment is a reply to a post.
type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// TagPreference is a user's decaying affinity for a tag.
type TagPreference struct {
	UserID    string    `json:"user_id"`
	TagID     string    `json:"tag_id"`
	Score     float64   `json:"score"`
	UpdatedAt time.Time `json:"updated_at"`
}
