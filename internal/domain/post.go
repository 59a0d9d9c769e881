package domain

import "time"

// MediaType classifies an attached upload.
type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
)

// Post is an authored entry in the feed.
// A post is visible to other users only while IsPublished is true; its author
// (and admins) can always read and edit it.
type Post struct {
	ID         string    `json:"id"`
	AuthorID   string    `json:"author_id"`
	Title      string    `json:"title"`
	Summary    string    `json:"summary,omitempty"`
	Body       string    `json:"body"`
	CoverEmoji string    `json:"cover_emoji,omitempty"`
	MediaPath  string    `json:"media_path,omitempty"` // Relative to the data directory, e.g. "uploads/u1_ab12.png"
	MediaType  MediaType `json:"media_type,omitempty"`

	IsPublished bool      `json:"is_published"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Loaded through join tables; not columns of the posts table.
	Tags       []Tag      `json:"tags,omitempty"`
	Categories []Category `json:"categories,omitempty"`
	Tracks     []Track    `json:"tracks,omitempty"`
}

// Touch updates the UpdatedAt timestamp.
func (p *Post) Touch() {
	p.UpdatedAt = time.Now()
}

// Text is the blob screened by the banned-word check: title, summary and
// body joined by single spaces.
func (p *Post) Text() string {
	return p.Title + " " + p.Summary + " " + p.Body
}

// CombinedText is the unit of similarity comparison.
func (p *Post) CombinedText() string {
	return p.Title + " " + p.Body
}

// TagIDs returns the ids of the loaded tags in order.
func (p *Post) TagIDs() []string {
	ids := make([]string, len(p.Tags))
	for i, t := range p.Tags {
		ids[i] = t.ID
	}
	return ids
}

// VisibleTo reports whether userID may read the post.
func (p *Post) VisibleTo(userID string, isAdmin bool) bool {
	return p.IsPublished || isAdmin || (userID != "" && p.AuthorID == userID)
}

// Track is one entry of a post's soundtrack list.
// Tracks are owned by the post and replaced wholesale on edit.
type Track struct {
	Title    string `json:"title"`
	Artist   string `json:"artist,omitempty"`
	URL      string `json:"url,omitempty"`
	Position int    `json:"position"`
}

// Category groups posts by theme. Posts get categories from their tags
// through the tag-to-category mapping.
type Category struct {
	ID    string `json:"id"`
	Slug  string `json:"slug"`
	Title string `json:"title"`
}

// PostFilter narrows the published feed listing.
type PostFilter struct {
	CategorySlug string
	TagSlug      string
	Query        string // Case-insensitive substring of title or body
	Limit        int
}
