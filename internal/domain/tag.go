package domain

// Tag is a global label attached to posts. Tags are created lazily on
// first use and never deleted by the feed itself.
// Slug is the source of truth for identity; Name keeps the spelling of
// the first use.
type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// TagCount is a tag with the number of published posts carrying it.
type TagCount struct {
	Tag
	PostCount int `json:"post_count"`
}

// TagScore is a tag ranked for a user.
type TagScore struct {
	Name  string  `json:"name"`
	Slug  string  `json:"slug"`
	Score float64 `json:"score"`
}
