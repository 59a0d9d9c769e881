// Package search provides full-text search over posts using Bleve.
// The index holds every post, hidden ones included; queries filter on the
// published flag unless an admin asks otherwise.
package search

import (
	"github.com/ProtheticGlitch/Enterra/internal/domain"
)

// PostDocument is the indexed form of a post.
//
// Tag and category slugs are denormalized into the document so a filtered
// search is a single query.
type PostDocument struct {
	ID         string   `json:"id"`
	AuthorID   string   `json:"author_id"`
	Title      string   `json:"title"`
	Summary    string   `json:"summary,omitempty"`
	Body       string   `json:"body,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Categories []string `json:"categories,omitempty"`
	Published  bool     `json:"published"`
	CreatedAt  int64    `json:"created_at"` // Unix milliseconds
}

// PostToDocument converts a post with loaded relations.
func PostToDocument(p *domain.Post) *PostDocument {
	doc := &PostDocument{
		ID:        p.ID,
		AuthorID:  p.AuthorID,
		Title:     p.Title,
		Summary:   p.Summary,
		Body:      p.Body,
		Published: p.IsPublished,
		CreatedAt: p.CreatedAt.UnixMilli(),
	}
	for _, t := range p.Tags {
		doc.Tags = append(doc.Tags, t.Slug)
	}
	for _, c := range p.Categories {
		doc.Categories = append(doc.Categories, c.Slug)
	}
	return doc
}

// ToMap converts the document to the field names used by the mapping.
func (d *PostDocument) ToMap() map[string]any {
	m := map[string]any{
		"id":         d.ID,
		"author_id":  d.AuthorID,
		"title":      d.Title,
		"published":  d.Published,
		"created_at": float64(d.CreatedAt),
	}
	if d.Summary != "" {
		m["summary"] = d.Summary
	}
	if d.Body != "" {
		m["body"] = d.Body
	}
	if len(d.Tags) > 0 {
		m["tags"] = d.Tags
	}
	if len(d.Categories) > 0 {
		m["categories"] = d.Categories
	}
	return m
}
