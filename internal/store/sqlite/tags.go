package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ProtheticGlitch/Enterra/internal/domain"
	"github.com/ProtheticGlitch/Enterra/internal/id"
	"github.com/ProtheticGlitch/Enterra/internal/store"
)

// tagColumns is the ordered list of columns selected in tag queries.
// Must match the scan order in scanTag.
const tagColumns = `id, name, slug`

func scanTag(scanner interface{ Scan(dest ...any) error }) (*domain.Tag, error) {
	var t domain.Tag
	if err := scanner.Scan(&t.ID, &t.Name, &t.Slug); err != nil {
		return nil, err
	}
	return &t, nil
}

// createTag inserts a new tag.
// Returns store.ErrAlreadyExists on duplicate slug.
func (s *Store) createTag(ctx context.Context, t *domain.Tag) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tags (id, name, slug) VALUES (?, ?, ?)`, t.ID, t.Name, t.Slug)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

// GetTag retrieves a tag by its ID.
// Returns store.ErrNotFound if the tag does not exist.
func (s *Store) GetTag(ctx context.Context, tagID string) (*domain.Tag, error) {
	t, err := scanTag(s.db.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE id = ?`, tagID))
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	return t, err
}

// GetTagBySlug retrieves a tag by its slug.
// Returns store.ErrNotFound if the tag does not exist.
func (s *Store) GetTagBySlug(ctx context.Context, slug string) (*domain.Tag, error) {
	t, err := scanTag(s.db.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE slug = ?`, slug))
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	return t, err
}

// FindOrCreateTagBySlug finds an existing tag by slug or creates one named
// name. Returns (tag, created, error).
func (s *Store) FindOrCreateTagBySlug(ctx context.Context, slug, name string) (*domain.Tag, bool, error) {
	existing, err := s.GetTagBySlug(ctx, slug)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, err
	}

	tagID, err := id.Generate(id.PrefixTag)
	if err != nil {
		return nil, false, fmt.Errorf("generate tag id: %w", err)
	}
	t := &domain.Tag{ID: tagID, Name: name, Slug: slug}

	if err := s.createTag(ctx, t); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			// Lost a race with another writer.
			existing, err := s.GetTagBySlug(ctx, slug)
			if err != nil {
				return nil, false, err
			}
			return existing, false, nil
		}
		return nil, false, err
	}
	return t, true, nil
}

// SearchTagsByName returns tags whose name contains query, ignoring case,
// ordered by name.
func (s *Store) SearchTagsByName(ctx context.Context, query string, limit int) ([]*domain.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+tagColumns+` FROM tags ORDER BY name, slug`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []*domain.Tag{}
	for rows.Next() {
		if limit > 0 && len(tags) == limit {
			break
		}
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		if containsFold(query, t.Name) {
			tags = append(tags, t)
		}
	}
	return tags, rows.Err()
}

// ListTagCounts returns tags carried by at least one published post, most
// used first. A limit of 0 returns all of them.
func (s *Store) ListTagCounts(ctx context.Context, limit int) ([]domain.TagCount, error) {
	query := `
		SELECT t.id, t.name, t.slug, COUNT(p.id) AS n FROM tags t
		JOIN post_tags pt ON pt.tag_id = t.id
		JOIN posts p ON p.id = pt.post_id
		WHERE p.is_published = 1
		GROUP BY t.id
		ORDER BY n DESC, t.slug ASC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := []domain.TagCount{}
	for rows.Next() {
		var tc domain.TagCount
		if err := rows.Scan(&tc.ID, &tc.Name, &tc.Slug, &tc.PostCount); err != nil {
			return nil, err
		}
		counts = append(counts, tc)
	}
	return counts, rows.Err()
}

// GetPostTagIDs maps each post id to the ids of its tags.
func (s *Store) GetPostTagIDs(ctx context.Context, postIDs []string) (map[string][]string, error) {
	result := make(map[string][]string, len(postIDs))
	if len(postIDs) == 0 {
		return result, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT post_id, tag_id FROM post_tags
		WHERE post_id IN (`+placeholders(len(postIDs))+`)
		ORDER BY post_id, tag_id`, stringArgs(postIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var postID, tagID string
		if err := rows.Scan(&postID, &tagID); err != nil {
			return nil, err
		}
		result[postID] = append(result[postID], tagID)
	}
	return result, rows.Err()
}

// ListLikedTags returns the tags that appear most often on the posts the
// user liked, other than excludePostID.
func (s *Store) ListLikedTags(ctx context.Context, userID, excludePostID string, limit int) ([]domain.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.name, t.slug FROM reactions r
		JOIN post_tags pt ON pt.post_id = r.post_id
		JOIN tags t ON t.id = pt.tag_id
		WHERE r.user_id = ? AND r.code = ? AND r.post_id != ?
		GROUP BY t.id
		ORDER BY COUNT(*) DESC, t.slug ASC
		LIMIT ?`,
		userID, string(domain.ReactionLike), excludePostID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []domain.Tag{}
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, *t)
	}
	return tags, rows.Err()
}

// FindOrCreateCategory returns the category with slug, creating it with
// title when missing.
func (s *Store) FindOrCreateCategory(ctx context.Context, slug, title string) (*domain.Category, error) {
	var c domain.Category
	err := s.db.QueryRowContext(ctx,
		`SELECT id, slug, title FROM categories WHERE slug = ?`, slug).Scan(&c.ID, &c.Slug, &c.Title)
	if err == nil {
		return &c, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	catID, err := id.Generate(id.PrefixCategory)
	if err != nil {
		return nil, fmt.Errorf("generate category id: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO categories (id, slug, title) VALUES (?, ?, ?)
		 ON CONFLICT(slug) DO NOTHING`, catID, slug, title)
	if err != nil {
		return nil, fmt.Errorf("insert category: %w", err)
	}

	// Re-read: a concurrent writer may have won the insert.
	err = s.db.QueryRowContext(ctx,
		`SELECT id, slug, title FROM categories WHERE slug = ?`, slug).Scan(&c.ID, &c.Slug, &c.Title)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCategories returns all categories ordered by title.
func (s *Store) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, slug, title FROM categories ORDER BY title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cats := []*domain.Category{}
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Slug, &c.Title); err != nil {
			return nil, err
		}
		cats = append(cats, &c)
	}
	return cats, rows.Err()
}
