package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ProtheticGlitch/Enterra/internal/domain"
	"github.com/ProtheticGlitch/Enterra/internal/id"
	"github.com/ProtheticGlitch/Enterra/internal/store"
)

// postColumns is the ordered list of columns selected in post queries.
// Must match the scan order in scanPost. Queries alias posts as p.
const postColumns = `p.id, p.author_id, p.title, p.summary, p.body, p.cover_emoji,
	p.media_path, p.media_type, p.is_published, p.created_at, p.updated_at`

const defaultFeedLimit = 50

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func scanPost(scanner interface{ Scan(dest ...any) error }) (*domain.Post, error) {
	var (
		p          domain.Post
		summary    sql.NullString
		coverEmoji sql.NullString
		mediaPath  sql.NullString
		mediaType  sql.NullString
		published  int
		createdAt  string
		updatedAt  string
	)

	err := scanner.Scan(
		&p.ID,
		&p.AuthorID,
		&p.Title,
		&summary,
		&p.Body,
		&coverEmoji,
		&mediaPath,
		&mediaType,
		&published,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Summary = summary.String
	p.CoverEmoji = coverEmoji.String
	p.MediaPath = mediaPath.String
	p.MediaType = domain.MediaType(mediaType.String)
	p.IsPublished = published != 0

	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) queryPosts(ctx context.Context, q querier, query string, args ...any) ([]*domain.Post, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []*domain.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// CreatePost inserts a post with its tag links, category links and tracks.
// Any logs are written in the same transaction.
func (s *Store) CreatePost(ctx context.Context, p *domain.Post, logs ...*domain.ModerationLog) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO posts (id, author_id, title, summary, body, cover_emoji,
			media_path, media_type, is_published, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.AuthorID,
		p.Title,
		nullString(p.Summary),
		p.Body,
		nullString(p.CoverEmoji),
		nullString(p.MediaPath),
		nullString(string(p.MediaType)),
		boolInt(p.IsPublished),
		formatTime(p.CreatedAt),
		formatTime(p.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		return fmt.Errorf("insert post: %w", err)
	}

	if err := writePostRelations(ctx, tx, p); err != nil {
		return err
	}
	if err := insertLogs(ctx, tx, logs); err != nil {
		return err
	}

	return tx.Commit()
}

// UpdatePost overwrites the post's columns and replaces its tags,
// categories and tracks wholesale.
func (s *Store) UpdatePost(ctx context.Context, p *domain.Post, logs ...*domain.ModerationLog) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE posts SET title = ?, summary = ?, body = ?, cover_emoji = ?,
			media_path = ?, media_type = ?, is_published = ?, updated_at = ?
		WHERE id = ?`,
		p.Title,
		nullString(p.Summary),
		p.Body,
		nullString(p.CoverEmoji),
		nullString(p.MediaPath),
		nullString(string(p.MediaType)),
		boolInt(p.IsPublished),
		formatTime(p.UpdatedAt),
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}

	for _, table := range []string{"post_tags", "post_categories", "tracks"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE post_id = ?`, p.ID); err != nil {
			return fmt.Errorf("delete %s: %w", table, err)
		}
	}
	if err := writePostRelations(ctx, tx, p); err != nil {
		return err
	}
	if err := insertLogs(ctx, tx, logs); err != nil {
		return err
	}

	return tx.Commit()
}

func writePostRelations(ctx context.Context, tx *sql.Tx, p *domain.Post) error {
	for _, t := range p.Tags {
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO post_tags (post_id, tag_id) VALUES (?, ?)`, p.ID, t.ID)
		if err != nil {
			return fmt.Errorf("insert post_tag: %w", err)
		}
	}
	for _, c := range p.Categories {
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO post_categories (post_id, category_id) VALUES (?, ?)`, p.ID, c.ID)
		if err != nil {
			return fmt.Errorf("insert post_category: %w", err)
		}
	}
	for _, tr := range p.Tracks {
		trackID, err := id.Generate(id.PrefixTrack)
		if err != nil {
			return fmt.Errorf("generate track id: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO tracks (id, post_id, title, artist, url, position)
			VALUES (?, ?, ?, ?, ?, ?)`,
			trackID, p.ID, tr.Title, tr.Artist, nullString(tr.URL), tr.Position)
		if err != nil {
			return fmt.Errorf("insert track: %w", err)
		}
	}
	return nil
}

// GetPost retrieves a post with its tags, categories and tracks.
// Returns store.ErrNotFound if the post does not exist.
func (s *Store) GetPost(ctx context.Context, postID string) (*domain.Post, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts p WHERE p.id = ?`, postID)
	p, err := scanPost(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound.WithMessage("post not found")
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadRelations(ctx, []*domain.Post{p}); err != nil {
		return nil, err
	}
	return p, nil
}

// GetPostsByIDs returns the posts in the order of ids, skipping ids that
// do not exist.
func (s *Store) GetPostsByIDs(ctx context.Context, ids []string) ([]*domain.Post, error) {
	if len(ids) == 0 {
		return []*domain.Post{}, nil
	}
	found, err := s.queryPosts(ctx, s.db,
		`SELECT `+postColumns+` FROM posts p WHERE p.id IN (`+placeholders(len(ids))+`)`,
		stringArgs(ids)...)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*domain.Post, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	posts := make([]*domain.Post, 0, len(found))
	for _, postID := range ids {
		if p, ok := byID[postID]; ok {
			posts = append(posts, p)
		}
	}
	if err := s.loadRelations(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// DeletePost removes a post. Tag and category links, tracks, comments,
// reactions and views go with it through ON DELETE CASCADE.
func (s *Store) DeletePost(ctx context.Context, postID string, logs ...*domain.ModerationLog) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, postID)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	if err := insertLogs(ctx, tx, logs); err != nil {
		return err
	}

	return tx.Commit()
}

// SetPostPublished flips the visibility of a single post.
func (s *Store) SetPostPublished(ctx context.Context, postID string, published bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE posts SET is_published = ?, updated_at = ? WHERE id = ?`,
		boolInt(published), formatTime(time.Now()), postID)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ListPublishedPosts returns published posts newest-first, narrowed by the
// filter. The text query matches title or body case-insensitively.
func (s *Store) ListPublishedPosts(ctx context.Context, filter domain.PostFilter) ([]*domain.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts p WHERE p.is_published = 1`
	var args []any

	if filter.CategorySlug != "" {
		query += ` AND EXISTS (SELECT 1 FROM post_categories pc
			JOIN categories c ON c.id = pc.category_id
			WHERE pc.post_id = p.id AND c.slug = ?)`
		args = append(args, filter.CategorySlug)
	}
	if filter.TagSlug != "" {
		query += ` AND EXISTS (SELECT 1 FROM post_tags pt
			JOIN tags t ON t.id = pt.tag_id
			WHERE pt.post_id = p.id AND t.slug = ?)`
		args = append(args, filter.TagSlug)
	}
	query += ` ORDER BY p.created_at DESC, p.rowid DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultFeedLimit
	}

	all, err := s.queryPosts(ctx, s.db, query, args...)
	if err != nil {
		return nil, err
	}

	posts := make([]*domain.Post, 0, min(limit, len(all)))
	for _, p := range all {
		if len(posts) == limit {
			break
		}
		if containsFold(filter.Query, p.Title, p.Body) {
			posts = append(posts, p)
		}
	}

	if err := s.loadRelations(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// ListPublishedCorpus returns every published post except excludeID in
// creation order. Relations are not loaded.
func (s *Store) ListPublishedCorpus(ctx context.Context, excludeID string) ([]*domain.Post, error) {
	return s.queryPosts(ctx, s.db, `
		SELECT `+postColumns+` FROM posts p
		WHERE p.is_published = 1 AND p.id != ?
		ORDER BY p.created_at ASC, p.rowid ASC`, excludeID)
}

// RandomPublishedPost returns one published post chosen at random.
// Returns store.ErrNotFound when nothing is published.
func (s *Store) RandomPublishedPost(ctx context.Context) (*domain.Post, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts p WHERE p.is_published = 1 ORDER BY RANDOM() LIMIT 1`)
	p, err := scanPost(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadRelations(ctx, []*domain.Post{p}); err != nil {
		return nil, err
	}
	return p, nil
}

// SearchAllPosts searches every post, published or not, newest-first. The
// query matches title, body or summary case-insensitively.
func (s *Store) SearchAllPosts(ctx context.Context, query string, limit int) ([]*domain.Post, error) {
	all, err := s.queryPosts(ctx, s.db,
		`SELECT `+postColumns+` FROM posts p ORDER BY p.created_at DESC, p.rowid DESC`)
	if err != nil {
		return nil, err
	}

	posts := make([]*domain.Post, 0)
	for _, p := range all {
		if limit > 0 && len(posts) == limit {
			break
		}
		if containsFold(query, p.Title, p.Body, p.Summary) {
			posts = append(posts, p)
		}
	}
	if err := s.loadRelations(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// ListPublishedByTags returns published posts carrying any of tagIDs and
// not in excludeIDs, newest-first, with tags loaded.
func (s *Store) ListPublishedByTags(ctx context.Context, tagIDs, excludeIDs []string, limit int) ([]*domain.Post, error) {
	if len(tagIDs) == 0 {
		return []*domain.Post{}, nil
	}

	query := `SELECT ` + postColumns + ` FROM posts p
		WHERE p.is_published = 1
		AND p.id IN (SELECT post_id FROM post_tags WHERE tag_id IN (` + placeholders(len(tagIDs)) + `))`
	args := stringArgs(tagIDs)
	if len(excludeIDs) > 0 {
		query += ` AND p.id NOT IN (` + placeholders(len(excludeIDs)) + `)`
		args = append(args, stringArgs(excludeIDs)...)
	}
	query += ` ORDER BY p.created_at DESC, p.rowid DESC LIMIT ?`
	args = append(args, limit)

	posts, err := s.queryPosts(ctx, s.db, query, args...)
	if err != nil {
		return nil, err
	}
	if err := s.loadRelations(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// ListPopularPosts returns published posts with at least one like, ordered
// by like count then recency.
func (s *Store) ListPopularPosts(ctx context.Context, limit int) ([]*domain.Post, error) {
	posts, err := s.queryPosts(ctx, s.db, `
		SELECT `+postColumns+` FROM posts p
		JOIN (SELECT post_id, COUNT(*) AS likes FROM reactions
			WHERE code = ? GROUP BY post_id) r ON r.post_id = p.id
		WHERE p.is_published = 1
		ORDER BY r.likes DESC, p.created_at DESC, p.rowid DESC
		LIMIT ?`,
		string(domain.ReactionLike), limit)
	if err != nil {
		return nil, err
	}
	if err := s.loadRelations(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// ListFreshPosts returns the newest published posts not in excludeIDs.
func (s *Store) ListFreshPosts(ctx context.Context, excludeIDs []string, limit int) ([]*domain.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts p WHERE p.is_published = 1`
	var args []any
	if len(excludeIDs) > 0 {
		query += ` AND p.id NOT IN (` + placeholders(len(excludeIDs)) + `)`
		args = stringArgs(excludeIDs)
	}
	query += ` ORDER BY p.created_at DESC, p.rowid DESC LIMIT ?`
	args = append(args, limit)

	posts, err := s.queryPosts(ctx, s.db, query, args...)
	if err != nil {
		return nil, err
	}
	if err := s.loadRelations(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// loadRelations fills Tags, Categories and Tracks for a batch of posts.
func (s *Store) loadRelations(ctx context.Context, posts []*domain.Post) error {
	if len(posts) == 0 {
		return nil
	}
	byID := make(map[string]*domain.Post, len(posts))
	ids := make([]string, len(posts))
	for i, p := range posts {
		byID[p.ID] = p
		ids[i] = p.ID
		p.Tags, p.Categories, p.Tracks = []domain.Tag{}, []domain.Category{}, []domain.Track{}
	}
	in := placeholders(len(ids))
	args := stringArgs(ids)

	rows, err := s.db.QueryContext(ctx, `
		SELECT pt.post_id, t.id, t.name, t.slug FROM post_tags pt
		JOIN tags t ON t.id = pt.tag_id
		WHERE pt.post_id IN (`+in+`)
		ORDER BY t.slug`, args...)
	if err != nil {
		return fmt.Errorf("load post tags: %w", err)
	}
	for rows.Next() {
		var postID string
		var t domain.Tag
		if err := rows.Scan(&postID, &t.ID, &t.Name, &t.Slug); err != nil {
			rows.Close()
			return err
		}
		byID[postID].Tags = append(byID[postID].Tags, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT pc.post_id, c.id, c.slug, c.title FROM post_categories pc
		JOIN categories c ON c.id = pc.category_id
		WHERE pc.post_id IN (`+in+`)
		ORDER BY c.slug`, args...)
	if err != nil {
		return fmt.Errorf("load post categories: %w", err)
	}
	for rows.Next() {
		var postID string
		var c domain.Category
		if err := rows.Scan(&postID, &c.ID, &c.Slug, &c.Title); err != nil {
			rows.Close()
			return err
		}
		byID[postID].Categories = append(byID[postID].Categories, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT post_id, title, artist, url, position FROM tracks
		WHERE post_id IN (`+in+`)
		ORDER BY post_id, position`, args...)
	if err != nil {
		return fmt.Errorf("load tracks: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var postID string
		var tr domain.Track
		var url sql.NullString
		if err := rows.Scan(&postID, &tr.Title, &tr.Artist, &url, &tr.Position); err != nil {
			return err
		}
		tr.URL = url.String
		byID[postID].Tracks = append(byID[postID].Tracks, tr)
	}
	return rows.Err()
}
