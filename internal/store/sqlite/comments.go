package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ProtheticGlitch/Enterra/internal/domain"
	"github.com/ProtheticGlitch/Enterra/internal/store"
)

const commentColumns = `id, post_id, author_id, body, created_at`

func scanComment(scanner interface{ Scan(dest ...any) error }) (*domain.Comment, error) {
	var c domain.Comment
	var createdAt string
	if err := scanner.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Body, &createdAt); err != nil {
		return nil, err
	}
	var err error
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) queryComments(ctx context.Context, query string, args ...any) ([]*domain.Comment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := []*domain.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// CreateComment inserts a comment.
// Returns store.ErrNotFound when the post does not exist.
func (s *Store) CreateComment(ctx context.Context, c *domain.Comment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO comments (id, post_id, author_id, body, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.PostID, c.AuthorID, c.Body, formatTime(c.CreatedAt))
	if err != nil {
		if isForeignKeyViolation(err) {
			return store.ErrNotFound
		}
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

// GetComment retrieves a comment by its ID.
func (s *Store) GetComment(ctx context.Context, commentID string) (*domain.Comment, error) {
	c, err := scanComment(s.db.QueryRowContext(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE id = ?`, commentID))
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	return c, err
}

// ListComments returns a post's comments oldest first.
func (s *Store) ListComments(ctx context.Context, postID string) ([]*domain.Comment, error) {
	return s.queryComments(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE post_id = ? ORDER BY created_at ASC, rowid ASC`, postID)
}

// ListUserComments returns every comment written by userID in insertion order.
func (s *Store) ListUserComments(ctx context.Context, userID string) ([]*domain.Comment, error) {
	return s.queryComments(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE author_id = ? ORDER BY rowid ASC`, userID)
}

// ListAllComments returns every comment in insertion order.
func (s *Store) ListAllComments(ctx context.Context) ([]*domain.Comment, error) {
	return s.queryComments(ctx, `SELECT `+commentColumns+` FROM comments ORDER BY rowid ASC`)
}

// DeleteComment removes a comment, writing any logs in the same transaction.
func (s *Store) DeleteComment(ctx context.Context, commentID string, logs ...*domain.ModerationLog) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, commentID)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound.WithMessage("comment not found")
	}
	if err := insertLogs(ctx, tx, logs); err != nil {
		return err
	}
	return tx.Commit()
}
