package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ProtheticGlitch/Enterra/internal/domain"
	"github.com/ProtheticGlitch/Enterra/internal/store"
)

const viewColumns = `user_id, post_id, progress, is_complete, view_duration, viewed_at`

func scanView(scanner interface{ Scan(dest ...any) error }) (*domain.PostView, error) {
	var (
		v        domain.PostView
		complete int
		viewedAt string
	)
	if err := scanner.Scan(&v.UserID, &v.PostID, &v.Progress, &complete, &v.ViewDuration, &viewedAt); err != nil {
		return nil, err
	}
	v.IsComplete = complete != 0
	var err error
	if v.ViewedAt, err = parseTime(viewedAt); err != nil {
		return nil, err
	}
	return &v, nil
}

// RecordView merges an observation into the user's view of a post,
// creating the record on first sight.
func (s *Store) RecordView(ctx context.Context, userID, postID string, progress float64, complete bool, duration float64, at time.Time) (*domain.PostView, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	v, err := scanView(tx.QueryRowContext(ctx,
		`SELECT `+viewColumns+` FROM post_views WHERE user_id = ? AND post_id = ?`, userID, postID))
	if err == sql.ErrNoRows {
		v = &domain.PostView{UserID: userID, PostID: postID}
	} else if err != nil {
		return nil, fmt.Errorf("read view: %w", err)
	}

	v.Merge(progress, complete, duration, at)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO post_views (user_id, post_id, progress, is_complete, view_duration, viewed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, post_id) DO UPDATE SET
			progress = excluded.progress,
			is_complete = excluded.is_complete,
			view_duration = excluded.view_duration,
			viewed_at = excluded.viewed_at`,
		v.UserID, v.PostID, v.Progress, boolInt(v.IsComplete), v.ViewDuration, formatTime(v.ViewedAt))
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("upsert view: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return v, nil
}

// GetView returns the user's view of a post.
// Returns store.ErrNotFound when the user never opened it.
func (s *Store) GetView(ctx context.Context, userID, postID string) (*domain.PostView, error) {
	v, err := scanView(s.db.QueryRowContext(ctx,
		`SELECT `+viewColumns+` FROM post_views WHERE user_id = ? AND post_id = ?`, userID, postID))
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	return v, err
}

// ListUserViews returns every view by userID in insertion order.
func (s *Store) ListUserViews(ctx context.Context, userID string) ([]*domain.PostView, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+viewColumns+` FROM post_views WHERE user_id = ? ORDER BY rowid ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	views := []*domain.PostView{}
	for rows.Next() {
		v, err := scanView(rows)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, rows.Err()
}
