package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ProtheticGlitch/Enterra/internal/domain"
	"github.com/ProtheticGlitch/Enterra/internal/store"
)

// GetReaction returns the user's reaction on a post.
// Returns store.ErrNotFound when the user has not reacted.
func (s *Store) GetReaction(ctx context.Context, userID, postID string) (*domain.Reaction, error) {
	var (
		r         = domain.Reaction{UserID: userID, PostID: postID}
		code      string
		createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT code, created_at FROM reactions WHERE user_id = ? AND post_id = ?`,
		userID, postID).Scan(&code, &createdAt)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	r.Code = domain.ReactionCode(code)
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &r, nil
}

// ToggleReaction applies code for the user on the post: the same code
// again removes the reaction, a different code replaces it. Tag preferences
// are adjusted through rule in the same transaction.
func (s *Store) ToggleReaction(ctx context.Context, userID, postID string, code domain.ReactionCode, rule store.PreferenceRule) (domain.ReactionChange, error) {
	var change domain.ReactionChange

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return change, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM posts WHERE id = ?`, postID).Scan(&exists)
	if err == sql.ErrNoRows {
		return change, store.ErrNotFound
	}
	if err != nil {
		return change, err
	}

	var current sql.NullString
	err = tx.QueryRowContext(ctx,
		`SELECT code FROM reactions WHERE user_id = ? AND post_id = ?`,
		userID, postID).Scan(&current)
	if err != nil && err != sql.ErrNoRows {
		return change, fmt.Errorf("read reaction: %w", err)
	}
	change.Previous = domain.ReactionCode(current.String)

	now := formatTime(time.Now())
	if change.Previous == code {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM reactions WHERE user_id = ? AND post_id = ?`, userID, postID); err != nil {
			return change, fmt.Errorf("delete reaction: %w", err)
		}
	} else {
		// DO UPDATE keeps the rowid, so the user's history order is stable.
		_, err := tx.ExecContext(ctx, `
			INSERT INTO reactions (user_id, post_id, code, created_at) VALUES (?, ?, ?, ?)
			ON CONFLICT(user_id, post_id) DO UPDATE SET code = excluded.code`,
			userID, postID, string(code), now)
		if err != nil {
			return change, fmt.Errorf("upsert reaction: %w", err)
		}
		change.Current = code
	}

	if rule != nil {
		if err := adjustPreferences(ctx, tx, userID, postID, change, rule, now); err != nil {
			return change, err
		}
	}

	if err := tx.Commit(); err != nil {
		return change, err
	}
	return change, nil
}

func adjustPreferences(ctx context.Context, tx *sql.Tx, userID, postID string, change domain.ReactionChange, rule store.PreferenceRule, now string) error {
	rows, err := tx.QueryContext(ctx,
		`SELECT tag_id FROM post_tags WHERE post_id = ? ORDER BY tag_id`, postID)
	if err != nil {
		return fmt.Errorf("read post tags: %w", err)
	}
	var tagIDs []string
	for rows.Next() {
		var tagID string
		if err := rows.Scan(&tagID); err != nil {
			rows.Close()
			return err
		}
		tagIDs = append(tagIDs, tagID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, tagID := range tagIDs {
		var score float64
		exists := true
		err := tx.QueryRowContext(ctx,
			`SELECT score FROM tag_preferences WHERE user_id = ? AND tag_id = ?`,
			userID, tagID).Scan(&score)
		if err == sql.ErrNoRows {
			exists = false
		} else if err != nil {
			return fmt.Errorf("read tag preference: %w", err)
		}

		newScore, keep, ok := rule.Adjust(change, score, exists)
		if !ok {
			continue
		}

		switch {
		case keep:
			_, err = tx.ExecContext(ctx, `
				INSERT INTO tag_preferences (user_id, tag_id, score, updated_at) VALUES (?, ?, ?, ?)
				ON CONFLICT(user_id, tag_id) DO UPDATE SET score = excluded.score, updated_at = excluded.updated_at`,
				userID, tagID, newScore, now)
		case exists:
			_, err = tx.ExecContext(ctx,
				`DELETE FROM tag_preferences WHERE user_id = ? AND tag_id = ?`, userID, tagID)
		}
		if err != nil {
			return fmt.Errorf("write tag preference: %w", err)
		}
	}
	return nil
}

// ListUserReactions returns every reaction by userID in insertion order.
func (s *Store) ListUserReactions(ctx context.Context, userID string) ([]*domain.Reaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT post_id, code, created_at FROM reactions WHERE user_id = ? ORDER BY rowid ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reactions := []*domain.Reaction{}
	for rows.Next() {
		r := &domain.Reaction{UserID: userID}
		var code, createdAt string
		if err := rows.Scan(&r.PostID, &code, &createdAt); err != nil {
			return nil, err
		}
		r.Code = domain.ReactionCode(code)
		if r.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		reactions = append(reactions, r)
	}
	return reactions, rows.Err()
}

// CountReactions returns the number of reactions per code on a post.
// Every known code is present, zero when unused.
func (s *Store) CountReactions(ctx context.Context, postID string) (map[domain.ReactionCode]int, error) {
	counts := map[domain.ReactionCode]int{
		domain.ReactionLike:    0,
		domain.ReactionDislike: 0,
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT code, COUNT(*) FROM reactions WHERE post_id = ? GROUP BY code`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var code string
		var n int
		if err := rows.Scan(&code, &n); err != nil {
			return nil, err
		}
		if _, known := counts[domain.ReactionCode(code)]; known {
			counts[domain.ReactionCode(code)] = n
		}
	}
	return counts, rows.Err()
}

// ListTopPreferences returns the user's highest-scoring tags.
func (s *Store) ListTopPreferences(ctx context.Context, userID string, limit int) ([]domain.TagScore, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.name, t.slug, tp.score FROM tag_preferences tp
		JOIN tags t ON t.id = tp.tag_id
		WHERE tp.user_id = ?
		ORDER BY tp.score DESC, tp.rowid ASC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scores := []domain.TagScore{}
	for rows.Next() {
		var ts domain.TagScore
		if err := rows.Scan(&ts.Name, &ts.Slug, &ts.Score); err != nil {
			return nil, err
		}
		scores = append(scores, ts)
	}
	return scores, rows.Err()
}

// GetPreference returns one tag preference.
// Returns store.ErrNotFound when the user has no score for the tag.
func (s *Store) GetPreference(ctx context.Context, userID, tagID string) (*domain.TagPreference, error) {
	p := domain.TagPreference{UserID: userID, TagID: tagID}
	var updatedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT score, updated_at FROM tag_preferences WHERE user_id = ? AND tag_id = ?`,
		userID, tagID).Scan(&p.Score, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}
