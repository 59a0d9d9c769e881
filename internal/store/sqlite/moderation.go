package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ProtheticGlitch/Enterra/internal/domain"
	"github.com/ProtheticGlitch/Enterra/internal/id"
	"github.com/ProtheticGlitch/Enterra/internal/store"
)

// insertLogs appends moderation log entries inside tx, filling in ID and
// CreatedAt when unset.
func insertLogs(ctx context.Context, tx *sql.Tx, logs []*domain.ModerationLog) error {
	for _, l := range logs {
		if l == nil {
			continue
		}
		if err := insertLog(ctx, tx, l); err != nil {
			return err
		}
	}
	return nil
}

func insertLog(ctx context.Context, q querier, l *domain.ModerationLog) error {
	if l.ID == "" {
		logID, err := id.Generate(id.PrefixLog)
		if err != nil {
			return fmt.Errorf("generate log id: %w", err)
		}
		l.ID = logID
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO moderation_logs (id, kind, reason, snippet, user_id, post_id, comment_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID,
		string(l.Kind),
		nullString(l.Reason),
		nullString(l.Snippet),
		nullString(l.UserID),
		nullString(l.PostID),
		nullString(l.CommentID),
		formatTime(l.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert moderation log: %w", err)
	}
	return nil
}

// CreateModerationLog appends a standalone log entry.
func (s *Store) CreateModerationLog(ctx context.Context, l *domain.ModerationLog) error {
	return insertLog(ctx, s.db, l)
}

// ListModerationLogs returns the most recent entries first.
func (s *Store) ListModerationLogs(ctx context.Context, limit int) ([]*domain.ModerationLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, reason, snippet, user_id, post_id, comment_id, created_at
		FROM moderation_logs
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []*domain.ModerationLog{}
	for rows.Next() {
		var (
			l                                          domain.ModerationLog
			kind, createdAt                            string
			reason, snippet, userID, postID, commentID sql.NullString
		)
		if err := rows.Scan(&l.ID, &kind, &reason, &snippet, &userID, &postID, &commentID, &createdAt); err != nil {
			return nil, err
		}
		l.Kind = domain.LogKind(kind)
		l.Reason = reason.String
		l.Snippet = snippet.String
		l.UserID = userID.String
		l.PostID = postID.String
		l.CommentID = commentID.String
		if l.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}

// GetModerationSettings returns the settings row, or the defaults when it
// has never been written.
func (s *Store) GetModerationSettings(ctx context.Context) (domain.ModerationSettings, error) {
	var (
		enabled   int
		updatedAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT auto_enabled, updated_at FROM moderation_settings WHERE id = 1`).Scan(&enabled, &updatedAt)
	if err == sql.ErrNoRows {
		return domain.DefaultModerationSettings(), nil
	}
	if err != nil {
		return domain.ModerationSettings{}, err
	}

	settings := domain.ModerationSettings{AutoEnabled: enabled != 0}
	if settings.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return domain.ModerationSettings{}, err
	}
	return settings, nil
}

// SaveModerationSettings writes the settings row.
func (s *Store) SaveModerationSettings(ctx context.Context, settings domain.ModerationSettings) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO moderation_settings (id, auto_enabled, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET auto_enabled = excluded.auto_enabled, updated_at = excluded.updated_at`,
		boolInt(settings.AutoEnabled), formatTime(settings.UpdatedAt))
	return err
}

// GetBannedWords returns the current word list.
// Returns store.ErrNotFound when no list has been saved.
func (s *Store) GetBannedWords(ctx context.Context) (*domain.BannedWordList, error) {
	var (
		list      domain.BannedWordList
		words     string
		updatedAt string
		updatedBy sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT words, version, updated_at, updated_by FROM banned_wordlists WHERE id = 1`).
		Scan(&words, &list.Version, &updatedAt, &updatedBy)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(words), &list.Words); err != nil {
		return nil, fmt.Errorf("decode banned words: %w", err)
	}
	list.UpdatedBy = updatedBy.String
	if list.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &list, nil
}

// ReplaceBannedWords stores words as the new list, bumping the version, and
// writes log in the same transaction.
func (s *Store) ReplaceBannedWords(ctx context.Context, words []string, updatedBy string, log *domain.ModerationLog) (*domain.BannedWordList, error) {
	encoded, err := json.Marshal(words)
	if err != nil {
		return nil, fmt.Errorf("encode banned words: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var version int
	err = tx.QueryRowContext(ctx, `SELECT version FROM banned_wordlists WHERE id = 1`).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("read word list version: %w", err)
	}

	list := &domain.BannedWordList{
		Words:     words,
		Version:   version + 1,
		UpdatedAt: time.Now().UTC(),
		UpdatedBy: updatedBy,
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO banned_wordlists (id, words, version, updated_at, updated_by) VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			words = excluded.words,
			version = excluded.version,
			updated_at = excluded.updated_at,
			updated_by = excluded.updated_by`,
		string(encoded), list.Version, formatTime(list.UpdatedAt), nullString(updatedBy))
	if err != nil {
		return nil, fmt.Errorf("write word list: %w", err)
	}
	if log != nil {
		if err := insertLog(ctx, tx, log); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return list, nil
}

// ListModeratedTags returns the tags under moderation ordered by slug.
func (s *Store) ListModeratedTags(ctx context.Context) ([]domain.ModeratedTag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.name, t.slug, mt.created_at FROM moderated_tags mt
		JOIN tags t ON t.id = mt.tag_id
		ORDER BY t.slug`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []domain.ModeratedTag{}
	for rows.Next() {
		var mt domain.ModeratedTag
		var createdAt string
		if err := rows.Scan(&mt.TagID, &mt.Name, &mt.Slug, &createdAt); err != nil {
			return nil, err
		}
		if mt.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		tags = append(tags, mt)
	}
	return tags, rows.Err()
}

// ToggleTagModeration flips a tag's moderation flag. Turning it on hides
// every published post carrying the tag in the same transaction and
// reports how many were hidden. Turning it off publishes nothing.
func (s *Store) ToggleTagModeration(ctx context.Context, tagID string) (bool, int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM tags WHERE id = ?`, tagID).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, 0, store.ErrNotFound
	}
	if err != nil {
		return false, 0, err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM moderated_tags WHERE tag_id = ?`, tagID)
	if err != nil {
		return false, 0, fmt.Errorf("delete moderated tag: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return false, 0, tx.Commit()
	}

	now := formatTime(time.Now())
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO moderated_tags (tag_id, created_at) VALUES (?, ?)`, tagID, now); err != nil {
		return false, 0, fmt.Errorf("insert moderated tag: %w", err)
	}

	res, err = tx.ExecContext(ctx, `
		UPDATE posts SET is_published = 0, updated_at = ?
		WHERE is_published = 1
		AND id IN (SELECT post_id FROM post_tags WHERE tag_id = ?)`, now, tagID)
	if err != nil {
		return false, 0, fmt.Errorf("hide tagged posts: %w", err)
	}
	hidden, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return false, 0, err
	}
	return true, int(hidden), nil
}
