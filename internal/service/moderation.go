package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ProtheticGlitch/Enterra/internal/domain"
	domainerrors "github.com/ProtheticGlitch/Enterra/internal/errors"
	"github.com/ProtheticGlitch/Enterra/internal/media"
	"github.com/ProtheticGlitch/Enterra/internal/metrics"
	"github.com/ProtheticGlitch/Enterra/internal/moderation"
	"github.com/ProtheticGlitch/Enterra/internal/store"
)

// Admin listing sizes.
const (
	adminSearchLimit = 100
	adminLogLimit    = 50
)

// systemActor is recorded as the author of word list changes that did not
// come from an admin request.
const systemActor = "system"

// TagModerationResult reports a tag moderation toggle.
type TagModerationResult struct {
	TagID     string `json:"tag_id"`
	Moderated bool   `json:"moderated"`
	Hidden    int    `json:"hidden"` // Posts hidden by this toggle
}

// ModerationService holds the admin operations: post and comment removal,
// publication toggles, the audit log, settings, the banned word list and
// tag moderation.
type ModerationService struct {
	store  store.Store
	gate   *moderation.Gate
	fx     sideEffects
	logger *slog.Logger
}

// NewModerationService creates a new moderation service. index and uploads may be nil.
func NewModerationService(store store.Store, gate *moderation.Gate, uploads *media.Storage, index PostIndex, logger *slog.Logger) *ModerationService {
	return &ModerationService{
		store:  store,
		gate:   gate,
		fx:     sideEffects{index: index, media: uploads, logger: logger},
		logger: logger,
	}
}

// TogglePost flips a post's publication. This is the only way a hidden
// post is published again.
func (s *ModerationService) TogglePost(ctx context.Context, caller domain.Identity, postID string) (*domain.Post, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return nil, notFoundOr(err, "post not found")
	}
	if err := s.store.SetPostPublished(ctx, post.ID, !post.IsPublished); err != nil {
		return nil, notFoundOr(err, "post not found")
	}

	post, err = s.store.GetPost(ctx, post.ID)
	if err != nil {
		return nil, notFoundOr(err, "post not found")
	}
	s.fx.indexPost(post)

	s.logger.Info("post publication toggled", "post_id", post.ID, "published", post.IsPublished, "admin_id", caller.UserID)
	return post, nil
}

// DeletePost removes any post.
func (s *ModerationService) DeletePost(ctx context.Context, caller domain.Identity, postID string) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return notFoundOr(err, "post not found")
	}
	if err := s.store.DeletePost(ctx, post.ID); err != nil {
		return notFoundOr(err, "post not found")
	}
	s.fx.postRemoved(post)

	s.logger.Info("post deleted by admin", "post_id", post.ID, "admin_id", caller.UserID)
	return nil
}

// DeleteComment removes any comment.
func (s *ModerationService) DeleteComment(ctx context.Context, caller domain.Identity, commentID string) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	if err := s.store.DeleteComment(ctx, commentID); err != nil {
		return notFoundOr(err, "comment not found")
	}
	s.logger.Info("comment deleted by admin", "comment_id", commentID, "admin_id", caller.UserID)
	return nil
}

// SearchPosts finds posts of any visibility whose title, body or summary
// contains query. An empty query lists the newest posts.
func (s *ModerationService) SearchPosts(ctx context.Context, caller domain.Identity, query string) ([]*domain.Post, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	return s.store.SearchAllPosts(ctx, strings.TrimSpace(query), adminSearchLimit)
}

// Logs returns the most recent audit entries, newest first.
func (s *ModerationService) Logs(ctx context.Context, caller domain.Identity, limit int) ([]*domain.ModerationLog, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > adminLogLimit {
		limit = adminLogLimit
	}
	return s.store.ListModerationLogs(ctx, limit)
}

// Settings returns the moderation settings.
func (s *ModerationService) Settings(ctx context.Context, caller domain.Identity) (domain.ModerationSettings, error) {
	if err := requireAdmin(caller); err != nil {
		return domain.ModerationSettings{}, err
	}
	return s.store.GetModerationSettings(ctx)
}

// SetAutoModeration turns the banned-word checks on or off.
func (s *ModerationService) SetAutoModeration(ctx context.Context, caller domain.Identity, enabled bool) (domain.ModerationSettings, error) {
	if err := requireAdmin(caller); err != nil {
		return domain.ModerationSettings{}, err
	}
	settings := domain.ModerationSettings{AutoEnabled: enabled, UpdatedAt: time.Now().UTC()}
	if err := s.store.SaveModerationSettings(ctx, settings); err != nil {
		return domain.ModerationSettings{}, fmt.Errorf("save moderation settings: %w", err)
	}
	if !enabled {
		s.logger.Warn("auto moderation disabled", "admin_id", caller.UserID)
	} else {
		s.logger.Info("auto moderation enabled", "admin_id", caller.UserID)
	}
	return settings, nil
}

// BannedWords returns the active word list.
func (s *ModerationService) BannedWords(caller domain.Identity) (domain.BannedWordList, error) {
	if err := requireAdmin(caller); err != nil {
		return domain.BannedWordList{}, err
	}
	return s.gate.Words().Snapshot(), nil
}

// ReplaceBannedWords installs a new word list from one-word-per-line text.
// The list is persisted with its audit entry first; only then do readers
// see it.
func (s *ModerationService) ReplaceBannedWords(ctx context.Context, caller domain.Identity, raw string) (*domain.BannedWordList, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	return s.replaceWords(ctx, caller.UserID, moderation.ParseWords(raw))
}

func (s *ModerationService) replaceWords(ctx context.Context, actor string, words []string) (*domain.BannedWordList, error) {
	if len(words) == 0 {
		return nil, domainerrors.ValidationWithDetails("banned word list cannot be empty",
			map[string]string{"words": "is required"})
	}

	log := moderation.NewLog(domain.LogWordListUpdated, domain.ReasonAdminUpdate, actor, "", "",
		fmt.Sprintf("%d words", len(words)))
	if actor == systemActor {
		log.UserID = ""
	}
	list, err := s.store.ReplaceBannedWords(ctx, words, actor, log)
	if err != nil {
		return nil, fmt.Errorf("replace banned words: %w", err)
	}
	countLogs(log)

	s.gate.Words().Replace(list)
	metrics.BannedWords.Set(float64(len(list.Words)))

	s.logger.Info("banned word list replaced", "version", list.Version, "words", len(list.Words), "by", actor)
	return list, nil
}

// LoadBannedWords activates the persisted word list at startup. When none
// has been saved yet, seed is persisted first (if non-empty).
func (s *ModerationService) LoadBannedWords(ctx context.Context, seed []string) error {
	list, err := s.store.GetBannedWords(ctx)
	if isNotFound(err) {
		words := moderation.Seed(seed).Words
		if len(words) == 0 {
			s.logger.Warn("no banned words configured")
			return nil
		}
		_, err = s.replaceWords(ctx, systemActor, words)
		return err
	}
	if err != nil {
		return fmt.Errorf("load banned words: %w", err)
	}

	s.gate.Words().Replace(list)
	metrics.BannedWords.Set(float64(len(list.Words)))
	s.logger.Info("banned word list loaded", "version", list.Version, "words", len(list.Words))
	return nil
}

// ImportBannedWordsFile replaces the list with the words in path. The file
// watcher calls it when an operator edits the seed file.
func (s *ModerationService) ImportBannedWordsFile(ctx context.Context, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read banned words file: %w", err)
	}
	_, err = s.replaceWords(ctx, systemActor, moderation.ParseWords(string(raw)))
	return err
}

// ModeratedTags lists the tags under moderation.
func (s *ModerationService) ModeratedTags(ctx context.Context, caller domain.Identity) ([]domain.ModeratedTag, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	return s.store.ListModeratedTags(ctx)
}

// ToggleTagModeration puts a tag under moderation, hiding every published
// post carrying it, or takes it off again without re-publishing anything.
func (s *ModerationService) ToggleTagModeration(ctx context.Context, caller domain.Identity, tagID string) (*TagModerationResult, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	moderated, hidden, err := s.store.ToggleTagModeration(ctx, tagID)
	if err != nil {
		return nil, notFoundOr(err, "tag not found")
	}

	s.logger.Info("tag moderation toggled",
		"tag_id", tagID,
		"moderated", moderated,
		"hidden", hidden,
		"admin_id", caller.UserID,
	)
	return &TagModerationResult{TagID: tagID, Moderated: moderated, Hidden: hidden}, nil
}

// ReadWordsFile loads a one-word-per-line seed file. A missing path yields
// no words.
func ReadWordsFile(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read banned words file: %w", err)
	}
	return moderation.ParseWords(string(raw)), nil
}
