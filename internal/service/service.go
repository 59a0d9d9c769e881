// Package service implements the feed operations on top of the store and
// the moderation, duplicate, affinity and recommendation components.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ProtheticGlitch/Enterra/internal/domain"
	domainerrors "github.com/ProtheticGlitch/Enterra/internal/errors"
	"github.com/ProtheticGlitch/Enterra/internal/media"
	"github.com/ProtheticGlitch/Enterra/internal/metrics"
	"github.com/ProtheticGlitch/Enterra/internal/search"
	"github.com/ProtheticGlitch/Enterra/internal/store"
	"github.com/ProtheticGlitch/Enterra/internal/validation"
)

var validate = validation.New()

// PostIndex is the full-text index kept in step with post writes.
// *search.SearchIndex satisfies it.
type PostIndex interface {
	IndexPost(p *domain.Post) error
	DeletePost(id string) error
	Search(ctx context.Context, params search.SearchParams) (*search.SearchResult, error)
}

// notFoundOr maps store.ErrNotFound to a domain not-found error and passes
// anything else through.
func notFoundOr(err error, msg string) error {
	if errors.Is(err, store.ErrNotFound) {
		return domainerrors.NotFound(msg)
	}
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}

func requireUser(caller domain.Identity) error {
	if caller.UserID == "" {
		return domainerrors.Unauthorized("authentication required")
	}
	return nil
}

func requireAdmin(caller domain.Identity) error {
	if err := requireUser(caller); err != nil {
		return err
	}
	if !caller.IsAdmin {
		return domainerrors.Forbidden("admin access required")
	}
	return nil
}

// rejection is the error returned for content the gate refused.
func rejection(msg string, outcome domain.Outcome) error {
	return domainerrors.PolicyRejected(msg, map[string]any{"outcome": outcome})
}

// visiblePost loads a post and hides it from callers who may not read it.
func visiblePost(ctx context.Context, s store.Store, caller domain.Identity, postID string) (*domain.Post, error) {
	p, err := s.GetPost(ctx, postID)
	if err != nil {
		return nil, notFoundOr(err, "post not found")
	}
	if !p.VisibleTo(caller.UserID, caller.IsAdmin) {
		return nil, domainerrors.NotFound("post not found")
	}
	return p, nil
}

// sideEffects keeps the search index and upload directory in step with
// committed post changes. Failures are logged; the database stays the
// source of truth.
type sideEffects struct {
	index  PostIndex
	media  *media.Storage
	logger *slog.Logger
}

func (fx sideEffects) indexPost(p *domain.Post) {
	if fx.index == nil {
		return
	}
	if err := fx.index.IndexPost(p); err != nil {
		fx.logger.Warn("failed to index post", "post_id", p.ID, "error", err)
	}
}

func (fx sideEffects) unindexPost(postID string) {
	if fx.index == nil {
		return
	}
	if err := fx.index.DeletePost(postID); err != nil {
		fx.logger.Warn("failed to remove post from index", "post_id", postID, "error", err)
	}
}

func (fx sideEffects) removeMedia(mediaPath string) {
	if fx.media == nil || mediaPath == "" {
		return
	}
	if err := fx.media.Delete(mediaPath); err != nil {
		fx.logger.Warn("failed to remove media", "path", mediaPath, "error", err)
	}
}

// postRemoved cleans up after a committed post deletion.
func (fx sideEffects) postRemoved(p *domain.Post) {
	fx.removeMedia(p.MediaPath)
	fx.unindexPost(p.ID)
}

func countLogs(logs ...*domain.ModerationLog) {
	for _, l := range logs {
		if l != nil {
			metrics.ModerationActionsTotal.WithLabelValues(string(l.Kind)).Inc()
		}
	}
}
