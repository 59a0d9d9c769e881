package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ProtheticGlitch/Enterra/internal/affinity"
	"github.com/ProtheticGlitch/Enterra/internal/domain"
	domainerrors "github.com/ProtheticGlitch/Enterra/internal/errors"
	"github.com/ProtheticGlitch/Enterra/internal/id"
	"github.com/ProtheticGlitch/Enterra/internal/metrics"
	"github.com/ProtheticGlitch/Enterra/internal/moderation"
	"github.com/ProtheticGlitch/Enterra/internal/ratelimit"
	"github.com/ProtheticGlitch/Enterra/internal/store"
)

// ViewInput is a viewing progress report from a client.
type ViewInput struct {
	Progress     float64 `json:"progress" validate:"gte=0,lte=1"`
	IsComplete   bool    `json:"is_complete"`
	ViewDuration float64 `json:"view_duration" validate:"gte=0"`
}

// CommentInput is a new comment.
type CommentInput struct {
	Body string `json:"body" validate:"notblank,max=1000"`
}

type reactionInput struct {
	Code string `json:"code" validate:"reaction"`
}

// ReactionResult is the state of a post's reactions after a toggle.
type ReactionResult struct {
	Change domain.ReactionChange       `json:"change"`
	Counts map[domain.ReactionCode]int `json:"counts"`
}

// InteractionService records what users do with posts: reactions, views
// and comments. Each one invalidates the user's cached feed.
type InteractionService struct {
	store   store.Store
	ledger  *affinity.Ledger
	gate    *moderation.Gate
	recs    *RecommendationService
	limiter *ratelimit.KeyedRateLimiter
	logger  *slog.Logger
}

// NewInteractionService creates a new interaction service.
func NewInteractionService(
	store store.Store,
	ledger *affinity.Ledger,
	gate *moderation.Gate,
	recs *RecommendationService,
	limiter *ratelimit.KeyedRateLimiter,
	logger *slog.Logger,
) *InteractionService {
	return &InteractionService{
		store:   store,
		ledger:  ledger,
		gate:    gate,
		recs:    recs,
		limiter: limiter,
		logger:  logger,
	}
}

// React toggles the caller's reaction on a post and moves their tag
// scores in the same transaction.
func (s *InteractionService) React(ctx context.Context, caller domain.Identity, postID string, code string) (*ReactionResult, error) {
	if err := requireUser(caller); err != nil {
		return nil, err
	}
	if err := validate.Validate(reactionInput{Code: code}); err != nil {
		return nil, err
	}
	if _, err := visiblePost(ctx, s.store, caller, postID); err != nil {
		return nil, err
	}

	rc := domain.ReactionCode(code)
	change, err := s.store.ToggleReaction(ctx, caller.UserID, postID, rc, s.ledger)
	if err != nil {
		return nil, notFoundOr(err, "post not found")
	}
	s.recs.Invalidate(ctx, caller.UserID)

	op := "set"
	if change.Current == "" {
		op = "unset"
	}
	metrics.ReactionsTotal.WithLabelValues(code, op).Inc()

	counts, err := s.store.CountReactions(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("count reactions: %w", err)
	}

	s.logger.Debug("reaction toggled",
		"post_id", postID,
		"user_id", caller.UserID,
		"previous", change.Previous,
		"current", change.Current,
	)
	return &ReactionResult{Change: change, Counts: counts}, nil
}

// RecordView merges a progress report into the caller's view of a post.
func (s *InteractionService) RecordView(ctx context.Context, caller domain.Identity, postID string, in ViewInput) (*domain.PostView, error) {
	if err := requireUser(caller); err != nil {
		return nil, err
	}
	if err := validate.Validate(in); err != nil {
		return nil, err
	}
	if _, err := visiblePost(ctx, s.store, caller, postID); err != nil {
		return nil, err
	}

	view, err := s.store.RecordView(ctx, caller.UserID, postID, in.Progress, in.IsComplete, in.ViewDuration, time.Now().UTC())
	if err != nil {
		return nil, notFoundOr(err, "post not found")
	}
	s.recs.Invalidate(ctx, caller.UserID)
	metrics.ViewsTotal.Inc()
	return view, nil
}

// AddComment screens and stores a comment. Comments with banned words are
// not stored; the attempt is audited.
func (s *InteractionService) AddComment(ctx context.Context, caller domain.Identity, postID string, in CommentInput) (*domain.Comment, error) {
	if err := requireUser(caller); err != nil {
		return nil, err
	}
	if s.limiter != nil && !s.limiter.Allow(caller.UserID) {
		metrics.RateLimitedTotal.WithLabelValues("submission").Inc()
		return nil, domainerrors.RateLimited("too many submissions, try again later")
	}
	if err := validate.Validate(in); err != nil {
		return nil, err
	}
	post, err := visiblePost(ctx, s.store, caller, postID)
	if err != nil {
		return nil, err
	}

	blocked, err := s.gate.ReviewComment(ctx, in.Body)
	if err != nil {
		return nil, err
	}
	if blocked {
		log := moderation.NewLog(domain.LogCommentBlocked, domain.ReasonBadWords, caller.UserID, post.ID, "", in.Body)
		if err := s.store.CreateModerationLog(ctx, log); err != nil {
			return nil, fmt.Errorf("log blocked comment: %w", err)
		}
		countLogs(log)
		metrics.SubmissionsTotal.WithLabelValues("comment", string(domain.OutcomeRemoved)).Inc()
		return nil, rejection("comment rejected: banned words found", domain.OutcomeRemoved)
	}

	commentID, err := id.Generate(id.PrefixComment)
	if err != nil {
		return nil, err
	}
	c := &domain.Comment{
		ID:        commentID,
		PostID:    post.ID,
		AuthorID:  caller.UserID,
		Body:      in.Body,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateComment(ctx, c); err != nil {
		return nil, notFoundOr(err, "post not found")
	}
	s.recs.Invalidate(ctx, caller.UserID)
	metrics.SubmissionsTotal.WithLabelValues("comment", string(domain.OutcomePublished)).Inc()

	s.logger.Debug("comment added", "comment_id", c.ID, "post_id", post.ID, "author_id", caller.UserID)
	return c, nil
}
