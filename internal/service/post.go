package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/ProtheticGlitch/Enterra/internal/category"
	"github.com/ProtheticGlitch/Enterra/internal/domain"
	"github.com/ProtheticGlitch/Enterra/internal/duplicate"
	domainerrors "github.com/ProtheticGlitch/Enterra/internal/errors"
	"github.com/ProtheticGlitch/Enterra/internal/id"
	"github.com/ProtheticGlitch/Enterra/internal/media"
	"github.com/ProtheticGlitch/Enterra/internal/metrics"
	"github.com/ProtheticGlitch/Enterra/internal/moderation"
	"github.com/ProtheticGlitch/Enterra/internal/ratelimit"
	"github.com/ProtheticGlitch/Enterra/internal/store"
	"github.com/ProtheticGlitch/Enterra/internal/util"
)

// PostInput is the author-supplied content of a new or edited post.
type PostInput struct {
	Title      string       `json:"title" validate:"notblank,min=3,max=140"`
	Summary    string       `json:"summary" validate:"max=240"`
	Body       string       `json:"body" validate:"notblank,min=20"`
	CoverEmoji string       `json:"cover_emoji" validate:"max=8"`
	Tags       []string     `json:"tags" validate:"max=20,dive,max=50"`
	Tracks     []TrackInput `json:"tracks" validate:"max=50,dive"`
	Publish    *bool        `json:"publish"` // Defaults to true
	Media      *Upload      `json:"-" validate:"-"`
}

// TrackInput is one soundtrack entry; list order becomes its position.
type TrackInput struct {
	Title  string `json:"title" validate:"notblank,max=200"`
	Artist string `json:"artist" validate:"notblank,max=200"`
	URL    string `json:"url" validate:"omitempty,url,max=500"`
}

// Upload is a media file sent with a post.
type Upload struct {
	Filename string
	Content  io.Reader
}

func (in *PostInput) publish() bool {
	return in.Publish == nil || *in.Publish
}

func (in *PostInput) filename() string {
	if in.Media == nil {
		return ""
	}
	return in.Media.Filename
}

// text is the blob screened for banned words.
func (in *PostInput) text() string {
	return in.Title + " " + in.Summary + " " + in.Body
}

// DuplicateWarning points the author at an existing post that looks the same.
type DuplicateWarning struct {
	PostID   string  `json:"post_id"`
	Title    string  `json:"title"`
	Score    float64 `json:"score"`
	Severity string  `json:"severity"` // "danger" or "warning"
}

// SubmitResult reports what happened to a submitted post.
type SubmitResult struct {
	Post         *domain.Post      `json:"post"`
	Outcome      domain.Outcome    `json:"outcome"`
	Duplicate    *DuplicateWarning `json:"duplicate,omitempty"`
	FileRejected bool              `json:"file_rejected,omitempty"`
}

// DuplicateThresholds configures the duplicate detector call sites.
type DuplicateThresholds struct {
	Similar float64 // Similar-posts listing
	Danger  float64 // Warnings at or above this are "danger"
	Warn    float64 // Submission-time warning
}

// PostService handles post submission, editing and deletion.
type PostService struct {
	store      store.Store
	gate       *moderation.Gate
	detector   *duplicate.Detector
	categories *category.Mapper
	limiter    *ratelimit.KeyedRateLimiter
	thresholds DuplicateThresholds
	fx         sideEffects
	logger     *slog.Logger
}

// NewPostService creates a new post service. index and uploads may be nil.
func NewPostService(
	store store.Store,
	gate *moderation.Gate,
	detector *duplicate.Detector,
	categories *category.Mapper,
	uploads *media.Storage,
	index PostIndex,
	limiter *ratelimit.KeyedRateLimiter,
	thresholds DuplicateThresholds,
	logger *slog.Logger,
) *PostService {
	return &PostService{
		store:      store,
		gate:       gate,
		detector:   detector,
		categories: categories,
		limiter:    limiter,
		thresholds: thresholds,
		fx:         sideEffects{index: index, media: uploads, logger: logger},
		logger:     logger,
	}
}

// Create screens and stores a new post.
//
// A post with banned words is not stored; only the audit entry is. A post
// carrying a moderated tag is stored unpublished. A rejected media file is
// dropped while the post is still saved.
func (s *PostService) Create(ctx context.Context, caller domain.Identity, in PostInput) (*SubmitResult, error) {
	if err := s.precheck(caller, &in); err != nil {
		return nil, err
	}

	tags := ParseTags(in.Tags)
	text := in.text()
	review, err := s.gate.ReviewPost(ctx, moderation.Submission{Text: text, Tags: tags, Filename: in.filename()})
	if err != nil {
		return nil, err
	}
	if review.File == moderation.FileInvalid {
		return nil, invalidMedia(in.filename())
	}

	if review.BadWords {
		log := moderation.NewLog(domain.LogPostDeleted, domain.ReasonBadWords, caller.UserID, "", "", text)
		if err := s.store.CreateModerationLog(ctx, log); err != nil {
			return nil, fmt.Errorf("log rejected post: %w", err)
		}
		countLogs(log)
		metrics.SubmissionsTotal.WithLabelValues("post", string(domain.OutcomeRemoved)).Inc()
		s.logger.Info("post rejected", "author_id", caller.UserID, "reason", domain.ReasonBadWords)
		return nil, rejection("post removed: banned words found", domain.OutcomeRemoved)
	}

	result := &SubmitResult{}
	if result.Duplicate, err = s.duplicateWarning(ctx, "", in.Title, in.Body); err != nil {
		return nil, err
	}

	postID, err := id.Generate(id.PrefixPost)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	post := &domain.Post{
		ID:        postID,
		AuthorID:  caller.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyInput(post, &in)
	if err := s.attachRelations(ctx, post, tags, in.Tracks); err != nil {
		return nil, err
	}
	post.IsPublished = !review.Hidden && in.publish()

	var logs []*domain.ModerationLog
	switch review.File {
	case moderation.FileBlocked:
		logs = append(logs, moderation.NewLog(domain.LogFileBlocked, domain.ReasonBadFile, caller.UserID, "", "", in.filename()))
		result.FileRejected = true
	case moderation.FileAccepted:
		if err := s.saveMedia(post, in.Media); err != nil {
			return nil, err
		}
	}
	if review.Hidden {
		logs = append(logs, moderation.NewLog(domain.LogPostAutoHide, domain.ReasonModeratedTags, caller.UserID, post.ID, "", text))
	}

	if err := s.store.CreatePost(ctx, post, logs...); err != nil {
		s.fx.removeMedia(post.MediaPath)
		return nil, fmt.Errorf("create post: %w", err)
	}
	countLogs(logs...)
	s.fx.indexPost(post)

	result.Post = post
	result.Outcome = outcomeOf(review.Hidden, post.IsPublished)
	metrics.SubmissionsTotal.WithLabelValues("post", string(result.Outcome)).Inc()

	s.logger.Info("post created",
		"post_id", post.ID,
		"author_id", caller.UserID,
		"outcome", result.Outcome,
		"tags", len(post.Tags),
	)
	return result, nil
}

// Update screens an edit of an existing post. Only the author or an admin
// may edit. An edit with banned words deletes the post and everything
// attached to it.
func (s *PostService) Update(ctx context.Context, caller domain.Identity, postID string, in PostInput) (*SubmitResult, error) {
	if err := requireUser(caller); err != nil {
		return nil, err
	}
	post, err := s.editable(ctx, caller, postID)
	if err != nil {
		return nil, err
	}
	if err := s.precheck(caller, &in); err != nil {
		return nil, err
	}

	tags := ParseTags(in.Tags)
	text := in.text()
	review, err := s.gate.ReviewPost(ctx, moderation.Submission{Text: text, Tags: tags, Filename: in.filename()})
	if err != nil {
		return nil, err
	}
	if review.File == moderation.FileInvalid {
		return nil, invalidMedia(in.filename())
	}

	if review.BadWords {
		log := moderation.NewLog(domain.LogPostDeleted, domain.ReasonBadWordsEdit, caller.UserID, post.ID, "", text)
		if err := s.store.DeletePost(ctx, post.ID, log); err != nil {
			return nil, notFoundOr(err, "post not found")
		}
		countLogs(log)
		s.fx.postRemoved(post)
		metrics.SubmissionsTotal.WithLabelValues("post", string(domain.OutcomeRemoved)).Inc()
		s.logger.Info("post removed on edit", "post_id", post.ID, "editor_id", caller.UserID, "reason", domain.ReasonBadWordsEdit)
		return nil, rejection("post removed: banned words found", domain.OutcomeRemoved)
	}

	result := &SubmitResult{}
	if result.Duplicate, err = s.duplicateWarning(ctx, post.ID, in.Title, in.Body); err != nil {
		return nil, err
	}

	applyInput(post, &in)
	if err := s.attachRelations(ctx, post, tags, in.Tracks); err != nil {
		return nil, err
	}
	post.IsPublished = !review.Hidden && in.publish()

	var (
		logs     []*domain.ModerationLog
		oldMedia string
		newMedia bool
	)
	switch review.File {
	case moderation.FileBlocked:
		logs = append(logs, moderation.NewLog(domain.LogFileBlocked, domain.ReasonBadFile, caller.UserID, post.ID, "", in.filename()))
		result.FileRejected = true
	case moderation.FileAccepted:
		oldMedia = post.MediaPath
		if err := s.saveMedia(post, in.Media); err != nil {
			return nil, err
		}
		newMedia = true
	}
	if review.Hidden {
		logs = append(logs, moderation.NewLog(domain.LogPostAutoHide, domain.ReasonModeratedTagsEdit, caller.UserID, post.ID, "", text))
	}

	post.Touch()
	if err := s.store.UpdatePost(ctx, post, logs...); err != nil {
		if newMedia {
			s.fx.removeMedia(post.MediaPath)
		}
		return nil, notFoundOr(err, "post not found")
	}
	countLogs(logs...)
	if newMedia {
		s.fx.removeMedia(oldMedia)
	}
	s.fx.indexPost(post)

	result.Post = post
	result.Outcome = outcomeOf(review.Hidden, post.IsPublished)
	metrics.SubmissionsTotal.WithLabelValues("post", string(result.Outcome)).Inc()

	s.logger.Info("post updated",
		"post_id", post.ID,
		"editor_id", caller.UserID,
		"outcome", result.Outcome,
	)
	return result, nil
}

// Delete removes a post on behalf of its author or an admin.
func (s *PostService) Delete(ctx context.Context, caller domain.Identity, postID string) error {
	if err := requireUser(caller); err != nil {
		return err
	}
	post, err := s.editable(ctx, caller, postID)
	if err != nil {
		return err
	}
	if err := s.store.DeletePost(ctx, post.ID); err != nil {
		return notFoundOr(err, "post not found")
	}
	s.fx.postRemoved(post)

	s.logger.Info("post deleted", "post_id", post.ID, "by", caller.UserID)
	return nil
}

// precheck applies the submission rate limit and input validation.
func (s *PostService) precheck(caller domain.Identity, in *PostInput) error {
	if err := requireUser(caller); err != nil {
		return err
	}
	if s.limiter != nil && !s.limiter.Allow(caller.UserID) {
		metrics.RateLimitedTotal.WithLabelValues("submission").Inc()
		return domainerrors.RateLimited("too many submissions, try again later")
	}
	return validate.Validate(in)
}

// editable loads a post the caller may change.
func (s *PostService) editable(ctx context.Context, caller domain.Identity, postID string) (*domain.Post, error) {
	post, err := visiblePost(ctx, s.store, caller, postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != caller.UserID && !caller.IsAdmin {
		return nil, domainerrors.Forbidden("cannot modify another user's post")
	}
	return post, nil
}

func (s *PostService) duplicateWarning(ctx context.Context, excludeID, title, body string) (*DuplicateWarning, error) {
	match, err := s.detector.CheckDuplicate(ctx, excludeID, title, body, s.thresholds.Warn)
	if err != nil {
		return nil, fmt.Errorf("check duplicate: %w", err)
	}
	if match == nil {
		return nil, nil
	}
	w := &DuplicateWarning{
		PostID:   match.Post.ID,
		Title:    match.Post.Title,
		Score:    match.Score,
		Severity: duplicate.Severity(match.Score, s.thresholds.Danger),
	}
	metrics.DuplicateWarningsTotal.WithLabelValues(w.Severity).Inc()
	return w, nil
}

// attachRelations resolves tags (creating missing ones), derives
// categories from them and numbers the tracks.
func (s *PostService) attachRelations(ctx context.Context, post *domain.Post, parsed []domain.Tag, tracks []TrackInput) error {
	post.Tags = make([]domain.Tag, 0, len(parsed))
	for _, t := range parsed {
		tag, created, err := s.store.FindOrCreateTagBySlug(ctx, t.Slug, t.Name)
		if err != nil {
			return fmt.Errorf("resolve tag %q: %w", t.Slug, err)
		}
		if created {
			s.logger.Debug("tag created", "tag_id", tag.ID, "slug", tag.Slug)
		}
		post.Tags = append(post.Tags, *tag)
	}

	post.Categories = []domain.Category{}
	if s.categories != nil {
		for _, e := range s.categories.Resolve(post.Tags) {
			c, err := s.store.FindOrCreateCategory(ctx, e.Slug, e.Title)
			if err != nil {
				return fmt.Errorf("resolve category %q: %w", e.Slug, err)
			}
			post.Categories = append(post.Categories, *c)
		}
	}

	post.Tracks = make([]domain.Track, len(tracks))
	for i, t := range tracks {
		post.Tracks[i] = domain.Track{
			Title:    strings.TrimSpace(t.Title),
			Artist:   strings.TrimSpace(t.Artist),
			URL:      strings.TrimSpace(t.URL),
			Position: i,
		}
	}
	return nil
}

func (s *PostService) saveMedia(post *domain.Post, up *Upload) error {
	if s.fx.media == nil {
		return domainerrors.Validation("media uploads are disabled")
	}
	path, err := s.fx.media.Save(post.AuthorID, up.Filename, up.Content)
	if errors.Is(err, media.ErrTooLarge) {
		return domainerrors.ValidationWithDetails("media file too large", map[string]string{"media": err.Error()})
	}
	if err != nil {
		return fmt.Errorf("save media: %w", err)
	}
	mediaType, _ := moderation.MediaTypeFor(up.Filename)
	post.MediaPath = path
	post.MediaType = mediaType
	return nil
}

func applyInput(post *domain.Post, in *PostInput) {
	post.Title = strings.TrimSpace(in.Title)
	post.Summary = strings.TrimSpace(in.Summary)
	post.Body = in.Body
	post.CoverEmoji = strings.TrimSpace(in.CoverEmoji)
}

func invalidMedia(filename string) error {
	return domainerrors.ValidationWithDetails("unsupported media file",
		map[string]string{"media": fmt.Sprintf("%q is not an allowed image or video", filename)})
}

func outcomeOf(hidden, published bool) domain.Outcome {
	switch {
	case hidden:
		return domain.OutcomePendingReview
	case !published:
		return domain.OutcomeDraft
	default:
		return domain.OutcomePublished
	}
}

// ParseTags turns raw tag input into distinct tags keyed by slug. Entries
// may themselves be comma separated. The first spelling of a slug wins and
// entries that slugify to nothing are dropped.
func ParseTags(raw []string) []domain.Tag {
	seen := make(map[string]struct{})
	tags := []domain.Tag{}
	for _, entry := range raw {
		for name := range strings.SplitSeq(entry, ",") {
			name = strings.TrimSpace(name)
			slug := util.NormalizeTagSlug(name)
			if slug == "" {
				continue
			}
			if _, dup := seen[slug]; dup {
				continue
			}
			seen[slug] = struct{}{}
			tags = append(tags, domain.Tag{Name: name, Slug: slug})
		}
	}
	return tags
}
