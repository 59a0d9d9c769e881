package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ProtheticGlitch/Enterra/internal/domain"
	"github.com/ProtheticGlitch/Enterra/internal/media"
	"github.com/ProtheticGlitch/Enterra/internal/moderation"
	"github.com/ProtheticGlitch/Enterra/internal/store"
)

// ScanReport lists stored content that the active word list now rejects.
type ScanReport struct {
	Words           int               `json:"words"`
	PostsChecked    int               `json:"posts_checked"`
	CommentsChecked int               `json:"comments_checked"`
	Posts           []*domain.Post    `json:"posts"`
	Comments        []*domain.Comment `json:"comments"`
	Deleted         bool              `json:"deleted"`
}

// ScanService re-checks stored content against the banned word list.
// It is run by hand after the list changes, never on a schedule.
type ScanService struct {
	store  store.Store
	words  *moderation.WordList
	fx     sideEffects
	logger *slog.Logger
}

// NewScanService creates a new scan service. index and uploads may be nil.
func NewScanService(store store.Store, words *moderation.WordList, uploads *media.Storage, index PostIndex, logger *slog.Logger) *ScanService {
	return &ScanService{
		store:  store,
		words:  words,
		fx:     sideEffects{index: index, media: uploads, logger: logger},
		logger: logger,
	}
}

// ScanAs runs Scan for an admin request.
func (s *ScanService) ScanAs(ctx context.Context, caller domain.Identity, remove bool) (*ScanReport, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	s.logger.Info("content scan requested", "admin_id", caller.UserID, "delete", remove)
	return s.Scan(ctx, remove)
}

// Scan finds published posts and comments containing banned words. With
// remove set, each offender is deleted together with its audit entry.
// Comments are listed after post removal, so comments that went with a
// removed post are not reported twice.
func (s *ScanService) Scan(ctx context.Context, remove bool) (*ScanReport, error) {
	report := &ScanReport{
		Words:    s.words.Len(),
		Posts:    []*domain.Post{},
		Comments: []*domain.Comment{},
		Deleted:  remove,
	}
	if report.Words == 0 {
		return report, nil
	}

	posts, err := s.store.ListPublishedCorpus(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	report.PostsChecked = len(posts)

	for _, p := range posts {
		if !s.words.Contains(p.Text()) {
			continue
		}
		report.Posts = append(report.Posts, p)
		if !remove {
			continue
		}
		log := moderation.NewLog(domain.LogPostDeleted, domain.ReasonBadWordsScan, p.AuthorID, p.ID, "", p.Text())
		if err := s.store.DeletePost(ctx, p.ID, log); err != nil && !isNotFound(err) {
			return nil, fmt.Errorf("delete post %s: %w", p.ID, err)
		}
		countLogs(log)
		s.fx.postRemoved(p)
		s.logger.Info("post removed by scan", "post_id", p.ID, "author_id", p.AuthorID)
	}

	comments, err := s.store.ListAllComments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	report.CommentsChecked = len(comments)

	for _, c := range comments {
		if !s.words.Contains(c.Body) {
			continue
		}
		report.Comments = append(report.Comments, c)
		if !remove {
			continue
		}
		log := moderation.NewLog(domain.LogCommentBlocked, domain.ReasonBadWordsScan, c.AuthorID, c.PostID, c.ID, c.Body)
		if err := s.store.DeleteComment(ctx, c.ID, log); err != nil && !isNotFound(err) {
			return nil, fmt.Errorf("delete comment %s: %w", c.ID, err)
		}
		countLogs(log)
		s.logger.Info("comment removed by scan", "comment_id", c.ID, "post_id", c.PostID)
	}

	return report, nil
}
