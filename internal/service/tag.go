package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/ProtheticGlitch/Enterra/internal/affinity"
	"github.com/ProtheticGlitch/Enterra/internal/domain"
	"github.com/ProtheticGlitch/Enterra/internal/normalize"
	"github.com/ProtheticGlitch/Enterra/internal/store"
	"github.com/ProtheticGlitch/Enterra/internal/util"
)

// Tag suggestion bounds.
const (
	suggestionMinQuery = 2
	suggestionLimit    = 10
)

// TagCheck reports whether a tag name already exists.
type TagCheck struct {
	Exists bool        `json:"exists"`
	Tag    *domain.Tag `json:"tag,omitempty"`
}

// TagService serves tag lookups for authoring and the tag cloud.
// Tags are global and created only as a side effect of posting.
type TagService struct {
	store  store.Store
	ledger *affinity.Ledger
	logger *slog.Logger
}

// NewTagService creates a new tag service.
func NewTagService(store store.Store, ledger *affinity.Ledger, logger *slog.Logger) *TagService {
	return &TagService{
		store:  store,
		ledger: ledger,
		logger: logger,
	}
}

// Check looks a tag up by the slug its name would get.
func (s *TagService) Check(ctx context.Context, name string) (*TagCheck, error) {
	slug := util.NormalizeTagSlug(name)
	if slug == "" {
		return &TagCheck{}, nil
	}
	t, err := s.store.GetTagBySlug(ctx, slug)
	if isNotFound(err) {
		return &TagCheck{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get tag: %w", err)
	}
	return &TagCheck{Exists: true, Tag: t}, nil
}

// Suggestions returns up to ten tags whose name contains query. Queries
// shorter than two characters return nothing.
func (s *TagService) Suggestions(ctx context.Context, query string) ([]*domain.Tag, error) {
	query = normalize.Lower(strings.TrimSpace(query))
	if utf8.RuneCountInString(query) < suggestionMinQuery {
		return []*domain.Tag{}, nil
	}
	return s.store.SearchTagsByName(ctx, query, suggestionLimit)
}

// Recommendations returns the caller's preferred tags, padded with popular
// ones for users with little history.
func (s *TagService) Recommendations(ctx context.Context, caller domain.Identity) ([]domain.TagScore, error) {
	if err := requireUser(caller); err != nil {
		return nil, err
	}
	return s.ledger.Recommendations(ctx, caller.UserID)
}

// Cloud returns every tag on a published post with its post count.
func (s *TagService) Cloud(ctx context.Context) ([]domain.TagCount, error) {
	return s.store.ListTagCounts(ctx, 0)
}

// Categories returns all categories posts have been filed under.
func (s *TagService) Categories(ctx context.Context) ([]*domain.Category, error) {
	return s.store.ListCategories(ctx)
}
