package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ProtheticGlitch/Enterra/internal/cache"
	"github.com/ProtheticGlitch/Enterra/internal/domain"
	"github.com/ProtheticGlitch/Enterra/internal/metrics"
	"github.com/ProtheticGlitch/Enterra/internal/recommend"
	"github.com/ProtheticGlitch/Enterra/internal/store"
)

// cachedFeed is what the cache holds for a user: post ids, not posts, so
// a hit still reflects deletions and visibility changes.
type cachedFeed struct {
	Strategy recommend.Strategy `json:"strategy"`
	PostIDs  []string           `json:"post_ids"`
}

// RecommendationService serves personal feeds, caching the default-sized
// feed per user for a short TTL.
type RecommendationService struct {
	store        store.Store
	recommender  *recommend.Recommender
	cache        cache.Cache
	ttl          time.Duration
	defaultLimit int
	logger       *slog.Logger
}

// NewRecommendationService creates a new recommendation service.
// A nil cache disables caching.
func NewRecommendationService(store store.Store, recommender *recommend.Recommender, c cache.Cache, ttl time.Duration, defaultLimit int, logger *slog.Logger) *RecommendationService {
	if c == nil || ttl <= 0 {
		c = cache.Noop{}
	}
	if defaultLimit <= 0 {
		defaultLimit = recommend.DefaultLimit
	}
	return &RecommendationService{
		store:        store,
		recommender:  recommender,
		cache:        c,
		ttl:          ttl,
		defaultLimit: defaultLimit,
		logger:       logger,
	}
}

func feedKey(userID string) string {
	return "rec:" + userID
}

// Recommend returns up to limit posts for the caller. Anonymous callers get
// the cold-start feed.
func (s *RecommendationService) Recommend(ctx context.Context, caller domain.Identity, limit int) (*recommend.Result, error) {
	if limit <= 0 {
		limit = s.defaultLimit
	}
	cacheable := caller.UserID != "" && limit == s.defaultLimit

	if cacheable {
		if res, ok := s.fromCache(ctx, caller.UserID); ok {
			metrics.RecommendCacheHitsTotal.Inc()
			metrics.RecommendationsTotal.WithLabelValues(string(res.Strategy)).Inc()
			return res, nil
		}
		metrics.RecommendCacheMissesTotal.Inc()
	}

	start := time.Now()
	res, err := s.recommender.Recommend(ctx, caller.UserID, limit)
	if err != nil {
		return nil, fmt.Errorf("recommend: %w", err)
	}
	metrics.RecommendationDuration.Observe(time.Since(start).Seconds())
	metrics.RecommendationsTotal.WithLabelValues(string(res.Strategy)).Inc()

	if cacheable {
		s.toCache(ctx, caller.UserID, res)
	}
	return res, nil
}

// Invalidate drops the cached feed of userID. Call it after the user's own
// interactions change.
func (s *RecommendationService) Invalidate(ctx context.Context, userID string) {
	if s == nil || userID == "" {
		return
	}
	if err := s.cache.Delete(ctx, feedKey(userID)); err != nil {
		s.logger.Warn("failed to invalidate feed cache", "user_id", userID, "error", err)
	}
}

func (s *RecommendationService) fromCache(ctx context.Context, userID string) (*recommend.Result, bool) {
	raw, ok, err := s.cache.Get(ctx, feedKey(userID))
	if err != nil {
		s.logger.Warn("feed cache read failed", "user_id", userID, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var cf cachedFeed
	if err := json.Unmarshal(raw, &cf); err != nil {
		s.logger.Warn("discarding unreadable feed cache entry", "user_id", userID, "error", err)
		return nil, false
	}

	posts, err := s.store.GetPostsByIDs(ctx, cf.PostIDs)
	if err != nil {
		s.logger.Warn("failed to load cached feed posts", "user_id", userID, "error", err)
		return nil, false
	}
	visible := posts[:0]
	for _, p := range posts {
		if p.IsPublished {
			visible = append(visible, p)
		}
	}
	return &recommend.Result{Posts: visible, Strategy: cf.Strategy}, true
}

func (s *RecommendationService) toCache(ctx context.Context, userID string, res *recommend.Result) {
	cf := cachedFeed{Strategy: res.Strategy, PostIDs: make([]string, len(res.Posts))}
	for i, p := range res.Posts {
		cf.PostIDs[i] = p.ID
	}
	raw, err := json.Marshal(cf)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, feedKey(userID), raw, s.ttl); err != nil {
		s.logger.Warn("feed cache write failed", "user_id", userID, "error", err)
	}
}
