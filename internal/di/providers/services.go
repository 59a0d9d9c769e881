package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/ProtheticGlitch/Enterra/internal/affinity"
	"github.com/ProtheticGlitch/Enterra/internal/category"
	"github.com/ProtheticGlitch/Enterra/internal/config"
	"github.com/ProtheticGlitch/Enterra/internal/duplicate"
	"github.com/ProtheticGlitch/Enterra/internal/logger"
	"github.com/ProtheticGlitch/Enterra/internal/media"
	"github.com/ProtheticGlitch/Enterra/internal/moderation"
	"github.com/ProtheticGlitch/Enterra/internal/ratelimit"
	"github.com/ProtheticGlitch/Enterra/internal/recommend"
	"github.com/ProtheticGlitch/Enterra/internal/service"
)

// ProvideCategoryMapper provides the tag-to-category mapping.
func ProvideCategoryMapper(i do.Injector) (*category.Mapper, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return category.NewMapper(cfg.Moderation.CategoryMapFile, log.Component("category"))
}

// ProvideGate provides the moderation gate with an empty word list; the
// moderation service fills it on startup.
func ProvideGate(i do.Injector) (*moderation.Gate, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return moderation.NewGate(storeHandle.Store, moderation.NewWordList(), log.Component("moderation")), nil
}

// ProvideLedger provides the tag affinity ledger.
func ProvideLedger(i do.Injector) (*affinity.Ledger, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return affinity.NewLedger(storeHandle.Store, log.Component("affinity")), nil
}

// LimiterHandle wraps the per-user submission limiter with shutdown capability.
type LimiterHandle struct {
	*ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *LimiterHandle) Shutdown() error {
	h.Stop()
	return nil
}

// ProvideSubmissionLimiter provides the per-user post and comment limiter.
func ProvideSubmissionLimiter(i do.Injector) (*LimiterHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)

	return &LimiterHandle{
		KeyedRateLimiter: ratelimit.New(cfg.Submission.PerMinute, cfg.Submission.Burst),
	}, nil
}

// ProvideModerationService provides the admin moderation service and loads
// the banned word list, seeding it from the configured file on first run.
func ProvideModerationService(i do.Injector) (*service.ModerationService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	gate := do.MustInvoke[*moderation.Gate](i)
	uploads := do.MustInvoke[*media.Storage](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	svc := service.NewModerationService(storeHandle.Store, gate, uploads, indexHandle.SearchIndex, log.Component("moderation"))

	seed, err := service.ReadWordsFile(cfg.Moderation.BannedWordsFile)
	if err != nil {
		return nil, err
	}
	if err := svc.LoadBannedWords(context.Background(), seed); err != nil {
		return nil, err
	}

	log.Info("Banned word list loaded", "words", gate.Words().Len())
	return svc, nil
}

// ProvidePostService provides the post service.
func ProvidePostService(i do.Injector) (*service.PostService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	gate := do.MustInvoke[*moderation.Gate](i)
	mapper := do.MustInvoke[*category.Mapper](i)
	uploads := do.MustInvoke[*media.Storage](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	limiter := do.MustInvoke[*LimiterHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	thresholds := service.DuplicateThresholds{
		Similar: cfg.Duplicate.SimilarThreshold,
		Danger:  cfg.Duplicate.CheckThreshold,
		Warn:    cfg.Duplicate.WarnThreshold,
	}
	detector := duplicate.NewDetector(storeHandle.Store, log.Component("duplicate"))

	return service.NewPostService(
		storeHandle.Store,
		gate,
		detector,
		mapper,
		uploads,
		indexHandle.SearchIndex,
		limiter.KeyedRateLimiter,
		thresholds,
		log.Component("posts"),
	), nil
}

// ProvideRecommendationService provides the cached recommendation service.
func ProvideRecommendationService(i do.Injector) (*service.RecommendationService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	cacheHandle := do.MustInvoke[*CacheHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	recommender := recommend.New(storeHandle.Store, log.Component("recommend"))
	return service.NewRecommendationService(
		storeHandle.Store,
		recommender,
		cacheHandle.Cache,
		cfg.Recommend.CacheTTL,
		cfg.Recommend.DefaultLimit,
		log.Component("recommend"),
	), nil
}

// ProvideInteractionService provides the reaction, view and comment service.
func ProvideInteractionService(i do.Injector) (*service.InteractionService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	ledger := do.MustInvoke[*affinity.Ledger](i)
	gate := do.MustInvoke[*moderation.Gate](i)
	recs := do.MustInvoke[*service.RecommendationService](i)
	limiter := do.MustInvoke[*LimiterHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewInteractionService(storeHandle.Store, ledger, gate, recs, limiter.KeyedRateLimiter, log.Component("interactions")), nil
}

// ProvideTagService provides the tag service.
func ProvideTagService(i do.Injector) (*service.TagService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	ledger := do.MustInvoke[*affinity.Ledger](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewTagService(storeHandle.Store, ledger, log.Component("tags")), nil
}

// ProvideScanService provides the banned-word content scanner.
func ProvideScanService(i do.Injector) (*service.ScanService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	gate := do.MustInvoke[*moderation.Gate](i)
	uploads := do.MustInvoke[*media.Storage](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewScanService(storeHandle.Store, gate.Words(), uploads, indexHandle.SearchIndex, log.Component("scan")), nil
}
