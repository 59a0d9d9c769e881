// Package di provides dependency injection configuration for the Enterra server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/ProtheticGlitch/Enterra/internal/affinity"
	"github.com/ProtheticGlitch/Enterra/internal/auth"
	"github.com/ProtheticGlitch/Enterra/internal/category"
	"github.com/ProtheticGlitch/Enterra/internal/config"
	"github.com/ProtheticGlitch/Enterra/internal/di/providers"
	"github.com/ProtheticGlitch/Enterra/internal/logger"
	"github.com/ProtheticGlitch/Enterra/internal/media"
	"github.com/ProtheticGlitch/Enterra/internal/moderation"
	"github.com/ProtheticGlitch/Enterra/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideTokenService)

	// Storage layer
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideSearchIndex)
	do.Provide(injector, providers.ProvideUploads)
	do.Provide(injector, providers.ProvideCache)

	// Domain building blocks
	do.Provide(injector, providers.ProvideCategoryMapper)
	do.Provide(injector, providers.ProvideGate)
	do.Provide(injector, providers.ProvideLedger)
	do.Provide(injector, providers.ProvideSubmissionLimiter)

	// Business services
	do.Provide(injector, providers.ProvideModerationService)
	do.Provide(injector, providers.ProvidePostService)
	do.Provide(injector, providers.ProvideRecommendationService)
	do.Provide(injector, providers.ProvideInteractionService)
	do.Provide(injector, providers.ProvideTagService)
	do.Provide(injector, providers.ProvideScanService)

	// Workers
	do.Provide(injector, providers.ProvideFileWatcher)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and starts the server.
// This triggers lazy initialization of every provider in dependency order.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*auth.TokenService](injector)

	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)
	_ = do.MustInvoke[*media.Storage](injector)
	_ = do.MustInvoke[*providers.CacheHandle](injector)

	_ = do.MustInvoke[*category.Mapper](injector)
	_ = do.MustInvoke[*moderation.Gate](injector)
	_ = do.MustInvoke[*affinity.Ledger](injector)
	_ = do.MustInvoke[*providers.LimiterHandle](injector)

	// Business services
	_ = do.MustInvoke[*service.ModerationService](injector)
	_ = do.MustInvoke[*service.PostService](injector)
	_ = do.MustInvoke[*service.RecommendationService](injector)
	_ = do.MustInvoke[*service.InteractionService](injector)
	_ = do.MustInvoke[*service.TagService](injector)
	_ = do.MustInvoke[*service.ScanService](injector)

	// Workers
	_ = do.MustInvoke[*providers.FileWatcherHandle](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	providers.TriggerSearchReindexIfNeeded(injector)

	return nil
}
