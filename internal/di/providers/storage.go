package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/do/v2"

	"github.com/ProtheticGlitch/Enterra/internal/cache"
	"github.com/ProtheticGlitch/Enterra/internal/config"
	"github.com/ProtheticGlitch/Enterra/internal/logger"
	"github.com/ProtheticGlitch/Enterra/internal/media"
)

const (
	// badgerGCInterval is how often the badger value log is compacted.
	badgerGCInterval = 10 * time.Minute
	redisDialTimeout = 5 * time.Second
	redisKeyPrefix   = "enterra:"
)

// ProvideUploads provides the media upload storage.
func ProvideUploads(i do.Injector) (*media.Storage, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	uploads, err := media.NewStorage(cfg.Data.UploadsPath(), cfg.Server.MaxUploadBytes)
	if err != nil {
		return nil, fmt.Errorf("upload storage: %w", err)
	}

	log.Info("Upload storage initialized", "path", cfg.Data.UploadsPath(), "max_bytes", cfg.Server.MaxUploadBytes)
	return uploads, nil
}

// CacheHandle wraps the recommendation cache with shutdown capability.
type CacheHandle struct {
	cache.Cache
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *CacheHandle) Shutdown() error {
	h.cancel()
	return h.Close()
}

// ProvideCache provides the recommendation cache selected by configuration.
// An unreachable redis degrades to no caching rather than failing startup.
func ProvideCache(i do.Injector) (*CacheHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	ctx, cancel := context.WithCancel(context.Background())
	handle := &CacheHandle{Cache: cache.Noop{}, cancel: cancel}

	if cfg.Recommend.CacheTTL <= 0 {
		log.Info("Recommendation cache disabled", "reason", "ttl")
		return handle, nil
	}

	switch cfg.Recommend.CacheBackend {
	case "badger":
		b, err := cache.OpenBadger(cfg.Data.CachePath(), log.Component("cache"))
		if err != nil {
			cancel()
			return nil, err
		}
		handle.Cache = b

		go func() {
			ticker := time.NewTicker(badgerGCInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					b.RunGC()
				case <-ctx.Done():
					return
				}
			}
		}()

	case "redis":
		dialCtx, dialCancel := context.WithTimeout(ctx, redisDialTimeout)
		client, err := cache.DialRedis(dialCtx, cfg.Recommend.RedisAddr)
		dialCancel()
		if err != nil {
			log.Warn("Redis cache unavailable, caching disabled", "addr", cfg.Recommend.RedisAddr, "error", err)
			return handle, nil
		}
		handle.Cache = cache.NewRedis(client, redisKeyPrefix, cache.BreakerSettings{}, log.Component("cache"))

	default:
		log.Info("Recommendation cache disabled", "reason", "backend")
		return handle, nil
	}

	log.Info("Recommendation cache initialized",
		"backend", cfg.Recommend.CacheBackend,
		"ttl", cfg.Recommend.CacheTTL,
	)
	return handle, nil
}
