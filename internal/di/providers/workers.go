package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/ProtheticGlitch/Enterra/internal/category"
	"github.com/ProtheticGlitch/Enterra/internal/config"
	"github.com/ProtheticGlitch/Enterra/internal/logger"
	"github.com/ProtheticGlitch/Enterra/internal/service"
	"github.com/ProtheticGlitch/Enterra/internal/watcher"
)

// FileWatcherHandle wraps the config file watcher with shutdown capability.
type FileWatcherHandle struct {
	*watcher.Watcher
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *FileWatcherHandle) Shutdown() error {
	h.cancel()
	if h.Watcher == nil {
		return nil
	}
	return h.Watcher.Stop()
}

// ProvideFileWatcher watches the category mapping and banned word files and
// reloads them when they change. A removed file leaves the loaded data alone.
func ProvideFileWatcher(i do.Injector) (*FileWatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	mapper := do.MustInvoke[*category.Mapper](i)
	moderationSvc := do.MustInvoke[*service.ModerationService](i)

	ctx, cancel := context.WithCancel(context.Background())

	handlers := map[string]func(watcher.Event) error{}
	if path := cfg.Moderation.CategoryMapFile; path != "" {
		handlers[path] = func(e watcher.Event) error {
			if e.Type == watcher.EventRemoved {
				return nil
			}
			return mapper.Reload(path)
		}
	}
	if path := cfg.Moderation.BannedWordsFile; path != "" {
		handlers[path] = func(e watcher.Event) error {
			if e.Type == watcher.EventRemoved {
				return nil
			}
			return moderationSvc.ImportBannedWordsFile(ctx, path)
		}
	}

	if len(handlers) == 0 {
		log.Info("File watcher disabled, no reloadable files configured")
		return &FileWatcherHandle{cancel: cancel}, nil
	}

	w, err := watcher.New(log.Component("watcher"), watcher.Options{})
	if err != nil {
		cancel()
		return nil, err
	}
	for path := range handlers {
		if err := w.Watch(path); err != nil {
			cancel()
			_ = w.Stop()
			return nil, err
		}
		log.Info("Watching file", "path", path)
	}

	go func() {
		if err := w.Start(ctx); err != nil {
			log.Error("File watcher error", "error", err)
		}
	}()
	go w.Dispatch(ctx, handlers)

	log.Info("File watcher started", "files", len(handlers))

	return &FileWatcherHandle{Watcher: w, cancel: cancel}, nil
}
