package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/ProtheticGlitch/Enterra/internal/api"
	"github.com/ProtheticGlitch/Enterra/internal/auth"
	"github.com/ProtheticGlitch/Enterra/internal/config"
	"github.com/ProtheticGlitch/Enterra/internal/logger"
	"github.com/ProtheticGlitch/Enterra/internal/service"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer builds the API and starts serving in the background.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	tokens := do.MustInvoke[*auth.TokenService](i)
	log := do.MustInvoke[*logger.Logger](i)

	services := &api.Services{
		Posts:           do.MustInvoke[*service.PostService](i),
		Interactions:    do.MustInvoke[*service.InteractionService](i),
		Recommendations: do.MustInvoke[*service.RecommendationService](i),
		Tags:            do.MustInvoke[*service.TagService](i),
		Moderation:      do.MustInvoke[*service.ModerationService](i),
		Scan:            do.MustInvoke[*service.ScanService](i),
		Search:          indexHandle.SearchIndex,
	}

	handler := api.NewServer(storeHandle.Store, services, tokens, api.Options{
		CORSOrigins:    cfg.Server.CORSOrigins,
		RequestsPerMin: cfg.Server.RequestsPerMin,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		Metrics:        cfg.Server.Metrics,
		UploadsDir:     cfg.Data.UploadsPath(),
	}, log.Component("api"))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv}, nil
}
