// Package api provides the HTTP API server and handlers for the Enterra feed.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ProtheticGlitch/Enterra/internal/auth"
	"github.com/ProtheticGlitch/Enterra/internal/media"
	"github.com/ProtheticGlitch/Enterra/internal/metrics"
)

// Pinger reports whether the database answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures the HTTP surface.
type Options struct {
	CORSOrigins    []string
	RequestsPerMin int    // Per-IP limit, 0 disables
	MaxUploadBytes int64  // Largest media file accepted with a post
	Metrics        bool   // Serve /metrics
	UploadsDir     string // Serve stored media under /uploads when set
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	db       Pinger
	services *Services
	opts     Options
	router   *chi.Mux
	api      huma.API
	logger   *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(db Pinger, services *Services, tokens *auth.TokenService, opts Options, logger *slog.Logger) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadSize
	}

	router := chi.NewRouter()
	s := &Server{
		db:       db,
		services: services,
		opts:     opts,
		router:   router,
		logger:   logger,
	}

	s.setupMiddleware(tokens)
	s.setupRawRoutes()

	s.api = humachi.New(router, newHumaConfig())
	RegisterErrorHandler()
	s.registerRoutes()

	return s
}

// newHumaConfig describes the API and wraps every body in the envelope.
func newHumaConfig() huma.Config {
	config := huma.DefaultConfig("Enterra API", "1.0.0")
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	config.Transformers = append(config.Transformers, EnvelopeTransformer)
	return config
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures the middleware stack. Auth runs last so that
// rejected floods never pay for token verification.
func (s *Server) setupMiddleware(tokens *auth.TokenService) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestContext)
	s.router.Use(accessLog(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(corsHandler(s.opts.CORSOrigins))
	s.router.Use(ipRateLimit(s.opts.RequestsPerMin))
	s.router.Use(authMiddleware(tokens))
}

// setupRawRoutes mounts the endpoints that bypass huma.
func (s *Server) setupRawRoutes() {
	if s.opts.Metrics {
		s.router.Handle("/metrics", metrics.Handler())
	}
	if s.opts.UploadsDir != "" {
		files := http.StripPrefix("/"+media.Dir+"/", http.FileServer(http.Dir(s.opts.UploadsDir)))
		s.router.Get("/"+media.Dir+"/*", func(w http.ResponseWriter, r *http.Request) {
			name := chi.URLParam(r, "*")
			// No directory listings and no half-written temp files.
			if name == "" || strings.Contains(name, "/") || strings.HasPrefix(name, ".") {
				http.NotFound(w, r)
				return
			}
			w.Header().Set("Cache-Control", CacheOneWeek)
			files.ServeHTTP(w, r)
		})
	}
}

// registerRoutes registers every huma operation.
func (s *Server) registerRoutes() {
	s.registerHealthRoutes()
	s.registerPostRoutes()
	s.registerInteractionRoutes()
	s.registerFeedRoutes()
	s.registerTagRoutes()
	s.registerAdminRoutes()
}

// bearer is the security requirement attached to operations that use the
// caller's identity.
var bearer = []map[string][]string{{"bearer": {}}}
