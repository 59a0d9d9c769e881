package api

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	domainerrors "github.com/ProtheticGlitch/Enterra/internal/errors"
	"github.com/ProtheticGlitch/Enterra/internal/metrics"
)

// ipRateLimit limits each client IP to perMinute requests over a sliding
// minute. Per-user submission limits live in the services; this one only
// blunts floods. perMinute <= 0 disables it.
func ipRateLimit(perMinute int) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		perMinute,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			metrics.RateLimitedTotal.WithLabelValues("ip").Inc()
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, string(domainerrors.CodeRateLimited), "too many requests")
		}),
	)
}
