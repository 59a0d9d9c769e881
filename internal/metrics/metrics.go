package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "enterra_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "enterra_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"method", "route"})
)

// Submission and moderation metrics
var (
	SubmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "enterra_submissions_total",
		Help: "Posts and comments submitted, by outcome",
	}, []string{"kind", "outcome"})

	ModerationActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "enterra_moderation_actions_total",
		Help: "Moderation log entries written, by action",
	}, []string{"action"})

	DuplicateWarningsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "enterra_duplicate_warnings_total",
		Help: "Duplicate warnings returned with submissions",
	}, []string{"severity"})

	BannedWords = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "enterra_banned_words",
		Help: "Number of words in the active banned word list",
	})

	RateLimitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "enterra_rate_limited_total",
		Help: "Requests rejected by a rate limiter",
	}, []string{"scope"})
)

// Interaction metrics
var (
	ReactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "enterra_reactions_total",
		Help: "Reaction toggles, by code and operation",
	}, []string{"code", "operation"})

	ViewsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "enterra_views_total",
		Help: "Post view reports recorded",
	})
)

// Recommendation metrics
var (
	RecommendationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "enterra_recommendations_total",
		Help: "Recommendation requests served, by strategy",
	}, []string{"strategy"})

	RecommendationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "enterra_recommendation_duration_seconds",
		Help:    "Time spent building uncached recommendations",
		Buckets: prometheus.DefBuckets,
	})

	RecommendCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "enterra_recommend_cache_hits_total",
		Help: "Total number of recommendation cache hits",
	})

	RecommendCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "enterra_recommend_cache_misses_total",
		Help: "Total number of recommendation cache misses",
	})
)

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Route returns the label used for an HTTP request. Unmatched requests
// share one label so that probing random URLs cannot grow the label space.
func Route(pattern string) string {
	if pattern == "" {
		return "unmatched"
	}
	return pattern
}
