package service

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ProtheticGlitch/Enterra/internal/affinity"
	"github.com/ProtheticGlitch/Enterra/internal/cache"
	"github.com/ProtheticGlitch/Enterra/internal/category"
	"github.com/ProtheticGlitch/Enterra/internal/domain"
	"github.com/ProtheticGlitch/Enterra/internal/duplicate"
	"github.com/ProtheticGlitch/Enterra/internal/media"
	"github.com/ProtheticGlitch/Enterra/internal/moderation"
	"github.com/ProtheticGlitch/Enterra/internal/ratelimit"
	"github.com/ProtheticGlitch/Enterra/internal/recommend"
	"github.com/ProtheticGlitch/Enterra/internal/search"
	"github.com/ProtheticGlitch/Enterra/internal/store/sqlite"
)

var (
	author = domain.Identity{UserID: "u-author", Username: "author"}
	reader = domain.Identity{UserID: "u-reader", Username: "reader"}
	admin  = domain.Identity{UserID: "u-admin", Username: "admin", IsAdmin: true}
	anon   = domain.Identity{}
)

const testBody = "A body that is comfortably longer than twenty characters."

type testEnv struct {
	store   *sqlite.Store
	gate    *moderation.Gate
	uploads *media.Storage
	index   *search.SearchIndex

	posts        *PostService
	interactions *InteractionService
	recs         *RecommendationService
	tags         *TagService
	moderation   *ModerationService
	scan         *ScanService
}

type envOption func(*envConfig)

type envConfig struct {
	limiter *ratelimit.KeyedRateLimiter
	noIndex bool
}

func withLimiter(perMinute, burst int) envOption {
	return func(c *envConfig) { c.limiter = ratelimit.New(perMinute, burst) }
}

func withoutIndex() envOption {
	return func(c *envConfig) { c.noIndex = true }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	cfg := envConfig{}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.limiter == nil {
		cfg.limiter = ratelimit.New(0, 0)
	}
	t.Cleanup(cfg.limiter.Stop)

	dir := t.TempDir()
	logger := slog.New(slog.DiscardHandler)

	st, err := sqlite.Open(filepath.Join(dir, "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	uploads, err := media.NewStorage(dir, 1<<20)
	require.NoError(t, err)

	env := &testEnv{store: st, uploads: uploads}

	var index PostIndex
	if !cfg.noIndex {
		env.index, err = search.NewSearchIndex(search.Options{DataPath: dir, Logger: logger})
		require.NoError(t, err)
		t.Cleanup(func() { env.index.Close() })
		index = env.index
	}

	mapper, err := category.NewMapper("", logger)
	require.NoError(t, err)

	badger, err := cache.OpenBadger("", logger)
	require.NoError(t, err)
	t.Cleanup(func() { badger.Close() })

	env.gate = moderation.NewGate(st, moderation.NewWordList(), logger)
	ledger := affinity.NewLedger(st, logger)
	thresholds := DuplicateThresholds{Similar: 0.55, Danger: 0.85, Warn: 0.75}

	env.recs = NewRecommendationService(st, recommend.New(st, logger), badger, time.Minute, 0, logger)
	env.posts = NewPostService(st, env.gate, duplicate.NewDetector(st, logger), mapper, uploads, index, cfg.limiter, thresholds, logger)
	env.interactions = NewInteractionService(st, ledger, env.gate, env.recs, cfg.limiter, logger)
	env.tags = NewTagService(st, ledger, logger)
	env.moderation = NewModerationService(st, env.gate, uploads, index, logger)
	env.scan = NewScanService(st, env.gate.Words(), uploads, index, logger)

	require.NoError(t, env.moderation.LoadBannedWords(context.Background(), []string{"spam", "scam"}))
	return env
}

// createPost submits a valid post as caller and fails the test on error.
func (e *testEnv) createPost(t *testing.T, caller domain.Identity, title string, tags ...string) *domain.Post {
	t.Helper()
	res, err := e.posts.Create(context.Background(), caller, PostInput{
		Title: title,
		Body:  testBody + " " + title,
		Tags:  tags,
	})
	require.NoError(t, err)
	return res.Post
}

// logs returns the audit log, newest first.
func (e *testEnv) logs(t *testing.T) []*domain.ModerationLog {
	t.Helper()
	logs, err := e.store.ListModerationLogs(context.Background(), 100)
	require.NoError(t, err)
	return logs
}

// logsOf filters the audit log to one kind.
func (e *testEnv) logsOf(t *testing.T, kind domain.LogKind) []*domain.ModerationLog {
	t.Helper()
	var out []*domain.ModerationLog
	for _, l := range e.logs(t) {
		if l.Kind == kind {
			out = append(out, l)
		}
	}
	return out
}

func upload(name, content string) *Upload {
	return &Upload{Filename: name, Content: strings.NewReader(content)}
}

func boolPtr(b bool) *bool { return &b }
