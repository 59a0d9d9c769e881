package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/require"

	"github.com/ProtheticGlitch/Enterra/internal/affinity"
	"github.com/ProtheticGlitch/Enterra/internal/auth"
	"github.com/ProtheticGlitch/Enterra/internal/cache"
	"github.com/ProtheticGlitch/Enterra/internal/category"
	"github.com/ProtheticGlitch/Enterra/internal/domain"
	"github.com/ProtheticGlitch/Enterra/internal/duplicate"
	"github.com/ProtheticGlitch/Enterra/internal/media"
	"github.com/ProtheticGlitch/Enterra/internal/moderation"
	"github.com/ProtheticGlitch/Enterra/internal/ratelimit"
	"github.com/ProtheticGlitch/Enterra/internal/recommend"
	"github.com/ProtheticGlitch/Enterra/internal/search"
	"github.com/ProtheticGlitch/Enterra/internal/service"
	"github.com/ProtheticGlitch/Enterra/internal/store/sqlite"
)

var (
	author = domain.Identity{UserID: "u-author", Username: "author"}
	reader = domain.Identity{UserID: "u-reader", Username: "reader"}
	admin  = domain.Identity{UserID: "u-admin", Username: "admin", IsAdmin: true}
)

const testBody = "A body that is comfortably longer than twenty characters."

// testServer wraps the API server for handler tests.
type testServer struct {
	*Server
	api        humatest.TestAPI
	store      *sqlite.Store
	tokens     *auth.TokenService
	uploadsDir string
}

// setupTestServer creates a server over a fresh database with every service
// wired. mutate adjusts the options before the server is built.
func setupTestServer(t *testing.T, mutate ...func(*Options)) *testServer {
	t.Helper()

	dir := t.TempDir()
	logger := slog.New(slog.DiscardHandler)

	st, err := sqlite.Open(filepath.Join(dir, "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	uploadsDir := filepath.Join(dir, media.Dir)
	uploads, err := media.NewStorage(uploadsDir, 1<<20)
	require.NoError(t, err)

	index, err := search.NewSearchIndex(search.Options{DataPath: filepath.Join(dir, "search"), Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { index.Close() })

	mapper, err := category.NewMapper("", logger)
	require.NoError(t, err)

	limiter := ratelimit.New(0, 0)
	t.Cleanup(limiter.Stop)

	gate := moderation.NewGate(st, moderation.NewWordList(), logger)
	ledger := affinity.NewLedger(st, logger)
	thresholds := service.DuplicateThresholds{Similar: 0.55, Danger: 0.85, Warn: 0.75}

	recs := service.NewRecommendationService(st, recommend.New(st, logger), cache.Noop{}, time.Minute, 0, logger)
	moderationSvc := service.NewModerationService(st, gate, uploads, index, logger)
	services := &Services{
		Posts:           service.NewPostService(st, gate, duplicate.NewDetector(st, logger), mapper, uploads, index, limiter, thresholds, logger),
		Interactions:    service.NewInteractionService(st, ledger, gate, recs, limiter, logger),
		Recommendations: recs,
		Tags:            service.NewTagService(st, ledger, logger),
		Moderation:      moderationSvc,
		Scan:            service.NewScanService(st, gate.Words(), uploads, index, logger),
		Search:          index,
	}
	require.NoError(t, moderationSvc.LoadBannedWords(context.Background(), []string{"spam", "scam"}))

	key := bytes.Repeat([]byte{7}, 32)
	tokens, err := auth.NewTokenService(key, time.Hour)
	require.NoError(t, err)

	opts := Options{
		Metrics:        true,
		UploadsDir:     uploadsDir,
		MaxUploadBytes: 1 << 20,
	}
	for _, m := range mutate {
		m(&opts)
	}

	server := NewServer(st, services, tokens, opts, logger)

	return &testServer{
		Server:     server,
		api:        humatest.Wrap(t, server.api),
		store:      st,
		tokens:     tokens,
		uploadsDir: uploadsDir,
	}
}

// bearer returns an Authorization header argument for humatest.
func (ts *testServer) bearer(t *testing.T, id domain.Identity) string {
	t.Helper()
	token, err := ts.tokens.Issue(id)
	require.NoError(t, err)
	return "Authorization: Bearer " + token
}

// createPost submits a valid post through the API and returns it.
func (ts *testServer) createPost(t *testing.T, caller domain.Identity, title string, tags ...string) *domain.Post {
	t.Helper()
	resp := ts.api.Post("/api/v1/posts", ts.bearer(t, caller), map[string]any{
		"title": title,
		"body":  testBody + " " + title,
		"tags":  tags,
	})
	require.Equal(t, 201, resp.Code, resp.Body.String())
	res := decodeData[service.SubmitResult](t, resp)
	require.NotNil(t, res.Post)
	return res.Post
}

// envelope is the generic response shape used by the tests.
type envelope struct {
	Version int             `json:"v"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details"`
}

func decodeEnvelope(t *testing.T, resp *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env), resp.Body.String())
	require.Equal(t, EnvelopeVersion, env.Version)
	return env
}

// decodeData unwraps a success envelope into T.
func decodeData[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	env := decodeEnvelope(t, resp)
	require.True(t, env.Success, resp.Body.String())

	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

// multipartPost builds a multipart body with a JSON payload and an
// optional media file. It returns the body and its Content-Type header.
func multipartPost(t *testing.T, payload map[string]any, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, w.WriteField("payload", string(raw)))

	if filename != "" {
		part, err := w.CreateFormFile("media", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, "Content-Type: " + w.FormDataContentType()
}
