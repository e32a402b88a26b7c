package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/mediashelf/mediashelf/internal/api/models"
	"github.com/mediashelf/mediashelf/internal/config"
	"github.com/mediashelf/mediashelf/internal/database"
	"github.com/mediashelf/mediashelf/internal/engine"
	"github.com/mediashelf/mediashelf/internal/sync"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, providerURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Listen:   "127.0.0.1:0",
		DataDir:  dir,
		Database: &config.DatabaseConfig{Path: filepath.Join(dir, "movies.db")},
		Auth:     &config.AuthConfig{Google: &config.GoogleConfig{}},
		Sync: &config.SyncConfig{
			RemoteName: "movies.db",
			StateFile:  filepath.Join(dir, "sync_state.json"),
		},
		Metadata: &config.MetadataConfig{
			RequestTimeout:  5 * time.Second,
			RateLimit:       100,
			RateBurst:       100,
			BreakerFailures: 5,
			BreakerTimeout:  time.Minute,
			RAWG:            &config.RAWGConfig{APIKey: "rawg-key", URL: providerURL + "/rawg"},
		},
		Cache: &config.CacheConfig{Type: config.CacheTypeMemory, TTL: time.Hour},
		Images: &config.ImagesConfig{
			CacheDir:  filepath.Join(dir, "images"),
			MaxWidth:  340,
			MaxHeight: 500,
			Quality:   85,
			MaxAge:    time.Hour,
		},
		Ratings:  &config.RatingsConfig{},
		Gravatar: &config.GravatarConfig{},
	}
}

func newTestServer(t *testing.T, cfg *config.Config, opts engine.Options) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	e, err := engine.New(cfg, opts)
	require.NoError(t, err)
	require.NoError(t, e.Start(context.Background()))
	t.Cleanup(func() { _ = e.Close(context.Background()) })

	s, err := New(cfg, e, false)
	require.NoError(t, err)
	gin.SetMode(gin.TestMode)
	return s
}

func do(t *testing.T, s *Server, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestRecords_Lifecycle(t *testing.T) {
	s := newTestServer(t, testConfig(t, ""), engine.Options{Offline: true})

	w := do(t, s, http.MethodPost, "/api/records/movies", map[string]any{"title": "Heat", "year": 1995})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[database.Movie](t, w)
	assert.NotZero(t, created.ID)
	assert.Equal(t, database.SectionWantToWatch, created.Section)
	assert.False(t, created.CreatedAt.IsZero())

	w = do(t, s, http.MethodGet, fmt.Sprintf("/api/records/movie/%d", created.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Heat", decode[database.Movie](t, w).Title)

	w = do(t, s, http.MethodPut, fmt.Sprintf("/api/records/movie/%d", created.ID),
		map[string]any{"title": "Heat", "year": 1995, "user_rating": 9.5, "section": "watching"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[database.Movie](t, w)
	require.NotNil(t, updated.UserRating)
	assert.InDelta(t, 9.5, *updated.UserRating, 0.001)
	assert.Equal(t, database.SectionWatching, updated.Section)
	assert.WithinDuration(t, created.CreatedAt, updated.CreatedAt, time.Second)

	w = do(t, s, http.MethodPost, fmt.Sprintf("/api/records/movie/%d/move", created.ID), models.MoveRequest{Section: database.SectionWatched})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	moved := decode[database.Movie](t, w)
	assert.Equal(t, database.SectionWatched, moved.Section)
	assert.NotNil(t, moved.LastUpdate)

	w = do(t, s, http.MethodGet, "/api/records/movies?section=watched", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]database.Movie](t, w), 1)

	w = do(t, s, http.MethodGet, "/api/records/movies/count?section=watched", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.CountResponse{Kind: database.KindMovie, Section: database.SectionWatched, Count: 1}, decode[models.CountResponse](t, w))

	w = do(t, s, http.MethodDelete, fmt.Sprintf("/api/records/movie/%d", created.ID), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, s, http.MethodGet, fmt.Sprintf("/api/records/movie/%d", created.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(t, s, http.MethodDelete, fmt.Sprintf("/api/records/movie/%d", created.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRecords_ListFilterAndSort(t *testing.T) {
	s := newTestServer(t, testConfig(t, ""), engine.Options{Offline: true})

	for _, b := range []map[string]any{
		{"title": "Dune", "author": "Frank Herbert", "year": 1965, "section": "reading"},
		{"title": "Dune Messiah", "author": "Frank Herbert", "year": 1969, "section": "reading"},
		{"title": "Hyperion", "author": "Dan Simmons", "year": 1989, "section": "reading"},
	} {
		w := do(t, s, http.MethodPost, "/api/records/books", b)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w := do(t, s, http.MethodGet, "/api/records/books?section=reading&sort=year&desc=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	books := decode[[]database.Book](t, w)
	require.Len(t, books, 3)
	assert.Equal(t, "Hyperion", books[0].Title)

	w = do(t, s, http.MethodGet, "/api/records/books?section=reading&q=dune", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]database.Book](t, w), 2)

	w = do(t, s, http.MethodGet, "/api/records/books?section=reading&q=1989", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]database.Book](t, w), 1)

	w = do(t, s, http.MethodGet, "/api/records/books/random?section=reading&q=dune", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode[database.Book](t, w).Title, "Dune")

	w = do(t, s, http.MethodGet, "/api/records/books/random?section=watched", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRecords_BadRequests(t *testing.T) {
	s := newTestServer(t, testConfig(t, ""), engine.Options{Offline: true})

	tests := []struct {
		name   string
		method string
		target string
		body   any
		status int
		code   string
	}{
		{name: "unknown kind", method: http.MethodGet, target: "/api/records/podcasts?section=watched", status: http.StatusNotFound, code: models.CodeNotFound},
		{name: "missing section", method: http.MethodGet, target: "/api/records/movies", status: http.StatusBadRequest, code: models.CodeBadRequest},
		{name: "count without section", method: http.MethodGet, target: "/api/records/movies/count", status: http.StatusBadRequest, code: models.CodeBadRequest},
		{name: "unsortable column", method: http.MethodGet, target: "/api/records/games?section=want_to_play&sort=pages", status: http.StatusBadRequest, code: models.CodeBadRequest},
		{name: "bad desc", method: http.MethodGet, target: "/api/records/games?section=want_to_play&desc=maybe", status: http.StatusBadRequest, code: models.CodeBadRequest},
		{name: "bad id", method: http.MethodGet, target: "/api/records/movies/abc", status: http.StatusBadRequest, code: models.CodeBadRequest},
		{name: "update unknown id", method: http.MethodPut, target: "/api/records/movies/99", body: map[string]any{"title": "Ghost"}, status: http.StatusNotFound, code: models.CodeNotFound},
		{name: "move empty section", method: http.MethodPost, target: "/api/records/movies/1/move", body: map[string]any{"section": " "}, status: http.StatusBadRequest, code: models.CodeBadRequest},
		{name: "move unknown id", method: http.MethodPost, target: "/api/records/movies/99/move", body: map[string]any{"section": "watched"}, status: http.StatusNotFound, code: models.CodeNotFound},
		{name: "search without provider", method: http.MethodGet, target: "/api/search/books?q=dune", status: http.StatusBadRequest, code: models.CodeBadRequest},
		{name: "search unknown kind", method: http.MethodGet, target: "/api/search/podcasts?q=dune", status: http.StatusBadRequest, code: models.CodeBadRequest},
		{name: "fetch unknown kind", method: http.MethodGet, target: "/api/fetch/podcasts/42", status: http.StatusBadRequest, code: models.CodeBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, decode[models.ErrorResponse](t, w).Code)
		})
	}
}

func TestRecords_ValidationErrors(t *testing.T) {
	s := newTestServer(t, testConfig(t, ""), engine.Options{Offline: true})

	w := do(t, s, http.MethodPost, "/api/records/movies", map[string]any{"title": "  ", "user_rating": 11})
	require.Equal(t, http.StatusBadRequest, w.Code)

	resp := decode[models.ErrorResponse](t, w)
	assert.Equal(t, models.CodeValidation, resp.Code)
	fields := make([]string, 0, len(resp.Fields))
	for _, f := range resp.Fields {
		fields = append(fields, f.Field)
	}
	assert.ElementsMatch(t, []string{"title", "user_rating"}, fields)

	w = do(t, s, http.MethodPost, "/api/records/movies", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearch(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rawg/games" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"results":[{"id":327239,"name":"Hades","released":"2020-09-17"}]}`)
	}))
	t.Cleanup(provider.Close)

	s := newTestServer(t, testConfig(t, provider.URL), engine.Options{Offline: true})

	w := do(t, s, http.MethodGet, "/api/search/games?q=hades", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[models.SearchResponse](t, w)
	assert.Equal(t, database.KindGame, resp.Kind)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "Hades", resp.Results[0].Title)

	// no TMDB key configured
	w = do(t, s, http.MethodGet, "/api/search/series?q=lost", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, models.CodeMissingAPIKey, decode[models.ErrorResponse](t, w).Code)
}

func TestSessionAndUpload_Offline(t *testing.T) {
	s := newTestServer(t, testConfig(t, ""), engine.Options{Offline: true})

	w := do(t, s, http.MethodGet, "/api/session", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.SessionResponse{}, decode[models.SessionResponse](t, w))

	w = do(t, s, http.MethodPost, "/api/sync/upload", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, models.CodeOffline, decode[models.ErrorResponse](t, w).Code)
}

func TestUpload_Online(t *testing.T) {
	cfg := testConfig(t, "")
	cfg.Sync.Enabled = true
	remote := sync.NewMemoryRemote()
	s := newTestServer(t, cfg, engine.Options{Remote: remote})

	w := do(t, s, http.MethodGet, "/api/session", nil)
	require.Equal(t, http.StatusOK, w.Code)
	session := decode[models.SessionResponse](t, w)
	assert.True(t, session.Online)
	assert.Equal(t, sync.OutcomeFresh, session.Outcome)

	w = do(t, s, http.MethodPost, "/api/sync/upload", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[models.UploadResponse](t, w)
	require.NotNil(t, resp.Remote)
	assert.Equal(t, "movies.db", resp.Remote.Name)
	assert.Equal(t, 1, remote.Uploads)

	w = do(t, s, http.MethodPost, "/api/sync/upload?force=nope", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t, testConfig(t, ""), engine.Options{Offline: true})

	w := do(t, s, http.MethodGet, "/api/admin/jobs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var jobs []struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &jobs))
	require.Len(t, jobs, 1)
	assert.Equal(t, engine.JobPruneImages, jobs[0].ID)

	w = do(t, s, http.MethodPost, "/api/admin/jobs/nope/run", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, s, http.MethodGet, "/api/admin/cache/stats", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, s, http.MethodDelete, "/api/admin/cache", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, s, http.MethodGet, "/api/images/cache?url=ftp://example.com/a.jpg", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
