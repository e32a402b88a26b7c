package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/mediashelf/mediashelf/internal/api/models"
	"github.com/mediashelf/mediashelf/internal/database"
	"github.com/mediashelf/mediashelf/internal/engine"
	"github.com/mediashelf/mediashelf/internal/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{
			name:   "unknown kind",
			err:    fmt.Errorf("%w: %q", database.ErrUnknownKind, "podcasts"),
			status: http.StatusBadRequest,
			code:   models.CodeBadRequest,
		},
		{
			name:   "no data",
			err:    metadata.ErrNoData,
			status: http.StatusNotFound,
			code:   models.CodeNoData,
		},
		{
			name:   "tmdb down and nothing on mal",
			err:    errors.Join(fmt.Errorf("tmdb: %w", metadata.ErrUnavailable), fmt.Errorf("mal: %w", metadata.ErrNoData)),
			status: http.StatusBadGateway,
			code:   models.CodeUnavailable,
		},
		{
			name:   "missing key and nothing on mal",
			err:    errors.Join(metadata.ErrMissingAPIKey, metadata.ErrNoData),
			status: http.StatusServiceUnavailable,
			code:   models.CodeMissingAPIKey,
		},
		{
			name:   "offline",
			err:    engine.ErrOffline,
			status: http.StatusConflict,
			code:   models.CodeOffline,
		},
		{
			name:   "anything else",
			err:    errors.New("disk full"),
			status: http.StatusInternalServerError,
			code:   models.CodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/api/search/movies", nil)

			respondError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			var resp models.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Code)
		})
	}
}

func TestRespondError_Canceled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/search/movies", nil)

	respondError(c, context.Canceled)

	assert.True(t, c.IsAborted())
	assert.Zero(t, w.Body.Len())
}
