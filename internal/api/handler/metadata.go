package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mediashelf/mediashelf/internal/api/models"
	"github.com/mediashelf/mediashelf/internal/database"
	"github.com/mediashelf/mediashelf/internal/metadata"
	"github.com/mediashelf/mediashelf/internal/worker"
)

// Search runs a provider search. The lookup is cancelled when the client disconnects.
func (h *Handler) Search(c *gin.Context) {
	kind, err := database.ParseKind(c.Param("kind"))
	if err != nil {
		respondError(c, err)
		return
	}
	q := c.Query("q")

	task := worker.Go(c.Request.Context(), func(ctx context.Context) ([]metadata.SearchResult, error) {
		return h.engine.Metadata().Search(ctx, kind, q)
	})
	results, err := task.Wait(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.SearchResponse{Kind: kind, Query: q, Results: results})
}

// Fetch loads a record-shaped result from a provider. It is not stored.
// ?source=mal selects MyAnimeList for anime movies.
func (h *Handler) Fetch(c *gin.Context) {
	kind, err := database.ParseKind(c.Param("kind"))
	if err != nil {
		respondError(c, err)
		return
	}
	id := c.Param("id")
	source := metadata.Source(c.Query("source"))

	task := worker.Go(c.Request.Context(), func(ctx context.Context) (database.Record, error) {
		return h.engine.Metadata().Fetch(ctx, kind, source, id)
	})
	rec, err := task.Wait(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}
