package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mediashelf/mediashelf/internal/api/models"
	"github.com/mediashelf/mediashelf/internal/database"
	"github.com/mediashelf/mediashelf/internal/validation"
)

// recordRoutes are the per-kind record endpoints.
type recordRoutes interface {
	list(c *gin.Context)
	count(c *gin.Context)
	random(c *gin.Context)
	get(c *gin.Context)
	create(c *gin.Context)
	update(c *gin.Context)
	remove(c *gin.Context)
	move(c *gin.Context)
}

// Record resolves the :kind parameter and dispatches to the matching record route.
func (h *Handler) Record(route func(recordRoutes, *gin.Context)) gin.HandlerFunc {
	return func(c *gin.Context) {
		kind, err := database.ParseKind(c.Param("kind"))
		if err != nil {
			notFound(c, err.Error())
			return
		}
		route(h.kinds[kind], c)
	}
}

// Route selectors for Handler.Record.
var (
	ListRecords  = recordRoutes.list
	CountRecords = recordRoutes.count
	RandomRecord = recordRoutes.random
	GetRecord    = recordRoutes.get
	CreateRecord = recordRoutes.create
	UpdateRecord = recordRoutes.update
	DeleteRecord = recordRoutes.remove
	MoveRecord   = recordRoutes.move
)

type records[T any, PT database.Recorder[T]] struct {
	repo *database.Repository[T, PT]
}

func (r records[T, PT]) list(c *gin.Context) {
	desc, err := strconv.ParseBool(c.DefaultQuery("desc", "false"))
	if err != nil {
		badRequest(c, "desc must be a boolean")
		return
	}
	recs, err := r.repo.ListBySection(c.Request.Context(),
		database.Section(c.Query("section")),
		database.SortColumn(c.Query("sort")),
		desc,
	)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, database.Filter(recs, c.Query("q")))
}

func (r records[T, PT]) count(c *gin.Context) {
	section := database.Section(c.Query("section"))
	if section == "" {
		respondError(c, database.ErrEmptySection)
		return
	}
	n, err := r.repo.Count(c.Request.Context(), section)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.CountResponse{Kind: r.repo.Kind(), Section: section, Count: n})
}

func (r records[T, PT]) random(c *gin.Context) {
	recs, err := r.repo.ListBySection(c.Request.Context(), database.Section(c.Query("section")), "", false)
	if err != nil {
		respondError(c, err)
		return
	}
	rec, ok := database.Pick(database.Filter(recs, c.Query("q")))
	if !ok {
		notFound(c, "no records in this section")
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (r records[T, PT]) get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	rec, err := r.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if rec == nil {
		notFound(c, "record not found")
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (r records[T, PT]) create(c *gin.Context) {
	rec, ok := bindRecord[T, PT](c)
	if !ok {
		return
	}
	created, err := r.repo.Insert(c.Request.Context(), rec)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (r records[T, PT]) update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	rec, ok := bindRecord[T, PT](c)
	if !ok {
		return
	}
	rec.SetID(id)
	if rec.GetSection() == "" {
		rec.SetSection(rec.DefaultSection())
	}
	updated, err := r.repo.Update(c.Request.Context(), rec)
	if err != nil {
		respondError(c, err)
		return
	}
	// re-read so store-owned columns like created_at are current
	fresh, err := r.repo.GetByID(c.Request.Context(), updated.GetID())
	if err != nil || fresh == nil {
		c.JSON(http.StatusOK, updated)
		return
	}
	c.JSON(http.StatusOK, fresh)
}

func (r records[T, PT]) remove(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	deleted, err := r.repo.Delete(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if !deleted {
		notFound(c, "record not found")
		return
	}
	c.Status(http.StatusNoContent)
}

func (r records[T, PT]) move(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req models.MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body: "+err.Error())
		return
	}
	if strings.TrimSpace(string(req.Section)) == "" {
		respondError(c, database.ErrEmptySection)
		return
	}

	moved, err := r.repo.MoveSection(c.Request.Context(), id, req.Section)
	if err != nil {
		respondError(c, err)
		return
	}
	if !moved {
		notFound(c, "record not found")
		return
	}
	rec, err := r.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "id must be a positive integer")
		return 0, false
	}
	return id, true
}

// bindRecord decodes and validates the request body.
func bindRecord[T any, PT database.Recorder[T]](c *gin.Context) (PT, bool) {
	rec := PT(new(T))
	if err := c.ShouldBindJSON(rec); err != nil {
		badRequest(c, "invalid body: "+err.Error())
		return nil, false
	}
	if err := validation.Struct(rec); err != nil {
		respondError(c, err)
		return nil, false
	}
	return rec, true
}
