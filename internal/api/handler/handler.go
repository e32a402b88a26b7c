package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/mediashelf/mediashelf/internal/api/models"
	"github.com/mediashelf/mediashelf/internal/database"
	"github.com/mediashelf/mediashelf/internal/engine"
	"github.com/mediashelf/mediashelf/internal/scheduler"
)

// Handler serves the loopback API on top of a started engine.
type Handler struct {
	engine *engine.Engine
	kinds  map[database.Kind]recordRoutes
}

// New creates the handler. The engine must have been started.
func New(eng *engine.Engine) (*Handler, error) {
	db := eng.DB()
	if db == nil {
		return nil, errors.New("engine is not started")
	}
	return &Handler{
		engine: eng,
		kinds: map[database.Kind]recordRoutes{
			database.KindMovie:  records[database.Movie, *database.Movie]{repo: db.Movies()},
			database.KindSeries: records[database.Series, *database.Series]{repo: db.Series()},
			database.KindGame:   records[database.Game, *database.Game]{repo: db.Games()},
			database.KindManga:  records[database.Manga, *database.Manga]{repo: db.Manga()},
			database.KindBook:   records[database.Book, *database.Book]{repo: db.Books()},
		},
	}, nil
}

// Session returns the signed-in profile and the outcome of the startup sync.
func (h *Handler) Session(c *gin.Context) {
	p := h.engine.Profile()
	resp := models.SessionResponse{
		SignedIn: p != nil,
		Profile:  p,
		Online:   h.engine.Online(),
	}
	if r := h.engine.Reconciliation(); r != nil {
		resp.Outcome = r.Outcome
		resp.Conflict = r.Conflict
	}
	c.JSON(http.StatusOK, resp)
}

// Upload sends a snapshot of the database to the cloud. ?force=true overwrites a changed remote.
func (h *Handler) Upload(c *gin.Context) {
	force, err := strconv.ParseBool(c.DefaultQuery("force", "false"))
	if err != nil {
		badRequest(c, "force must be a boolean")
		return
	}
	remote, err := h.engine.UploadNow(c.Request.Context(), force)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.UploadResponse{Remote: remote, UploadedAt: time.Now()})
}

// Jobs lists the scheduled jobs.
func (h *Handler) Jobs(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Scheduler().Jobs())
}

// RunJob triggers a job outside its schedule.
func (h *Handler) RunJob(c *gin.Context) {
	id := c.Param("id")
	if err := h.engine.Scheduler().RunNow(id); err != nil {
		if errors.Is(err, scheduler.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Error: err.Error(), Code: models.CodeNotFound})
			return
		}
		respondError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// CacheStats reports hit and miss counters of the provider response caches.
func (h *Handler) CacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.MetadataCache().GetStats())
}

// ClearCache drops all cached provider responses.
func (h *Handler) ClearCache(c *gin.Context) {
	h.engine.MetadataCache().ClearAll(c.Request.Context())
	c.Status(http.StatusNoContent)
}

// ImageCache serves a poster from the local cache, downloading it on first use.
func (h *Handler) ImageCache(c *gin.Context) {
	raw := c.Query("url")
	u, err := url.Parse(raw)
	if raw == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		badRequest(c, "url must be an absolute http(s) URL")
		return
	}

	path, err := h.engine.Images().Path(c.Request.Context(), raw)
	if err != nil {
		log.Warn("failed to cache image", "url", raw, "error", err)
		c.JSON(http.StatusBadGateway, models.ErrorResponse{Error: "failed to fetch image", Code: models.CodeUnavailable})
		return
	}
	c.Header("Cache-Control", "public, max-age=86400")
	c.File(path)
}
