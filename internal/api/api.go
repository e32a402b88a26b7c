// Package api serves the loopback JSON API used by the desktop frontend.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/mediashelf/mediashelf/internal/api/handler"
	"github.com/mediashelf/mediashelf/internal/config"
	"github.com/mediashelf/mediashelf/internal/engine"
)

// Server is the HTTP server of the loopback API.
type Server struct {
	cfg       *config.Config
	ginEngine *gin.Engine
	engine    *engine.Engine
	http      *http.Server
}

// New builds the router. The engine must be started before calling New.
func New(cfg *config.Config, e *engine.Engine, debug bool) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:       cfg,
		ginEngine: gin.New(),
		engine:    e,
	}
	s.ginEngine.Use(gin.Recovery(), requestLogger())
	s.ginEngine.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/api/images"})))

	if err := s.setupRoutes(); err != nil {
		return nil, err
	}

	s.http = &http.Server{
		Addr:         cfg.Listen,
		Handler:      s.ginEngine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

func (s *Server) setupRoutes() error {
	h, err := handler.New(s.engine)
	if err != nil {
		return fmt.Errorf("failed to create handler: %w", err)
	}

	s.ginEngine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.ginEngine.Group("/api")
	api.GET("/session", h.Session)

	records := api.Group("/records/:kind")
	records.GET("", h.Record(handler.ListRecords))
	records.POST("", h.Record(handler.CreateRecord))
	records.GET("/count", h.Record(handler.CountRecords))
	records.GET("/random", h.Record(handler.RandomRecord))
	records.GET("/:id", h.Record(handler.GetRecord))
	records.PUT("/:id", h.Record(handler.UpdateRecord))
	records.DELETE("/:id", h.Record(handler.DeleteRecord))
	records.POST("/:id/move", h.Record(handler.MoveRecord))

	api.GET("/search/:kind", h.Search)
	api.GET("/fetch/:kind/:id", h.Fetch)
	api.GET("/images/cache", h.ImageCache)

	api.POST("/sync/upload", h.Upload)

	admin := api.Group("/admin")
	admin.GET("/jobs", h.Jobs)
	admin.POST("/jobs/:id/run", h.RunJob)
	admin.GET("/cache/stats", h.CacheStats)
	admin.DELETE("/cache", h.ClearCache)

	return nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.ginEngine
}

// Run listens on the configured address until Shutdown is called.
func (s *Server) Run() error {
	log.Info("API listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func requestLogger() gin.HandlerFunc {
	logger := log.Default().WithPrefix("api")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
