package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/mediashelf/mediashelf/internal/api/models"
	"github.com/mediashelf/mediashelf/internal/database"
	"github.com/mediashelf/mediashelf/internal/engine"
	"github.com/mediashelf/mediashelf/internal/metadata"
	"github.com/mediashelf/mediashelf/internal/sync"
	"github.com/mediashelf/mediashelf/internal/validation"
)

// respondError maps an error to its status code and writes the error body.
func respondError(c *gin.Context, err error) {
	var verrs validation.Errors
	status, code := http.StatusInternalServerError, models.CodeInternal

	switch {
	case errors.As(err, &verrs):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:  verrs.Error(),
			Code:   models.CodeValidation,
			Fields: verrs,
		})
		return
	case errors.Is(err, database.ErrMissingID),
		errors.Is(err, database.ErrEmptySection),
		errors.Is(err, database.ErrInvalidSortColumn),
		errors.Is(err, database.ErrUnknownKind),
		errors.Is(err, metadata.ErrNoProvider):
		status, code = http.StatusBadRequest, models.CodeBadRequest
	// a provider failure outranks "no data" from the fallback provider
	case errors.Is(err, metadata.ErrUnavailable):
		status, code = http.StatusBadGateway, models.CodeUnavailable
	case errors.Is(err, metadata.ErrMissingAPIKey):
		status, code = http.StatusServiceUnavailable, models.CodeMissingAPIKey
	case errors.Is(err, database.ErrNotFound):
		status, code = http.StatusNotFound, models.CodeNotFound
	case errors.Is(err, metadata.ErrNoData):
		status, code = http.StatusNotFound, models.CodeNoData
	case errors.Is(err, sync.ErrRemoteChanged):
		status, code = http.StatusConflict, models.CodeConflict
	case errors.Is(err, engine.ErrOffline):
		status, code = http.StatusConflict, models.CodeOffline
	case errors.Is(err, context.Canceled):
		// the client went away
		c.Abort()
		return
	default:
		log.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
	}

	c.JSON(status, models.ErrorResponse{Error: err.Error(), Code: code})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: msg, Code: models.CodeBadRequest})
}

func notFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, models.ErrorResponse{Error: msg, Code: models.CodeNotFound})
}
