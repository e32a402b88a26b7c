// Package models holds the request and response bodies of the loopback API.
package models

import (
	"time"

	"github.com/mediashelf/mediashelf/internal/auth"
	"github.com/mediashelf/mediashelf/internal/database"
	"github.com/mediashelf/mediashelf/internal/metadata"
	"github.com/mediashelf/mediashelf/internal/sync"
	"github.com/mediashelf/mediashelf/internal/validation"
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeBadRequest    = "bad_request"
	CodeValidation    = "validation_failed"
	CodeNotFound      = "not_found"
	CodeNoData        = "no_data"
	CodeUnavailable   = "service_unavailable"
	CodeMissingAPIKey = "missing_api_key"
	CodeConflict      = "remote_changed"
	CodeOffline       = "offline"
	CodeInternal      = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error  string                  `json:"error"`
	Code   string                  `json:"code"`
	Fields []validation.FieldError `json:"fields,omitempty"`
}

// MoveRequest moves a record to another section.
type MoveRequest struct {
	Section database.Section `json:"section"`
}

// CountResponse is the number of records of a kind in a section.
type CountResponse struct {
	Kind    database.Kind    `json:"kind"`
	Section database.Section `json:"section"`
	Count   int64            `json:"count"`
}

// SearchResponse lists provider search candidates.
type SearchResponse struct {
	Kind    database.Kind           `json:"kind"`
	Query   string                  `json:"query"`
	Results []metadata.SearchResult `json:"results"`
}

// SessionResponse describes the signed-in account and the sync state.
type SessionResponse struct {
	SignedIn bool          `json:"signed_in"`
	Profile  *auth.Profile `json:"profile,omitempty"`
	Online   bool          `json:"online"`
	Outcome  sync.Outcome  `json:"reconcile_outcome,omitempty"`
	Conflict bool          `json:"conflict"`
}

// UploadResponse reports a finished upload.
type UploadResponse struct {
	Remote     *sync.RemoteFile `json:"remote"`
	UploadedAt time.Time        `json:"uploaded_at"`
}
