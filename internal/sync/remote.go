// Package sync replicates the database file to the user's cloud drive.
//
// Replication is whole-file and asymmetric: a local file is authoritative,
// the remote copy is only downloaded when no local file exists.
package sync

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrRemoteChanged is returned by Upload when the remote copy changed since our last sync.
var ErrRemoteChanged = errors.New("remote database changed since the last sync")

// RemoteFile describes the database copy in the cloud.
type RemoteFile struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	ModifiedTime time.Time `json:"modified_time"`
	Size         int64     `json:"size"`
}

// Remote is a cloud store holding named files.
type Remote interface {
	// Find returns the untrashed file called name, or nil if there is none.
	Find(ctx context.Context, name string) (*RemoteFile, error)
	// Download streams the content of the file with the given id.
	Download(ctx context.Context, id string) (io.ReadCloser, error)
	// Upload creates the file, or replaces the content of file id when id is set.
	Upload(ctx context.Context, name, id string, content io.Reader) (*RemoteFile, error)
}
