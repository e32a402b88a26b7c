package sync

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mediashelf/mediashelf/internal/config"
)

// Uploader replaces the remote copy with a local database file.
type Uploader struct {
	remote Remote
	cfg    *config.SyncConfig
}

// NewUploader creates an uploader.
func NewUploader(remote Remote, cfg *config.SyncConfig) *Uploader {
	return &Uploader{remote: remote, cfg: cfg}
}

// Upload sends the file at path as a whole, creating or overwriting the remote copy.
// It refuses with ErrRemoteChanged when the remote copy changed since the last sync,
// unless force or sync.force_upload is set.
func (u *Uploader) Upload(ctx context.Context, path string, force bool) (*RemoteFile, error) {
	st, err := LoadState(u.cfg.StateFile)
	if err != nil {
		return nil, err
	}

	existing, err := u.remote.Find(ctx, u.cfg.RemoteName)
	if err != nil {
		return nil, err
	}
	if st.Stale(existing) && !force && !u.cfg.ForceUpload {
		log.Warn("Refusing to overwrite a remote database that changed since the last sync",
			"remote_modified", existing.ModifiedTime, "last_sync", st.SyncedAt)
		return nil, ErrRemoteChanged
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database for upload: %w", err)
	}
	defer f.Close()

	var id string
	if existing != nil {
		id = existing.ID
	}
	uploaded, err := u.remote.Upload(ctx, u.cfg.RemoteName, id, f)
	if err != nil {
		return nil, err
	}

	st = State{RemoteID: uploaded.ID, RemoteModified: uploaded.ModifiedTime, SyncedAt: time.Now()}
	if err := SaveState(u.cfg.StateFile, st); err != nil {
		return uploaded, err
	}
	log.Info("Uploaded database", "remote_id", uploaded.ID, "size", uploaded.Size)
	return uploaded, nil
}
