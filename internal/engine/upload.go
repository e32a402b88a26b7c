package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mediashelf/mediashelf/internal/sync"
)

// UploadNow uploads a consistent snapshot of the open database.
func (e *Engine) UploadNow(ctx context.Context, force bool) (*sync.RemoteFile, error) {
	if !e.online {
		return nil, ErrOffline
	}
	if e.db == nil {
		return nil, fmt.Errorf("database is not open")
	}

	e.uploadMu.Lock()
	defer e.uploadMu.Unlock()

	snapshot := filepath.Join(filepath.Dir(e.cfg.Database.Path),
		fmt.Sprintf(".snapshot-%d.db", time.Now().UnixNano()))
	defer os.Remove(snapshot) //nolint:errcheck

	if err := e.db.Snapshot(ctx, snapshot); err != nil {
		return nil, err
	}
	return e.uploader.Upload(ctx, snapshot, force)
}

// SyncStatus reports the state of the local and remote database copies.
func (e *Engine) SyncStatus(ctx context.Context) (*sync.Status, error) {
	if !e.online {
		return nil, ErrOffline
	}
	return e.uploader.Status(ctx, e.cfg.Database.Path)
}
