package sync

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"time"
)

// Status summarizes the local file, the last sync and the remote copy.
type Status struct {
	LocalExists   bool
	LocalSize     int64
	LocalModified time.Time
	State         State
	Remote        *RemoteFile
	// RemoteChanged is set when the remote copy changed since the last sync.
	RemoteChanged bool
}

// Status reports the sync status of the database at dbPath.
func (u *Uploader) Status(ctx context.Context, dbPath string) (*Status, error) {
	s := &Status{}
	if info, err := os.Stat(dbPath); err == nil {
		s.LocalExists = true
		s.LocalSize = info.Size()
		s.LocalModified = info.ModTime()
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	st, err := LoadState(u.cfg.StateFile)
	if err != nil {
		return nil, err
	}
	s.State = st

	rf, err := u.remote.Find(ctx, u.cfg.RemoteName)
	if err != nil {
		return s, err
	}
	s.Remote = rf
	s.RemoteChanged = st.Stale(rf)
	return s, nil
}
