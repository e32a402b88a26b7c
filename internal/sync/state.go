package sync

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/natefinch/atomic"
)

// State records the remote copy as of our last download or upload.
type State struct {
	RemoteID       string    `json:"remote_id"`
	RemoteModified time.Time `json:"remote_modified"`
	SyncedAt       time.Time `json:"synced_at"`
}

// Stale reports whether remote differs from the copy we last synced with.
// A remote we never synced with counts as changed.
func (s State) Stale(remote *RemoteFile) bool {
	if remote == nil {
		return false
	}
	return s.RemoteID != remote.ID || remote.ModifiedTime.After(s.RemoteModified)
}

// LoadState reads the state file. A missing file yields the zero State.
func LoadState(path string) (State, error) {
	var st State
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return st, nil
		}
		return st, fmt.Errorf("failed to read sync state: %w", err)
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return st, fmt.Errorf("failed to decode sync state: %w", err)
	}
	return st, nil
}

// SaveState replaces the state file.
func SaveState(path string, st State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode sync state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create sync state directory: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write sync state: %w", err)
	}
	return nil
}
