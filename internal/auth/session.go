package auth

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/goccy/go-json"
)

// Profile is the signed-in account as stored in the session file.
type Profile struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	ProfilePic string `json:"profile_pic"`
}

// SessionStore keeps the profile of the last signed-in user.
type SessionStore struct {
	path string
}

// NewSessionStore returns a store backed by the file at path.
func NewSessionStore(path string) *SessionStore {
	return &SessionStore{path: path}
}

// Load returns the stored profile, or nil if nobody signed in yet.
func (s *SessionStore) Load() (*Profile, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode session file: %w", err)
	}
	return &p, nil
}

// Save rewrites the session file with p.
func (s *SessionStore) Save(p *Profile) error {
	if p == nil {
		return errors.New("cannot store a nil profile")
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	return writePrivate(s.path, data)
}

// Clear removes the session file.
func (s *SessionStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}
