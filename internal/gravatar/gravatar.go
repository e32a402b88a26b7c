// Package gravatar provides a profile picture for accounts that have none.
package gravatar

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strconv"
	"strings"

	"github.com/mediashelf/mediashelf/internal/config"
)

const avatarBase = "https://www.gravatar.com/avatar/"

// URL returns the Gravatar image URL for email.
// It is empty when Gravatar is disabled or email is empty.
func URL(email string, cfg *config.GravatarConfig) string {
	email = strings.ToLower(strings.TrimSpace(email))
	if cfg == nil || !cfg.Enabled || email == "" {
		return ""
	}

	sum := sha256.Sum256([]byte(email))
	u := url.URL{
		Scheme: "https",
		Host:   "www.gravatar.com",
		Path:   "/avatar/" + hex.EncodeToString(sum[:]),
	}

	q := url.Values{}
	if cfg.DefaultImage != "" {
		q.Set("d", cfg.DefaultImage)
	}
	if cfg.Rating != "" {
		q.Set("r", cfg.Rating)
	}
	if cfg.Size > 0 {
		q.Set("s", strconv.Itoa(cfg.Size))
	}
	u.RawQuery = q.Encode()

	return u.String()
}

// Picture returns picture unless it is empty, in which case the Gravatar of email is used.
func Picture(picture, email string, cfg *config.GravatarConfig) string {
	if picture != "" {
		return picture
	}
	return URL(email, cfg)
}
