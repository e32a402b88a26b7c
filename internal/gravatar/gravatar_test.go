package gravatar

import (
	"testing"

	"github.com/mediashelf/mediashelf/internal/config"
	"github.com/stretchr/testify/assert"
)

const exampleHash = "973dfe463ec85785f5f95af5ba3906eedb2d931c24e69824a89ea65dba4e813b"

func TestURL(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		config   *config.GravatarConfig
		expected string
	}{
		{
			name:     "disabled",
			email:    "test@example.com",
			config:   &config.GravatarConfig{Enabled: false},
			expected: "",
		},
		{
			name:     "nil config",
			email:    "test@example.com",
			expected: "",
		},
		{
			name:     "blank email",
			email:    "   ",
			config:   &config.GravatarConfig{Enabled: true},
			expected: "",
		},
		{
			name:     "no options",
			email:    "test@example.com",
			config:   &config.GravatarConfig{Enabled: true},
			expected: avatarBase + exampleHash,
		},
		{
			name:  "all options and normalization",
			email: "  TEST@EXAMPLE.COM ",
			config: &config.GravatarConfig{
				Enabled:      true,
				DefaultImage: "identicon",
				Rating:       "pg",
				Size:         120,
			},
			expected: avatarBase + exampleHash + "?d=identicon&r=pg&s=120",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, URL(tt.email, tt.config))
		})
	}
}

func TestPicture(t *testing.T) {
	cfg := &config.GravatarConfig{Enabled: true, DefaultImage: "mp"}

	assert.Equal(t, "https://lh3.googleusercontent.com/a/me.jpg",
		Picture("https://lh3.googleusercontent.com/a/me.jpg", "test@example.com", cfg))
	assert.Equal(t, avatarBase+exampleHash+"?d=mp", Picture("", "test@example.com", cfg))
	assert.Empty(t, Picture("", "test@example.com", nil))
}
