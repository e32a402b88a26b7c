package config

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type CacheType string

const (
	CacheTypeMemory CacheType = "memory"
	CacheTypeRedis  CacheType = "redis"
)

// Config holds the configuration for mediashelf and its dependencies.
type Config struct {
	// LogLevel is the default log level. The --log-level flag takes precedence.
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
	// Listen is the address the loopback API listens on.
	Listen string `yaml:"listen" mapstructure:"listen"`
	// DataDir is the directory holding the database, token, session and image cache.
	DataDir string `yaml:"data_dir" mapstructure:"data_dir"`
	// Database holds the database configuration.
	Database *DatabaseConfig `yaml:"database" mapstructure:"database"`
	// Auth holds the account configuration.
	Auth *AuthConfig `yaml:"auth" mapstructure:"auth"`
	// Sync holds the cloud sync configuration.
	Sync *SyncConfig `yaml:"sync" mapstructure:"sync"`
	// Metadata holds the metadata provider configuration.
	Metadata *MetadataConfig `yaml:"metadata" mapstructure:"metadata"`
	// Cache holds the metadata response cache configuration.
	Cache *CacheConfig `yaml:"cache" mapstructure:"cache"`
	// Images holds the poster cache configuration.
	Images *ImagesConfig `yaml:"images" mapstructure:"images"`
	// Ratings holds the periodic ratings refresh configuration.
	Ratings *RatingsConfig `yaml:"ratings" mapstructure:"ratings"`
	// Gravatar holds the configuration for Gravatar profile pictures.
	Gravatar *GravatarConfig `yaml:"gravatar" mapstructure:"gravatar"`
}

// DatabaseConfig holds the database configuration.
type DatabaseConfig struct {
	// Path is the path to the SQLite database file.
	Path string `yaml:"path" mapstructure:"path"`
}

// AuthConfig holds the account configuration.
type AuthConfig struct {
	// Google holds the Google sign-in configuration.
	Google *GoogleConfig `yaml:"google" mapstructure:"google"`
}

// GoogleConfig holds the Google OAuth client configuration.
type GoogleConfig struct {
	// Enabled indicates whether Google sign-in is enabled.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// CredentialsFile is the OAuth client JSON downloaded from the Google console.
	// It takes precedence over ClientID and ClientSecret.
	CredentialsFile string `yaml:"credentials_file" mapstructure:"credentials_file"`
	// ClientID is the OAuth client ID.
	ClientID string `yaml:"client_id" mapstructure:"client_id"`
	// ClientSecret is the OAuth client secret.
	ClientSecret string `yaml:"client_secret" mapstructure:"client_secret"`
	// TokenFile is where the OAuth token is cached between runs.
	TokenFile string `yaml:"token_file" mapstructure:"token_file"`
	// SessionFile is where the signed-in profile is stored.
	SessionFile string `yaml:"session_file" mapstructure:"session_file"`
	// CallbackAddr is the loopback address of the OAuth redirect listener.
	// Port 0 picks a free port.
	CallbackAddr string `yaml:"callback_addr" mapstructure:"callback_addr"`
	// UsePKCE enables PKCE (Proof Key for Code Exchange) for the OAuth 2.0 flow.
	UsePKCE bool `yaml:"use_pkce" mapstructure:"use_pkce"`
}

// SyncConfig holds the cloud sync configuration.
type SyncConfig struct {
	// Enabled indicates whether the database is synced with Google Drive.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// RemoteName is the file name of the database copy in the app data folder.
	RemoteName string `yaml:"remote_name" mapstructure:"remote_name"`
	// UploadOnExit uploads the database when the server shuts down cleanly.
	UploadOnExit bool `yaml:"upload_on_exit" mapstructure:"upload_on_exit"`
	// UploadSchedule is the cron schedule for periodic uploads. Empty disables it.
	UploadSchedule string `yaml:"upload_schedule" mapstructure:"upload_schedule"`
	// StateFile records what was last synced.
	StateFile string `yaml:"state_file" mapstructure:"state_file"`
	// ForceUpload overwrites the remote copy even if it changed since the last sync.
	ForceUpload bool `yaml:"force_upload" mapstructure:"force_upload"`
}

// MetadataConfig holds the metadata provider configuration.
type MetadataConfig struct {
	// RequestTimeout bounds every provider request.
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
	// RateLimit is the number of requests per second allowed per provider.
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	// RateBurst is the burst size of the per provider rate limiter.
	RateBurst int `yaml:"rate_burst" mapstructure:"rate_burst"`
	// BreakerFailures is the number of consecutive failures that opens a provider's circuit.
	BreakerFailures uint32 `yaml:"breaker_failures" mapstructure:"breaker_failures"`
	// BreakerTimeout is how long an open circuit stays open.
	BreakerTimeout time.Duration `yaml:"breaker_timeout" mapstructure:"breaker_timeout"`

	TMDB *TMDBConfig `yaml:"tmdb" mapstructure:"tmdb"`
	OMDb *OMDbConfig `yaml:"omdb" mapstructure:"omdb"`
	MAL  *MALConfig  `yaml:"mal" mapstructure:"mal"`
	RAWG *RAWGConfig `yaml:"rawg" mapstructure:"rawg"`
}

// TMDBConfig holds the configuration for The Movie Database.
type TMDBConfig struct {
	APIKey   string `yaml:"api_key" mapstructure:"api_key"`
	URL      string `yaml:"url" mapstructure:"url"`
	ImageURL string `yaml:"image_url" mapstructure:"image_url"`
}

// OMDbConfig holds the configuration for the Open Movie Database.
type OMDbConfig struct {
	APIKey string `yaml:"api_key" mapstructure:"api_key"`
	URL    string `yaml:"url" mapstructure:"url"`
}

// MALConfig holds the configuration for the MyAnimeList API.
type MALConfig struct {
	ClientID string `yaml:"client_id" mapstructure:"client_id"`
	URL      string `yaml:"url" mapstructure:"url"`
}

// RAWGConfig holds the configuration for the RAWG video game database.
type RAWGConfig struct {
	APIKey string `yaml:"api_key" mapstructure:"api_key"`
	URL    string `yaml:"url" mapstructure:"url"`
}

// CacheConfig holds the cache configuration.
type CacheConfig struct {
	// Type is the type of cache engine to use (e.g., "memory", "redis").
	Type CacheType `yaml:"type" mapstructure:"type"`
	// RedisURL is the URL for the Redis cache if using Redis.
	RedisURL string `yaml:"redis_url" mapstructure:"redis_url"`
	// TTL is how long provider responses are kept.
	TTL time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// ImagesConfig holds the poster cache configuration.
type ImagesConfig struct {
	CacheDir  string `yaml:"cache_dir" mapstructure:"cache_dir"`
	MaxWidth  int    `yaml:"max_width" mapstructure:"max_width"`
	MaxHeight int    `yaml:"max_height" mapstructure:"max_height"`
	// Quality is the JPEG quality of cached posters (1-100).
	Quality int `yaml:"quality" mapstructure:"quality"`
	// MaxAge is how long a cached poster is kept before the prune job removes it.
	MaxAge time.Duration `yaml:"max_age" mapstructure:"max_age"`
}

// RatingsConfig holds the periodic ratings refresh configuration.
type RatingsConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Schedule is the cron schedule of the refresh job.
	Schedule string `yaml:"schedule" mapstructure:"schedule"`
	// MaxAge is the age after which ratings are fetched again.
	MaxAge time.Duration `yaml:"max_age" mapstructure:"max_age"`
	// Concurrency bounds the number of parallel provider requests.
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// GravatarConfig holds the configuration for Gravatar profile pictures.
type GravatarConfig struct {
	// Enabled indicates whether Gravatar support is enabled.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// DefaultImage is the default image to use when no Gravatar is found.
	// Valid values: "404", "mp", "identicon", "monsterid", "wavatar", "retro", "robohash", "blank"
	DefaultImage string `yaml:"default_image" mapstructure:"default_image"`
	// Rating is the maximum rating for Gravatar images.
	// Valid values: "g", "pg", "r", "x"
	Rating string `yaml:"rating" mapstructure:"rating"`
	// Size is the size of the Gravatar image in pixels (1-2048).
	Size int `yaml:"size" mapstructure:"size"`
}

// Load reads the configuration from the specified path and returns a Config struct.
// If path is empty, it will use default search paths for config files.
// A missing config file is not an error; defaults are used instead.
func Load(path string) (*Config, error) {
	loadDotEnv()

	v := viper.New()

	// provider keys are also accepted under their common names
	bindNestedEnv(v)

	setDefaults(v)

	v.SetConfigType("yaml")
	v.SetEnvPrefix("MEDIASHELF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.mediashelf")
		v.AddConfigPath("/etc/mediashelf")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		log.Debug("Using config file", "file", v.ConfigFileUsed())
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	sanitizeConfig(&c)

	if err := validateConfig(&c); err != nil {
		return nil, err
	}

	return &c, nil
}

// loadDotEnv loads an optional .env file from the working directory.
// Variables already present in the environment are not overwritten.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn("failed to load .env file", "error", err)
	}
}

// setDefaults sets default values for the configuration.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("listen", "127.0.0.1:3003")
	v.SetDefault("data_dir", "./data")

	v.SetDefault("database.path", "./data/movies.db")

	v.SetDefault("auth.google.enabled", false)
	v.SetDefault("auth.google.credentials_file", "")
	v.SetDefault("auth.google.client_id", "")
	v.SetDefault("auth.google.client_secret", "")
	v.SetDefault("auth.google.token_file", "./data/token.json")
	v.SetDefault("auth.google.session_file", "./data/session.json")
	v.SetDefault("auth.google.callback_addr", "127.0.0.1:0")
	v.SetDefault("auth.google.use_pkce", true)

	v.SetDefault("sync.enabled", false)
	v.SetDefault("sync.remote_name", "movies.db")
	v.SetDefault("sync.upload_on_exit", true)
	v.SetDefault("sync.upload_schedule", "0 */6 * * *") // Every 6 hours
	v.SetDefault("sync.state_file", "./data/sync_state.json")
	v.SetDefault("sync.force_upload", false)

	v.SetDefault("metadata.request_timeout", 15*time.Second)
	v.SetDefault("metadata.rate_limit", 4.0)
	v.SetDefault("metadata.rate_burst", 4)
	v.SetDefault("metadata.breaker_failures", 5)
	v.SetDefault("metadata.breaker_timeout", 60*time.Second)
	v.SetDefault("metadata.tmdb.url", "https://api.themoviedb.org/3")
	v.SetDefault("metadata.tmdb.image_url", "https://image.tmdb.org/t/p/w500")
	v.SetDefault("metadata.omdb.url", "https://www.omdbapi.com")
	v.SetDefault("metadata.mal.url", "https://api.myanimelist.net/v2")
	v.SetDefault("metadata.rawg.url", "https://api.rawg.io/api")

	v.SetDefault("cache.type", CacheTypeMemory)
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.ttl", 6*time.Hour)

	v.SetDefault("images.cache_dir", "./data/images")
	v.SetDefault("images.max_width", 340)
	v.SetDefault("images.max_height", 500)
	v.SetDefault("images.quality", 85)
	v.SetDefault("images.max_age", 30*24*time.Hour)

	v.SetDefault("ratings.enabled", true)
	v.SetDefault("ratings.schedule", "0 4 * * 0") // Sundays at 04:00
	v.SetDefault("ratings.max_age", 7*24*time.Hour)
	v.SetDefault("ratings.concurrency", 4)

	v.SetDefault("gravatar.enabled", false)
	v.SetDefault("gravatar.default_image", "robohash")
	v.SetDefault("gravatar.rating", "g")
	v.SetDefault("gravatar.size", 80)
}

// bindNestedEnv binds the provider credentials to both the prefixed variable
// and the plain name used in .env files.
func bindNestedEnv(v *viper.Viper) {
	v.MustBindEnv("metadata.tmdb.api_key", "MEDIASHELF_METADATA_TMDB_API_KEY", "TMDB_API_KEY")
	v.MustBindEnv("metadata.omdb.api_key", "MEDIASHELF_METADATA_OMDB_API_KEY", "OMDB_API_KEY")
	v.MustBindEnv("metadata.mal.client_id", "MEDIASHELF_METADATA_MAL_CLIENT_ID", "MAL_CLIENT_ID")
	v.MustBindEnv("metadata.rawg.api_key", "MEDIASHELF_METADATA_RAWG_API_KEY", "RAWG_API_KEY")
	v.MustBindEnv("auth.google.client_id", "MEDIASHELF_AUTH_GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_ID")
	v.MustBindEnv("auth.google.client_secret", "MEDIASHELF_AUTH_GOOGLE_CLIENT_SECRET", "GOOGLE_CLIENT_SECRET")
}

var (
	validDefaultImages = []string{"404", "mp", "identicon", "monsterid", "wavatar", "retro", "robohash", "blank"}
	validRatings       = []string{"g", "pg", "r", "x"}
)

// validateConfig validates the configuration.
func validateConfig(c *Config) error {
	if c == nil {
		return fmt.Errorf("missing mediashelf config")
	}

	if c.Database == nil || c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}

	if c.Auth != nil && c.Auth.Google != nil && c.Auth.Google.Enabled {
		g := c.Auth.Google
		if g.CredentialsFile == "" && (g.ClientID == "" || g.ClientSecret == "") {
			return fmt.Errorf("google sign-in requires either a credentials file or a client ID and secret")
		}
		if g.TokenFile == "" {
			return fmt.Errorf("google token file is required when google sign-in is enabled")
		}
	}

	if c.Sync != nil && c.Sync.Enabled {
		if c.Auth == nil || c.Auth.Google == nil || !c.Auth.Google.Enabled {
			return fmt.Errorf("sync requires google sign-in to be enabled")
		}
		if c.Sync.RemoteName == "" {
			return fmt.Errorf("sync remote name is required")
		}
	}

	if c.Metadata != nil {
		if c.Metadata.RateLimit <= 0 {
			return fmt.Errorf("metadata rate limit must be positive")
		}
		if c.Metadata.BreakerFailures == 0 {
			return fmt.Errorf("metadata breaker failures must be at least 1")
		}
	}

	if c.Cache != nil {
		switch c.Cache.Type {
		case CacheTypeMemory:
		case CacheTypeRedis:
			if c.Cache.RedisURL == "" {
				return fmt.Errorf("redis URL is required when cache type is redis")
			}
		default:
			return fmt.Errorf("invalid cache type %q", c.Cache.Type)
		}
	}

	if c.Images != nil && (c.Images.Quality < 1 || c.Images.Quality > 100) {
		return fmt.Errorf("image quality must be between 1 and 100")
	}

	if c.Ratings != nil && c.Ratings.Enabled {
		if c.Ratings.Schedule == "" {
			return fmt.Errorf("ratings schedule is required when the ratings refresh is enabled")
		}
		if c.Ratings.Concurrency < 1 {
			return fmt.Errorf("ratings concurrency must be at least 1")
		}
	}

	if c.Gravatar != nil && c.Gravatar.Enabled {
		if !slices.Contains(validDefaultImages, c.Gravatar.DefaultImage) {
			return fmt.Errorf("invalid gravatar default image %q", c.Gravatar.DefaultImage)
		}
		if !slices.Contains(validRatings, c.Gravatar.Rating) {
			return fmt.Errorf("invalid gravatar rating %q", c.Gravatar.Rating)
		}
		if c.Gravatar.Size < 1 || c.Gravatar.Size > 2048 {
			return fmt.Errorf("gravatar size must be between 1 and 2048")
		}
	}

	return nil
}

// sanitizeConfig sanitizes the configuration values.
func sanitizeConfig(c *Config) {
	if c == nil {
		return
	}

	c.Listen = strings.TrimSpace(c.Listen)

	if m := c.Metadata; m != nil {
		if m.TMDB != nil {
			m.TMDB.URL = urlSanitize(m.TMDB.URL)
			m.TMDB.ImageURL = urlSanitize(m.TMDB.ImageURL)
		}
		if m.OMDb != nil {
			m.OMDb.URL = urlSanitize(m.OMDb.URL)
		}
		if m.MAL != nil {
			m.MAL.URL = urlSanitize(m.MAL.URL)
		}
		if m.RAWG != nil {
			m.RAWG.URL = urlSanitize(m.RAWG.URL)
		}
	}

	if c.Cache != nil {
		c.Cache.Type = CacheType(strings.ToLower(string(c.Cache.Type)))
	}
}

func urlSanitize(url string) string {
	return strings.TrimSuffix(strings.TrimSpace(url), "/")
}
