package cache

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/eko/gocache/lib/v4/codec"
	"github.com/goccy/go-json"
	"github.com/mediashelf/mediashelf/internal/config"
)

// Cache key prefixes.
const (
	TMDBCachePrefix = "tmdb-"
	OMDbCachePrefix = "omdb-"
	MALCachePrefix  = "mal-"
	RAWGCachePrefix = "rawg-"
)

// ResponseCache stores raw provider response bodies keyed by request URL.
type ResponseCache = PrefixedCache[json.RawMessage]

// MetadataCache holds one response cache per metadata provider.
type MetadataCache struct {
	TMDB *ResponseCache
	OMDb *ResponseCache
	MAL  *ResponseCache
	RAWG *ResponseCache
}

func NewMetadataCache(cfg *config.CacheConfig) *MetadataCache {
	newCache := func(prefix string) *ResponseCache {
		return NewPrefixedCache[json.RawMessage](newCacheInstanceByType(cfg), cfg.Type, prefix, cfg.TTL)
	}
	return &MetadataCache{
		TMDB: newCache(TMDBCachePrefix),
		OMDb: newCache(OMDbCachePrefix),
		MAL:  newCache(MALCachePrefix),
		RAWG: newCache(RAWGCachePrefix),
	}
}

func (m *MetadataCache) ClearAll(ctx context.Context) {
	errs := []error{
		m.TMDB.Clear(ctx),
		m.OMDb.Clear(ctx),
		m.MAL.Clear(ctx),
		m.RAWG.Clear(ctx),
	}
	for _, err := range errs {
		if err != nil {
			log.Errorf("failed to clear cache: %v", err)
		}
	}
}

type Stats struct {
	*codec.Stats
	CacheName string `json:"cacheName"`
}

func (m *MetadataCache) GetStats() []*Stats {
	return []*Stats{
		{Stats: m.TMDB.GetStats(), CacheName: "tmdb"},
		{Stats: m.OMDb.GetStats(), CacheName: "omdb"},
		{Stats: m.MAL.GetStats(), CacheName: "mal"},
		{Stats: m.RAWG.GetStats(), CacheName: "rawg"},
	}
}
