package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/codec"
	"github.com/eko/gocache/lib/v4/store"
	go_store "github.com/eko/gocache/store/go_cache/v4"
	redis_store "github.com/eko/gocache/store/redis/v4"
	"github.com/goccy/go-json"
	"github.com/mediashelf/mediashelf/internal/config"
	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// PrefixedCache wraps a cache.Cache and adds a prefix to all keys.
// Values are stored JSON encoded so memory and redis stores behave the same.
type PrefixedCache[T any] struct {
	cache     *cache.Cache[any]
	cacheType config.CacheType
	prefix    string
	ttl       time.Duration
}

// NewPrefixedCache creates a new prefixed cache wrapper.
// A ttl of zero keeps entries until they are deleted.
func NewPrefixedCache[T any](c *cache.Cache[any], cacheType config.CacheType, prefix string, ttl time.Duration) *PrefixedCache[T] {
	return &PrefixedCache[T]{
		cache:     c,
		cacheType: cacheType,
		prefix:    prefix,
		ttl:       ttl,
	}
}

func (p *PrefixedCache[T]) key(key any) string {
	return p.prefix + fmt.Sprintf("%v", key)
}

// Get retrieves a value from the cache with the prefixed key.
func (p *PrefixedCache[T]) Get(ctx context.Context, key any) (T, error) {
	var result T
	raw, err := p.cache.Get(ctx, p.key(key))
	if err != nil {
		return result, err
	}

	var data []byte
	switch v := raw.(type) {
	case []byte:
		data = v
	case string: // redis returns strings
		data = []byte(v)
	default:
		return result, fmt.Errorf("unexpected cache value type %T", raw)
	}

	if err := json.Unmarshal(data, &result); err != nil {
		return result, err
	}
	return result, nil
}

// Set stores a value in the cache with the prefixed key.
func (p *PrefixedCache[T]) Set(ctx context.Context, key any, object T, options ...store.Option) error {
	data, err := json.Marshal(object)
	if err != nil {
		return err
	}
	if p.ttl > 0 {
		options = append([]store.Option{store.WithExpiration(p.ttl)}, options...)
	}
	return p.cache.Set(ctx, p.key(key), data, options...)
}

// Delete removes a value from the cache with the prefixed key.
func (p *PrefixedCache[T]) Delete(ctx context.Context, key any) error {
	return p.cache.Delete(ctx, p.key(key))
}

// Clear removes all values from the cache.
func (p *PrefixedCache[T]) Clear(ctx context.Context) error {
	return p.cache.Clear(ctx)
}

// GetType returns the cache type.
func (p *PrefixedCache[T]) GetType() config.CacheType {
	return p.cacheType
}

// GetStats returns the cache statistics.
func (p *PrefixedCache[T]) GetStats() *codec.Stats {
	return p.cache.GetCodec().GetStats()
}

func newCacheInstanceByType(cfg *config.CacheConfig) *cache.Cache[any] {
	switch cfg.Type {
	case config.CacheTypeRedis:
		return newRedisCache[any](cfg)
	default:
		return newMemoryCache[any]()
	}
}

func newMemoryCache[T any]() *cache.Cache[T] {
	// per entry expiration is passed on Set
	gocacheClient := gocache.New(gocache.NoExpiration, 10*time.Minute)
	gocacheStore := go_store.NewGoCache(gocacheClient)
	return cache.New[T](gocacheStore)
}

func newRedisCache[T any](cfg *config.CacheConfig) *cache.Cache[T] {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		// plain host:port
		opts = &redis.Options{Addr: cfg.RedisURL}
	}
	redisStore := redis_store.NewRedis(redis.NewClient(opts))
	return cache.New[T](redisStore)
}
