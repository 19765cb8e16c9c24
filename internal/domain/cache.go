package domain

import (
	"context"
	"time"
)

// Cache defines the interface for read caching of policy requests.
// Only lookup paths go through the cache; every save invalidates, and
// transition decisions always re-load persisted state.
type Cache interface {
	// Get retrieves a value from cache.
	// Returns nil, nil if key not found.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in cache with expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache.
	Delete(ctx context.Context, key string) error

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string `env:"HERON_CACHE_TYPE"`

	// Local LRU cache settings
	LocalMaxSize int           `env:"HERON_CACHE_MAX_SIZE"`
	LocalTTL     time.Duration `env:"HERON_CACHE_TTL"`

	// Redis settings
	RedisAddr     string `env:"HERON_REDIS_ADDR"`
	RedisPassword string `env:"HERON_REDIS_PASSWORD"`
	RedisDB       int    `env:"HERON_REDIS_DB"`
}
