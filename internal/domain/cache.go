package domain

import (
	"context"
	"time"
)

// Cache defines the interface for caching operations. The engine uses it
// for two things only: short-lived rule catalog caching and the fast-path
// pending-recommendation check in front of the storage uniqueness
// constraint. The cache is always an optimization, never a correctness
// mechanism.
type Cache interface {
	// Get retrieves a value from cache.
	// Returns nil, nil if key not found.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in cache with expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache.
	Delete(ctx context.Context, key string) error

	// GetCatalog retrieves the cached active rule catalog.
	// Returns nil, nil on a cache miss.
	GetCatalog(ctx context.Context) ([]*Rule, error)

	// SetCatalog caches the active rule catalog.
	SetCatalog(ctx context.Context, rules []*Rule, ttl time.Duration) error

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// CatalogCacheKey is the key under which the active rule catalog is cached.
const CatalogCacheKey = "catalog:active"

// PendingKey builds the cache key for the pending-recommendation fast path.
func PendingKey(ruleCode, producerID string) string {
	return "pending:" + ruleCode + ":" + producerID
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string

	// Local LRU cache settings (standalone profile)
	LocalMaxSize int
	LocalTTL     time.Duration

	// Redis settings (hosted profile)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// CatalogTTL bounds how stale the cached rule catalog may be.
	CatalogTTL time.Duration
}
