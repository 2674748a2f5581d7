// Package cache provides caching implementations for Agrosight.
package cache

import (
	"fmt"

	"github.com/agrosight/agrosight/internal/domain"
)

// New creates a new cache based on configuration.
// Standalone profile: in-process LRU. Hosted profile: Redis.
func New(cfg domain.CacheConfig) (domain.Cache, error) {
	switch cfg.Type {
	case "memory":
		return NewLRUCache(cfg.LocalMaxSize), nil

	case "redis":
		return NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}
