package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agrosight/agrosight/internal/domain"
)

// keyPrefix namespaces Agrosight keys inside a shared Redis.
const keyPrefix = "agrosight:"

// RedisCache implements domain.Cache using Redis.
// Used as the hosted profile cache.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new Redis cache.
func NewRedisCache(addr, password string, db int) (*RedisCache, error) {
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// Get retrieves a value from Redis.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

// Set stores a value in Redis with TTL.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, keyPrefix+key, value, ttl).Err()
}

// Delete removes a value from Redis.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, keyPrefix+key).Err()
}

// GetCatalog retrieves the cached rule catalog.
func (c *RedisCache) GetCatalog(ctx context.Context) ([]*domain.Rule, error) {
	data, err := c.Get(ctx, domain.CatalogCacheKey)
	if err != nil || data == nil {
		return nil, err
	}

	var rules []*domain.Rule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, nil // treat a corrupt entry as a miss
	}
	return rules, nil
}

// SetCatalog caches the rule catalog.
func (c *RedisCache) SetCatalog(ctx context.Context, rules []*domain.Rule, ttl time.Duration) error {
	data, err := json.Marshal(rules)
	if err != nil {
		return err
	}
	return c.Set(ctx, domain.CatalogCacheKey, data, ttl)
}

// Ping checks Redis connectivity.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
