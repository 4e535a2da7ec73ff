// Package redis implements the snapshot cache on Redis.
package redis

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/zenon-tools/pricefeed/internal/cache"
	"github.com/zenon-tools/pricefeed/internal/config"
)

// Cache stores snapshots in Redis with TTL expiry.
type Cache struct {
	client *redis.Client
}

var _ cache.Cache = (*Cache)(nil)

// New wraps an existing Redis client.
func New(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// NewClient builds a Redis client from configuration.
func NewClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, cache.ErrMiss
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

// Ping checks the connection to the Redis server.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
