// Package cache provides the KV store holding admin session tokens:
// Redis-backed when an address is configured, in-process otherwise.
package cache

import (
	"context"
	"time"

	"github.com/ayasaki/udpchat/cache/local"
	cacheredis "github.com/ayasaki/udpchat/cache/redis"
	"github.com/ayasaki/udpchat/config"
)

// Cache defines the KV operations used by the admin API.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// New returns a Cache backed by Redis if cfg.RedisAddr is set, otherwise an
// in-process cache.
func New(cfg config.CacheConfig) (Cache, error) {
	if cfg.RedisAddr != "" {
		return cacheredis.NewCache(cacheredis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	}
	return local.NewCache(local.Config{})
}
