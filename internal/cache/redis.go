// SPDX-License-Identifier: MIT

package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/reeldoc/reeldoc/internal/metrics"
)

// keyPrefix namespaces every entry so a shared Redis instance never mixes
// this tool's digests with other tenants, and Clear never touches theirs.
const keyPrefix = "reeldoc:"

const (
	opTimeout    = 2 * time.Second
	adminTimeout = 5 * time.Second
)

// redisCache is a Redis-backed implementation of Cache.
type redisCache struct {
	client *redis.Client
	logger zerolog.Logger

	hits   atomic.Int64
	misses atomic.Int64
	sets   atomic.Int64
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string // host:port
	Password string
	DB       int
}

// NewRedisCache connects to Redis and verifies the connection before
// returning. The pool is sized for a CLI process whose concurrency is
// bounded by the adapter gates, not for a server.
func NewRedisCache(config RedisConfig, logger zerolog.Logger) (Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		DialTimeout:  adminTimeout,
		ReadTimeout:  opTimeout + time.Second,
		WriteTimeout: opTimeout + time.Second,
		PoolSize:     4,
	})

	ctx, cancel := context.WithTimeout(context.Background(), adminTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info().
		Str("addr", config.Addr).
		Int("db", config.DB).
		Msg("connected to redis cache")

	return &redisCache{
		client: client,
		logger: logger,
	}, nil
}

func (c *redisCache) Get(key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	val, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		c.misses.Add(1)
		metrics.IncCacheRequest("redis", "miss")
		return nil, false
	case err != nil:
		// A broken cache degrades to a miss; the pipeline recomputes.
		c.logger.Warn().Err(err).Str("key", key).Msg("redis get failed")
		c.misses.Add(1)
		metrics.IncCacheRequest("redis", "error")
		return nil, false
	}

	c.hits.Add(1)
	metrics.IncCacheRequest("redis", "hit")
	return val, true
}

func (c *redisCache) Set(key string, value []byte, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := c.client.Set(ctx, keyPrefix+key, value, ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("redis set failed")
		metrics.IncCacheRequest("redis", "error")
		return
	}
	c.sets.Add(1)
}

func (c *redisCache) Delete(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := c.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("redis delete failed")
	}
}

// Clear removes this tool's entries only. Never FLUSHDB: the database may
// be shared with other applications.
func (c *redisCache) Clear() {
	ctx, cancel := context.WithTimeout(context.Background(), adminTimeout)
	defer cancel()

	if err := c.scanKeys(ctx, func(keys []string) error {
		return c.client.Del(ctx, keys...).Err()
	}); err != nil {
		c.logger.Warn().Err(err).Msg("redis clear failed")
	}
}

// Stats reports counters tracked in-process plus the number of namespaced
// keys currently live. Evictions stay zero: Redis expires entries server
// side and does not report per-namespace expiry.
func (c *redisCache) Stats() Stats {
	ctx, cancel := context.WithTimeout(context.Background(), adminTimeout)
	defer cancel()

	size := 0
	if err := c.scanKeys(ctx, func(keys []string) error {
		size += len(keys)
		return nil
	}); err != nil {
		c.logger.Warn().Err(err).Msg("redis key scan failed")
	}

	return Stats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Sets:        c.sets.Load(),
		CurrentSize: size,
	}
}

// scanKeys walks the namespaced key space in batches and hands each batch
// to fn. SCAN keeps the server responsive where KEYS would block it.
func (c *redisCache) scanKeys(ctx context.Context, fn func(keys []string) error) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := fn(keys); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func (c *redisCache) Close() error {
	return c.client.Close()
}
