/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package cache provides a Redis-based cache of optimization results.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/friendsincode/spaceship_rental/internal/optimizer"
	"github.com/friendsincode/spaceship_rental/internal/telemetry"
)

// DefaultResultTTL is how long a result stays cached.
const DefaultResultTTL = time.Hour

// KeyResult prefixes result keys: + algorithm + ":" + input digest.
const KeyResult = "spaceship:cache:result:"

// Config contains cache configuration.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	ResultTTL     time.Duration

	// DisableOnError turns the cache off after the first Redis error.
	DisableOnError bool
}

// DefaultConfig returns default cache configuration.
func DefaultConfig() Config {
	return Config{
		RedisAddr:      "localhost:6379",
		ResultTTL:      DefaultResultTTL,
		DisableOnError: true,
	}
}

// Cache stores results in Redis and degrades to a no-op when Redis is unavailable.
type Cache struct {
	client *redis.Client
	logger zerolog.Logger
	config Config

	mu       sync.RWMutex
	disabled bool
}

// New creates a cache. It never fails: an unreachable Redis yields a disabled cache.
func New(cfg Config, logger zerolog.Logger) *Cache {
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = DefaultResultTTL
	}
	logger = logger.With().Str("component", "cache").Logger()

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Msg("Redis cache unavailable, running without caching")
		_ = client.Close()
		return &Cache{logger: logger, config: cfg, disabled: true}
	}

	logger.Info().Str("addr", cfg.RedisAddr).Msg("Redis cache initialized")
	return &Cache{client: client, logger: logger, config: cfg}
}

// NewWithClient wraps an existing client without pinging it.
func NewWithClient(client *redis.Client, cfg Config, logger zerolog.Logger) *Cache {
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = DefaultResultTTL
	}
	return &Cache{client: client, logger: logger.With().Str("component", "cache").Logger(), config: cfg}
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// IsAvailable returns true if the cache is operational.
func (c *Cache) IsAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.disabled && c.client != nil
}

// ResultKey builds the cache key for an algorithm and input digest.
func ResultKey(algorithm optimizer.Algorithm, digest string) string {
	return KeyResult + string(algorithm) + ":" + digest
}

// GetResult returns the cached result for key.
func (c *Cache) GetResult(ctx context.Context, key string) (optimizer.Result, bool) {
	if !c.IsAvailable() {
		return optimizer.Result{}, false
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		telemetry.CacheRequests.WithLabelValues("miss").Inc()
		return optimizer.Result{}, false
	}
	if err != nil {
		telemetry.CacheRequests.WithLabelValues("error").Inc()
		c.handleError(err, "get")
		return optimizer.Result{}, false
	}

	var res optimizer.Result
	if err := json.Unmarshal(data, &res); err != nil {
		telemetry.CacheRequests.WithLabelValues("error").Inc()
		c.logger.Warn().Err(err).Str("key", key).Msg("dropping undecodable cache entry")
		_ = c.client.Del(ctx, key).Err()
		return optimizer.Result{}, false
	}
	telemetry.CacheRequests.WithLabelValues("hit").Inc()
	return res, true
}

// SetResult stores res under key.
func (c *Cache) SetResult(ctx context.Context, key string, res optimizer.Result) {
	if !c.IsAvailable() {
		return
	}

	data, err := json.Marshal(res)
	if err != nil {
		c.logger.Error().Err(err).Msg("encode result for cache")
		return
	}
	if err := c.client.Set(ctx, key, data, c.config.ResultTTL).Err(); err != nil {
		c.handleError(err, "set")
	}
}

// handleError handles Redis errors with circuit breaker logic.
func (c *Cache) handleError(err error, operation string) {
	c.logger.Debug().Err(err).Str("operation", operation).Msg("cache operation failed")

	if c.config.DisableOnError {
		c.mu.Lock()
		c.disabled = true
		c.mu.Unlock()
		c.logger.Warn().Msg("disabling cache due to Redis error")
	}
}
