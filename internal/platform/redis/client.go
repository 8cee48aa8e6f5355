// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package redis provides the managed client for the coordination store.

Every piece of shared, volatile campuslink state lives here:

  - Sessions and their tenant bindings (TTL'd keys).
  - Group room metadata and membership sets.
  - Pub/sub channels that fan messages out across gateway instances.
  - The durable task stream and its consumer group.
  - Cached service validation results.

A blocking stream read holds a pooled connection for up to the configured block
timeout, so the read timeout is derived from it in [Options].
*/
package redis

import (
	stdctx "context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Opinionated default timeouts for Redis operations.
const (
	dialTimeout  = 3 * time.Second
	readTimeout  = 2 * time.Second
	writeTimeout = 2 * time.Second
	pingTimeout  = 2 * time.Second
)

// Options tunes the client for the process that owns it.
type Options struct {
	// PoolSize caps pooled connections. Zero keeps the default of 10.
	PoolSize int

	// BlockTimeout is the longest blocking command the process issues (XREADGROUP BLOCK).
	BlockTimeout time.Duration
}

// NewClient parses a Redis URL and returns a ready-to-use client.
//
// # Parameters
//   - context: Context for the initial ping.
//   - redisURL: Redis connection URL.
//   - opts: Pool and blocking-read tuning.
//   - logger: Structured logger for connection events.
func NewClient(context stdctx.Context, redisURL string, opts Options, logger *slog.Logger) (*redis.Client, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid URL: %w", err)
	}

	options.PoolSize = 10
	if opts.PoolSize > 0 {
		options.PoolSize = opts.PoolSize
	}
	options.MinIdleConns = 2
	options.MaxIdleConns = 5

	options.DialTimeout = dialTimeout
	options.ReadTimeout = readTimeout + opts.BlockTimeout
	options.WriteTimeout = writeTimeout

	client := redis.NewClient(options)

	if err := Ping(context, client); err != nil {
		_ = client.Close()
		return nil, err
	}

	logger.Info("redis_client_connected",
		slog.String("addr", options.Addr),
		slog.Int("pool_size", options.PoolSize),
	)

	return client, nil
}

// Ping verifies that the Redis client is healthy.
func Ping(context stdctx.Context, client redis.UniversalClient) error {
	pingCtx, cancel := stdctx.WithTimeout(context, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis: ping failed: %w", err)
	}

	return nil
}

// IsNil reports whether err means "no such key" or "no data before timeout".
func IsNil(err error) bool {
	return errors.Is(err, redis.Nil)
}
