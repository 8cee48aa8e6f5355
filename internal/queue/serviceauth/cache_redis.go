// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package serviceauth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/campuslink/internal/platform/constants"
	redisutil "github.com/taibuivan/campuslink/internal/platform/redis"
)

// Cached verdict values.
const (
	verdictValid   = "valid"
	verdictInvalid = "invalid"
)

func cacheKey(serviceID, tenantID string) string {
	return constants.RedisPrefixServiceAuth + serviceID + ":" + tenantID
}

// RedisCache stores verdicts as TTL'd string keys.
type RedisCache struct {
	client redis.UniversalClient
}

// NewRedisCache creates a [RedisCache].
func NewRedisCache(client redis.UniversalClient) *RedisCache {
	return &RedisCache{client: client}
}

// Get implements [Cache].
func (cache *RedisCache) Get(ctx context.Context, serviceID, tenantID string) (bool, bool, error) {
	value, err := cache.client.Get(ctx, cacheKey(serviceID, tenantID)).Result()
	if redisutil.IsNil(err) {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("redis_svcauth_get_failed: %w", err)
	}

	switch value {
	case verdictValid:
		return true, true, nil
	case verdictInvalid:
		return false, true, nil
	default:
		// Unrecognised values are treated as a miss and overwritten.
		return false, false, nil
	}
}

// Set implements [Cache].
func (cache *RedisCache) Set(ctx context.Context, serviceID, tenantID string, valid bool, ttl time.Duration) error {
	value := verdictInvalid
	if valid {
		value = verdictValid
	}
	if err := cache.client.Set(ctx, cacheKey(serviceID, tenantID), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis_svcauth_set_failed: %w", err)
	}
	return nil
}
