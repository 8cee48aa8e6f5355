// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/campuslink/internal/platform/constants"
	redisutil "github.com/taibuivan/campuslink/internal/platform/redis"
	"github.com/taibuivan/campuslink/internal/platform/sec"
)

// # Key Layout

func userKey(sessionID string) string {
	return constants.RedisPrefixSession + sessionID + ":user"
}

func roleKey(sessionID string) string {
	return constants.RedisPrefixSession + sessionID + ":role"
}

func tenantKey(sessionID string) string {
	return constants.RedisPrefixSession + sessionID + ":tenant"
}

func pointerKey(userID string) string {
	return constants.RedisPrefixUserSession + userID + ":session"
}

// deleteScript drops the session keys and the user pointer if it still names the session.
var deleteScript = redis.NewScript(`
redis.call("DEL", KEYS[1], KEYS[2], KEYS[3])
if redis.call("GET", KEYS[4]) == ARGV[1] then
	redis.call("DEL", KEYS[4])
end
return 1
`)

// RedisRepository implements [Repository] on the coordination store.
type RedisRepository struct {
	client redis.UniversalClient
}

// NewRedisRepository creates a Redis-backed session [Repository].
func NewRedisRepository(client redis.UniversalClient) *RedisRepository {
	return &RedisRepository{client: client}
}

/*
Create writes the linked records inside one MULTI/EXEC so they appear, and
later expire, together. The role is the one verified at issue time.
*/
func (repository *RedisRepository) Create(context context.Context, session *Session, ttl time.Duration) error {
	_, err := repository.client.TxPipelined(context, func(pipe redis.Pipeliner) error {
		pipe.Set(context, userKey(session.ID), session.UserID, ttl)
		pipe.Set(context, roleKey(session.ID), string(session.UserType), ttl)
		pipe.Set(context, tenantKey(session.ID), session.TenantID, ttl)
		pipe.Set(context, pointerKey(session.UserID), session.ID, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis_session_create_failed: %w", err)
	}
	return nil
}

/*
Lookup fetches the linked records in a single pipelined round trip.
*/
func (repository *RedisRepository) Lookup(context context.Context, sessionID, userID string) (Binding, error) {
	pipe := repository.client.Pipeline()
	user := pipe.Get(context, userKey(sessionID))
	role := pipe.Get(context, roleKey(sessionID))
	tenant := pipe.Get(context, tenantKey(sessionID))
	pointer := pipe.Get(context, pointerKey(userID))

	if _, err := pipe.Exec(context); err != nil && !redisutil.IsNil(err) {
		return Binding{}, fmt.Errorf("redis_session_lookup_failed: %w", err)
	}

	return Binding{
		UserID:      valueOrEmpty(user),
		UserType:    sec.UserType(valueOrEmpty(role)),
		TenantID:    valueOrEmpty(tenant),
		UserPointer: valueOrEmpty(pointer),
	}, nil
}

// Tenant returns the tenant bound to a session.
func (repository *RedisRepository) Tenant(context context.Context, sessionID string) (string, error) {
	tenantID, err := repository.client.Get(context, tenantKey(sessionID)).Result()
	if err != nil {
		if redisutil.IsNil(err) {
			return "", nil
		}
		return "", fmt.Errorf("redis_session_tenant_failed: %w", err)
	}
	return tenantID, nil
}

// Role returns the user type a session was issued for.
func (repository *RedisRepository) Role(context context.Context, sessionID string) (string, error) {
	role, err := repository.client.Get(context, roleKey(sessionID)).Result()
	if err != nil {
		if redisutil.IsNil(err) {
			return "", nil
		}
		return "", fmt.Errorf("redis_session_role_failed: %w", err)
	}
	return role, nil
}

// Delete removes a session. Deleting an expired session is a no-op.
func (repository *RedisRepository) Delete(context context.Context, sessionID, userID string) error {
	keys := []string{userKey(sessionID), roleKey(sessionID), tenantKey(sessionID), pointerKey(userID)}
	if err := deleteScript.Run(context, repository.client, keys, sessionID).Err(); err != nil && !redisutil.IsNil(err) {
		return fmt.Errorf("redis_session_delete_failed: %w", err)
	}
	return nil
}

// Extend resets the TTL of every linked record atomically.
func (repository *RedisRepository) Extend(context context.Context, sessionID, userID string, ttl time.Duration) (bool, error) {
	var results []*redis.BoolCmd

	_, err := repository.client.TxPipelined(context, func(pipe redis.Pipeliner) error {
		results = append(results,
			pipe.Expire(context, userKey(sessionID), ttl),
			pipe.Expire(context, roleKey(sessionID), ttl),
			pipe.Expire(context, tenantKey(sessionID), ttl),
			pipe.Expire(context, pointerKey(userID), ttl),
		)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("redis_session_extend_failed: %w", err)
	}

	for _, result := range results {
		if !result.Val() {
			return false, nil
		}
	}
	return true, nil
}

func valueOrEmpty(cmd *redis.StringCmd) string {
	value, err := cmd.Result()
	if err != nil {
		return ""
	}
	return value
}
