// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package room

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/campuslink/internal/platform/apperr"
	"github.com/taibuivan/campuslink/internal/platform/constants"
	redisutil "github.com/taibuivan/campuslink/internal/platform/redis"
	"github.com/taibuivan/campuslink/pkg/slice"
)

func metadataKey(roomID string) string {
	return constants.RedisPrefixRoom + roomID
}

func membersKey(roomID string) string {
	return constants.RedisPrefixRoom + roomID + ":members"
}

// RedisRepository implements [Repository] on the coordination store.
type RedisRepository struct {
	client redis.UniversalClient
}

// NewRedisRepository creates a Redis-backed room [Repository].
func NewRedisRepository(client redis.UniversalClient) *RedisRepository {
	return &RedisRepository{client: client}
}

/*
Save stores the metadata document and the member set in one MULTI/EXEC.
*/
func (repository *RedisRepository) Save(context context.Context, room *Room, ttl time.Duration) error {
	document, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("room_encode_failed: %w", err)
	}

	members := slice.Map(room.Participants, func(p Participant) any { return p.UserID })

	_, err = repository.client.TxPipelined(context, func(pipe redis.Pipeliner) error {
		pipe.Set(context, metadataKey(room.ID), document, ttl)
		pipe.Del(context, membersKey(room.ID))
		if len(members) > 0 {
			pipe.SAdd(context, membersKey(room.ID), members...)
			pipe.Expire(context, membersKey(room.ID), ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis_room_save_failed: %w", err)
	}
	return nil
}

// Find loads a room's metadata.
func (repository *RedisRepository) Find(context context.Context, roomID string) (*Room, error) {
	document, err := repository.client.Get(context, metadataKey(roomID)).Bytes()
	if err != nil {
		if redisutil.IsNil(err) {
			return nil, apperr.NotFound("Room")
		}
		return nil, fmt.Errorf("redis_room_find_failed: %w", err)
	}

	room := &Room{}
	if err := json.Unmarshal(document, room); err != nil {
		return nil, fmt.Errorf("room_decode_failed: %w", err)
	}
	return room, nil
}

// AddMember adds one member and resets the set's TTL.
func (repository *RedisRepository) AddMember(context context.Context, roomID, userID string, ttl time.Duration) error {
	_, err := repository.client.TxPipelined(context, func(pipe redis.Pipeliner) error {
		pipe.SAdd(context, membersKey(roomID), userID)
		pipe.Expire(context, membersKey(roomID), ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis_room_add_member_failed: %w", err)
	}
	return nil
}

// RemoveMember removes one member.
func (repository *RedisRepository) RemoveMember(context context.Context, roomID, userID string) error {
	if err := repository.client.SRem(context, membersKey(roomID), userID).Err(); err != nil {
		return fmt.Errorf("redis_room_remove_member_failed: %w", err)
	}
	return nil
}

// Members returns the member ids in a stable order.
func (repository *RedisRepository) Members(context context.Context, roomID string) ([]string, error) {
	members, err := repository.client.SMembers(context, membersKey(roomID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis_room_members_failed: %w", err)
	}
	sort.Strings(members)
	return members, nil
}
