// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package stream wraps the Redis stream that carries tasks.

The stream is append-only and capped with an approximate MAXLEN. Consumers
read through one consumer group: new entries with '>', their own pending
entries with '0', and entries idle on dead consumers with XAUTOCLAIM.
*/
package stream

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	redisutil "github.com/taibuivan/campuslink/internal/platform/redis"
	"github.com/taibuivan/campuslink/internal/queue/task"
)

// Entry is one raw stream record.
type Entry struct {
	ID     string
	Values map[string]any
}

// Options names the stream and its consumer group.
type Options struct {
	Stream     string
	MaxLen     int64
	Group      string
	Consumer   string
	DeadLetter string
}

// # Stream

// Stream is the task stream bound to one consumer identity.
type Stream struct {
	client  redis.UniversalClient
	options Options
}

// New creates a [Stream].
func New(client redis.UniversalClient, options Options) *Stream {
	return &Stream{client: client, options: options}
}

// Name is the stream key.
func (stream *Stream) Name() string { return stream.options.Stream }

/*
Append adds a task with XADD, trimming approximately to MaxLen.

Returns:
  - string: The stream entry id
  - error: Encoding or store failures
*/
func (stream *Stream) Append(ctx context.Context, t *task.Task) (string, error) {
	fields, err := t.Fields()
	if err != nil {
		return "", err
	}

	args := &redis.XAddArgs{
		Stream: stream.options.Stream,
		Values: fields,
	}
	if stream.options.MaxLen > 0 {
		args.MaxLen = stream.options.MaxLen
		args.Approx = true
	}

	entryID, err := stream.client.XAdd(ctx, args).Result()
	if err != nil {
		return "", fmt.Errorf("redis_stream_append_failed: %w", err)
	}
	return entryID, nil
}

// EnsureGroup creates the consumer group (and the stream) if missing.
// An existing group is not an error.
func (stream *Stream) EnsureGroup(ctx context.Context) error {
	err := stream.client.XGroupCreateMkStream(ctx, stream.options.Stream, stream.options.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("redis_stream_group_create_failed: %w", err)
	}
	return nil
}

/*
ReadNew claims up to count never-delivered entries for this consumer,
blocking up to block when there are none.

Returns:
  - []Entry: Empty when the wait timed out
  - error: Connectivity failures
*/
func (stream *Stream) ReadNew(ctx context.Context, count int64, block time.Duration) ([]Entry, error) {
	return stream.read(ctx, ">", count, block)
}

// ReadPending returns up to count entries delivered to this consumer and not yet acknowledged.
func (stream *Stream) ReadPending(ctx context.Context, count int64) ([]Entry, error) {
	return stream.read(ctx, "0", count, -1)
}

func (stream *Stream) read(ctx context.Context, from string, count int64, block time.Duration) ([]Entry, error) {
	result, err := stream.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    stream.options.Group,
		Consumer: stream.options.Consumer,
		Streams:  []string{stream.options.Stream, from},
		Count:    count,
		Block:    block,
	}).Result()
	if redisutil.IsNil(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis_stream_read_failed: %w", err)
	}

	var entries []Entry
	for _, s := range result {
		for _, message := range s.Messages {
			entries = append(entries, Entry{ID: message.ID, Values: message.Values})
		}
	}
	return entries, nil
}

// Ack acknowledges an entry for the group.
func (stream *Stream) Ack(ctx context.Context, entryID string) error {
	if err := stream.client.XAck(ctx, stream.options.Stream, stream.options.Group, entryID).Err(); err != nil {
		return fmt.Errorf("redis_stream_ack_failed: %w", err)
	}
	return nil
}

// DeliveryCount reports how many times an entry has been delivered; zero if it is not pending.
func (stream *Stream) DeliveryCount(ctx context.Context, entryID string) (int64, error) {
	pending, err := stream.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: stream.options.Stream,
		Group:  stream.options.Group,
		Start:  entryID,
		End:    entryID,
		Count:  1,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("redis_stream_pending_failed: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}
	return pending[0].RetryCount, nil
}

/*
Claim takes over up to count entries that have been idle for at least
minIdle on any consumer of the group.
*/
func (stream *Stream) Claim(ctx context.Context, minIdle time.Duration, count int64) ([]Entry, error) {
	messages, _, err := stream.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   stream.options.Stream,
		Group:    stream.options.Group,
		Consumer: stream.options.Consumer,
		MinIdle:  minIdle,
		Start:    "0-0",
		Count:    count,
	}).Result()
	if err != nil && !redisutil.IsNil(err) {
		return nil, fmt.Errorf("redis_stream_claim_failed: %w", err)
	}

	entries := make([]Entry, 0, len(messages))
	for _, message := range messages {
		entries = append(entries, Entry{ID: message.ID, Values: message.Values})
	}
	return entries, nil
}

// DeadLetter copies an entry to the dead-letter stream with a reason and
// acknowledges it, in one transaction.
func (stream *Stream) DeadLetter(ctx context.Context, entry Entry, reason string) error {
	values := make(map[string]any, len(entry.Values)+2)
	for key, value := range entry.Values {
		values[key] = value
	}
	values["sourceEntryId"] = entry.ID
	values["reason"] = reason

	_, err := stream.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.XAdd(ctx, &redis.XAddArgs{Stream: stream.options.DeadLetter, Values: values})
		pipe.XAck(ctx, stream.options.Stream, stream.options.Group, entry.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis_stream_dead_letter_failed: %w", err)
	}
	return nil
}
