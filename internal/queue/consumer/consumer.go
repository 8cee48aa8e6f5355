// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package consumer runs the task loop of one consumer group member.

Each iteration claims at most one new record, blocking while the stream is
empty, decodes it and dispatches it to exactly one handler. A record is
acknowledged only when its handler succeeds; otherwise it stays pending and
is retried by this consumer on its periodic retry pass.

Two behaviours are off by default: moving records that reached a delivery
limit to a dead-letter stream, and claiming records left idle by consumers
that went away.
*/
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/campuslink/internal/queue/stream"
	"github.com/taibuivan/campuslink/internal/queue/task"
)

// Stream is the subset of the task stream the loop uses.
type Stream interface {
	EnsureGroup(ctx context.Context) error
	ReadNew(ctx context.Context, count int64, block time.Duration) ([]stream.Entry, error)
	ReadPending(ctx context.Context, count int64) ([]stream.Entry, error)
	Ack(ctx context.Context, entryID string) error
	DeliveryCount(ctx context.Context, entryID string) (int64, error)
	Claim(ctx context.Context, minIdle time.Duration, count int64) ([]stream.Entry, error)
	DeadLetter(ctx context.Context, entry stream.Entry, reason string) error
}

// Dispatcher runs the handler of a decoded task.
type Dispatcher interface {
	Dispatch(ctx context.Context, t *task.Task) error
}

// retryBatch bounds records handled per retry pass.
const retryBatch = 100

// Options tune the loop. Zero values select the defaults.
type Options struct {
	BlockTimeout  time.Duration
	ErrorBackoff  time.Duration
	RetryInterval time.Duration

	// MaxDeliveries > 0 dead-letters records delivered that many times.
	MaxDeliveries int64

	// ClaimIdle > 0 claims records idle that long on other consumers.
	ClaimIdle time.Duration
}

func (options Options) withDefaults() Options {
	if options.BlockTimeout <= 0 {
		options.BlockTimeout = 5 * time.Second
	}
	if options.ErrorBackoff <= 0 {
		options.ErrorBackoff = time.Second
	}
	if options.RetryInterval <= 0 {
		options.RetryInterval = 30 * time.Second
	}
	return options
}

// # Consumer

// Consumer is one member of the task consumer group.
type Consumer struct {
	stream     Stream
	dispatcher Dispatcher
	options    Options
	now        func() time.Time
	logger     *slog.Logger
}

// New constructs a [Consumer].
func New(stream Stream, dispatcher Dispatcher, options Options, logger *slog.Logger) *Consumer {
	return &Consumer{
		stream:     stream,
		dispatcher: dispatcher,
		options:    options.withDefaults(),
		now:        time.Now,
		logger:     logger.With(slog.String("component", "consumer")),
	}
}

/*
Run creates the consumer group if needed and loops until ctx is cancelled.

Returns:
  - error: Only a failure to create the group; cancellation returns nil
*/
func (consumer *Consumer) Run(ctx context.Context) error {
	if err := consumer.stream.EnsureGroup(ctx); err != nil {
		return err
	}

	consumer.logger.Info("consumer_started")
	defer consumer.logger.Info("consumer_stopped")

	lastRetry := consumer.now()
	for ctx.Err() == nil {
		if consumer.now().Sub(lastRetry) >= consumer.options.RetryInterval {
			consumer.retryPass(ctx)
			lastRetry = consumer.now()
		}

		entries, err := consumer.stream.ReadNew(ctx, 1, consumer.options.BlockTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			consumer.logger.Warn("consumer_read_failed", slog.Any("error", err))
			consumer.sleep(ctx, consumer.options.ErrorBackoff)
			continue
		}

		for _, entry := range entries {
			consumer.process(ctx, entry)
		}
	}
	return nil
}

// retryPass re-runs this consumer's pending records, then claims abandoned ones.
func (consumer *Consumer) retryPass(ctx context.Context) {
	pending, err := consumer.stream.ReadPending(ctx, retryBatch)
	if err != nil {
		consumer.logger.Warn("consumer_pending_read_failed", slog.Any("error", err))
		return
	}
	for _, entry := range pending {
		consumer.process(ctx, entry)
	}

	if consumer.options.ClaimIdle <= 0 {
		return
	}
	claimed, err := consumer.stream.Claim(ctx, consumer.options.ClaimIdle, retryBatch)
	if err != nil {
		consumer.logger.Warn("consumer_claim_failed", slog.Any("error", err))
		return
	}
	if len(claimed) > 0 {
		consumer.logger.Info("consumer_claimed", slog.Int("count", len(claimed)))
	}
	for _, entry := range claimed {
		consumer.process(ctx, entry)
	}
}

/*
process handles one record. It reports whether the record was acknowledged.

Unknown types and handler failures are logged and left pending.
*/
func (consumer *Consumer) process(ctx context.Context, entry stream.Entry) bool {
	logger := consumer.logger.With(slog.String("entry_id", entry.ID))

	t, err := task.FromRecord(entry.ID, entry.Values)
	if err != nil {
		if errors.Is(err, task.ErrUnknownType) {
			logger.Error("task_unknown_type", slog.String("type", string(t.Type)), slog.String("task_id", t.ID))
		} else {
			logger.Error("task_malformed", slog.Any("error", err))
		}
		consumer.deadLetterIfExhausted(ctx, entry, err)
		return false
	}

	logger = logger.With(
		slog.String("task_id", t.ID),
		slog.String("type", string(t.Type)),
		slog.String("tenant_id", t.TenantID),
	)

	started := consumer.now()
	if err := consumer.dispatch(ctx, t); err != nil {
		logger.Error("task_failed", slog.Any("error", err))
		consumer.deadLetterIfExhausted(ctx, entry, err)
		return false
	}

	if err := consumer.stream.Ack(ctx, entry.ID); err != nil {
		// The handler ran; the record is redelivered and must be tolerated.
		logger.Error("task_ack_failed", slog.Any("error", err))
		return false
	}

	logger.Info("task_acknowledged", slog.Duration("duration", consumer.now().Sub(started)))
	return true
}

// dispatch confines a handler panic to its task.
func (consumer *Consumer) dispatch(ctx context.Context, t *task.Task) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("consumer: handler panic: %v", recovered)
		}
	}()
	return consumer.dispatcher.Dispatch(ctx, t)
}

// deadLetterIfExhausted moves a failing record aside once it reached MaxDeliveries.
func (consumer *Consumer) deadLetterIfExhausted(ctx context.Context, entry stream.Entry, cause error) {
	if consumer.options.MaxDeliveries <= 0 {
		return
	}

	deliveries, err := consumer.stream.DeliveryCount(ctx, entry.ID)
	if err != nil {
		consumer.logger.Warn("consumer_delivery_count_failed", slog.String("entry_id", entry.ID), slog.Any("error", err))
		return
	}
	if deliveries < consumer.options.MaxDeliveries {
		return
	}

	if err := consumer.stream.DeadLetter(ctx, entry, cause.Error()); err != nil {
		consumer.logger.Error("task_dead_letter_failed", slog.String("entry_id", entry.ID), slog.Any("error", err))
		return
	}
	consumer.logger.Warn("task_dead_lettered",
		slog.String("entry_id", entry.ID),
		slog.Int64("deliveries", deliveries),
		slog.String("reason", cause.Error()),
	)
}

func (consumer *Consumer) sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
