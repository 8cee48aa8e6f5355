// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package room

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Delivery is one payload received on a subscribed channel.
type Delivery struct {
	Channel string
	Payload []byte
}

// Bus is the cross-instance pub/sub transport.
type Bus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channels ...string) error
	Unsubscribe(ctx context.Context, channels ...string) error
	Deliveries() <-chan Delivery
	Close() error
}

// RedisBus multiplexes every channel this process listens on over one
// *redis.PubSub connection.
type RedisBus struct {
	client     redis.UniversalClient
	pubsub     *redis.PubSub
	deliveries chan Delivery
	closeOnce  sync.Once
	logger     *slog.Logger
}

// NewRedisBus opens the subscription connection and starts forwarding deliveries.
func NewRedisBus(ctx context.Context, client redis.UniversalClient, logger *slog.Logger) *RedisBus {
	bus := &RedisBus{
		client:     client,
		pubsub:     client.Subscribe(ctx),
		deliveries: make(chan Delivery, 256),
		logger:     logger.With(slog.String("component", "room_bus")),
	}

	go bus.forward()

	return bus
}

func (bus *RedisBus) forward() {
	defer close(bus.deliveries)

	for message := range bus.pubsub.Channel() {
		bus.deliveries <- Delivery{Channel: message.Channel, Payload: []byte(message.Payload)}
	}

	bus.logger.Debug("room_bus_stopped")
}

// Publish sends payload to every instance subscribed to channel.
func (bus *RedisBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := bus.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis_publish_failed: %w", err)
	}
	return nil
}

// Subscribe adds channels to the shared subscription.
func (bus *RedisBus) Subscribe(ctx context.Context, channels ...string) error {
	if len(channels) == 0 {
		return nil
	}
	if err := bus.pubsub.Subscribe(ctx, channels...); err != nil {
		return fmt.Errorf("redis_subscribe_failed: %w", err)
	}
	return nil
}

// Unsubscribe drops channels from the shared subscription.
func (bus *RedisBus) Unsubscribe(ctx context.Context, channels ...string) error {
	// An empty list would unsubscribe from everything.
	if len(channels) == 0 {
		return nil
	}
	if err := bus.pubsub.Unsubscribe(ctx, channels...); err != nil {
		return fmt.Errorf("redis_unsubscribe_failed: %w", err)
	}
	return nil
}

// Deliveries streams payloads for subscribed channels. It closes after [RedisBus.Close].
func (bus *RedisBus) Deliveries() <-chan Delivery {
	return bus.deliveries
}

// Close releases the subscription connection.
func (bus *RedisBus) Close() error {
	var err error
	bus.closeOnce.Do(func() {
		err = bus.pubsub.Close()
	})
	return err
}
