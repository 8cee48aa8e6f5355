// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package room

import (
	"context"
	"log/slog"
	"sync"

	"github.com/taibuivan/campuslink/pkg/uuid"
)

// subscriberBufferSize is the per-connection backlog before frames are dropped.
const subscriberBufferSize = 64

// Subscription is one local listener on a channel.
type Subscription struct {
	ID      string
	Channel string
	C       <-chan []byte
}

// Hub fans bus deliveries out to local connections.
//
// The bus is subscribed to a channel when its first local listener joins and
// unsubscribed when the last one leaves. A listener whose buffer is full loses
// the payload; the hub never blocks on a slow connection.
type Hub struct {
	bus         Bus
	mu          sync.Mutex
	subscribers map[string]map[string]chan []byte
	logger      *slog.Logger
}

// NewHub creates a [Hub] over bus. Call [Hub.Run] to start delivery.
func NewHub(bus Bus, logger *slog.Logger) *Hub {
	return &Hub{
		bus:         bus,
		subscribers: make(map[string]map[string]chan []byte),
		logger:      logger.With(slog.String("component", "room_hub")),
	}
}

/*
Join registers a listener on channel. The listener is removed when ctx ends
or [Hub.Leave] is called, whichever comes first; its channel is then closed.
*/
func (hub *Hub) Join(ctx context.Context, channel string) (*Subscription, error) {
	id := uuid.New()
	ch := make(chan []byte, subscriberBufferSize)

	hub.mu.Lock()
	listeners, ok := hub.subscribers[channel]
	if !ok {
		if err := hub.bus.Subscribe(ctx, channel); err != nil {
			hub.mu.Unlock()
			return nil, err
		}
		listeners = make(map[string]chan []byte)
		hub.subscribers[channel] = listeners
	}
	listeners[id] = ch
	hub.mu.Unlock()

	hub.logger.Debug("hub_listener_joined", slog.String("channel", channel), slog.String("sub_id", id))

	go func() {
		<-ctx.Done()
		hub.Leave(channel, id)
	}()

	return &Subscription{ID: id, Channel: channel, C: ch}, nil
}

// Leave removes a listener. Leaving twice is a no-op.
func (hub *Hub) Leave(channel, id string) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	listeners, ok := hub.subscribers[channel]
	if !ok {
		return
	}
	ch, ok := listeners[id]
	if !ok {
		return
	}

	delete(listeners, id)
	close(ch)

	if len(listeners) == 0 {
		delete(hub.subscribers, channel)
		if err := hub.bus.Unsubscribe(context.Background(), channel); err != nil {
			hub.logger.Warn("hub_unsubscribe_failed", slog.String("channel", channel), slog.Any("error", err))
		}
	}

	hub.logger.Debug("hub_listener_left", slog.String("channel", channel), slog.String("sub_id", id))
}

// Run drains the bus until ctx ends or the bus closes.
func (hub *Hub) Run(ctx context.Context) {
	deliveries := hub.bus.Deliveries()
	for {
		select {
		case <-ctx.Done():
			return
		case delivery, ok := <-deliveries:
			if !ok {
				return
			}
			hub.dispatch(delivery)
		}
	}
}

// Listeners reports how many local listeners a channel has.
func (hub *Hub) Listeners(channel string) int {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	return len(hub.subscribers[channel])
}

func (hub *Hub) dispatch(delivery Delivery) {
	// Sends happen under the lock so Leave cannot close a channel mid-send;
	// they never block, so the critical section stays short.
	hub.mu.Lock()
	defer hub.mu.Unlock()

	for id, ch := range hub.subscribers[delivery.Channel] {
		select {
		case ch <- delivery.Payload:
		default:
			hub.logger.Warn("hub_payload_dropped",
				slog.String("channel", delivery.Channel),
				slog.String("sub_id", id),
			)
		}
	}
}
