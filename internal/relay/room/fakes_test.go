// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package room_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/taibuivan/campuslink/internal/platform/apperr"
	"github.com/taibuivan/campuslink/internal/relay/room"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// memoryBus is a process-local [room.Bus] that records traffic.
type memoryBus struct {
	mu           sync.Mutex
	subscribed   map[string]bool
	published    []room.Delivery
	subscribes   int
	unsubscribes int
	failChannel  string
	deliveries   chan room.Delivery
}

func newMemoryBus() *memoryBus {
	return &memoryBus{subscribed: map[string]bool{}, deliveries: make(chan room.Delivery, 64)}
}

func (b *memoryBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if channel == b.failChannel {
		return errors.New("publish failed")
	}
	delivery := room.Delivery{Channel: channel, Payload: payload}
	b.published = append(b.published, delivery)
	if b.subscribed[channel] {
		b.deliveries <- delivery
	}
	return nil
}

func (b *memoryBus) Subscribe(_ context.Context, channels ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, channel := range channels {
		b.subscribed[channel] = true
		b.subscribes++
	}
	return nil
}

func (b *memoryBus) Unsubscribe(_ context.Context, channels ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, channel := range channels {
		delete(b.subscribed, channel)
		b.unsubscribes++
	}
	return nil
}

func (b *memoryBus) Deliveries() <-chan room.Delivery { return b.deliveries }

func (b *memoryBus) Close() error { return nil }

func (b *memoryBus) channels() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.published))
	for _, delivery := range b.published {
		out = append(out, delivery.Channel)
	}
	sort.Strings(out)
	return out
}

// memoryRepository is an in-process [room.Repository] without expiry.
type memoryRepository struct {
	mu      sync.Mutex
	rooms   map[string]*room.Room
	members map[string]map[string]bool
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{rooms: map[string]*room.Room{}, members: map[string]map[string]bool{}}
}

func (m *memoryRepository) Save(_ context.Context, r *room.Room, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[r.ID] = r
	m.members[r.ID] = map[string]bool{}
	for _, p := range r.Participants {
		m.members[r.ID][p.UserID] = true
	}
	return nil
}

func (m *memoryRepository) Find(_ context.Context, roomID string) (*room.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[roomID]
	if !ok {
		return nil, apperr.NotFound("Room")
	}
	return r, nil
}

func (m *memoryRepository) AddMember(_ context.Context, roomID, userID string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.members[roomID] == nil {
		m.members[roomID] = map[string]bool{}
	}
	m.members[roomID][userID] = true
	return nil
}

func (m *memoryRepository) RemoveMember(_ context.Context, roomID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.members[roomID], userID)
	return nil
}

func (m *memoryRepository) Members(_ context.Context, roomID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []string{}
	for userID := range m.members[roomID] {
		out = append(out, userID)
	}
	sort.Strings(out)
	return out, nil
}
