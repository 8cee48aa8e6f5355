// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package gateway_test

import (
	"context"
	"sync"
	"time"

	"github.com/taibuivan/campuslink/internal/platform/apperr"
	"github.com/taibuivan/campuslink/internal/platform/sec"
	"github.com/taibuivan/campuslink/internal/relay/identity"
	"github.com/taibuivan/campuslink/internal/relay/message"
	"github.com/taibuivan/campuslink/internal/relay/room"
	"github.com/taibuivan/campuslink/pkg/uuid"
)

// fakeIdentity maps tokens to identities and (tenant, user) pairs to roles.
type fakeIdentity struct {
	tokens map[string]*sec.Identity
	roles  map[string]sec.UserType
}

func (f *fakeIdentity) Verify(_ context.Context, token string) (*sec.Identity, error) {
	verified, ok := f.tokens[token]
	if !ok {
		return nil, identity.ErrTokenRejected
	}
	return verified, nil
}

func (f *fakeIdentity) UserType(_ context.Context, _, tenantID, userID string) (sec.UserType, error) {
	role, ok := f.roles[tenantID+"/"+userID]
	if !ok {
		return "", identity.ErrUserNotFound
	}
	return role, nil
}

// fakeSessions holds session id -> (user, tenant).
type fakeSessions map[string][2]string

func (f fakeSessions) Validate(_ context.Context, sessionID, userID string) bool {
	binding, ok := f[sessionID]
	return ok && binding[0] == userID
}

func (f fakeSessions) TenantOf(_ context.Context, sessionID string) (string, bool) {
	binding, ok := f[sessionID]
	return binding[1], ok
}

// fakeMessages stores messages in memory.
type fakeMessages struct {
	mu     sync.Mutex
	stored []*message.Message
}

func (f *fakeMessages) Record(_ context.Context, sender *sec.Identity, draft message.Draft) (*message.Message, error) {
	if err := message.ValidateDraft(draft); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	stored := &message.Message{
		ID:           uuid.New(),
		SenderID:     sender.UserID,
		SenderType:   sender.UserType,
		RecipientIDs: draft.RecipientIDs,
		TenantID:     sender.TenantID,
		MessageType:  draft.MessageType,
		Content:      draft.Content,
		Status:       message.StatusSent,
		RoomID:       draft.RoomID,
		SentAt:       time.Now().UTC(),
	}
	f.stored = append(f.stored, stored)
	return stored, nil
}

func (f *fakeMessages) MarkRead(_ context.Context, caller *sec.Identity, messageID string) (*message.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, stored := range f.stored {
		if stored.ID == messageID && stored.TenantID == caller.TenantID && stored.HasRecipient(caller.UserID) {
			stored.Status = message.StatusRead
			stored.ReadBy = append(stored.ReadBy, caller.UserID)
			return stored, nil
		}
	}
	return nil, apperr.NotFound("Message")
}

func (f *fakeMessages) all() []*message.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*message.Message(nil), f.stored...)
}

// memoryBus is a process-local room.Bus.
type memoryBus struct {
	mu         sync.Mutex
	subscribed map[string]bool
	deliveries chan room.Delivery
}

func newMemoryBus() *memoryBus {
	return &memoryBus{subscribed: map[string]bool{}, deliveries: make(chan room.Delivery, 64)}
}

func (b *memoryBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subscribed[channel] {
		b.deliveries <- room.Delivery{Channel: channel, Payload: payload}
	}
	return nil
}

func (b *memoryBus) Subscribe(_ context.Context, channels ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, channel := range channels {
		b.subscribed[channel] = true
	}
	return nil
}

func (b *memoryBus) Unsubscribe(_ context.Context, channels ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, channel := range channels {
		delete(b.subscribed, channel)
	}
	return nil
}

func (b *memoryBus) Deliveries() <-chan room.Delivery { return b.deliveries }

func (b *memoryBus) Close() error { return nil }

// fakeRooms records publishes and forwards them to the bus.
type fakeRooms struct {
	bus     *memoryBus
	rooms   map[string]*room.Room
	members map[string][]string

	mu        sync.Mutex
	published []string
}

func (f *fakeRooms) Publish(ctx context.Context, roomKey string, payload []byte) error {
	f.mu.Lock()
	f.published = append(f.published, roomKey)
	f.mu.Unlock()
	return f.bus.Publish(ctx, roomKey, payload)
}

func (f *fakeRooms) FanOut(ctx context.Context, userIDs []string, payload []byte) error {
	for _, userID := range userIDs {
		if err := f.Publish(ctx, room.UserChannel(userID), payload); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeRooms) GetRoom(_ context.Context, tenantID, roomID string) (*room.Room, error) {
	found, ok := f.rooms[roomID]
	if !ok || found.TenantID != tenantID {
		return nil, apperr.NotFound("Room")
	}
	return found, nil
}

func (f *fakeRooms) MembersOf(_ context.Context, roomID string) ([]string, error) {
	return f.members[roomID], nil
}

func (f *fakeRooms) channels() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.published...)
}
