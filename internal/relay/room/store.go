// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package room

import (
	"context"
	"time"
)

// # Repository Interface

// Repository defines storage for group room metadata and membership.
type Repository interface {
	// Save writes the room metadata and replaces its member set, both expiring after ttl.
	Save(ctx context.Context, room *Room, ttl time.Duration) error

	// Find returns the room metadata or apperr.NotFound.
	Find(ctx context.Context, roomID string) (*Room, error)

	// AddMember adds userID to the member set and resets its TTL.
	AddMember(ctx context.Context, roomID, userID string, ttl time.Duration) error

	// RemoveMember removes userID from the member set.
	RemoveMember(ctx context.Context, roomID, userID string) error

	// Members returns the current member ids. An absent room yields an empty set.
	Members(ctx context.Context, roomID string) ([]string, error)
}
