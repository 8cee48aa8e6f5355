// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"time"
)

// # Repository Interface

// Repository defines persistence for the linked session records.
type Repository interface {
	// Create writes session→user, session→role, session→tenant and user→session
	// with one shared TTL.
	Create(ctx context.Context, session *Session, ttl time.Duration) error

	// Lookup reads the linked records for sessionID and the pointer of userID.
	// Missing records come back empty rather than as an error.
	Lookup(ctx context.Context, sessionID, userID string) (Binding, error)

	// Tenant returns the tenant bound to sessionID, or "" when absent.
	Tenant(ctx context.Context, sessionID string) (string, error)

	// Role returns the verified user type bound to sessionID, or "" when absent.
	Role(ctx context.Context, sessionID string) (string, error)

	// Delete removes the session records. The user pointer is removed only
	// while it still points at sessionID.
	Delete(ctx context.Context, sessionID, userID string) error

	// Extend resets the TTL of every record. It reports false if any is gone.
	Extend(ctx context.Context, sessionID, userID string, ttl time.Duration) (bool, error)
}
