// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package message

import (
	"context"
	"time"
)

// # Repository Interface

// Repository defines persistence for message documents.
type Repository interface {
	// Create stores a new message.
	Create(ctx context.Context, message *Message) error

	// History returns messages sent by or to the filter's user, newest first.
	History(ctx context.Context, filter Filter) ([]*Message, error)

	// MarkRead records that userID read the message. Only recipients may mark
	// a message read; anyone else gets a not-found error.
	MarkRead(ctx context.Context, tenantID, messageID, userID string, at time.Time) (*Message, error)
}
