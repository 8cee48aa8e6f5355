// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package room coordinates fan-out targets for the realtime relay.

Two kinds of room exist:

  - Direct rooms are implicit. Every user has the channel "user:<id>" and any
    publish on it reaches whichever connections of that user are live.
  - Group rooms are explicit. Their metadata and member set live in the
    coordination store with a TTL, and a group send publishes once per member.

Cross-instance delivery runs over Redis pub/sub ([RedisBus]); the [Hub] fans
each received payload out to the local connections that joined the channel.
*/
package room

import (
	"time"

	"github.com/taibuivan/campuslink/internal/platform/constants"
	"github.com/taibuivan/campuslink/internal/platform/sec"
)

// # Domain Entities

// Participant is one member of a group room as recorded at creation.
type Participant struct {
	UserID   string       `json:"userId"`
	UserType sec.UserType `json:"userType"`
	JoinedAt time.Time    `json:"joinedAt"`
}

// Room is the metadata of an explicit group room.
type Room struct {
	ID           string        `json:"roomId"`
	TenantID     string        `json:"tenantId"`
	Name         string        `json:"name"`
	Slug         string        `json:"slug"`
	CreatedBy    string        `json:"createdBy"`
	Participants []Participant `json:"participants"`
	CreatedAt    time.Time     `json:"createdAt"`
	ExpiresAt    time.Time     `json:"expiresAt"`
	IsGroup      bool          `json:"isGroup"`
}

// ParticipantInput is a participant as named by the room creator.
type ParticipantInput struct {
	UserID   string `json:"userId"`
	UserType string `json:"userType"`
}

// # Channels

// UserChannel is the pub/sub channel of a user's implicit direct room.
func UserChannel(userID string) string {
	return constants.ChannelPrefixUser + userID
}

// # Constraints

const (
	// DefaultTTL is the lifetime of a group room's metadata and membership.
	DefaultTTL = 24 * time.Hour

	// MaxNameLength bounds room display names.
	MaxNameLength = 100

	// MaxParticipants bounds a group room's size, creator excluded.
	MaxParticipants = 200
)

// JSON field names reported in validation errors.
const (
	FieldName         = "name"
	FieldParticipants = "participants"
	FieldRoomID       = "roomId"
)
