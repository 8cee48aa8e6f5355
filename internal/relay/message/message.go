// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package message defines the relay's message document and its history store.
//
// A message is immutable after creation except for its status fields, which
// move forward from sent to read as recipients acknowledge it.
package message

import (
	"time"

	"github.com/taibuivan/campuslink/internal/platform/sec"
)

// # Message Types

// Type classifies a message.
type Type string

const (
	TypeDirect       Type = "direct"
	TypeGroup        Type = "group"
	TypeAnnouncement Type = "announcement"
	TypeDailyNote    Type = "daily-note"
	TypeMedia        Type = "media"
)

// Types lists every message type.
var Types = []Type{TypeDirect, TypeGroup, TypeAnnouncement, TypeDailyNote, TypeMedia}

// Valid reports whether t is a known message type.
func (t Type) Valid() bool {
	switch t {
	case TypeDirect, TypeGroup, TypeAnnouncement, TypeDailyNote, TypeMedia:
		return true
	default:
		return false
	}
}

// # Delivery Status

// Status is the delivery state of a message.
type Status string

const (
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
)

// # Domain Entities

// Message is the document persisted for every relayed message.
type Message struct {
	ID           string       `json:"id"`
	SenderID     string       `json:"senderId"`
	SenderType   sec.UserType `json:"senderType"`
	RecipientIDs []string     `json:"recipientIds"`
	TenantID     string       `json:"tenantId"`
	MessageType  Type         `json:"messageType"`
	Subject      *string      `json:"subject,omitempty"`
	Content      string       `json:"content"`
	MediaURLs    []string     `json:"mediaUrls,omitempty"`
	Status       Status       `json:"status"`
	ReadBy       []string     `json:"readBy,omitempty"`
	RoomID       string       `json:"roomId,omitempty"`
	SentAt       time.Time    `json:"sentAt"`
	DeliveredAt  *time.Time   `json:"deliveredAt,omitempty"`
	ReadAt       *time.Time   `json:"readAt,omitempty"`
	ExpiresAt    *time.Time   `json:"expiresAt,omitempty"`
}

// HasRecipient reports whether userID is one of the message's recipients.
func (message *Message) HasRecipient(userID string) bool {
	for _, recipient := range message.RecipientIDs {
		if recipient == userID {
			return true
		}
	}
	return false
}

// # Filter & Constraints

// Filter selects a page of a user's history inside one tenant.
type Filter struct {
	TenantID string
	UserID   string
	Types    []Type
	Limit    int
	Before   *time.Time
}

const (
	// MaxContentLength bounds message bodies.
	MaxContentLength = 10000

	// MaxSubjectLength bounds subjects.
	MaxSubjectLength = 200

	// MaxMediaURLs bounds attachments per message.
	MaxMediaURLs = 10

	// MaxRecipients bounds the fan-out of one message.
	MaxRecipients = 500
)
