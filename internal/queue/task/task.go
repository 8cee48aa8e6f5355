// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package task defines the durable unit of work carried by the task stream.

A [Task] is immutable once appended. Its [Payload] is a closed set of typed
variants, one per [Type]; a payload that does not decode into the variant of
its type is rejected before it ever reaches the stream.
*/
package task

import (
	"time"
)

// # Task Types

// Type selects the handler that processes a task.
type Type string

const (
	TypeEmailDispatch   Type = "email_dispatch"
	TypeMediaProcessing Type = "media_processing"
	TypeServiceRouting  Type = "service_routing"
	TypeNotification    Type = "notification"
	TypeAnnouncement    Type = "announcement"
	TypeBulkUpdate      Type = "bulk_update"
)

// Types lists every task type in dispatch-table order.
var Types = []Type{
	TypeEmailDispatch,
	TypeMediaProcessing,
	TypeServiceRouting,
	TypeNotification,
	TypeAnnouncement,
	TypeBulkUpdate,
}

// Valid reports whether t has a handler.
func (t Type) Valid() bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}
	return false
}

// # Priority

// Priority is an advisory hint recorded with the task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// ParsePriority maps an empty label to [PriorityNormal].
func ParsePriority(raw string) (Priority, bool) {
	switch Priority(raw) {
	case "":
		return PriorityNormal, true
	case PriorityLow, PriorityNormal, PriorityHigh:
		return Priority(raw), true
	default:
		return "", false
	}
}

// # Domain Entities

// Task is one record of the task stream.
type Task struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Payload   Payload   `json:"payload"`
	TenantID  string    `json:"tenantId"`
	ServiceID string    `json:"serviceId"`
	CreatedAt time.Time `json:"createdAt"`
	Priority  Priority  `json:"priority"`

	// EntryID is the stream entry id assigned on append; empty before that.
	EntryID string `json:"-"`
}
