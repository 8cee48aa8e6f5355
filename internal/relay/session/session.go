// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package session issues and validates the short-lived sessions that bind a
// verified user to one tenant for the lifetime of a realtime connection.
package session

import (
	"time"

	"github.com/taibuivan/campuslink/internal/platform/sec"
)

// # Domain Entities

// Session is a proof of authenticated identity inside one tenant.
type Session struct {
	ID        string       `json:"sessionId"`
	UserID    string       `json:"userId"`
	UserType  sec.UserType `json:"userType"`
	TenantID  string       `json:"tenantId"`
	CreatedAt time.Time    `json:"createdAt"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

// Binding is what the coordination store holds for a session id.
//
// A session is only usable when every linked record is present.
type Binding struct {
	UserID      string
	UserType    sec.UserType
	TenantID    string
	UserPointer string
}

// Complete reports whether every linked record was found.
func (binding Binding) Complete() bool {
	return binding.UserID != "" && binding.UserType != "" && binding.TenantID != "" && binding.UserPointer != ""
}

// # Defaults

// DefaultTTL is the session lifetime when the caller does not supply one.
const DefaultTTL = 3600 * time.Second
