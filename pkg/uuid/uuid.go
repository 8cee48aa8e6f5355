// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package uuid provides the time-ordered identifiers used across campuslink.

Sessions, rooms, messages, tasks and request ids are all UUIDv7 values, so
lexical order follows creation order (millisecond precision) and the message
table primary key stays append-friendly.
*/
package uuid

import "github.com/google/uuid"

// New generates a new UUIDv7 string.
func New() string {
	id, err := uuid.NewV7()

	// entropy failure is an unrecoverable system-level error
	if err != nil {
		panic("uuid: failed to generate UUIDv7: " + err.Error())
	}

	return id.String()
}

// Valid reports whether s is a canonical UUID of any version.
func Valid(s string) bool {
	return uuid.Validate(s) == nil && len(s) == 36
}
