// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import "strings"

// # User Types

// UserType is the school role a participant holds inside a tenant.
type UserType string

const (
	// School employees (teachers, assistants, office staff)
	UserTypeStaff UserType = "staff"

	// Head of the school
	UserTypeDirector UserType = "director"

	// Parent or legal guardian of a student
	UserTypeGuardian UserType = "guardian"

	// Enrolled pupil
	UserTypeStudent UserType = "student"
)

// UserTypes lists every known user type in a stable order.
var UserTypes = []UserType{UserTypeStaff, UserTypeDirector, UserTypeGuardian, UserTypeStudent}

// ParseUserType normalises a raw label (case-insensitive) into a [UserType].
// The second return value is false when the label is not a known type.
func ParseUserType(raw string) (UserType, bool) {
	candidate := UserType(strings.ToLower(strings.TrimSpace(raw)))
	return candidate, candidate.Valid()
}

// Valid reports whether t is one of the known user types.
func (t UserType) Valid() bool {
	switch t {
	case UserTypeStaff, UserTypeDirector, UserTypeGuardian, UserTypeStudent:
		return true
	default:
		return false
	}
}

// DisplayName is the capitalised label used in human-readable messages.
func (t UserType) DisplayName() string {
	if t == "" {
		return ""
	}
	return strings.ToUpper(string(t[:1])) + string(t[1:])
}

// # Caller Identities

// Identity is the authenticated participant bound to a session or connection.
//
// It is immutable after construction: handlers receive it by pointer but never
// mutate it, and never re-derive it from inbound payload fields.
type Identity struct {
	UserID    string   `json:"userId"`
	UserType  UserType `json:"userType"`
	TenantID  string   `json:"tenantId"`
	SessionID string   `json:"sessionId,omitempty"`
	Token     string   `json:"-"`
}

// ServiceCaller is a calling service validated by the service authenticator.
type ServiceCaller struct {
	ServiceID string `json:"serviceId"`
	TenantID  string `json:"tenantId"`
	Token     string `json:"-"`
}
