// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package task

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/taibuivan/campuslink/internal/platform/validate"
)

// ErrUnknownType is returned when a type has no payload variant.
var ErrUnknownType = errors.New("task: unknown type")

// Payload is the typed body of a task. The set of implementations is closed.
type Payload interface {
	// TaskType is the type this payload belongs to.
	TaskType() Type

	// Validate checks the payload's required fields.
	Validate() error

	sealed()
}

// # Variants

// EmailDispatch sends one email to a list of addresses.
type EmailDispatch struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
	HTML    bool     `json:"html,omitempty"`
}

// MediaProcessing asks the media service to process an uploaded asset.
type MediaProcessing struct {
	MediaURL   string   `json:"mediaUrl"`
	MessageID  string   `json:"messageId,omitempty"`
	Operations []string `json:"operations"`
}

// ServiceRouting forwards an arbitrary request to a named downstream service.
type ServiceRouting struct {
	Service string          `json:"service"`
	Path    string          `json:"path"`
	Method  string          `json:"method,omitempty"`
	Body    json.RawMessage `json:"body,omitempty"`
}

// Notification pushes a notification to a set of users.
type Notification struct {
	UserIDs []string       `json:"userIds"`
	Title   string         `json:"title"`
	Body    string         `json:"body"`
	Data    map[string]any `json:"data,omitempty"`
}

// Announcement emails every recipient in one batched send.
type Announcement struct {
	Subject      string   `json:"subject"`
	Body         string   `json:"body"`
	RecipientIDs []string `json:"recipientIds"`
}

// BulkUpdate posts a batch of records to a named downstream service.
type BulkUpdate struct {
	Service string            `json:"service"`
	Path    string            `json:"path"`
	Records []json.RawMessage `json:"records"`
}

func (EmailDispatch) TaskType() Type   { return TypeEmailDispatch }
func (MediaProcessing) TaskType() Type { return TypeMediaProcessing }
func (ServiceRouting) TaskType() Type  { return TypeServiceRouting }
func (Notification) TaskType() Type    { return TypeNotification }
func (Announcement) TaskType() Type    { return TypeAnnouncement }
func (BulkUpdate) TaskType() Type      { return TypeBulkUpdate }

func (EmailDispatch) sealed()   {}
func (MediaProcessing) sealed() {}
func (ServiceRouting) sealed()  {}
func (Notification) sealed()    {}
func (Announcement) sealed()    {}
func (BulkUpdate) sealed()      {}

// # Validation

func (p EmailDispatch) Validate() error {
	validator := &validate.Validator{}
	validator.Items("payload.to", len(p.To), 1, MaxRecipients).
		Required("payload.subject", p.Subject).
		Required("payload.body", p.Body)
	for _, address := range p.To {
		validator.Email("payload.to", address)
	}
	return validator.Err()
}

func (p MediaProcessing) Validate() error {
	validator := &validate.Validator{}
	validator.Required("payload.mediaUrl", p.MediaURL).
		Items("payload.operations", len(p.Operations), 1, MaxOperations)
	return validator.Err()
}

func (p ServiceRouting) Validate() error {
	validator := &validate.Validator{}
	validator.Required("payload.service", p.Service).
		Required("payload.path", p.Path).
		Custom("payload.path", p.Path != "" && !strings.HasPrefix(p.Path, "/"), "Must start with /").
		Custom("payload.method", !validMethod(p.Method), "Must be GET, POST, PUT, PATCH or DELETE")
	return validator.Err()
}

func (p Notification) Validate() error {
	validator := &validate.Validator{}
	validator.Items("payload.userIds", len(p.UserIDs), 1, MaxRecipients).
		Required("payload.title", p.Title).
		Required("payload.body", p.Body)
	return validator.Err()
}

func (p Announcement) Validate() error {
	validator := &validate.Validator{}
	validator.Required("payload.subject", p.Subject).
		Required("payload.body", p.Body).
		Items("payload.recipientIds", len(p.RecipientIDs), 1, MaxRecipients)
	return validator.Err()
}

func (p BulkUpdate) Validate() error {
	validator := &validate.Validator{}
	validator.Required("payload.service", p.Service).
		Required("payload.path", p.Path).
		Custom("payload.path", p.Path != "" && !strings.HasPrefix(p.Path, "/"), "Must start with /").
		Items("payload.records", len(p.Records), 1, MaxRecords)
	return validator.Err()
}

const (
	// MaxRecipients bounds addressees of one task.
	MaxRecipients = 1000

	// MaxOperations bounds media operations of one task.
	MaxOperations = 20

	// MaxRecords bounds records of one bulk update.
	MaxRecords = 5000
)

// HTTPMethod is the request method of a routing payload, POST when unset.
func (p ServiceRouting) HTTPMethod() string {
	if p.Method == "" {
		return http.MethodPost
	}
	return strings.ToUpper(p.Method)
}

func validMethod(method string) bool {
	switch strings.ToUpper(method) {
	case "", http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

// # Decoding

/*
DecodePayload decodes raw into the variant of t.

Returns:
  - Payload: The typed variant, not yet validated
  - error: ErrUnknownType, or a decode error when raw does not match the variant
*/
func DecodePayload(t Type, raw json.RawMessage) (Payload, error) {
	switch t {
	case TypeEmailDispatch:
		return decodeInto[EmailDispatch](raw)
	case TypeMediaProcessing:
		return decodeInto[MediaProcessing](raw)
	case TypeServiceRouting:
		return decodeInto[ServiceRouting](raw)
	case TypeNotification:
		return decodeInto[Notification](raw)
	case TypeAnnouncement:
		return decodeInto[Announcement](raw)
	case TypeBulkUpdate:
		return decodeInto[BulkUpdate](raw)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
}

func decodeInto[T Payload](raw json.RawMessage) (Payload, error) {
	var payload T
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&payload); err != nil {
		return nil, fmt.Errorf("task: decode %s payload: %w", payload.TaskType(), err)
	}
	return payload, nil
}
