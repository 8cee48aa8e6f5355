// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package task

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/taibuivan/campuslink/pkg/convert"
)

// Stream record field names.
const (
	FieldID        = "id"
	FieldService   = "service"
	FieldType      = "type"
	FieldPayload   = "payload"
	FieldTenantID  = "tenantId"
	FieldTimestamp = "timestamp"
	FieldPriority  = "priority"
)

// ErrMalformedRecord is returned for stream entries that cannot become a [Task].
var ErrMalformedRecord = errors.New("task: malformed record")

// Fields renders a task as stream record fields. The timestamp is unix milliseconds.
func (t *Task) Fields() (map[string]any, error) {
	payload, err := json.Marshal(t.Payload)
	if err != nil {
		return nil, fmt.Errorf("task: encode payload: %w", err)
	}

	return map[string]any{
		FieldID:        t.ID,
		FieldService:   t.ServiceID,
		FieldType:      string(t.Type),
		FieldPayload:   string(payload),
		FieldTenantID:  t.TenantID,
		FieldTimestamp: strconv.FormatInt(t.CreatedAt.UnixMilli(), 10),
		FieldPriority:  string(t.Priority),
	}, nil
}

/*
FromRecord rebuilds a task from a stream entry.

An unknown type is reported with [ErrUnknownType] and a payload that does not
match its type with [ErrMalformedRecord]; either way the caller decides what
happens to the entry. The returned task carries the header fields even when
the payload could not be decoded.
*/
func FromRecord(entryID string, values map[string]any) (*Task, error) {
	t := &Task{
		ID:        convert.ToString(values[FieldID]),
		Type:      Type(convert.ToString(values[FieldType])),
		TenantID:  convert.ToString(values[FieldTenantID]),
		ServiceID: convert.ToString(values[FieldService]),
		CreatedAt: convert.UnixMilli(convert.ToString(values[FieldTimestamp])),
		Priority:  Priority(convert.ToString(values[FieldPriority])),
		EntryID:   entryID,
	}

	if t.ID == "" || t.Type == "" {
		return t, fmt.Errorf("%w: missing id or type", ErrMalformedRecord)
	}
	if !t.Type.Valid() {
		return t, fmt.Errorf("%w: %q", ErrUnknownType, t.Type)
	}

	payload, err := DecodePayload(t.Type, json.RawMessage(convert.ToString(values[FieldPayload])))
	if err != nil {
		return t, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	t.Payload = payload

	return t, nil
}
