// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package ingress accepts tasks from authenticated services and appends them to
the task stream.

Enqueue answers as soon as the record is appended; it never waits for, or
reports on, processing.
*/
package ingress

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/taibuivan/campuslink/internal/platform/apperr"
	"github.com/taibuivan/campuslink/internal/platform/sec"
	"github.com/taibuivan/campuslink/internal/platform/validate"
	"github.com/taibuivan/campuslink/internal/queue/task"
	"github.com/taibuivan/campuslink/pkg/uuid"
)

// Field names used in validation errors.
const (
	FieldType     = "type"
	FieldPayload  = "payload"
	FieldPriority = "priority"
)

// Appender writes a task to the stream.
type Appender interface {
	Append(ctx context.Context, t *task.Task) (string, error)
}

// EnqueueInput is the caller-controlled part of a task.
type EnqueueInput struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Priority string          `json:"priority,omitempty"`
}

// Service appends validated tasks.
type Service struct {
	appender Appender
	now      func() time.Time
	logger   *slog.Logger
}

// NewService constructs an ingress [Service].
func NewService(appender Appender, logger *slog.Logger) *Service {
	return &Service{
		appender: appender,
		now:      time.Now,
		logger:   logger.With(slog.String("component", "ingress")),
	}
}

/*
Enqueue validates input and appends one immutable task on behalf of caller.

Parameters:
  - ctx: context.Context
  - input: EnqueueInput
  - caller: *sec.ServiceCaller (already validated by the service authenticator)

Returns:
  - string: The generated task id
  - error: ValidationError for bad input, DependencyFailure when the append fails
*/
func (service *Service) Enqueue(ctx context.Context, input EnqueueInput, caller *sec.ServiceCaller) (string, error) {
	input.Type = strings.TrimSpace(input.Type)

	validator := &validate.Validator{}
	validator.Required(FieldType, input.Type).
		JSONPayload(FieldPayload, input.Payload)
	priority, ok := task.ParsePriority(input.Priority)
	validator.Custom(FieldPriority, !ok, "Must be one of: low, normal, high")
	if err := validator.Err(); err != nil {
		return "", err
	}

	taskType := task.Type(input.Type)
	if !taskType.Valid() {
		return "", validate.RequiredError(FieldType, "Unknown task type")
	}

	payload, err := task.DecodePayload(taskType, input.Payload)
	if err != nil {
		if errors.Is(err, task.ErrUnknownType) {
			return "", validate.RequiredError(FieldType, "Unknown task type")
		}
		return "", validate.RequiredError(FieldPayload, "Does not match the payload of type "+input.Type)
	}
	if err := payload.Validate(); err != nil {
		return "", err
	}

	t := &task.Task{
		ID:        uuid.New(),
		Type:      taskType,
		Payload:   payload,
		TenantID:  caller.TenantID,
		ServiceID: caller.ServiceID,
		CreatedAt: service.now().UTC(),
		Priority:  priority,
	}

	entryID, err := service.appender.Append(ctx, t)
	if err != nil {
		return "", apperr.DependencyFailure("Task stream", err)
	}

	service.logger.InfoContext(ctx, "task_enqueued",
		slog.String("task_id", t.ID),
		slog.String("entry_id", entryID),
		slog.String("type", string(t.Type)),
		slog.String("service_id", t.ServiceID),
		slog.String("tenant_id", t.TenantID),
	)

	return t.ID, nil
}
