// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package dispatch runs the handler of each task type.

Every handler either completes its side effect or returns an error; the
consumer acknowledges a task only on a nil error, so handlers must tolerate
being run again for the same task. Downstream calls carry the task id for
that purpose.
*/
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/taibuivan/campuslink/internal/queue/task"
)

// ErrNoHandler is returned for a task whose payload has no handler.
var ErrNoHandler = errors.New("dispatch: no handler for task")

// Caller performs downstream calls for a task.
type Caller interface {
	Call(ctx context.Context, t *task.Task, request Request, out any) error
}

// Dispatcher routes a decoded task to exactly one handler.
type Dispatcher struct {
	mailer     Mailer
	downstream Caller
	logger     *slog.Logger
}

// NewDispatcher constructs a [Dispatcher].
func NewDispatcher(mailer Mailer, downstream Caller, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		mailer:     mailer,
		downstream: downstream,
		logger:     logger.With(slog.String("component", "dispatch")),
	}
}

// Dispatch runs the handler for t.Payload.
func (dispatcher *Dispatcher) Dispatch(ctx context.Context, t *task.Task) error {
	switch payload := t.Payload.(type) {
	case task.EmailDispatch:
		return dispatcher.emailDispatch(ctx, payload)
	case task.MediaProcessing:
		return dispatcher.downstream.Call(ctx, t, Request{Service: ServiceMedia, Path: "/process", Body: payload}, nil)
	case task.ServiceRouting:
		return dispatcher.downstream.Call(ctx, t, Request{
			Service: payload.Service,
			Method:  payload.HTTPMethod(),
			Path:    payload.Path,
			Body:    payload.Body,
		}, nil)
	case task.Notification:
		return dispatcher.downstream.Call(ctx, t, Request{Service: ServiceNotifications, Path: "/push", Body: payload}, nil)
	case task.Announcement:
		return dispatcher.announcement(ctx, t, payload)
	case task.BulkUpdate:
		return dispatcher.downstream.Call(ctx, t, Request{
			Service: payload.Service,
			Path:    payload.Path,
			Body:    map[string]any{"records": payload.Records},
		}, nil)
	default:
		return fmt.Errorf("%w: type %q", ErrNoHandler, t.Type)
	}
}

func (dispatcher *Dispatcher) emailDispatch(ctx context.Context, payload task.EmailDispatch) error {
	return dispatcher.mailer.Send(ctx, Email{
		To:      payload.To,
		Subject: payload.Subject,
		Body:    payload.Body,
		HTML:    payload.HTML,
	})
}

// emailLookup is the directory's answer to POST /users/emails.
type emailLookup struct {
	Emails []string `json:"emails"`
}

/*
announcement resolves recipient emails through the directory service and
sends one batched email to all of them.
*/
func (dispatcher *Dispatcher) announcement(ctx context.Context, t *task.Task, payload task.Announcement) error {
	var lookup emailLookup
	err := dispatcher.downstream.Call(ctx, t, Request{
		Service: ServiceDirectory,
		Path:    "/users/emails",
		Body:    map[string]any{"userIds": payload.RecipientIDs},
	}, &lookup)
	if err != nil {
		return err
	}

	if len(lookup.Emails) == 0 {
		dispatcher.logger.WarnContext(ctx, "announcement_no_recipients",
			slog.String("task_id", t.ID),
			slog.Int("requested", len(payload.RecipientIDs)),
		)
		return nil
	}

	return dispatcher.mailer.SendBatch(ctx, Email{
		To:      lookup.Emails,
		Subject: payload.Subject,
		Body:    payload.Body,
	})
}
