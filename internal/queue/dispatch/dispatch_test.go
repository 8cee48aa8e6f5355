// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package dispatch_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/campuslink/internal/queue/dispatch"
	"github.com/taibuivan/campuslink/internal/queue/task"
)

// # Fakes

type fakeMailer struct {
	sent    []dispatch.Email
	batches []dispatch.Email
}

func (f *fakeMailer) Send(_ context.Context, email dispatch.Email) error {
	f.sent = append(f.sent, email)
	return nil
}

func (f *fakeMailer) SendBatch(_ context.Context, email dispatch.Email) error {
	f.batches = append(f.batches, email)
	return nil
}

type fakeCaller struct {
	requests []dispatch.Request
	response string
	err      error
}

func (f *fakeCaller) Call(_ context.Context, _ *task.Task, request dispatch.Request, out any) error {
	f.requests = append(f.requests, request)
	if f.err != nil {
		return f.err
	}
	if out != nil && f.response != "" {
		return json.Unmarshal([]byte(f.response), out)
	}
	return nil
}

func newDispatcher() (*dispatch.Dispatcher, *fakeMailer, *fakeCaller) {
	mailer := &fakeMailer{}
	caller := &fakeCaller{}
	return dispatch.NewDispatcher(mailer, caller, slog.New(slog.NewJSONHandler(io.Discard, nil))), mailer, caller
}

func newTask(payload task.Payload) *task.Task {
	return &task.Task{ID: "task-1", Type: payload.TaskType(), Payload: payload, TenantID: "t1", ServiceID: "grades"}
}

// # Routing

func TestDispatch_Routes(t *testing.T) {
	tests := []struct {
		name    string
		payload task.Payload
		want    dispatch.Request
	}{
		{
			name:    "media",
			payload: task.MediaProcessing{MediaURL: "s3://bucket/a.jpg", Operations: []string{"thumbnail"}},
			want:    dispatch.Request{Service: "media", Path: "/process"},
		},
		{
			name:    "routing",
			payload: task.ServiceRouting{Service: "grades", Path: "/sync", Method: "put", Body: json.RawMessage(`{"term":2}`)},
			want:    dispatch.Request{Service: "grades", Method: "PUT", Path: "/sync"},
		},
		{
			name:    "notification",
			payload: task.Notification{UserIDs: []string{"42"}, Title: "Bus", Body: "Late"},
			want:    dispatch.Request{Service: "notifications", Path: "/push"},
		},
		{
			name:    "bulk update",
			payload: task.BulkUpdate{Service: "attendance", Path: "/bulk", Records: []json.RawMessage{json.RawMessage(`{"id":1}`)}},
			want:    dispatch.Request{Service: "attendance", Path: "/bulk"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dispatcher, mailer, caller := newDispatcher()

			require.NoError(t, dispatcher.Dispatch(context.Background(), newTask(tt.payload)))

			require.Len(t, caller.requests, 1)
			got := caller.requests[0]
			assert.Equal(t, tt.want.Service, got.Service)
			assert.Equal(t, tt.want.Path, got.Path)
			assert.Equal(t, tt.want.Method, got.Method)
			assert.NotNil(t, got.Body)
			assert.Empty(t, mailer.sent)
		})
	}
}

func TestDispatch_EmailDispatch(t *testing.T) {
	dispatcher, mailer, caller := newDispatcher()

	err := dispatcher.Dispatch(context.Background(), newTask(task.EmailDispatch{
		To: []string{"a@school.edu", "b@school.edu"}, Subject: "Report", Body: "<p>Hi</p>", HTML: true,
	}))
	require.NoError(t, err)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, dispatch.Email{To: []string{"a@school.edu", "b@school.edu"}, Subject: "Report", Body: "<p>Hi</p>", HTML: true}, mailer.sent[0])
	assert.Empty(t, caller.requests)
}

/*
TestDispatch_Announcement resolves emails through the directory and sends one
batch to all of them.
*/
func TestDispatch_Announcement(t *testing.T) {
	dispatcher, mailer, caller := newDispatcher()
	caller.response = `{"emails":["p1@home.net","p2@home.net","p3@home.net"]}`

	err := dispatcher.Dispatch(context.Background(), newTask(task.Announcement{
		Subject: "Snow day", Body: "School is closed", RecipientIDs: []string{"41", "42", "43"},
	}))
	require.NoError(t, err)

	require.Len(t, caller.requests, 1)
	assert.Equal(t, "directory", caller.requests[0].Service)
	assert.Equal(t, map[string]any{"userIds": []string{"41", "42", "43"}}, caller.requests[0].Body)

	require.Len(t, mailer.batches, 1)
	assert.Equal(t, []string{"p1@home.net", "p2@home.net", "p3@home.net"}, mailer.batches[0].To)
	assert.Equal(t, "Snow day", mailer.batches[0].Subject)
}

func TestDispatch_AnnouncementWithoutEmails(t *testing.T) {
	dispatcher, mailer, caller := newDispatcher()
	caller.response = `{"emails":[]}`

	err := dispatcher.Dispatch(context.Background(), newTask(task.Announcement{Subject: "s", Body: "b", RecipientIDs: []string{"1"}}))

	require.NoError(t, err)
	assert.Empty(t, mailer.batches)
}

func TestDispatch_Errors(t *testing.T) {
	dispatcher, _, caller := newDispatcher()
	caller.err = errors.New("503 Service Unavailable")

	err := dispatcher.Dispatch(context.Background(), newTask(task.Notification{UserIDs: []string{"1"}, Title: "t", Body: "b"}))
	assert.EqualError(t, err, "503 Service Unavailable")

	err = dispatcher.Dispatch(context.Background(), &task.Task{ID: "x", Type: "fax"})
	assert.ErrorIs(t, err, dispatch.ErrNoHandler)
}
