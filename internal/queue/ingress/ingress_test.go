// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ingress_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/campuslink/internal/platform/apperr"
	"github.com/taibuivan/campuslink/internal/platform/ctxutil"
	"github.com/taibuivan/campuslink/internal/platform/middleware"
	"github.com/taibuivan/campuslink/internal/platform/sec"
	"github.com/taibuivan/campuslink/internal/queue/ingress"
	"github.com/taibuivan/campuslink/internal/queue/task"
)

type fakeAppender struct {
	appended []*task.Task
	err      error
}

func (f *fakeAppender) Append(_ context.Context, t *task.Task) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.appended = append(f.appended, t)
	return "1-0", nil
}

var caller = &sec.ServiceCaller{ServiceID: "grades", TenantID: "t1"}

func newService(appender ingress.Appender) *ingress.Service {
	return ingress.NewService(appender, slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

func TestEnqueue(t *testing.T) {
	appender := &fakeAppender{}
	service := newService(appender)

	taskID, err := service.Enqueue(context.Background(), ingress.EnqueueInput{
		Type:    "email_dispatch",
		Payload: json.RawMessage(`{"to":["parent@school.edu"],"subject":"Report","body":"Attached"}`),
	}, caller)
	require.NoError(t, err)
	require.Len(t, appender.appended, 1)

	appended := appender.appended[0]
	assert.Equal(t, taskID, appended.ID)
	assert.Equal(t, task.TypeEmailDispatch, appended.Type)
	assert.Equal(t, "grades", appended.ServiceID)
	assert.Equal(t, "t1", appended.TenantID)
	assert.Equal(t, task.PriorityNormal, appended.Priority)
	assert.WithinDuration(t, time.Now(), appended.CreatedAt, time.Minute)
	assert.IsType(t, task.EmailDispatch{}, appended.Payload)
}

/*
TestEnqueue_Rejected checks that nothing reaches the stream for invalid input.
*/
func TestEnqueue_Rejected(t *testing.T) {
	tests := []struct {
		name  string
		input ingress.EnqueueInput
	}{
		{name: "missing type", input: ingress.EnqueueInput{Payload: json.RawMessage(`{}`)}},
		{name: "missing payload", input: ingress.EnqueueInput{Type: "notification"}},
		{name: "null payload", input: ingress.EnqueueInput{Type: "notification", Payload: json.RawMessage(`null`)}},
		{name: "unknown type", input: ingress.EnqueueInput{Type: "fax", Payload: json.RawMessage(`{}`)}},
		{name: "mismatched payload", input: ingress.EnqueueInput{Type: "notification", Payload: json.RawMessage(`{"to":["a@b.c"]}`)}},
		{name: "invalid payload", input: ingress.EnqueueInput{Type: "notification", Payload: json.RawMessage(`{"userIds":[],"title":"x","body":"y"}`)}},
		{name: "bad priority", input: ingress.EnqueueInput{Type: "notification", Payload: json.RawMessage(`{"userIds":["1"],"title":"x","body":"y"}`), Priority: "urgent"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appender := &fakeAppender{}
			_, err := newService(appender).Enqueue(context.Background(), tt.input, caller)
			assert.True(t, apperr.HasCode(err, apperr.CodeValidation))
			assert.Empty(t, appender.appended)
		})
	}
}

func TestEnqueue_AppendFailure(t *testing.T) {
	service := newService(&fakeAppender{err: errors.New("redis down")})

	_, err := service.Enqueue(context.Background(), ingress.EnqueueInput{
		Type:    "notification",
		Payload: json.RawMessage(`{"userIds":["1"],"title":"x","body":"y"}`),
	}, caller)

	assert.True(t, apperr.HasCode(err, apperr.CodeDependencyFailure))
}

type allowList map[string]bool

func (a allowList) Allowed(_ context.Context, serviceID, tenantID, _ string) bool {
	return a[serviceID+"/"+tenantID]
}

func TestEnqueueHandler(t *testing.T) {
	appender := &fakeAppender{}
	router := middleware.RequireService(allowList{"grades/t1": true})(ingress.NewHandler(newService(appender)).Routes())

	serve := func(serviceID, body string) *httptest.ResponseRecorder {
		request := httptest.NewRequest(http.MethodPost, "/task", bytes.NewBufferString(body))
		request.Header.Set("X-Service-ID", serviceID)
		request.Header.Set("X-Tenant-ID", "t1")
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, request)
		return recorder
	}

	recorder := serve("grades", `{"type":"notification","payload":{"userIds":["1"],"title":"x","body":"y"}}`)
	require.Equal(t, http.StatusAccepted, recorder.Code)

	var body struct {
		Data ingress.EnqueueResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&body))
	assert.NotEmpty(t, body.Data.TaskID)
	require.Len(t, appender.appended, 1)
	assert.Equal(t, body.Data.TaskID, appender.appended[0].ID)

	assert.Equal(t, http.StatusUnauthorized, serve("intruder", `{"type":"notification","payload":{}}`).Code)
	assert.Equal(t, http.StatusBadRequest, serve("grades", `{"type":""}`).Code)
	assert.Len(t, appender.appended, 1)
}

func TestEnqueueHandler_RequiresCaller(t *testing.T) {
	router := ingress.NewHandler(newService(&fakeAppender{})).Routes()

	request := httptest.NewRequest(http.MethodPost, "/task", bytes.NewBufferString(`{}`))
	request = request.WithContext(ctxutil.WithRequestID(request.Context(), "req-1"))
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}
