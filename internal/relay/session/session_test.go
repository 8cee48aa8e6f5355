// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/campuslink/internal/platform/sec"
	"github.com/taibuivan/campuslink/internal/relay/session"
)

// # Test Doubles

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type entry struct {
	value     string
	expiresAt time.Time
}

// memoryRepository mimics the store's TTL semantics against a fake clock.
type memoryRepository struct {
	clock   *clock
	keys    map[string]entry
	failGet bool
}

func newMemoryRepository(c *clock) *memoryRepository {
	return &memoryRepository{clock: c, keys: map[string]entry{}}
}

func (m *memoryRepository) get(key string) string {
	e, ok := m.keys[key]
	if !ok || !m.clock.Now().Before(e.expiresAt) {
		return ""
	}
	return e.value
}

func (m *memoryRepository) Create(_ context.Context, s *session.Session, ttl time.Duration) error {
	expiresAt := m.clock.Now().Add(ttl)
	m.keys["s:"+s.ID+":user"] = entry{s.UserID, expiresAt}
	m.keys["s:"+s.ID+":role"] = entry{string(s.UserType), expiresAt}
	m.keys["s:"+s.ID+":tenant"] = entry{s.TenantID, expiresAt}
	m.keys["u:"+s.UserID] = entry{s.ID, expiresAt}
	return nil
}

func (m *memoryRepository) Lookup(_ context.Context, sessionID, userID string) (session.Binding, error) {
	if m.failGet {
		return session.Binding{}, errors.New("connection refused")
	}
	return session.Binding{
		UserID:      m.get("s:" + sessionID + ":user"),
		UserType:    sec.UserType(m.get("s:" + sessionID + ":role")),
		TenantID:    m.get("s:" + sessionID + ":tenant"),
		UserPointer: m.get("u:" + userID),
	}, nil
}

func (m *memoryRepository) Tenant(_ context.Context, sessionID string) (string, error) {
	if m.failGet {
		return "", errors.New("connection refused")
	}
	return m.get("s:" + sessionID + ":tenant"), nil
}

func (m *memoryRepository) Role(_ context.Context, sessionID string) (string, error) {
	if m.failGet {
		return "", errors.New("connection refused")
	}
	return m.get("s:" + sessionID + ":role"), nil
}

func (m *memoryRepository) Delete(_ context.Context, sessionID, userID string) error {
	delete(m.keys, "s:"+sessionID+":user")
	delete(m.keys, "s:"+sessionID+":role")
	delete(m.keys, "s:"+sessionID+":tenant")
	if m.get("u:"+userID) == sessionID {
		delete(m.keys, "u:"+userID)
	}
	return nil
}

func (m *memoryRepository) Extend(_ context.Context, sessionID, userID string, ttl time.Duration) (bool, error) {
	keys := []string{"s:" + sessionID + ":user", "s:" + sessionID + ":role", "s:" + sessionID + ":tenant", "u:" + userID}
	for _, key := range keys {
		if m.get(key) == "" {
			return false, nil
		}
	}
	for _, key := range keys {
		e := m.keys[key]
		e.expiresAt = m.clock.Now().Add(ttl)
		m.keys[key] = e
	}
	return true, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newService(t *testing.T) (*session.Service, *memoryRepository, *clock) {
	t.Helper()
	c := &clock{now: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)}
	repo := newMemoryRepository(c)
	return session.NewService(repo, time.Hour, discardLogger()).WithClock(c.Now), repo, c
}

// # Service

/*
TestValidate_AfterIssue checks the session is valid for its user only.
*/
func TestValidate_AfterIssue(t *testing.T) {
	service, _, _ := newService(t)
	ctx := context.Background()

	issued, err := service.Issue(ctx, "7", sec.UserTypeStaff, "t1", 0)
	require.NoError(t, err)

	assert.True(t, service.Validate(ctx, issued.ID, "7"))
	assert.False(t, service.Validate(ctx, issued.ID, "8"))
	assert.False(t, service.Validate(ctx, "unknown", "7"))

	tenantID, ok := service.TenantOf(ctx, issued.ID)
	assert.True(t, ok)
	assert.Equal(t, "t1", tenantID)

	userType, ok := service.UserTypeOf(ctx, issued.ID)
	assert.True(t, ok)
	assert.Equal(t, sec.UserTypeStaff, userType)
	assert.Equal(t, issued.CreatedAt.Add(time.Hour), issued.ExpiresAt)
}

/*
TestValidate_ExpiresWithoutRevoke checks TTL expiry alone invalidates a session.
*/
func TestValidate_ExpiresWithoutRevoke(t *testing.T) {
	service, _, c := newService(t)
	ctx := context.Background()

	issued, err := service.Issue(ctx, "7", sec.UserTypeStaff, "t1", 10*time.Minute)
	require.NoError(t, err)

	c.Advance(9 * time.Minute)
	assert.True(t, service.Validate(ctx, issued.ID, "7"))

	c.Advance(2 * time.Minute)
	assert.False(t, service.Validate(ctx, issued.ID, "7"))

	_, ok := service.TenantOf(ctx, issued.ID)
	assert.False(t, ok)
}

func TestValidate_PartialTripleIsInvalid(t *testing.T) {
	service, repo, _ := newService(t)
	ctx := context.Background()

	issued, err := service.Issue(ctx, "7", sec.UserTypeStaff, "t1", 0)
	require.NoError(t, err)

	delete(repo.keys, "s:"+issued.ID+":tenant")
	assert.False(t, service.Validate(ctx, issued.ID, "7"))

	other, err := service.Issue(ctx, "8", sec.UserTypeGuardian, "t1", 0)
	require.NoError(t, err)

	delete(repo.keys, "s:"+other.ID+":role")
	assert.False(t, service.Validate(ctx, other.ID, "8"))
	_, ok := service.UserTypeOf(ctx, other.ID)
	assert.False(t, ok)
}

func TestValidate_StoreErrorFailsClosed(t *testing.T) {
	service, repo, _ := newService(t)
	ctx := context.Background()

	issued, err := service.Issue(ctx, "7", sec.UserTypeStaff, "t1", 0)
	require.NoError(t, err)

	repo.failGet = true

	assert.False(t, service.Validate(ctx, issued.ID, "7"))
}

func TestRevoke(t *testing.T) {
	service, _, _ := newService(t)
	ctx := context.Background()

	first, err := service.Issue(ctx, "7", sec.UserTypeStaff, "t1", 0)
	require.NoError(t, err)
	second, err := service.Issue(ctx, "7", sec.UserTypeStaff, "t1", 0)
	require.NoError(t, err)

	// Revoking the older session must not break the newer one.
	require.NoError(t, service.Revoke(ctx, first.ID, "7"))
	assert.False(t, service.Validate(ctx, first.ID, "7"))
	assert.True(t, service.Validate(ctx, second.ID, "7"))

	require.NoError(t, service.Revoke(ctx, second.ID, "7"))
	require.NoError(t, service.Revoke(ctx, second.ID, "7"))
	assert.False(t, service.Validate(ctx, second.ID, "7"))
}

func TestRenew(t *testing.T) {
	service, _, c := newService(t)
	ctx := context.Background()

	issued, err := service.Issue(ctx, "7", sec.UserTypeStaff, "t1", 0)
	require.NoError(t, err)

	c.Advance(50 * time.Minute)
	expiresAt, err := service.Renew(ctx, issued.ID, "7", 0)
	require.NoError(t, err)
	assert.Equal(t, c.Now().Add(time.Hour), expiresAt)

	c.Advance(50 * time.Minute)
	assert.True(t, service.Validate(ctx, issued.ID, "7"))

	c.Advance(time.Hour)
	_, err = service.Renew(ctx, issued.ID, "7", 0)
	assert.Error(t, err)
}

func TestIssue_RejectsBadInput(t *testing.T) {
	service, _, _ := newService(t)

	_, err := service.Issue(context.Background(), "", sec.UserType("janitor"), "", 0)
	assert.Error(t, err)
}

// # HTTP

type stubVerifier struct {
	identity *sec.Identity
	err      error
}

func (s *stubVerifier) Verify(context.Context, string) (*sec.Identity, error) {
	return s.identity, s.err
}

func TestInitiate(t *testing.T) {
	verified := &sec.Identity{UserID: "7", UserType: sec.UserTypeStaff, TenantID: "t1"}

	tests := []struct {
		name       string
		verifier   *stubVerifier
		headers    map[string]string
		wantStatus int
	}{
		{
			name:       "issued",
			verifier:   &stubVerifier{identity: verified},
			headers:    map[string]string{"X-User-ID": "7", "X-User-Type": "staff", "X-Tenant-ID": "t1", "Authorization": "Bearer tok"},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "missing_token",
			verifier:   &stubVerifier{identity: verified},
			headers:    map[string]string{"X-User-ID": "7", "X-User-Type": "staff", "X-Tenant-ID": "t1"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "token_rejected",
			verifier:   &stubVerifier{err: errors.New("expired")},
			headers:    map[string]string{"X-User-ID": "7", "X-User-Type": "staff", "X-Tenant-ID": "t1", "Authorization": "Bearer tok"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "identity_mismatch",
			verifier:   &stubVerifier{identity: verified},
			headers:    map[string]string{"X-User-ID": "7", "X-User-Type": "staff", "X-Tenant-ID": "t2", "Authorization": "Bearer tok"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "missing_headers",
			verifier:   &stubVerifier{identity: verified},
			headers:    map[string]string{"Authorization": "Bearer tok"},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, _, _ := newService(t)
			router := session.NewHandler(service, tt.verifier).Routes()

			request := httptest.NewRequest(http.MethodPost, "/initiate", nil)
			for key, value := range tt.headers {
				request.Header.Set(key, value)
			}
			recorder := httptest.NewRecorder()
			router.ServeHTTP(recorder, request)

			require.Equal(t, tt.wantStatus, recorder.Code)
			if tt.wantStatus != http.StatusCreated {
				return
			}

			var body struct {
				Data session.InitiateResponse `json:"data"`
			}
			require.NoError(t, json.NewDecoder(recorder.Body).Decode(&body))
			assert.NotEmpty(t, body.Data.SessionID)
			assert.True(t, service.Validate(context.Background(), body.Data.SessionID, "7"))
		})
	}
}
