// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package serviceauth_test

import (
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

	"github.com/taibuivan/campuslink/internal/queue/serviceauth"
)

// # Fakes

type fakeGateway struct {
	calls  int
	result serviceauth.Result
	err    error
}

func (f *fakeGateway) ValidateService(context.Context, string, string, string) (serviceauth.Result, error) {
	f.calls++
	return f.result, f.err
}

type cacheEntry struct {
	valid bool
	ttl   time.Duration
}

type fakeCache struct {
	entries map[string]cacheEntry
	readErr error
}

func newFakeCache() *fakeCache { return &fakeCache{entries: map[string]cacheEntry{}} }

func (f *fakeCache) Get(_ context.Context, serviceID, tenantID string) (bool, bool, error) {
	if f.readErr != nil {
		return false, false, f.readErr
	}
	entry, ok := f.entries[serviceID+":"+tenantID]
	return entry.valid, ok, nil
}

func (f *fakeCache) Set(_ context.Context, serviceID, tenantID string, valid bool, ttl time.Duration) error {
	f.entries[serviceID+":"+tenantID] = cacheEntry{valid: valid, ttl: ttl}
	return nil
}

func newAuthenticator(gateway serviceauth.Gateway, cache serviceauth.Cache) *serviceauth.Authenticator {
	return serviceauth.NewAuthenticator(gateway, cache, 10*time.Minute, 5*time.Minute, slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

// # Authenticator

func TestValidate_CachesValidVerdict(t *testing.T) {
	gateway := &fakeGateway{result: serviceauth.Result{Valid: true}}
	cache := newFakeCache()
	auth := newAuthenticator(gateway, cache)
	ctx := context.Background()

	first := auth.Validate(ctx, "grades", "t1", "tok")
	assert.True(t, first.Valid)
	assert.Equal(t, "t1", first.TenantID)
	assert.False(t, first.Cached)

	second := auth.Validate(ctx, "grades", "t1", "tok")
	assert.True(t, second.Valid)
	assert.True(t, second.Cached)

	assert.Equal(t, 1, gateway.calls)
	assert.Equal(t, 10*time.Minute, cache.entries["grades:t1"].ttl)
}

/*
TestValidate_GatewayErrorCachedAsInvalid checks that a failing gateway is asked
once and its failure is remembered for the short TTL.
*/
func TestValidate_GatewayErrorCachedAsInvalid(t *testing.T) {
	gateway := &fakeGateway{err: errors.New("connection refused")}
	cache := newFakeCache()
	auth := newAuthenticator(gateway, cache)
	ctx := context.Background()

	first := auth.Validate(ctx, "grades", "t1", "")
	assert.False(t, first.Valid)
	assert.Equal(t, serviceauth.ReasonGatewayUnavailable, first.Reason)

	second := auth.Validate(ctx, "grades", "t1", "")
	assert.False(t, second.Valid)
	assert.True(t, second.Cached)

	assert.Equal(t, 1, gateway.calls)
	assert.Equal(t, cacheEntry{valid: false, ttl: 5 * time.Minute}, cache.entries["grades:t1"])
}

func TestValidate_InvalidVerdictUntilExpiry(t *testing.T) {
	gateway := &fakeGateway{result: serviceauth.Result{Valid: false}}
	cache := newFakeCache()
	auth := newAuthenticator(gateway, cache)
	ctx := context.Background()

	assert.False(t, auth.Allowed(ctx, "grades", "t1", ""))
	assert.False(t, auth.Allowed(ctx, "grades", "t1", ""))
	assert.Equal(t, 1, gateway.calls)

	// The store drops the key once the negative TTL elapses.
	delete(cache.entries, "grades:t1")
	gateway.result = serviceauth.Result{Valid: true}

	assert.True(t, auth.Allowed(ctx, "grades", "t1", ""))
	assert.Equal(t, 2, gateway.calls)
}

func TestValidate_RejectionHasReason(t *testing.T) {
	auth := newAuthenticator(&fakeGateway{result: serviceauth.Result{Valid: false}}, newFakeCache())

	result := auth.Validate(context.Background(), "grades", "t1", "")
	assert.False(t, result.Valid)
	assert.Equal(t, serviceauth.ReasonRejected, result.Reason)
}

func TestValidate_CacheReadErrorIsMiss(t *testing.T) {
	gateway := &fakeGateway{result: serviceauth.Result{Valid: true}}
	cache := newFakeCache()
	cache.readErr = errors.New("redis down")
	auth := newAuthenticator(gateway, cache)

	assert.True(t, auth.Allowed(context.Background(), "grades", "t1", ""))
	assert.Equal(t, 1, gateway.calls)
}

func TestValidate_MissingIdentifiers(t *testing.T) {
	gateway := &fakeGateway{result: serviceauth.Result{Valid: true}}
	auth := newAuthenticator(gateway, newFakeCache())

	assert.False(t, auth.Allowed(context.Background(), "", "t1", ""))
	assert.False(t, auth.Allowed(context.Background(), "grades", " ", ""))
	assert.Zero(t, gateway.calls)
}

// # Client

func TestClient_ValidateService(t *testing.T) {
	var seen map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/services/validate", r.URL.Path)
		assert.Equal(t, "Bearer svc-token", r.Header.Get("Authorization"))
		_ = json.NewDecoder(r.Body).Decode(&seen)

		switch seen["serviceId"] {
		case "grades":
			_, _ = w.Write([]byte(`{"valid":true,"tenantId":"t1"}`))
		case "spoof":
			_, _ = w.Write([]byte(`{"valid":true,"tenantId":"t2"}`))
		case "banned":
			w.WriteHeader(http.StatusForbidden)
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer server.Close()

	client := serviceauth.NewClient(server.URL+"/", time.Second)
	ctx := context.Background()

	result, err := client.ValidateService(ctx, "grades", "t1", "svc-token")
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, map[string]string{"serviceId": "grades", "tenantId": "t1"}, seen)

	result, err = client.ValidateService(ctx, "spoof", "t1", "svc-token")
	require.NoError(t, err)
	assert.False(t, result.Valid)

	result, err = client.ValidateService(ctx, "banned", "t1", "svc-token")
	require.NoError(t, err)
	assert.False(t, result.Valid)

	_, err = client.ValidateService(ctx, "broken", "t1", "svc-token")
	assert.Error(t, err)
}
