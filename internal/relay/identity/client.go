// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package identity talks to the external identity gateway.

Two questions are asked of it:

  - Who does this bearer token belong to? (POST /auth/validate)
  - What role does user X hold in tenant T? (GET /users/{id})

Every failure (transport error, non-2xx status, malformed body, unknown role)
is returned as an error and callers treat it as a rejection.
*/
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/taibuivan/campuslink/internal/platform/constants"
	"github.com/taibuivan/campuslink/internal/platform/sec"
)

var (
	// ErrTokenRejected is returned when the gateway does not accept a token.
	ErrTokenRejected = errors.New("identity: token rejected")

	// ErrUserNotFound is returned when a user does not exist in the requested tenant.
	ErrUserNotFound = errors.New("identity: user not found")
)

// maxBodyBytes bounds gateway responses.
const maxBodyBytes = 64 << 10

// validateResponse is the body of POST /auth/validate.
type validateResponse struct {
	Valid    bool   `json:"valid"`
	UserID   string `json:"userId"`
	UserType string `json:"userType"`
	TenantID string `json:"tenantId"`
}

// userResponse is the body of GET /users/{id}.
type userResponse struct {
	ID       string `json:"id"`
	UserType string `json:"userType"`
	TenantID string `json:"tenantId"`
}

// Client is the HTTP adapter for the identity gateway.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a [Client] with a per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

/*
Verify resolves a bearer token to the identity it was issued for.

Returns:
  - *sec.Identity: UserID, UserType, TenantID and the token itself
  - error: ErrTokenRejected, or a transport/decoding error
*/
func (client *Client) Verify(ctx context.Context, token string) (*sec.Identity, error) {
	if token == "" {
		return nil, ErrTokenRejected
	}

	var body validateResponse
	status, err := client.do(ctx, http.MethodPost, "/auth/validate", token, "", &body)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden || !body.Valid {
		return nil, ErrTokenRejected
	}

	userType, ok := sec.ParseUserType(body.UserType)
	if !ok || body.UserID == "" || body.TenantID == "" {
		return nil, fmt.Errorf("identity: incomplete validation response: %w", ErrTokenRejected)
	}

	return &sec.Identity{
		UserID:   body.UserID,
		UserType: userType,
		TenantID: body.TenantID,
		Token:    token,
	}, nil
}

/*
UserType looks up the role of userID inside tenantID, authenticating with the
caller's own token. A user that belongs to another tenant is reported as
[ErrUserNotFound].
*/
func (client *Client) UserType(ctx context.Context, token, tenantID, userID string) (sec.UserType, error) {
	var body userResponse
	status, err := client.do(ctx, http.MethodGet, "/users/"+url.PathEscape(userID), token, tenantID, &body)
	if err != nil {
		return "", err
	}

	switch status {
	case http.StatusNotFound:
		return "", ErrUserNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return "", ErrTokenRejected
	}

	if body.TenantID != "" && body.TenantID != tenantID {
		return "", ErrUserNotFound
	}

	userType, ok := sec.ParseUserType(body.UserType)
	if !ok {
		return "", fmt.Errorf("identity: user %s has unknown type %q", userID, body.UserType)
	}
	return userType, nil
}

// do performs one request. 401/403/404 are returned as a status with a nil error;
// any other non-2xx status is an error.
func (client *Client) do(ctx context.Context, method, path, token, tenantID string, out any) (int, error) {
	request, err := http.NewRequestWithContext(ctx, method, client.baseURL+path, nil)
	if err != nil {
		return 0, fmt.Errorf("identity: build request: %w", err)
	}
	request.Header.Set(constants.HeaderAuthorization, constants.BearerPrefix+token)
	request.Header.Set("Accept", "application/json")
	if tenantID != "" {
		request.Header.Set(constants.HeaderTenantID, tenantID)
	}

	response, err := client.http.Do(request)
	if err != nil {
		return 0, fmt.Errorf("identity: request %s: %w", path, err)
	}
	defer response.Body.Close()

	switch {
	case response.StatusCode == http.StatusUnauthorized,
		response.StatusCode == http.StatusForbidden,
		response.StatusCode == http.StatusNotFound:
		return response.StatusCode, nil
	case response.StatusCode < 200 || response.StatusCode > 299:
		return response.StatusCode, fmt.Errorf("identity: %s returned %s", path, response.Status)
	}

	if err := json.NewDecoder(io.LimitReader(response.Body, maxBodyBytes)).Decode(out); err != nil {
		return response.StatusCode, fmt.Errorf("identity: decode %s: %w", path, err)
	}
	return response.StatusCode, nil
}
