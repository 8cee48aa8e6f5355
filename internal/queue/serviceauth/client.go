// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package serviceauth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/taibuivan/campuslink/internal/platform/constants"
)

// maxBodyBytes bounds gateway responses.
const maxBodyBytes = 64 << 10

// validatePath is the validation gateway's endpoint.
const validatePath = "/services/validate"

type validateRequest struct {
	ServiceID string `json:"serviceId"`
	TenantID  string `json:"tenantId"`
}

// Client is the HTTP adapter for the validation gateway.
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
ValidateService implements [Gateway].

401, 403 and 404 are definite rejections and return an invalid result with a
nil error; other non-2xx statuses and transport failures are errors.
*/
func (client *Client) ValidateService(ctx context.Context, serviceID, tenantID, token string) (Result, error) {
	body, err := json.Marshal(validateRequest{ServiceID: serviceID, TenantID: tenantID})
	if err != nil {
		return Result{}, fmt.Errorf("serviceauth: encode request: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, client.baseURL+validatePath, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("serviceauth: build request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")
	request.Header.Set(constants.HeaderServiceID, serviceID)
	request.Header.Set(constants.HeaderTenantID, tenantID)
	if token != "" {
		request.Header.Set(constants.HeaderAuthorization, constants.BearerPrefix+token)
	}

	response, err := client.http.Do(request)
	if err != nil {
		return Result{}, fmt.Errorf("serviceauth: request: %w", err)
	}
	defer response.Body.Close()

	switch {
	case response.StatusCode == http.StatusUnauthorized,
		response.StatusCode == http.StatusForbidden,
		response.StatusCode == http.StatusNotFound:
		return Result{Reason: ReasonRejected}, nil
	case response.StatusCode < 200 || response.StatusCode > 299:
		return Result{}, fmt.Errorf("serviceauth: gateway returned %s", response.Status)
	}

	var result Result
	if err := json.NewDecoder(io.LimitReader(response.Body, maxBodyBytes)).Decode(&result); err != nil {
		return Result{}, fmt.Errorf("serviceauth: decode response: %w", err)
	}
	if result.Valid && result.TenantID != "" && result.TenantID != tenantID {
		return Result{Reason: ReasonRejected}, nil
	}
	return result, nil
}
