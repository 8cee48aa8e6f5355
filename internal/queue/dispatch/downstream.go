// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/taibuivan/campuslink/internal/platform/constants"
	"github.com/taibuivan/campuslink/internal/queue/task"
)

// Downstream service names used by the built-in handlers.
const (
	ServiceMedia         = "media"
	ServiceNotifications = "notifications"
	ServiceDirectory     = "directory"
)

// ErrUnknownService is returned when a service is not in the registry.
var ErrUnknownService = errors.New("dispatch: unknown downstream service")

// maxResponseBytes bounds downstream responses that are decoded.
const maxResponseBytes = 1 << 20

// Resolver maps a service name to its base URL.
type Resolver interface {
	Lookup(name string) (string, bool)
}

// TokenSigner mints short-lived service tokens.
type TokenSigner interface {
	GenerateServiceToken(serviceID, tenantID, taskID, audience string, timeToLive time.Duration) (string, error)
}

// Request is one downstream call.
type Request struct {
	Service string
	Method  string
	Path    string

	// Body is sent as JSON; a json.RawMessage is sent as is. Nil sends no body.
	Body any
}

// Downstream calls named services on behalf of the task's originating service.
type Downstream struct {
	registry Resolver
	signer   TokenSigner
	tokenTTL time.Duration
	http     *http.Client
}

// NewDownstream creates a [Downstream] with a fixed per-call timeout.
func NewDownstream(registry Resolver, signer TokenSigner, timeout, tokenTTL time.Duration) *Downstream {
	return &Downstream{
		registry: registry,
		signer:   signer,
		tokenTTL: tokenTTL,
		http:     &http.Client{Timeout: timeout},
	}
}

/*
Call performs request for t and decodes a JSON response into out when out is
non-nil.

The tenant, originating service and task id travel as headers, and the call
is authenticated with a token signed for the target service.

Returns:
  - error: ErrUnknownService, transport failures and any non-2xx status
*/
func (downstream *Downstream) Call(ctx context.Context, t *task.Task, request Request, out any) error {
	base, ok := downstream.registry.Lookup(request.Service)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownService, request.Service)
	}

	var body io.Reader
	switch value := request.Body.(type) {
	case nil:
	case json.RawMessage:
		if len(value) > 0 {
			body = bytes.NewReader(value)
		}
	default:
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("dispatch: encode %s body: %w", request.Service, err)
		}
		body = bytes.NewReader(encoded)
	}

	method := request.Method
	if method == "" {
		method = http.MethodPost
	}

	httpRequest, err := http.NewRequestWithContext(ctx, method, base+request.Path, body)
	if err != nil {
		return fmt.Errorf("dispatch: build %s request: %w", request.Service, err)
	}

	token, err := downstream.signer.GenerateServiceToken(t.ServiceID, t.TenantID, t.ID, request.Service, downstream.tokenTTL)
	if err != nil {
		return fmt.Errorf("dispatch: sign token for %s: %w", request.Service, err)
	}

	header := httpRequest.Header
	header.Set(constants.HeaderTenantID, t.TenantID)
	header.Set(constants.HeaderServiceID, t.ServiceID)
	header.Set(constants.HeaderTaskID, t.ID)
	header.Set(constants.HeaderAuthorization, constants.BearerPrefix+token)
	header.Set("Accept", "application/json")
	if body != nil {
		header.Set("Content-Type", "application/json")
	}

	response, err := downstream.http.Do(httpRequest)
	if err != nil {
		return fmt.Errorf("dispatch: %s %s%s: %w", method, request.Service, request.Path, err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return fmt.Errorf("dispatch: %s %s%s returned %s", method, request.Service, request.Path, response.Status)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(response.Body, maxResponseBytes))
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(response.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("dispatch: decode %s response: %w", request.Service, err)
	}
	return nil
}
