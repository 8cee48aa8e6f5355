// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package serviceauth decides whether a calling service may act for a tenant.

Verdicts come from an external validation gateway and are cached in the
coordination store: a valid verdict for a long TTL, an invalid one for a short
TTL. A gateway failure is an invalid verdict and is cached the same way, so a
persistently failing caller cannot turn every request into a gateway call
while transient failures clear within minutes.
*/
package serviceauth

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// Default verdict lifetimes.
const (
	DefaultValidTTL   = 10 * time.Minute
	DefaultInvalidTTL = 5 * time.Minute
)

// Rejection reasons.
const (
	ReasonMissingIdentifiers = "Missing service or tenant identifier"
	ReasonRejected           = "Service is not authorized for this tenant"
	ReasonGatewayUnavailable = "Service validation unavailable"
	ReasonCached             = "Service was recently rejected"
)

// # Types

// Result is the outcome of one validation.
type Result struct {
	Valid    bool   `json:"valid"`
	TenantID string `json:"tenantId,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Cached   bool   `json:"-"`
}

// Gateway asks the external validation service for a verdict.
type Gateway interface {
	ValidateService(ctx context.Context, serviceID, tenantID, token string) (Result, error)
}

// Cache stores verdicts per (service, tenant).
type Cache interface {
	// Get returns (valid, true, nil) on a hit and (false, false, nil) on a miss.
	Get(ctx context.Context, serviceID, tenantID string) (valid bool, found bool, err error)
	Set(ctx context.Context, serviceID, tenantID string, valid bool, ttl time.Duration) error
}

// # Authenticator

// Authenticator validates calling services with a cache in front of the gateway.
type Authenticator struct {
	gateway    Gateway
	cache      Cache
	validTTL   time.Duration
	invalidTTL time.Duration
	logger     *slog.Logger
}

// NewAuthenticator constructs an [Authenticator]. Non-positive TTLs select the defaults.
func NewAuthenticator(gateway Gateway, cache Cache, validTTL, invalidTTL time.Duration, logger *slog.Logger) *Authenticator {
	if validTTL <= 0 {
		validTTL = DefaultValidTTL
	}
	if invalidTTL <= 0 {
		invalidTTL = DefaultInvalidTTL
	}
	return &Authenticator{
		gateway:    gateway,
		cache:      cache,
		validTTL:   validTTL,
		invalidTTL: invalidTTL,
		logger:     logger.With(slog.String("component", "service_auth")),
	}
}

/*
Validate returns the verdict for serviceID acting in tenantID.

A cache read error is logged and treated as a miss. A gateway error yields an
invalid verdict, which is cached for the short TTL.

Parameters:
  - ctx: context.Context
  - serviceID: string
  - tenantID: string
  - token: string (forwarded to the gateway, may be empty)

Returns:
  - Result: Never an error; failures are invalid verdicts
*/
func (service *Authenticator) Validate(ctx context.Context, serviceID, tenantID, token string) Result {
	serviceID = strings.TrimSpace(serviceID)
	tenantID = strings.TrimSpace(tenantID)
	if serviceID == "" || tenantID == "" {
		return Result{Reason: ReasonMissingIdentifiers}
	}

	valid, found, err := service.cache.Get(ctx, serviceID, tenantID)
	switch {
	case err != nil:
		service.logger.WarnContext(ctx, "service_auth_cache_read_failed",
			slog.String("service_id", serviceID),
			slog.Any("error", err),
		)
	case found && valid:
		return Result{Valid: true, TenantID: tenantID, Cached: true}
	case found:
		return Result{Reason: ReasonCached, Cached: true}
	}

	result, err := service.gateway.ValidateService(ctx, serviceID, tenantID, token)
	if err != nil {
		service.logger.WarnContext(ctx, "service_auth_gateway_failed",
			slog.String("service_id", serviceID),
			slog.String("tenant_id", tenantID),
			slog.Any("error", err),
		)
		result = Result{Reason: ReasonGatewayUnavailable}
	}
	if result.Valid {
		result.TenantID = tenantID
	} else if result.Reason == "" {
		result.Reason = ReasonRejected
	}

	ttl := service.invalidTTL
	if result.Valid {
		ttl = service.validTTL
	}
	if err := service.cache.Set(ctx, serviceID, tenantID, result.Valid, ttl); err != nil {
		service.logger.WarnContext(ctx, "service_auth_cache_write_failed",
			slog.String("service_id", serviceID),
			slog.Any("error", err),
		)
	}

	service.logger.InfoContext(ctx, "service_auth_validated",
		slog.String("service_id", serviceID),
		slog.String("tenant_id", tenantID),
		slog.Bool("valid", result.Valid),
	)

	return result
}

// Allowed reports whether Validate returns a valid verdict.
func (service *Authenticator) Allowed(ctx context.Context, serviceID, tenantID, token string) bool {
	return service.Validate(ctx, serviceID, tenantID, token).Valid
}
