// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package constants provides centralized, immutable values for the entire platform.

It defines default timeouts, rate limits, header names, and coordination-store key
prefixes that are shared between the realtime gateway and the task queue.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP servers.
  - Rate Limiting: Burst capacities and IP tracking TTLs.
  - Identity Headers: The caller headers both surfaces understand.
  - Redis Prefixes: The key taxonomy inside the coordination store.

Using this package ensures Magic Strings and Magic Numbers are eliminated
from the business logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "campuslink"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	GlobalRequestTimeout = 30 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second
)

// # Rate Limiting

const (
	// DefaultRateLimitRPS is the requests per second allowed per IP.
	DefaultRateLimitRPS = 100.0

	// DefaultRateLimitBurst is the maximum burst allowed for the rate limiter.
	DefaultRateLimitBurst = 150

	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute
)

// # HTTP Headers

const (
	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderOrigin        = "Origin"
	HeaderAuthorization = "Authorization"

	// Caller identity headers understood by both surfaces.
	HeaderUserID    = "X-User-ID"
	HeaderUserType  = "X-User-Type"
	HeaderTenantID  = "X-Tenant-ID"
	HeaderSessionID = "X-Session-ID"
	HeaderServiceID = "X-Service-ID"
	HeaderTaskID    = "X-Task-ID"
)

// # Authentication

const (
	// AuthIssuer is the standard 'iss' claim in service tokens minted by the queue.
	AuthIssuer = "campuslink.queue"

	// BearerPrefix is the scheme prefix of the Authorization header.
	BearerPrefix = "Bearer "
)

// # JSON Field Identifiers

const (
	FieldData    = "data"
	FieldMeta    = "meta"
	FieldError   = "error"
	FieldCode    = "code"
	FieldDetails = "details"
	FieldItems   = "items"
	FieldTotal   = "total"
	FieldMessage = "message"
	FieldStatus  = "status"
	FieldApp     = "app"
	FieldVersion = "version"
	FieldChecks  = "checks"
)

// # Database Schemas

const (
	SchemaRelay = "relay"
)

// # Redis Prefixes (Coordination Taxonomy)

const (
	RedisPrefixSession     = "relay:session:"
	RedisPrefixUserSession = "relay:user:"
	RedisPrefixRoom        = "relay:room:"
	RedisPrefixServiceAuth = "queue:svcauth:"

	// ChannelPrefixUser is the pub/sub channel prefix of the implicit per-user room.
	ChannelPrefixUser = "user:"
)
