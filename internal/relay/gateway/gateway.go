// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package gateway is the realtime connection endpoint.

A connection moves through CONNECTING, OPEN and CLOSED. Before the protocol
switch the handshake must carry a session id and a bearer token; the token is
verified with the identity gateway and the session must belong to the verified
user and tenant. Anything else is answered with 401 and never upgraded.

Once open, the connection is bound to that identity for its lifetime, joins
its user's direct channel on the hub, and dispatches inbound frames by type:

  - direct: recipient role lookup, policy check, persist, publish
  - group:  membership check, persist, fan-out to every other member
  - read:   read receipt on a stored message
  - ping:   liveness

Closing a connection only leaves the hub. Sessions and room memberships are
left to expire so a client can reconnect within the same session.
*/
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/websocket"
	"golang.org/x/time/rate"

	"github.com/taibuivan/campuslink/internal/platform/apperr"
	"github.com/taibuivan/campuslink/internal/platform/constants"
	"github.com/taibuivan/campuslink/internal/platform/ctxutil"
	"github.com/taibuivan/campuslink/internal/platform/middleware"
	requestutil "github.com/taibuivan/campuslink/internal/platform/request"
	"github.com/taibuivan/campuslink/internal/platform/sec"
	"github.com/taibuivan/campuslink/internal/relay/message"
	"github.com/taibuivan/campuslink/internal/relay/room"
)

// # Collaborators

// IdentityVerifier resolves bearer tokens and recipient roles.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (*sec.Identity, error)
	UserType(ctx context.Context, token, tenantID, userID string) (sec.UserType, error)
}

// SessionChecker answers whether a session is live for a user and tenant.
type SessionChecker interface {
	Validate(ctx context.Context, sessionID, userID string) bool
	TenantOf(ctx context.Context, sessionID string) (string, bool)
}

// MessageStore persists messages and read receipts.
type MessageStore interface {
	Record(ctx context.Context, sender *sec.Identity, draft message.Draft) (*message.Message, error)
	MarkRead(ctx context.Context, caller *sec.Identity, messageID string) (*message.Message, error)
}

// Rooms publishes to channels and answers group room questions.
type Rooms interface {
	Publish(ctx context.Context, roomKey string, payload []byte) error
	FanOut(ctx context.Context, userIDs []string, payload []byte) error
	GetRoom(ctx context.Context, tenantID, roomID string) (*room.Room, error)
	MembersOf(ctx context.Context, roomID string) ([]string, error)
}

// Listener registers a connection on a channel of the local hub.
type Listener interface {
	Join(ctx context.Context, channel string) (*room.Subscription, error)
}

// # Options

const (
	// DefaultFrameRate is the sustained inbound frames per second per connection.
	DefaultFrameRate = 20

	// DefaultFrameBurst is the inbound frame burst per connection.
	DefaultFrameBurst = 40

	// DefaultMaxFrameBytes bounds one inbound frame.
	DefaultMaxFrameBytes = 64 << 10

	// DefaultIdleTimeout closes a connection that sent nothing, not even a ping, for this long.
	DefaultIdleTimeout = 2 * time.Minute

	// QueryParamSessionID carries the session id on the handshake URL.
	QueryParamSessionID = "sessionId"

	// QueryParamToken carries the bearer token for clients that cannot set headers.
	QueryParamToken = "token"
)

// Options tune per-connection limits and origin checks.
type Options struct {
	FrameRate     float64
	FrameBurst    int
	MaxFrameBytes int
	IdleTimeout   time.Duration

	// Origins restricts browser origins. Nil accepts any origin.
	Origins middleware.AppConfig
}

func (options Options) withDefaults() Options {
	if options.FrameRate <= 0 {
		options.FrameRate = DefaultFrameRate
	}
	if options.FrameBurst <= 0 {
		options.FrameBurst = DefaultFrameBurst
	}
	if options.MaxFrameBytes <= 0 {
		options.MaxFrameBytes = DefaultMaxFrameBytes
	}
	if options.IdleTimeout <= 0 {
		options.IdleTimeout = DefaultIdleTimeout
	}
	return options
}

// # Gateway

// Gateway upgrades authenticated requests and runs one read loop per connection.
type Gateway struct {
	identity IdentityVerifier
	sessions SessionChecker
	messages MessageStore
	rooms    Rooms
	hub      Listener
	options  Options
	logger   *slog.Logger
}

// New constructs a [Gateway].
func New(identity IdentityVerifier, sessions SessionChecker, messages MessageStore, rooms Rooms, hub Listener, options Options, logger *slog.Logger) *Gateway {
	return &Gateway{
		identity: identity,
		sessions: sessions,
		messages: messages,
		rooms:    rooms,
		hub:      hub,
		options:  options.withDefaults(),
		logger:   logger.With(slog.String("component", "gateway")),
	}
}

/*
ServeHTTP validates the handshake and upgrades the connection.

Response:
  - 101: Switching Protocols
  - 401: Missing or invalid session id or token
  - 403: Origin not allowed
*/
func (gateway *Gateway) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	identity, err := gateway.admit(request)
	if err != nil {
		gateway.logger.Info("ws_upgrade_rejected",
			slog.String("remote_addr", request.RemoteAddr),
			slog.String("reason", err.Error()),
		)
		http.Error(writer, "authentication required", http.StatusUnauthorized)
		return
	}

	server := websocket.Server{
		Handshake: gateway.handshake,
		Handler:   gateway.serve,
	}
	server.ServeHTTP(writer, request.WithContext(ctxutil.WithIdentity(request.Context(), identity)))
}

/*
admit performs upgrade validation.

Returns:
  - *sec.Identity: The identity to bind, taken from the identity gateway and the session
  - error: Why the handshake is rejected; never sent to the client
*/
func (gateway *Gateway) admit(request *http.Request) (*sec.Identity, error) {
	sessionID := strings.TrimSpace(request.URL.Query().Get(QueryParamSessionID))
	if sessionID == "" {
		sessionID = strings.TrimSpace(request.Header.Get(constants.HeaderSessionID))
	}
	token := requestutil.BearerToken(request)
	if token == "" {
		token = strings.TrimSpace(request.URL.Query().Get(QueryParamToken))
	}

	if sessionID == "" || token == "" {
		return nil, errors.New("missing_credentials")
	}

	verified, err := gateway.identity.Verify(request.Context(), token)
	if err != nil {
		return nil, fmt.Errorf("token_rejected: %w", err)
	}

	if !gateway.sessions.Validate(request.Context(), sessionID, verified.UserID) {
		return nil, errors.New("session_invalid")
	}
	if tenantID, ok := gateway.sessions.TenantOf(request.Context(), sessionID); !ok || tenantID != verified.TenantID {
		return nil, errors.New("session_tenant_mismatch")
	}

	return &sec.Identity{
		UserID:    verified.UserID,
		UserType:  verified.UserType,
		TenantID:  verified.TenantID,
		SessionID: sessionID,
		Token:     token,
	}, nil
}

// handshake applies the origin policy. Non-browser clients send no origin.
func (gateway *Gateway) handshake(config *websocket.Config, request *http.Request) error {
	if request.Header.Get(constants.HeaderOrigin) == "" {
		return nil
	}

	origin, err := websocket.Origin(config, request)
	if err != nil {
		return err
	}
	config.Origin = origin

	policy := gateway.options.Origins
	if policy == nil || policy.IsDevelopment() || strings.HasSuffix(origin.Hostname(), policy.OriginSuffix()) {
		return nil
	}
	return fmt.Errorf("origin %q not allowed", origin.String())
}

// # Connection Loop

// serve runs one connection until the client goes away.
func (gateway *Gateway) serve(ws *websocket.Conn) {
	defer func() { _ = ws.Close() }()

	identity := ctxutil.GetIdentity(ws.Request().Context())
	if identity == nil {
		return
	}

	ctx, cancel := context.WithCancel(ws.Request().Context())
	defer cancel()

	ws.MaxPayloadBytes = gateway.options.MaxFrameBytes
	logger := gateway.logger.With(
		slog.String("user_id", identity.UserID),
		slog.String("tenant_id", identity.TenantID),
		slog.String("session_id", identity.SessionID),
	)
	c := newConn(ws, identity, rate.NewLimiter(rate.Limit(gateway.options.FrameRate), gateway.options.FrameBurst), logger)

	sub, err := gateway.hub.Join(ctx, room.UserChannel(identity.UserID))
	if err != nil {
		logger.Error("ws_join_failed", slog.Any("error", err))
		c.sendError(msgUnavailable, apperr.CodeServiceUnavailable)
		return
	}
	go c.pump(sub)

	logger.Info("ws_connection_opened")
	defer logger.Info("ws_connection_closed")

	for {
		// Replaces the read deadline inherited from the HTTP server.
		_ = ws.SetReadDeadline(time.Now().Add(gateway.options.IdleTimeout))

		var raw []byte
		if err := websocket.Message.Receive(ws, &raw); err != nil {
			if errors.Is(err, websocket.ErrFrameTooLarge) {
				c.sendError(msgFrameTooLarge, apperr.CodeValidation)
				continue
			}
			return
		}

		if !c.limiter.Allow() {
			c.sendError(msgRateLimited, apperr.CodeRateLimited)
			continue
		}

		gateway.handleFrame(ctx, c, raw)
	}
}

// handleFrame dispatches one frame. A panic is confined to the frame.
func (gateway *Gateway) handleFrame(ctx context.Context, c *conn, raw []byte) {
	defer func() {
		if recovered := recover(); recovered != nil {
			c.logger.Error("ws_frame_panic", slog.Any("panic", recovered))
			c.sendError(msgInternal, apperr.CodeInternal)
		}
	}()

	frame, ok := parseFrame(raw)
	if !ok {
		c.sendError(msgInvalidFormat, apperr.CodeValidation)
		return
	}

	switch frame.Type {
	case FrameDirect:
		gateway.handleDirect(ctx, c, frame)
	case FrameGroup:
		gateway.handleGroup(ctx, c, frame)
	case FrameRead:
		gateway.handleRead(ctx, c, frame)
	case FramePing:
		_ = c.send(ackFrame{Type: FramePong})
	default:
		c.sendError(msgUnknownType+frame.Type, apperr.CodeValidation)
	}
}
