// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package gateway

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/net/websocket"
	"golang.org/x/time/rate"

	"github.com/taibuivan/campuslink/internal/platform/apperr"
	"github.com/taibuivan/campuslink/internal/platform/sec"
	"github.com/taibuivan/campuslink/internal/relay/room"
)

// writeTimeout bounds a single frame write to a client.
const writeTimeout = 10 * time.Second

// conn is one admitted client connection.
//
// identity is fixed at upgrade time and is the only source of the sender's
// user id, role and tenant for every frame on this connection.
type conn struct {
	ws       *websocket.Conn
	identity *sec.Identity
	limiter  *rate.Limiter
	logger   *slog.Logger

	mu sync.Mutex
}

func newConn(ws *websocket.Conn, identity *sec.Identity, limiter *rate.Limiter, logger *slog.Logger) *conn {
	return &conn{
		ws:       ws,
		identity: identity,
		limiter:  limiter,
		logger:   logger,
	}
}

// send writes a frame as JSON. Writes are serialised between the read loop
// and the delivery pump.
func (c *conn) send(frame any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return websocket.JSON.Send(c.ws, frame)
}

// sendRaw writes an already encoded frame.
func (c *conn) sendRaw(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return websocket.Message.Send(c.ws, string(payload))
}

// sendError writes an error frame with a fixed client-facing text.
func (c *conn) sendError(text, code string) {
	if err := c.send(errorFrame{Type: FrameError, Message: text, Code: code}); err != nil {
		c.logger.Debug("ws_error_frame_failed", slog.Any("error", err))
	}
}

// fail converts a handler error into an error frame. Only the client-safe
// message of an [apperr.AppError] is sent; anything else is logged.
func (c *conn) fail(err error) {
	var appErr *apperr.AppError
	if errors.As(err, &appErr) {
		if appErr.HTTPStatus >= 500 {
			c.logger.Error("ws_frame_failed", slog.String("code", appErr.Code), slog.Any("error", err))
		}
		c.sendError(appErr.Message, appErr.Code)
		return
	}

	c.logger.Error("ws_frame_failed", slog.Any("error", err))
	c.sendError(msgInternal, apperr.CodeInternal)
}

// pump forwards hub deliveries until the subscription closes.
func (c *conn) pump(sub *room.Subscription) {
	for payload := range sub.C {
		if err := c.sendRaw(payload); err != nil {
			c.logger.Debug("ws_delivery_failed", slog.Any("error", err))
			_ = c.ws.Close()
			// Drain so the hub never sees a full buffer from a dead peer.
			for range sub.C {
			}
			return
		}
	}
}
