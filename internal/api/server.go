// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package api wires together the HTTP router, middleware chain, and the
handler sets of one campuslink binary into a runnable [http.Server].

Architecture:

  - Both binaries (gateway and queue) build their surface here; a nil handler
    set is simply not mounted.
  - Session-guarded routes (/messages, /group) and service-guarded routes
    (/queue) receive their guard from this package, not from the domain.
  - The websocket endpoint is mounted outside the request timeout.
*/
package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/taibuivan/campuslink/internal/platform/constants"
	"github.com/taibuivan/campuslink/internal/platform/middleware"
	"github.com/taibuivan/campuslink/internal/queue/ingress"
	"github.com/taibuivan/campuslink/internal/relay/message"
	"github.com/taibuivan/campuslink/internal/relay/room"
	"github.com/taibuivan/campuslink/internal/relay/session"
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *slog.Logger
}

// # Handler Registry

// Handlers groups the handler sets a binary exposes. Nil fields are skipped.
type Handlers struct {
	// Liveness is the /health handler.
	Liveness http.HandlerFunc

	// Readiness is the /ready handler, 503 while a dependency is down.
	Readiness http.HandlerFunc

	// Sessions guards /messages and /group.
	Sessions middleware.SessionValidator

	// Session handles /session (initiate, renew, revoke).
	Session *session.Handler

	// Messages handles message history and read receipts.
	Messages *message.Handler

	// Rooms handles group room creation and lookup.
	Rooms *room.Handler

	// Realtime is the websocket endpoint at /ws.
	Realtime http.Handler

	// Services guards /queue.
	Services middleware.ServiceValidator

	// Ingress accepts tasks from authenticated services.
	Ingress *ingress.Handler
}

// # Server Initialization

// NewServer constructs the chi router with the full middleware chain and
// registers the route groups present in h.
func NewServer(ctx context.Context, port string, origins middleware.AppConfig, log *slog.Logger, h Handlers) *Server {
	r := chi.NewRouter()

	// # Middleware Chain
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(log))
	r.Use(middleware.RateLimit(ctx))
	r.Use(middleware.PanicRecovery())
	r.Use(middleware.CORS(origins))
	r.Use(chimw.CleanPath)

	// # Long-lived Connections
	if h.Realtime != nil {
		r.Handle("/ws", h.Realtime)
	}

	r.Group(func(timed chi.Router) {
		timed.Use(chimw.Timeout(constants.GlobalRequestTimeout))

		// # Infrastructure Endpoints
		timed.Get("/health", h.Liveness)
		timed.Get("/ready", h.Readiness)

		// # Application API
		if h.Session != nil {
			timed.Mount("/session", h.Session.Routes())
		}

		if h.Sessions != nil {
			timed.Group(func(authed chi.Router) {
				authed.Use(middleware.RequireSession(h.Sessions))
				if h.Messages != nil {
					authed.Mount("/messages", h.Messages.Routes())
				}
				if h.Rooms != nil {
					authed.Mount("/group", h.Rooms.Routes())
				}
			})
		}

		if h.Ingress != nil && h.Services != nil {
			timed.With(middleware.RequireService(h.Services)).Mount("/queue", h.Ingress.Routes())
		}
	})

	return &Server{
		router: r,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + port,
			Handler:           r,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,

			// Hijacked websocket connections are not drained by Shutdown and
			// end with this context instead.
			BaseContext: func(net.Listener) context.Context { return ctx },
		},
	}
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// # Server Lifecycle

// ListenAndServe starts the HTTP server.
//
// It blocks until the server is closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("server_starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	context, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(context)
}
