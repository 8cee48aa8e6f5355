// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/campuslink/internal/platform/apperr"
	"github.com/taibuivan/campuslink/internal/platform/ctxutil"
	"github.com/taibuivan/campuslink/internal/platform/middleware"
	requestutil "github.com/taibuivan/campuslink/internal/platform/request"
	"github.com/taibuivan/campuslink/internal/platform/respond"
	"github.com/taibuivan/campuslink/internal/platform/sec"
)

// Verifier checks a bearer token with the identity gateway.
type Verifier interface {
	Verify(ctx context.Context, token string) (*sec.Identity, error)
}

// # Handler Implementation

// Handler exposes session lifecycle endpoints.
type Handler struct {
	service  *Service
	verifier Verifier
}

// NewHandler constructs a session [Handler].
func NewHandler(service *Service, verifier Verifier) *Handler {
	return &Handler{service: service, verifier: verifier}
}

// Routes returns a [chi.Router] mounted under /session.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/initiate", handler.initiate)

	router.Group(func(authed chi.Router) {
		authed.Use(middleware.RequireSession(handler.service))
		authed.Post("/renew", handler.renew)
		authed.Delete("/", handler.revoke)
	})

	return router
}

// InitiateResponse is returned by POST /session/initiate and POST /session/renew.
type InitiateResponse struct {
	SessionID string    `json:"sessionId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

/*
POST /session/initiate.

Description: Verifies the bearer token with the identity gateway and issues
a session for the declared user in the declared tenant.

Request (Headers):
  - X-User-ID, X-User-Type, X-Tenant-ID
  - Authorization: Bearer <token>

Response:
  - 201: InitiateResponse
  - 400: Missing or malformed identity headers
  - 401: Token invalid, or its identity differs from the headers
*/
func (handler *Handler) initiate(writer http.ResponseWriter, request *http.Request) {
	headers := requestutil.Headers(request)
	if err := headers.Validate(false); err != nil {
		respond.Error(writer, request, err)
		return
	}

	token := requestutil.BearerToken(request)
	if token == "" {
		respond.Error(writer, request, apperr.Unauthorized("Bearer token is required"))
		return
	}

	verified, err := handler.verifier.Verify(request.Context(), token)
	if err != nil {
		ctxutil.GetLogger(request.Context()).WarnContext(request.Context(), "session_token_rejected",
			slog.String("user_id", headers.UserID),
			slog.Any("error", err),
		)
		respond.Error(writer, request, apperr.Unauthorized("Invalid or expired token"))
		return
	}

	userType, _ := sec.ParseUserType(headers.UserType)
	if verified.UserID != headers.UserID || verified.TenantID != headers.TenantID || verified.UserType != userType {
		respond.Error(writer, request, apperr.Unauthorized("Token does not match the declared identity"))
		return
	}

	session, err := handler.service.Issue(request.Context(), verified.UserID, verified.UserType, verified.TenantID, 0)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, InitiateResponse{SessionID: session.ID, ExpiresAt: session.ExpiresAt})
}

/*
POST /session/renew.

Description: Extends the caller's session by the default lifetime.

Response:
  - 200: InitiateResponse
  - 401: Session expired
*/
func (handler *Handler) renew(writer http.ResponseWriter, request *http.Request) {
	identity, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	expiresAt, err := handler.service.Renew(request.Context(), identity.SessionID, identity.UserID, 0)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, InitiateResponse{SessionID: identity.SessionID, ExpiresAt: expiresAt})
}

/*
DELETE /session.

Description: Revokes the caller's session.

Response:
  - 204: No Content
*/
func (handler *Handler) revoke(writer http.ResponseWriter, request *http.Request) {
	identity, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.Revoke(request.Context(), identity.SessionID, identity.UserID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	writer.WriteHeader(http.StatusNoContent)
}
