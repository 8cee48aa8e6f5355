// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/taibuivan/campuslink/internal/platform/apperr"
	"github.com/taibuivan/campuslink/internal/platform/constants"
	"github.com/taibuivan/campuslink/internal/platform/ctxutil"
	requestutil "github.com/taibuivan/campuslink/internal/platform/request"
	"github.com/taibuivan/campuslink/internal/platform/respond"
	"github.com/taibuivan/campuslink/internal/platform/sec"
	"github.com/taibuivan/campuslink/internal/platform/validate"
)

// # Session Guard

// SessionValidator is the subset of the session manager the guard needs.
type SessionValidator interface {
	Validate(ctx context.Context, sessionID, userID string) bool
	TenantOf(ctx context.Context, sessionID string) (string, bool)
	UserTypeOf(ctx context.Context, sessionID string) (sec.UserType, bool)
}

/*
RequireSession authenticates a request by its declared identity headers and session.

Flow:
 1. X-User-ID, X-User-Type, X-Tenant-ID and X-Session-ID must be present (400 otherwise).
 2. The session must belong to the declared user (401 otherwise).
 3. The session must have been issued for the declared tenant (401 otherwise).
 4. The declared user type must be the one verified when the session was issued (401 otherwise).
 5. The caller [*sec.Identity] is injected into the request context, carrying
    the bearer token when one was sent.
*/
func RequireSession(validator SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			headers := requestutil.Headers(request)
			if err := headers.Validate(true); err != nil {
				respond.Error(writer, request, err)
				return
			}

			ctx := request.Context()
			if !validator.Validate(ctx, headers.SessionID, headers.UserID) {
				respond.Error(writer, request, apperr.Unauthorized("Invalid or expired session"))
				return
			}

			tenantID, ok := validator.TenantOf(ctx, headers.SessionID)
			if !ok || tenantID != headers.TenantID {
				respond.Error(writer, request, apperr.Unauthorized("Session does not belong to this tenant"))
				return
			}

			declared, _ := sec.ParseUserType(headers.UserType)
			userType, ok := validator.UserTypeOf(ctx, headers.SessionID)
			if !ok || userType != declared {
				respond.Error(writer, request, apperr.Unauthorized("Session was not issued for this user type"))
				return
			}

			identity := &sec.Identity{
				UserID:    headers.UserID,
				UserType:  userType,
				TenantID:  headers.TenantID,
				SessionID: headers.SessionID,
				Token:     requestutil.BearerToken(request),
			}

			recordCaller(ctx, identity.UserID, "")
			next.ServeHTTP(writer, request.WithContext(ctxutil.WithIdentity(ctx, identity)))
		})
	}
}

// # Service Guard

// ServiceValidator is the subset of the service authenticator the guard needs.
type ServiceValidator interface {
	Allowed(ctx context.Context, serviceID, tenantID, token string) bool
}

/*
RequireService authenticates a calling service by X-Service-ID, X-Tenant-ID and
an optional bearer token. Validation failures of any kind are reported as 401.
*/
func RequireService(services ServiceValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			serviceID := strings.TrimSpace(request.Header.Get(constants.HeaderServiceID))
			tenantID := strings.TrimSpace(request.Header.Get(constants.HeaderTenantID))

			validator := &validate.Validator{}
			validator.Required(constants.HeaderServiceID, serviceID).
				Required(constants.HeaderTenantID, tenantID)
			if err := validator.Err(); err != nil {
				respond.Error(writer, request, err)
				return
			}

			token := requestutil.BearerToken(request)
			ctx := request.Context()
			if !services.Allowed(ctx, serviceID, tenantID, token) {
				respond.Error(writer, request, apperr.Unauthorized("Service is not authorized for this tenant"))
				return
			}

			caller := &sec.ServiceCaller{ServiceID: serviceID, TenantID: tenantID, Token: token}

			recordCaller(ctx, "", serviceID)
			next.ServeHTTP(writer, request.WithContext(ctxutil.WithService(ctx, caller)))
		})
	}
}
