// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package request provides utilities for extracting data from HTTP requests.

It abstracts body decoding, bearer-token parsing and caller identity headers,
ensuring consistent error handling on both the gateway and the queue surfaces.
*/
package requestutil

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/taibuivan/campuslink/internal/platform/apperr"
	"github.com/taibuivan/campuslink/internal/platform/constants"
	"github.com/taibuivan/campuslink/internal/platform/ctxutil"
	"github.com/taibuivan/campuslink/internal/platform/sec"
	"github.com/taibuivan/campuslink/internal/platform/validate"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

/*
DecodeJSON reads the request body and decodes it into the target structure.

Returns:
  - error: validate.ErrInvalidJSON if decoding fails, otherwise nil
*/
func DecodeJSON(request *http.Request, target interface{}) error {
	decoder := json.NewDecoder(http.MaxBytesReader(nil, request.Body, maxBodyBytes))
	if err := decoder.Decode(target); err != nil {
		return validate.ErrInvalidJSON
	}
	return nil
}

/*
Param retrieves a named URL parameter from the request.
*/
func Param(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

/*
BearerToken extracts the token from an 'Authorization: Bearer <token>' header.

Returns an empty string when the header is absent or uses another scheme.
*/
func BearerToken(request *http.Request) string {
	header := strings.TrimSpace(request.Header.Get(constants.HeaderAuthorization))
	if len(header) <= len(constants.BearerPrefix) || !strings.EqualFold(header[:len(constants.BearerPrefix)], constants.BearerPrefix) {
		return ""
	}
	return strings.TrimSpace(header[len(constants.BearerPrefix):])
}

// IdentityHeaders is the raw caller identity a client declares in request headers.
type IdentityHeaders struct {
	UserID    string
	UserType  string
	TenantID  string
	SessionID string
}

/*
Headers reads the caller identity headers without validating them.
*/
func Headers(request *http.Request) IdentityHeaders {
	return IdentityHeaders{
		UserID:    strings.TrimSpace(request.Header.Get(constants.HeaderUserID)),
		UserType:  strings.TrimSpace(request.Header.Get(constants.HeaderUserType)),
		TenantID:  strings.TrimSpace(request.Header.Get(constants.HeaderTenantID)),
		SessionID: strings.TrimSpace(request.Header.Get(constants.HeaderSessionID)),
	}
}

/*
Validate checks that the user, type and tenant headers are present and well formed.
The session header is checked only when requireSession is true.
*/
func (headers IdentityHeaders) Validate(requireSession bool) error {
	validator := &validate.Validator{}
	validator.Required(constants.HeaderUserID, headers.UserID).
		Required(constants.HeaderTenantID, headers.TenantID).
		UserType(constants.HeaderUserType, headers.UserType)

	if requireSession {
		validator.Required(constants.HeaderSessionID, headers.SessionID)
	}

	return validator.Err()
}

/*
RequiredIdentity ensures the request passed session authentication and returns the caller.

Returns:
  - *sec.Identity: The session-bound caller
  - error: apperr.Unauthorized if the request is not authenticated
*/
func RequiredIdentity(request *http.Request) (*sec.Identity, error) {
	identity := ctxutil.GetIdentity(request.Context())
	if identity == nil {
		return nil, apperr.Unauthorized("Authentication required")
	}
	return identity, nil
}

/*
RequiredService ensures the request passed service authentication and returns the caller.
*/
func RequiredService(request *http.Request) (*sec.ServiceCaller, error) {
	caller := ctxutil.GetService(request.Context())
	if caller == nil {
		return nil, apperr.Unauthorized("Service authentication required")
	}
	return caller, nil
}
