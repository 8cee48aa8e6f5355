// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/taibuivan/campuslink/internal/platform/apperr"
	"github.com/taibuivan/campuslink/internal/platform/sec"
	"github.com/taibuivan/campuslink/internal/platform/validate"
	"github.com/taibuivan/campuslink/pkg/uuid"
)

// # Service Layer

// Service issues, validates, renews and revokes sessions.
//
// Expiry is enforced by the store's TTLs; the service never sweeps.
type Service struct {
	repo       Repository
	defaultTTL time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

// NewService constructs a session [Service]. A non-positive ttl selects [DefaultTTL].
func NewService(repo Repository, ttl time.Duration, logger *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		repo:       repo,
		defaultTTL: ttl,
		now:        time.Now,
		logger:     logger.With(slog.String("component", "session")),
	}
}

// WithClock replaces the time source. Used by tests.
func (service *Service) WithClock(now func() time.Time) *Service {
	service.now = now
	return service
}

/*
Issue creates a session for a verified user in one tenant.

Parameters:
  - context: context.Context
  - userID, tenantID: string
  - userType: sec.UserType
  - ttl: time.Duration (zero selects the service default)

Returns:
  - *Session: The issued session with a time-ordered id
  - error: Validation or store failures
*/
func (service *Service) Issue(context context.Context, userID string, userType sec.UserType, tenantID string, ttl time.Duration) (*Session, error) {
	validator := &validate.Validator{}
	validator.Required("userId", userID).
		Required("tenantId", tenantID).
		UserType("userType", string(userType))
	if err := validator.Err(); err != nil {
		return nil, err
	}

	if ttl <= 0 {
		ttl = service.defaultTTL
	}

	createdAt := service.now().UTC()
	session := &Session{
		ID:        uuid.New(),
		UserID:    userID,
		UserType:  userType,
		TenantID:  tenantID,
		CreatedAt: createdAt,
		ExpiresAt: createdAt.Add(ttl),
	}

	if err := service.repo.Create(context, session, ttl); err != nil {
		return nil, apperr.DependencyFailure("Session store", err)
	}

	service.logger.Info("session_issued",
		slog.String("session_id", session.ID),
		slog.String("user_id", userID),
		slog.String("user_type", string(userType)),
		slog.String("tenant_id", tenantID),
	)

	return session, nil
}

/*
Validate reports whether sessionID is live and belongs to userID.

Absent records, a partially expired record set and store errors all yield false.
*/
func (service *Service) Validate(context context.Context, sessionID, userID string) bool {
	if sessionID == "" || userID == "" {
		return false
	}

	binding, err := service.repo.Lookup(context, sessionID, userID)
	if err != nil {
		service.logger.WarnContext(context, "session_validate_failed",
			slog.String("session_id", sessionID),
			slog.Any("error", err),
		)
		return false
	}

	return binding.Complete() && binding.UserID == userID
}

// TenantOf returns the tenant a session was issued for.
func (service *Service) TenantOf(context context.Context, sessionID string) (string, bool) {
	if sessionID == "" {
		return "", false
	}

	tenantID, err := service.repo.Tenant(context, sessionID)
	if err != nil {
		service.logger.WarnContext(context, "session_tenant_lookup_failed",
			slog.String("session_id", sessionID),
			slog.Any("error", err),
		)
		return "", false
	}

	return tenantID, tenantID != ""
}

// UserTypeOf returns the verified role a session was issued for.
func (service *Service) UserTypeOf(context context.Context, sessionID string) (sec.UserType, bool) {
	if sessionID == "" {
		return "", false
	}

	role, err := service.repo.Role(context, sessionID)
	if err != nil {
		service.logger.WarnContext(context, "session_role_lookup_failed",
			slog.String("session_id", sessionID),
			slog.Any("error", err),
		)
		return "", false
	}

	userType, ok := sec.ParseUserType(role)
	return userType, ok
}

// Revoke deletes a session. Revoking an already-expired session succeeds.
func (service *Service) Revoke(context context.Context, sessionID, userID string) error {
	if err := service.repo.Delete(context, sessionID, userID); err != nil {
		return apperr.DependencyFailure("Session store", err)
	}

	service.logger.Info("session_revoked", slog.String("session_id", sessionID))
	return nil
}

/*
Renew pushes the expiry of a live session out by ttl (zero selects the default).

Returns:
  - time.Time: The new expiry
  - error: apperr.Unauthorized when the session is not live for userID
*/
func (service *Service) Renew(context context.Context, sessionID, userID string, ttl time.Duration) (time.Time, error) {
	if !service.Validate(context, sessionID, userID) {
		return time.Time{}, apperr.Unauthorized("Invalid or expired session")
	}

	if ttl <= 0 {
		ttl = service.defaultTTL
	}

	extended, err := service.repo.Extend(context, sessionID, userID, ttl)
	if err != nil {
		return time.Time{}, apperr.DependencyFailure("Session store", err)
	}
	if !extended {
		return time.Time{}, apperr.Unauthorized("Invalid or expired session")
	}

	expiresAt := service.now().UTC().Add(ttl)
	service.logger.Info("session_renewed",
		slog.String("session_id", sessionID),
		slog.Time("expires_at", expiresAt),
	)

	return expiresAt, nil
}
