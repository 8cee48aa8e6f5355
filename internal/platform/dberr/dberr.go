// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package dberr maps low-level PostgreSQL errors onto application errors.
package dberr

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taibuivan/campuslink/internal/platform/apperr"
)

// SQLSTATE codes the message store distinguishes.
const (
	codeUniqueViolation = "23505"
	codeQueryCanceled   = "57014"
)

// Wrap classifies a database error for the given resource and action.
//
//   - pgx.ErrNoRows becomes a 404 for resource.
//   - A unique violation becomes a 409.
//   - Anything else becomes a 502 "message store is unavailable" carrying the
//     wrapped cause "<action>_failed: ...".
func Wrap(err error, resource, action string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(resource)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return apperr.Conflict(resource + " already exists")
		case codeQueryCanceled:
			return apperr.ServiceUnavailable("Message store timed out")
		}
	}

	return apperr.DependencyFailure("Message store", fmt.Errorf("%s_failed: %w", action, err))
}
