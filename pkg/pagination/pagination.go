// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package pagination parses keyset windows for newest-first list endpoints.
//
// # Overview
//
// History endpoints return the most recent items first. A client asks for the
// next page by passing the timestamp of the oldest item it already holds as
// "before", so inserts between requests never shift the window.
package pagination

import (
	"net/http"
	"strconv"
	"time"
)

const (
	// DefaultLimit is the number of items returned if not specified.
	DefaultLimit = 50

	// MaxLimit is the upper bound for items per window.
	MaxLimit = 200
)

// Window holds the parsed limit and optional upper time bound of a request.
type Window struct {
	Limit  int
	Before *time.Time
}

// FromRequest parses the "limit" and "before" query parameters.
//
// # Clamping
//
// A missing or non-numeric limit falls back to [DefaultLimit]; values above
// [MaxLimit] are clamped to it. An unparseable "before" is ignored.
func FromRequest(r *http.Request) Window {
	query := r.URL.Query()

	window := Window{Limit: DefaultLimit}

	if raw := query.Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			window.Limit = min(n, MaxLimit)
		}
	}

	if raw := query.Get("before"); raw != "" {
		if before, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			window.Before = &before
		}
	}

	return window
}
