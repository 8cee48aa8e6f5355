// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package pagination_test

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/campuslink/pkg/pagination"
)

func TestFromRequest(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantLimit int
	}{
		{"default", "", pagination.DefaultLimit},
		{"explicit", "?limit=10", 10},
		{"clamped", "?limit=5000", pagination.MaxLimit},
		{"negative", "?limit=-3", pagination.DefaultLimit},
		{"garbage", "?limit=ten", pagination.DefaultLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			window := pagination.FromRequest(httptest.NewRequest("GET", "/messages/history"+tt.query, nil))
			assert.Equal(t, tt.wantLimit, window.Limit)
			assert.Nil(t, window.Before)
		})
	}
}

func TestFromRequest_Before(t *testing.T) {
	window := pagination.FromRequest(httptest.NewRequest("GET", "/?before=2026-03-01T08:00:00Z", nil))

	require.NotNil(t, window.Before)
	assert.True(t, window.Before.Equal(time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)))
}
