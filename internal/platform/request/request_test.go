// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package requestutil_test

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	requestutil "github.com/taibuivan/campuslink/internal/platform/request"
)

/*
TestBearerToken covers scheme matching and malformed headers.
*/
func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"standard", "Bearer abc.def", "abc.def"},
		{"case_insensitive", "bearer abc", "abc"},
		{"missing", "", ""},
		{"basic_scheme", "Basic dXNlcjpwYXNz", ""},
		{"scheme_only", "Bearer ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				request.Header.Set("Authorization", tt.header)
			}
			assert.Equal(t, tt.want, requestutil.BearerToken(request))
		})
	}
}

/*
TestIdentityHeaders_Validate verifies required identity headers.
*/
func TestIdentityHeaders_Validate(t *testing.T) {
	request := httptest.NewRequest("GET", "/", nil)
	request.Header.Set("X-User-ID", "7")
	request.Header.Set("X-User-Type", "staff")
	request.Header.Set("X-Tenant-ID", "t1")

	headers := requestutil.Headers(request)
	assert.NoError(t, headers.Validate(false))
	assert.Error(t, headers.Validate(true))

	request.Header.Set("X-User-Type", "janitor")
	assert.Error(t, requestutil.Headers(request).Validate(false))
}
