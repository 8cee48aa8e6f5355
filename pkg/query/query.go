// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package query parses list-valued URL query parameters.
package query

import (
	"strings"
)

// StringSlice parses a comma-separated query value into a trimmed slice.
// Empty entries are skipped.
func StringSlice(val string) []string {
	if val == "" {
		return nil
	}

	var res []string
	for _, v := range strings.Split(val, ",") {
		if clean := strings.TrimSpace(v); clean != "" {
			res = append(res, clean)
		}
	}
	return res
}

// Values collects every occurrence of a repeated parameter, each of which may
// itself be comma-separated ("?type=direct&type=group,media").
func Values(vals []string) []string {
	var res []string
	for _, v := range vals {
		res = append(res, StringSlice(v)...)
	}
	return res
}
