// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package slug generates ASCII handles from arbitrary Unicode strings.
//
// # Usage
//
// Group rooms carry a slug derived from their display name
// (e.g. "Lớp 3A Phụ huynh" → "lop-3a-phu-huynh") so clients can show a stable
// handle next to the opaque room id.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxLength bounds generated slugs.
const MaxLength = 64

var (
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

	// stripMarks decomposes, drops combining marks and recomposes.
	stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// From converts s into a lowercase, hyphen-separated ASCII slug of at most [MaxLength] bytes.
func From(s string) string {
	result, _, err := transform.String(stripMarks, s)
	if err != nil {
		result = s
	}

	// đ has no decomposition, map it by hand.
	result = strings.NewReplacer("đ", "d", "Đ", "d").Replace(result)

	result = nonAlphanumeric.ReplaceAllString(strings.ToLower(result), "-")
	result = strings.Trim(result, "-")

	if len(result) > MaxLength {
		result = strings.TrimRight(result[:MaxLength], "-")
	}

	return result
}
