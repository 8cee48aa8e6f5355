// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package convert provides fault-tolerant conversions for string-typed wire values,
such as Redis stream fields, where a malformed entry should degrade to a
default instead of failing the whole record.

Do not use it where distinguishing malformed data from zero values matters.
*/
package convert

import (
	"fmt"
	"strconv"
	"time"
)

// ToInt64D parses s as a base-10 int64, returning def when s is empty or malformed.
func ToInt64D(s string, def int64) int64 {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}
	return def
}

// ToString renders a Redis field value (string, []byte or number) as a string.
func ToString(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case []byte:
		return string(value)
	default:
		return fmt.Sprint(value)
	}
}

// UnixMilli converts a millisecond timestamp field to UTC time; zero or malformed input yields the zero time.
func UnixMilli(s string) time.Time {
	ms := ToInt64D(s, 0)
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
