// Package cftime converts Core Foundation absolute times (seconds since
// 2001-01-01T00:00:00Z) into time.Time. The order app stores orderDate in
// this epoch.
package cftime

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// UnixOffset is the number of seconds between the Unix epoch and the Core
// Foundation reference date 2001-01-01T00:00:00Z.
const UnixOffset = 978307200

// MaxMillis bounds the Unix milliseconds a stored timestamp may represent,
// the ±100,000,000 day range of an ECMAScript Date.
const MaxMillis = 8.64e15

// ValidMillis reports whether ms is a finite Unix millisecond value inside
// the representable date range.
func ValidMillis(ms float64) bool {
	return !math.IsNaN(ms) && !math.IsInf(ms, 0) && math.Abs(ms) <= MaxMillis
}

// ToTime converts seconds since the reference date to a UTC time with
// millisecond precision. Callers must keep seconds inside the range Parse
// accepts.
func ToTime(seconds float64) time.Time {
	ms := math.Round((seconds + UnixOffset) * 1000)
	return time.UnixMilli(int64(ms)).UTC()
}

// FromTime is the inverse of ToTime.
func FromTime(t time.Time) float64 {
	return float64(t.UnixMilli())/1000 - UnixOffset
}

// Parse reads a stored timestamp. Zero, empty, non-numeric, non-finite and
// out-of-range values are reported as absent.
func Parse(v any) (time.Time, bool) {
	seconds, ok := toSeconds(v)
	if !ok || seconds == 0 || !ValidMillis((seconds+UnixOffset)*1000) {
		return time.Time{}, false
	}
	return ToTime(seconds), true
}

func toSeconds(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
