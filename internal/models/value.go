package models

import (
	"encoding/json"
	"math"
	"strconv"
)

// Number accepts the numeric types a decoded document can hold. Strings are
// not numbers here, even when they look like one.
func Number(v any) (float64, bool) {
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
	default:
		return 0, false
	}
}

// Truthy follows the document producers' notion of a set value: absent,
// null, false, zero, NaN and empty string all count as unset. Any other
// value, objects included, is set.
func Truthy(v any, present bool) bool {
	if !present || v == nil {
		return false
	}
	switch x := v.(type) {
	case bool:
		return x
	case string:
		return x != ""
	}
	if n, ok := Number(v); ok {
		return n != 0 && !math.IsNaN(n)
	}
	return true
}

// Key renders a scalar field the way it is used as a record key. Numbers
// print without exponent or trailing zeros.
func Key(v any) (string, bool) {
	if s, ok := v.(string); ok {
		return s, true
	}
	if n, ok := Number(v); ok && !math.IsNaN(n) && !math.IsInf(n, 0) {
		return strconv.FormatFloat(n, 'f', -1, 64), true
	}
	return "", false
}
