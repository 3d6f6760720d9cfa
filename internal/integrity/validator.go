// Package integrity cross-checks customers against their computed metrics
// and reports missing, structurally invalid and stale entries.
package integrity

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/matthieukhl/bakehouse/internal/cftime"
	"github.com/matthieukhl/bakehouse/internal/models"
)

// DefaultStaleAfter is the freshness window for computed metrics.
const DefaultStaleAfter = 24 * time.Hour

var numericFields = []string{
	models.MetricTotalOrders,
	models.MetricTotalSpent,
	models.MetricAOV,
	models.MetricCLV,
	models.MetricHealthScore,
}

// Check is the outcome of validating one metrics document.
type Check struct {
	Errors []string
	// Stale and HoursOld are only set when computedAt parsed.
	Stale    bool
	HoursOld float64
}

func (c Check) Valid() bool {
	return len(c.Errors) == 0
}

// ValidateMetrics runs every structural check against one metrics document
// using the default freshness window.
func ValidateMetrics(metrics map[string]any, now time.Time) Check {
	return validateMetrics(metrics, now, DefaultStaleAfter)
}

func validateMetrics(m map[string]any, now time.Time, staleAfter time.Duration) Check {
	var errs []string

	for _, field := range numericFields {
		v, present := m[field]
		n, ok := number(v)
		switch {
		case !ok:
			errs = append(errs, fmt.Sprintf("%s is not a number (%s)", field, typeOf(v, present)))
		case n < 0:
			errs = append(errs, fmt.Sprintf("%s is negative (%s)", field, display(v, present)))
		}
	}

	if v, present := m[models.MetricHealthScore]; present {
		if n, ok := number(v); ok && (n < 0 || n > 100) {
			errs = append(errs, fmt.Sprintf("healthScore out of range (%s, expected 0-100)", display(v, present)))
		}
	}

	if rfm, present := m[models.MetricRFM]; truthy(rfm, present) {
		obj, _ := rfm.(map[string]any)
		for _, rating := range []string{"R", "F", "M"} {
			v, present := obj[rating]
			if !validRating(v) {
				errs = append(errs, fmt.Sprintf("rfm.%s invalid (%s, expected 1-5)", rating, display(v, present)))
			}
		}
		if !nonEmptyString(obj["segment"]) {
			errs = append(errs, "rfm.segment missing or invalid")
		}
	} else {
		errs = append(errs, "rfm object missing")
	}

	segment, present := m[models.MetricCLVSegment]
	if !oneOf(segment, models.CLVSegments) {
		errs = append(errs, fmt.Sprintf("clvSegment invalid (%s)", display(segment, present)))
	}

	if churn, present := m[models.MetricChurnRisk]; truthy(churn, present) {
		obj, _ := churn.(map[string]any)
		level, present := obj["level"]
		if !oneOf(level, models.ChurnRiskLevels) {
			errs = append(errs, fmt.Sprintf("churnRisk.level invalid (%s)", display(level, present)))
		}
		if _, ok := number(obj["score"]); !ok {
			errs = append(errs, "churnRisk.score is not a number")
		}
	} else {
		errs = append(errs, "churnRisk object missing")
	}

	if loyalty, present := m[models.MetricLoyaltyStage]; truthy(loyalty, present) {
		obj, _ := loyalty.(map[string]any)
		if !nonEmptyString(obj["stage"]) {
			errs = append(errs, "loyaltyStage.stage missing or invalid")
		}
	} else {
		errs = append(errs, "loyaltyStage object missing")
	}

	// location is optional
	if loc, present := m[models.MetricLocation]; truthy(loc, present) {
		obj, _ := loc.(map[string]any)
		zone, present := obj["zone"]
		if _, isString := zone.(string); truthy(zone, present) && !isString {
			errs = append(errs, "location.zone is not a string")
		}
	}

	check := Check{}
	computed, present := m[models.MetricComputedAt]
	if !truthy(computed, present) {
		errs = append(errs, "computedAt timestamp missing")
	} else if at, ok := parseComputedAt(computed); !ok {
		errs = append(errs, "computedAt is not a valid date")
	} else {
		check.HoursOld = now.Sub(at).Hours()
		check.Stale = check.HoursOld > staleAfter.Hours()
	}

	check.Errors = errs
	return check
}

func number(v any) (float64, bool) {
	return models.Number(v)
}

// validRating requires an integral score between 1 and 5.
func validRating(v any) bool {
	n, ok := number(v)
	return ok && n >= 1 && n <= 5 && n == math.Trunc(n)
}

func nonEmptyString(v any) bool {
	s, ok := v.(string)
	return ok && s != ""
}

func oneOf(v any, allowed []string) bool {
	s, ok := v.(string)
	return ok && slices.Contains(allowed, s)
}

func truthy(v any, present bool) bool {
	return models.Truthy(v, present)
}

func typeOf(v any, present bool) string {
	if !present {
		return "undefined"
	}
	switch v.(type) {
	case nil:
		return "object"
	case string:
		return "string"
	case bool:
		return "boolean"
	}
	if _, ok := number(v); ok {
		return "number"
	}
	return "object"
}

// display renders a value the way it appears in error messages.
func display(v any, present bool) string {
	if !present {
		return "undefined"
	}
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case map[string]any:
		return "[object Object]"
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = display(e, true)
		}
		return strings.Join(parts, ",")
	}
	if n, ok := number(v); ok {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

var computedAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseComputedAt accepts an ISO-8601 string or epoch milliseconds.
func parseComputedAt(v any) (time.Time, bool) {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		for _, layout := range computedAtLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	}
	if ms, ok := number(v); ok && cftime.ValidMillis(ms) {
		return time.UnixMilli(int64(ms)), true
	}
	return time.Time{}, false
}
