package integrity

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrUnknownFormat is returned by Render for unsupported output formats.
var ErrUnknownFormat = errors.New("unknown output format")

// Formats accepted by Render
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Listing limits for the text report
const (
	maxMissingListed = 10
	maxInvalidListed = 5
	maxStaleListed   = 5
)

var rule = strings.Repeat("=", 80)

// document is the machine-readable form of a Report.
type document struct {
	Verdict              string         `json:"verdict" yaml:"verdict"`
	CheckedAt            time.Time      `json:"checkedAt" yaml:"checkedAt"`
	Duration             string         `json:"duration" yaml:"duration"`
	TotalCustomers       int            `json:"totalCustomers" yaml:"totalCustomers"`
	CustomersWithMetrics int            `json:"customersWithMetrics" yaml:"customersWithMetrics"`
	CoveragePercent      float64        `json:"coveragePercent" yaml:"coveragePercent"`
	ValidStructures      int            `json:"validStructures" yaml:"validStructures"`
	InvalidStructures    int            `json:"invalidStructures" yaml:"invalidStructures"`
	ValidationRate       float64        `json:"validationRate" yaml:"validationRate"`
	FreshMetrics         int            `json:"freshMetrics" yaml:"freshMetrics"`
	StaleAfterHours      float64        `json:"staleAfterHours" yaml:"staleAfterHours"`
	Missing              []MissingEntry `json:"missingMetrics" yaml:"missingMetrics"`
	Invalid              []InvalidEntry `json:"invalidFields" yaml:"invalidFields"`
	Stale                []StaleEntry   `json:"staleMetrics" yaml:"staleMetrics"`
}

// Document returns the serializable summary of the report.
func (r *Report) Document() any {
	return document{
		Verdict:              r.Verdict(),
		CheckedAt:            r.CheckedAt.UTC(),
		Duration:             seconds(r.Duration),
		TotalCustomers:       r.TotalCustomers,
		CustomersWithMetrics: r.CustomersWithMetrics,
		CoveragePercent:      round2(r.CoveragePercent()),
		ValidStructures:      r.ValidStructures,
		InvalidStructures:    r.InvalidStructures,
		ValidationRate:       round2(r.ValidationRate()),
		FreshMetrics:         r.Fresh(),
		StaleAfterHours:      r.StaleAfter.Hours(),
		Missing:              nonNil(r.Missing),
		Invalid:              nonNil(r.Invalid),
		Stale:                nonNil(r.Stale),
	}
}

// Render writes the report in the given format.
func Render(w io.Writer, r *Report, format string) error {
	switch format {
	case FormatText, "":
		return RenderText(w, r)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r.Document())
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r.Document()); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
}

// RenderText writes the human-readable report.
func RenderText(w io.Writer, r *Report) error {
	var b strings.Builder
	window := hours(r.StaleAfter)

	section(&b, "COVERAGE")
	fmt.Fprintf(&b, "Total customers: %d\n", r.TotalCustomers)
	fmt.Fprintf(&b, "Customers with metrics: %d (%.2f%%)\n", r.CustomersWithMetrics, r.CoveragePercent())
	fmt.Fprintf(&b, "Missing metrics: %d\n\n", len(r.Missing))

	section(&b, "FIELD VALIDATION")
	fmt.Fprintf(&b, "Valid structures: %d\n", r.ValidStructures)
	fmt.Fprintf(&b, "Invalid structures: %d\n", r.InvalidStructures)
	fmt.Fprintf(&b, "Validation rate: %.2f%%\n\n", r.ValidationRate())

	section(&b, "FRESHNESS")
	fmt.Fprintf(&b, "Fresh metrics (< %s): %d\n", window, r.Fresh())
	fmt.Fprintf(&b, "Stale metrics (> %s): %d\n\n", window, len(r.Stale))

	if len(r.Missing) > 0 {
		b.WriteString("⚠️  MISSING METRICS:\n")
		for _, m := range head(r.Missing, maxMissingListed) {
			fmt.Fprintf(&b, "   - %s (%s)\n", m.Name, m.Phone)
		}
		more(&b, len(r.Missing), maxMissingListed)
	}

	if len(r.Invalid) > 0 {
		b.WriteString("❌ INVALID FIELDS:\n")
		for _, inv := range head(r.Invalid, maxInvalidListed) {
			fmt.Fprintf(&b, "   %s (%s):\n", inv.Name, inv.Phone)
			for _, e := range inv.Errors {
				fmt.Fprintf(&b, "      - %s\n", e)
			}
		}
		more(&b, len(r.Invalid), maxInvalidListed)
	}

	if len(r.Stale) > 0 {
		b.WriteString("⏰ STALE METRICS:\n")
		for _, s := range head(r.Stale, maxStaleListed) {
			fmt.Fprintf(&b, "   - %s (%s): %.1fh old\n", s.Name, s.Phone, s.HoursOld)
		}
		more(&b, len(r.Stale), maxStaleListed)
	}

	section(&b, "VERDICT")
	fmt.Fprintf(&b, "Duration: %s\n", seconds(r.Duration))
	if r.Passed() {
		b.WriteString("🎉 PASSED: All data integrity checks passed!\n")
		b.WriteString("✅ All customers have valid metrics\n")
		b.WriteString("✅ All fields are properly structured\n")
		if len(r.Stale) > 0 {
			fmt.Fprintf(&b, "⚠️  Note: %d metrics are stale (> %s old)\n", len(r.Stale), window)
		}
	} else {
		b.WriteString("⚠️  FAILED: Data integrity issues found\n")
		if len(r.Missing) > 0 {
			fmt.Fprintf(&b, "   - %d customers missing metrics\n", len(r.Missing))
		}
		if len(r.Invalid) > 0 {
			fmt.Fprintf(&b, "   - %d customers have invalid fields\n", len(r.Invalid))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func section(b *strings.Builder, title string) {
	fmt.Fprintf(b, "%s\n%s\n%s\n", rule, title, rule)
}

func more(b *strings.Builder, total, shown int) {
	if total > shown {
		fmt.Fprintf(b, "   ... and %d more\n", total-shown)
	}
	b.WriteString("\n")
}

func head[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.2fs", d.Seconds())
}

func hours(d time.Duration) string {
	return strconv.FormatFloat(d.Hours(), 'f', -1, 64) + "h"
}

func round2(f float64) float64 {
	v, _ := strconv.ParseFloat(strconv.FormatFloat(f, 'f', 2, 64), 64)
	return v
}
