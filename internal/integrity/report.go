package integrity

import (
	"time"

	"github.com/matthieukhl/bakehouse/internal/models"
)

type MissingEntry struct {
	Phone string `json:"phone" yaml:"phone"`
	Name  string `json:"name" yaml:"name"`
}

type InvalidEntry struct {
	Phone  string   `json:"phone" yaml:"phone"`
	Name   string   `json:"name" yaml:"name"`
	Errors []string `json:"errors" yaml:"errors"`
}

type StaleEntry struct {
	Phone    string  `json:"phone" yaml:"phone"`
	Name     string  `json:"name" yaml:"name"`
	HoursOld float64 `json:"hoursOld" yaml:"hoursOld"`
}

// Verdicts
const (
	VerdictPass = "PASS"
	VerdictFail = "FAIL"
)

// Report is the categorized result of one integrity check.
type Report struct {
	TotalCustomers       int
	CustomersWithMetrics int
	ValidStructures      int
	InvalidStructures    int

	Missing []MissingEntry
	Invalid []InvalidEntry
	Stale   []StaleEntry

	StaleAfter time.Duration
	CheckedAt  time.Time
	Duration   time.Duration
}

// Passed reports whether every customer has structurally valid metrics.
// Stale entries do not fail the check.
func (r *Report) Passed() bool {
	return len(r.Missing) == 0 && len(r.Invalid) == 0
}

func (r *Report) Verdict() string {
	if r.Passed() {
		return VerdictPass
	}
	return VerdictFail
}

// CoveragePercent is the share of customers that have a metrics entry.
func (r *Report) CoveragePercent() float64 {
	return percent(r.CustomersWithMetrics, r.TotalCustomers)
}

// ValidationRate is the share of metrics entries without structural errors.
func (r *Report) ValidationRate() float64 {
	return percent(r.ValidStructures, r.CustomersWithMetrics)
}

// Fresh counts metrics entries inside the freshness window.
func (r *Report) Fresh() int {
	return r.CustomersWithMetrics - len(r.Stale)
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

// Validator joins customers to their metrics by phone.
type Validator struct {
	Now        func() time.Time
	StaleAfter time.Duration
}

// Validate checks every customer with a phone, in the order given.
// Customers sharing a phone are each counted.
func (v *Validator) Validate(customers []models.Customer, metrics map[string]map[string]any) *Report {
	now := time.Now
	if v.Now != nil {
		now = v.Now
	}
	staleAfter := v.StaleAfter
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}

	started := now()
	report := &Report{StaleAfter: staleAfter, CheckedAt: started}

	for _, c := range customers {
		if !c.HasPhone() {
			continue
		}
		report.TotalCustomers++

		doc, ok := metrics[c.Phone]
		if !ok || doc == nil {
			report.Missing = append(report.Missing, MissingEntry{Phone: c.DisplayPhone(), Name: c.Name})
			continue
		}
		report.CustomersWithMetrics++

		check := validateMetrics(doc, started, staleAfter)
		if check.Valid() {
			report.ValidStructures++
		} else {
			report.InvalidStructures++
			report.Invalid = append(report.Invalid, InvalidEntry{Phone: c.DisplayPhone(), Name: c.Name, Errors: check.Errors})
		}
		if check.Stale {
			report.Stale = append(report.Stale, StaleEntry{Phone: c.DisplayPhone(), Name: c.Name, HoursOld: check.HoursOld})
		}
	}

	report.Duration = now().Sub(started)
	return report
}
