// Package timeslot derives the two-hour delivery slot of an order from its
// creation time.
package timeslot

import (
	"time"
	_ "time/tzdata" // zone database for hosts without one

	"github.com/matthieukhl/bakehouse/internal/cftime"
	"github.com/matthieukhl/bakehouse/internal/models"
)

// Slot labels. Downstream consumers match on these literals.
const (
	Slot10to12 = "10:00 - 12:00"
	Slot12to14 = "12:00 - 14:00"
	Slot14to16 = "14:00 - 16:00"
	Slot16to18 = "16:00 - 18:00"
	Slot18to20 = "18:00 - 20:00"
)

// All lists the slots in delivery order.
var All = []string{Slot10to12, Slot12to14, Slot14to16, Slot16to18, Slot18to20}

// DefaultTimezone is the shop's local zone.
const DefaultTimezone = "Asia/Ho_Chi_Minh"

// ForHour maps a local hour (0-23) to its slot. Hours before opening go to
// the first slot and hours after closing go to the last one.
func ForHour(hour int) string {
	switch {
	case hour < 12:
		return Slot10to12
	case hour < 14:
		return Slot12to14
	case hour < 16:
		return Slot14to16
	case hour < 18:
		return Slot16to18
	default:
		return Slot18to20
	}
}

// Valid reports whether label is one of the five slots.
func Valid(label string) bool {
	for _, s := range All {
		if s == label {
			return true
		}
	}
	return false
}

// HasSlot reports whether an order document already carries a slot. Any
// set value counts, even one that is not a slot label.
func HasSlot(doc map[string]any) bool {
	v, ok := doc[models.FieldDeliveryTimeSlot]
	return models.Truthy(v, ok)
}

// Deriver computes slots in a fixed location.
type Deriver struct {
	Location *time.Location
}

// NewDeriver loads the named IANA zone. An empty name uses DefaultTimezone.
func NewDeriver(timezone string) (*Deriver, error) {
	if timezone == "" {
		timezone = DefaultTimezone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, err
	}
	return &Deriver{Location: loc}, nil
}

// ForTime maps an instant to its slot in the deriver's location.
func (d *Deriver) ForTime(t time.Time) string {
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	return ForHour(t.In(loc).Hour())
}

// Derive returns the slot for an order document. The second result is false
// when orderDate is absent or unparseable.
func (d *Deriver) Derive(doc map[string]any) (string, bool) {
	t, ok := cftime.Parse(doc[models.FieldOrderDate])
	if !ok {
		return "", false
	}
	return d.ForTime(t), true
}
