package timeslot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthieukhl/bakehouse/internal/cftime"
)

func TestForHour(t *testing.T) {
	tests := []struct {
		hour int
		want string
	}{
		{0, Slot10to12},
		{9, Slot10to12},
		{10, Slot10to12},
		{11, Slot10to12},
		{12, Slot12to14},
		{13, Slot12to14},
		{14, Slot14to16},
		{15, Slot14to16},
		{16, Slot16to18},
		{17, Slot16to18},
		{18, Slot18to20},
		{19, Slot18to20},
		{20, Slot18to20},
		{21, Slot18to20},
		{23, Slot18to20},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ForHour(tt.hour), "hour %d", tt.hour)
	}
}

func TestLabelsAreExact(t *testing.T) {
	assert.Equal(t, []string{
		"10:00 - 12:00",
		"12:00 - 14:00",
		"14:00 - 16:00",
		"16:00 - 18:00",
		"18:00 - 20:00",
	}, All)

	for _, s := range All {
		assert.True(t, Valid(s))
	}
	assert.False(t, Valid("10:00-12:00"))
	assert.False(t, Valid(""))
}

func TestDeriverBoundaries(t *testing.T) {
	d, err := NewDeriver("UTC")
	require.NoError(t, err)

	at := func(hour, minute int) map[string]any {
		ts := time.Date(2025, 6, 1, hour, minute, 0, 0, time.UTC)
		return map[string]any{"orderDate": cftime.FromTime(ts)}
	}

	tests := []struct {
		name string
		doc  map[string]any
		want string
	}{
		{"09:00 clamps to first slot", at(9, 0), Slot10to12},
		{"10:00", at(10, 0), Slot10to12},
		{"11:59", at(11, 59), Slot10to12},
		{"12:00", at(12, 0), Slot12to14},
		{"19:59", at(19, 59), Slot18to20},
		{"21:00 clamps to last slot", at(21, 0), Slot18to20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := d.Derive(tt.doc)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeriverUndetermined(t *testing.T) {
	d, err := NewDeriver("UTC")
	require.NoError(t, err)

	for _, doc := range []map[string]any{
		{},
		{"orderDate": nil},
		{"orderDate": 0.0},
		{"orderDate": "not a date"},
		{"orderDate": 1e20},
		{"orderDate": -1e20},
		{"orderDate": 1e300},
	} {
		got, ok := d.Derive(doc)
		assert.False(t, ok)
		assert.Empty(t, got)
	}
}

func TestDeriverUsesLocation(t *testing.T) {
	d, err := NewDeriver("")
	require.NoError(t, err)
	assert.Equal(t, DefaultTimezone, d.Location.String())

	// 05:30 UTC is 12:30 in Ho Chi Minh City.
	ts := time.Date(2025, 6, 1, 5, 30, 0, 0, time.UTC)
	got, ok := d.Derive(map[string]any{"orderDate": cftime.FromTime(ts)})
	require.True(t, ok)
	assert.Equal(t, Slot12to14, got)
}

func TestDeriverDeterministic(t *testing.T) {
	d, err := NewDeriver("UTC")
	require.NoError(t, err)

	doc := map[string]any{"orderDate": 757425600.0}
	first, _ := d.Derive(doc)
	for i := 0; i < 10; i++ {
		got, _ := d.Derive(doc)
		assert.Equal(t, first, got)
	}
}

func TestNewDeriverRejectsUnknownZone(t *testing.T) {
	_, err := NewDeriver("Mars/Olympus_Mons")
	assert.Error(t, err)
}

func TestHasSlot(t *testing.T) {
	assert.True(t, HasSlot(map[string]any{"deliveryTimeSlot": Slot14to16}))
	assert.False(t, HasSlot(map[string]any{"deliveryTimeSlot": ""}))
	assert.False(t, HasSlot(map[string]any{"deliveryTimeSlot": nil}))
	assert.False(t, HasSlot(map[string]any{}))
	assert.False(t, HasSlot(map[string]any{"deliveryTimeSlot": false}))
	assert.False(t, HasSlot(map[string]any{"deliveryTimeSlot": float64(0)}))

	// Set but unrecognised values are still left alone.
	assert.True(t, HasSlot(map[string]any{"deliveryTimeSlot": "morning"}))
	assert.True(t, HasSlot(map[string]any{"deliveryTimeSlot": float64(3)}))
	assert.True(t, HasSlot(map[string]any{"deliveryTimeSlot": true}))
	assert.True(t, HasSlot(map[string]any{"deliveryTimeSlot": map[string]any{"label": "x"}}))
}
