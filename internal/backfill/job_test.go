package backfill

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/matthieukhl/bakehouse/internal/lock"
	"github.com/matthieukhl/bakehouse/internal/metrics"
	"github.com/matthieukhl/bakehouse/internal/store/memory"
	"github.com/matthieukhl/bakehouse/internal/timeslot"
)

// 2025-01-01T00:00:00Z in CFAbsoluteTime; Ho Chi Minh City is UTC+7.
const newYear = 757382400

func localHour(h, m int) float64 {
	return float64(newYear + (h-7)*3600 + m*60)
}

func shopOrders() *memory.Store {
	s := memory.New()
	s.Put("orders", "-O01", map[string]any{"orderDate": localHour(9, 0)})
	s.Put("orders", "-O02", map[string]any{"orderDate": localHour(11, 59)})
	s.Put("orders", "-O03", map[string]any{"orderDate": localHour(12, 0)})
	s.Put("orders", "-O04", map[string]any{"orderDate": localHour(19, 59)})
	s.Put("orders", "-O05", map[string]any{"orderDate": localHour(21, 0)})
	s.Put("orders", "-O06", map[string]any{"status": "pending"})
	s.Put("orders", "-O07", map[string]any{"orderDate": localHour(15, 0), "deliveryTimeSlot": "10:00 - 12:00"})
	return s
}

func newJob(t *testing.T, s *memory.Store) *TimeSlotJob {
	t.Helper()
	deriver, err := timeslot.NewDeriver("Asia/Ho_Chi_Minh")
	require.NoError(t, err)
	return &TimeSlotJob{
		Store:     s,
		Deriver:   deriver,
		PageSize:  2,
		BatchSize: 3,
		Logger:    zaptest.NewLogger(t),
	}
}

func slotOf(t *testing.T, s *memory.Store, key string) any {
	t.Helper()
	doc, ok := s.Get("orders", key)
	require.True(t, ok)
	return doc["deliveryTimeSlot"]
}

func TestTimeSlotJobRun(t *testing.T) {
	s := shopOrders()
	job := newJob(t, s)
	job.Metrics = metrics.New()

	result, err := job.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 7, result.Processed)
	assert.Equal(t, 5, result.Updated)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1, result.CouldNotDetermine)
	assert.NotEmpty(t, result.RunID)

	assert.Equal(t, "10:00 - 12:00", slotOf(t, s, "-O01"))
	assert.Equal(t, "10:00 - 12:00", slotOf(t, s, "-O02"))
	assert.Equal(t, "12:00 - 14:00", slotOf(t, s, "-O03"))
	assert.Equal(t, "18:00 - 20:00", slotOf(t, s, "-O04"))
	assert.Equal(t, "18:00 - 20:00", slotOf(t, s, "-O05"))
	assert.Nil(t, slotOf(t, s, "-O06"))
	// existing slots are never recomputed
	assert.Equal(t, "10:00 - 12:00", slotOf(t, s, "-O07"))
}

func TestTimeSlotJobKeepsNonLabelSlots(t *testing.T) {
	s := memory.New()
	s.Put("orders", "-A", map[string]any{"orderDate": localHour(9, 0), "deliveryTimeSlot": float64(3)})
	s.Put("orders", "-B", map[string]any{"orderDate": localHour(9, 0), "deliveryTimeSlot": map[string]any{"label": "x"}})
	s.Put("orders", "-C", map[string]any{"orderDate": localHour(9, 0), "deliveryTimeSlot": false})
	s.Put("orders", "-D", map[string]any{"orderDate": 1e20})

	result, err := newJob(t, s).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Skipped)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 1, result.CouldNotDetermine)
	assert.Equal(t, float64(3), slotOf(t, s, "-A"))
	assert.Equal(t, map[string]any{"label": "x"}, slotOf(t, s, "-B"))
	assert.Equal(t, timeslot.Slot10to12, slotOf(t, s, "-C"))
	assert.Nil(t, slotOf(t, s, "-D"))
}

func TestTimeSlotJobIsIdempotent(t *testing.T) {
	s := shopOrders()
	job := newJob(t, s)

	_, err := job.Run(context.Background())
	require.NoError(t, err)

	second, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Updated)
	assert.Equal(t, 6, second.Skipped)
	assert.Equal(t, 1, second.CouldNotDetermine)
}

func TestTimeSlotJobDryRun(t *testing.T) {
	s := shopOrders()
	job := newJob(t, s)
	job.DryRun = true

	result, err := job.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, result.DryRun)
	assert.Equal(t, 5, result.WouldUpdate)
	assert.Equal(t, 0, result.Updated)
	assert.Nil(t, slotOf(t, s, "-O01"))
}

func TestTimeSlotJobRespectsLock(t *testing.T) {
	locker := lock.NewMemory()
	release, err := locker.Acquire(context.Background(), JobName, time.Minute)
	require.NoError(t, err)

	s := shopOrders()
	job := newJob(t, s)
	job.Locker = locker
	job.LockTTL = time.Minute

	_, err = job.Run(context.Background())
	assert.ErrorIs(t, err, lock.ErrLocked)
	assert.Nil(t, slotOf(t, s, "-O01"))

	require.NoError(t, release(context.Background()))
	result, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, result.Updated)

	// the job released its own lock
	_, err = locker.Acquire(context.Background(), JobName, time.Minute)
	assert.NoError(t, err)
}

func TestTimeSlotJobEmptyCollection(t *testing.T) {
	result, err := newJob(t, memory.New()).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 0, result.Processed)
	assert.Equal(t, 0, result.Updated)
}

func TestResultJSON(t *testing.T) {
	data, err := json.Marshal(&Result{Success: true, Duration: "1.50s", Updated: 3, Skipped: 2, CouldNotDetermine: 1})
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "1.50s", out["duration"])
	assert.Equal(t, float64(3), out["updated"])
	assert.Equal(t, float64(2), out["skipped"])
	assert.Equal(t, float64(1), out["couldNotDetermine"])
	assert.NotContains(t, out, "dryRun")
}
