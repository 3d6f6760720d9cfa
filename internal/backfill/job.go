package backfill

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matthieukhl/bakehouse/internal/lock"
	"github.com/matthieukhl/bakehouse/internal/metrics"
	"github.com/matthieukhl/bakehouse/internal/models"
	"github.com/matthieukhl/bakehouse/internal/timeslot"
	"github.com/matthieukhl/bakehouse/internal/types"
)

// JobName is used for the run lock and the duration metric.
const JobName = "fix-timeslots"

const progressEvery = 1000

// Store is what the timeslot job reads from and writes to.
type Store interface {
	types.PageSource
	types.BatchWriter
}

// TimeSlotJob fills in deliveryTimeSlot for orders created before the field
// existed.
type TimeSlotJob struct {
	Store      Store
	Deriver    *timeslot.Deriver
	Collection string
	PageSize   int
	BatchSize  int
	// DryRun scans and counts but writes nothing.
	DryRun bool

	Locker  lock.Locker
	LockTTL time.Duration
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// Result is the job summary printed at the end of a run.
type Result struct {
	Success           bool          `json:"success"`
	RunID             string        `json:"runId"`
	Duration          string        `json:"duration"`
	Processed         int           `json:"processed"`
	Updated           int           `json:"updated"`
	Skipped           int           `json:"skipped"`
	CouldNotDetermine int           `json:"couldNotDetermine"`
	DryRun            bool          `json:"dryRun,omitempty"`
	WouldUpdate       int           `json:"wouldUpdate,omitempty"`
	Elapsed           time.Duration `json:"-"`
}

func (r *Result) finish(start time.Time) {
	r.Elapsed = time.Since(start)
	r.Duration = fmt.Sprintf("%.2fs", r.Elapsed.Seconds())
}

// Run scans the orders, stages the missing slots and commits them.
// Undetermined orders are counted, not treated as failures.
func (j *TimeSlotJob) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	log := j.logger()
	result := &Result{RunID: uuid.NewString(), DryRun: j.DryRun}
	log = log.With(zap.String("run_id", result.RunID), zap.String("job", JobName))

	if j.Deriver == nil {
		return result, errors.New("timeslot job requires a deriver")
	}

	if j.Locker != nil && !j.DryRun {
		release, err := j.Locker.Acquire(ctx, JobName, j.LockTTL)
		if err != nil {
			return result, err
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				log.Warn("failed to release run lock", zap.Error(err))
			}
		}()
	}

	defer func() { j.Metrics.ObserveJob(JobName, time.Since(start)) }()

	collection := j.Collection
	if collection == "" {
		collection = models.CollectionOrders
	}

	log.Info("scanning orders",
		zap.String("collection", collection),
		zap.Int("page_size", j.PageSize),
		zap.Bool("dry_run", j.DryRun))

	scan, err := Scan(ctx, j.Store, ScanOptions{
		Collection: collection,
		PageSize:   j.PageSize,
		Field:      models.FieldDeliveryTimeSlot,
		Skip: func(r models.Record) bool {
			return timeslot.HasSlot(r.Data)
		},
		Derive: func(r models.Record) (any, bool) {
			return j.Deriver.Derive(r.Data)
		},
		OnPage: func(p PageStats) {
			j.Metrics.ObservePage(p.Skipped, p.Staged, p.Undetermined)
			log.Debug("page scanned",
				zap.Int("page", p.Page),
				zap.Int("records", p.Records),
				zap.String("last_key", p.LastKey))
			if p.Processed/progressEvery > (p.Processed-p.Records)/progressEvery {
				log.Info("scan progress", zap.Int("processed", p.Processed))
			}
		},
	})
	if scan != nil {
		result.Processed = scan.Processed
		result.Skipped = scan.Skipped
		result.CouldNotDetermine = scan.Undetermined
	}
	if err != nil {
		result.finish(start)
		log.Error("scan failed", zap.Error(err), zap.Int("processed", result.Processed))
		return result, err
	}

	log.Info("scan finished",
		zap.Int("processed", scan.Processed),
		zap.Int("skipped", scan.Skipped),
		zap.Int("staged", scan.Staged),
		zap.Int("could_not_determine", scan.Undetermined))

	if j.DryRun {
		result.WouldUpdate = scan.Staged
		result.Success = true
		result.finish(start)
		return result, nil
	}

	applied := 0
	commit, err := Commit(ctx, j.Store, scan.Updates, CommitOptions{
		BatchSize: j.BatchSize,
		OnProgress: func(p Progress) {
			j.Metrics.AddApplied(p.Applied - applied)
			applied = p.Applied
			log.Info("batch committed",
				zap.Int("batch", p.Batch),
				zap.Int("batches", p.Batches),
				zap.Int("applied", p.Applied),
				zap.Int("total", p.Total),
				zap.Int("percent", p.Percent))
		},
	})
	if commit != nil {
		result.Updated = commit.Applied
	}
	result.finish(start)
	if err != nil {
		log.Error("commit failed", zap.Error(err), zap.Int("applied", result.Updated))
		return result, err
	}

	result.Success = true
	log.Info("backfill finished",
		zap.Int("updated", result.Updated),
		zap.Duration("elapsed", result.Elapsed))
	return result, nil
}

func (j *TimeSlotJob) logger() *zap.Logger {
	if j.Logger == nil {
		return zap.NewNop()
	}
	return j.Logger
}
