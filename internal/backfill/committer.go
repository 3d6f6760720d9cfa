package backfill

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/matthieukhl/bakehouse/internal/types"
)

var ErrInvalidBatchSize = errors.New("batch size must be positive")

type CommitOptions struct {
	BatchSize  int
	OnProgress func(Progress)
}

// Progress is reported after every successful batch.
type Progress struct {
	Batch   int
	Batches int
	Applied int
	Total   int
	// Percent is Applied/Total rounded to the nearest integer.
	Percent int
}

type CommitResult struct {
	Total   int
	Applied int
	Batches int
}

// PartialCommitError reports a batch that failed after earlier batches were
// already applied. Applied updates are not rolled back.
type PartialCommitError struct {
	Applied int
	Total   int
	Batch   int
	Err     error
}

func (e *PartialCommitError) Error() string {
	return fmt.Sprintf("batch %d failed with %d of %d updates applied: %v", e.Batch, e.Applied, e.Total, e.Err)
}

func (e *PartialCommitError) Unwrap() error {
	return e.Err
}

// Commit splits updates into slices of at most BatchSize paths, in ascending
// path order, and writes them one after another. Each slice is applied
// atomically by the writer.
func Commit(ctx context.Context, w types.BatchWriter, updates map[string]any, opts CommitOptions) (*CommitResult, error) {
	if opts.BatchSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBatchSize, opts.BatchSize)
	}

	keys := types.SortedKeys(updates)
	result := &CommitResult{Total: len(keys)}
	if len(keys) == 0 {
		return result, nil
	}

	batches := (len(keys) + opts.BatchSize - 1) / opts.BatchSize

	for start := 0; start < len(keys); start += opts.BatchSize {
		end := min(start+opts.BatchSize, len(keys))
		batch := result.Batches + 1

		if err := ctx.Err(); err != nil {
			return result, &PartialCommitError{Applied: result.Applied, Total: result.Total, Batch: batch, Err: err}
		}

		chunk := make(map[string]any, end-start)
		for _, k := range keys[start:end] {
			chunk[k] = updates[k]
		}

		if err := w.WriteBatch(ctx, chunk); err != nil {
			return result, &PartialCommitError{Applied: result.Applied, Total: result.Total, Batch: batch, Err: err}
		}

		result.Applied += len(chunk)
		result.Batches = batch

		if opts.OnProgress != nil {
			opts.OnProgress(Progress{
				Batch:   batch,
				Batches: batches,
				Applied: result.Applied,
				Total:   result.Total,
				Percent: int(math.Round(float64(result.Applied) / float64(result.Total) * 100)),
			})
		}
	}

	return result, nil
}
