// Package backfill walks a keyed collection page by page, stages derived
// field values for the records that lack them and commits the staged
// updates in bounded atomic batches.
package backfill

import (
	"context"
	"errors"
	"fmt"

	"github.com/matthieukhl/bakehouse/internal/models"
	"github.com/matthieukhl/bakehouse/internal/types"
)

var ErrInvalidPageSize = errors.New("page size must be positive")

// ScanOptions configures a Scan.
type ScanOptions struct {
	Collection string
	PageSize   int
	// Field is the path below each record the derived value is staged at.
	Field string
	// Derive computes the new value. A false second result counts the record
	// as undetermined.
	Derive func(models.Record) (any, bool)
	// Skip excludes records that already carry the field.
	Skip func(models.Record) bool
	// OnPage, if set, is called after every non-empty page.
	OnPage func(PageStats)
}

// PageStats describes one folded page.
type PageStats struct {
	Page         int
	Records      int
	Skipped      int
	Staged       int
	Undetermined int
	LastKey      string
	// Processed is the running total across pages.
	Processed int
}

// ScanResult accumulates staged updates and counters across pages.
type ScanResult struct {
	Updates      map[string]any
	Processed    int
	Skipped      int
	Staged       int
	Undetermined int
	Pages        int
	LastKey      string
}

type pageFold struct {
	updates      map[string]any
	skipped      int
	undetermined int
}

// foldPage classifies every record of one page. It has no side effects.
func foldPage(page []models.Record, opts ScanOptions) pageFold {
	out := pageFold{updates: make(map[string]any)}
	for _, rec := range page {
		if opts.Skip != nil && opts.Skip(rec) {
			out.skipped++
			continue
		}
		value, ok := opts.Derive(rec)
		if !ok {
			out.undetermined++
			continue
		}
		out.updates[types.JoinPath(opts.Collection, rec.Key, opts.Field)] = value
	}
	return out
}

func (r *ScanResult) merge(page []models.Record, f pageFold) PageStats {
	for path, v := range f.updates {
		r.Updates[path] = v
	}
	r.Pages++
	r.Processed += len(page)
	r.Skipped += f.skipped
	r.Undetermined += f.undetermined
	r.Staged = len(r.Updates)
	r.LastKey = page[len(page)-1].Key

	return PageStats{
		Page:         r.Pages,
		Records:      len(page),
		Skipped:      f.skipped,
		Staged:       len(f.updates),
		Undetermined: f.undetermined,
		LastKey:      r.LastKey,
		Processed:    r.Processed,
	}
}

// Scan reads the whole collection in key order and returns the staged
// updates. The first page starts at the beginning; each following page
// starts strictly after the last key of the previous one. Scanning stops at
// the first empty page.
//
// On error the partial result is returned along with it.
func Scan(ctx context.Context, src types.PageSource, opts ScanOptions) (*ScanResult, error) {
	if opts.PageSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPageSize, opts.PageSize)
	}
	if opts.Derive == nil {
		return nil, errors.New("scan requires a derive function")
	}

	result := &ScanResult{Updates: make(map[string]any)}
	afterKey := ""

	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		page, err := src.FetchPage(ctx, opts.Collection, afterKey, opts.PageSize)
		if err != nil {
			return result, fmt.Errorf("failed to fetch %s page after key %q: %w", opts.Collection, afterKey, err)
		}
		if len(page) == 0 {
			return result, nil
		}

		stats := result.merge(page, foldPage(page, opts))
		afterKey = result.LastKey

		if opts.OnPage != nil {
			opts.OnPage(stats)
		}
	}
}
