// Package file serves a JSON database export (the Realtime Database backup
// format) as a store. Updates are applied in memory and written back when
// the store is closed.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/matthieukhl/bakehouse/internal/models"
	"github.com/matthieukhl/bakehouse/internal/store/memory"
	"github.com/matthieukhl/bakehouse/internal/types"
)

// Store is a file-backed store.
type Store struct {
	path     string
	readOnly bool
	mem      *memory.Store

	mu    sync.Mutex
	dirty bool
}

// Open loads the export at path. A missing file starts an empty tree that
// is created on Close.
func Open(path string, readOnly bool) (*Store, error) {
	tree := map[string]any{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if len(data) > 0 {
			if err := json.Unmarshal(data, &tree); err != nil {
				return nil, fmt.Errorf("failed to decode export %s: %w", path, err)
			}
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read export %s: %w", path, err)
	}

	return &Store{
		path:     path,
		readOnly: readOnly,
		mem:      memory.NewFromTree(tree),
	}, nil
}

// FetchPage implements types.PageSource.
func (s *Store) FetchPage(ctx context.Context, collection, afterKey string, limit int) ([]models.Record, error) {
	return s.mem.FetchPage(ctx, collection, afterKey, limit)
}

// ReadAll implements types.Reader.
func (s *Store) ReadAll(ctx context.Context, collection string) (map[string]map[string]any, error) {
	return s.mem.ReadAll(ctx, collection)
}

// WriteBatch implements types.BatchWriter.
func (s *Store) WriteBatch(ctx context.Context, updates map[string]any) error {
	if s.readOnly {
		return fmt.Errorf("export %s is opened read-only", s.path)
	}
	if err := s.mem.WriteBatch(ctx, updates); err != nil {
		return err
	}

	s.mu.Lock()
	s.dirty = true
	s.mu.Unlock()
	return nil
}

// Ping checks that the export's directory is still reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := os.Stat(filepath.Dir(s.path))
	return err
}

// Flush writes the tree back if it changed. The file is replaced atomically.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil
	}

	data, err := json.MarshalIndent(s.mem.Tree(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write export: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace export: %w", err)
	}

	s.dirty = false
	return nil
}

// Close flushes pending changes.
func (s *Store) Close() error {
	return s.Flush()
}

var _ types.Store = (*Store)(nil)
