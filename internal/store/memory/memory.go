// Package memory is an in-process document tree with the same semantics as
// the Realtime Database: collections of keyed JSON objects, ordered key
// reads and multi-path updates.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/matthieukhl/bakehouse/internal/models"
	"github.com/matthieukhl/bakehouse/internal/types"
)

// Store holds the whole tree in memory. It is safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	root map[string]any
}

// New creates an empty store.
func New() *Store {
	return &Store{root: map[string]any{}}
}

// NewFromTree creates a store over an existing tree, typically a decoded
// database export. The tree is used as is, not copied.
func NewFromTree(root map[string]any) *Store {
	if root == nil {
		root = map[string]any{}
	}
	return &Store{root: root}
}

// Put stores doc under collection/key, replacing any previous document.
func (s *Store) Put(collection, key string, doc map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	col, ok := s.root[collection].(map[string]any)
	if !ok {
		col = map[string]any{}
		s.root[collection] = col
	}
	col[key] = doc
}

// Get returns the document stored under collection/key.
func (s *Store) Get(collection, key string) (map[string]any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	col, ok := s.root[collection].(map[string]any)
	if !ok {
		return nil, false
	}
	doc, ok := col[key].(map[string]any)
	return doc, ok
}

// Len returns the number of children of collection.
func (s *Store) Len(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	col, _ := s.root[collection].(map[string]any)
	return len(col)
}

// Tree returns the underlying tree. Callers must not mutate it while the
// store is in use.
func (s *Store) Tree() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.root
}

// FetchPage implements types.PageSource.
func (s *Store) FetchPage(ctx context.Context, collection, afterKey string, limit int) ([]models.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	col, _ := s.root[collection].(map[string]any)
	keys := make([]string, 0, len(col))
	for k := range col {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	start := 0
	if afterKey != "" {
		start = sort.Search(len(keys), func(i int) bool { return keys[i] > afterKey })
	}

	var page []models.Record
	for i := start; i < len(keys) && len(page) < limit; i++ {
		doc, _ := col[keys[i]].(map[string]any)
		page = append(page, models.Record{Key: keys[i], Data: doc})
	}
	return page, nil
}

// ReadAll implements types.Reader. Children that are not objects are left out.
func (s *Store) ReadAll(ctx context.Context, collection string) (map[string]map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	col, _ := s.root[collection].(map[string]any)
	out := make(map[string]map[string]any, len(col))
	for k, v := range col {
		if doc, ok := v.(map[string]any); ok {
			out[k] = doc
		}
	}
	return out, nil
}

// WriteBatch implements types.BatchWriter. Every path is validated before
// anything is applied, so a batch either lands entirely or not at all.
func (s *Store) WriteBatch(ctx context.Context, updates map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	paths := make([]types.Path, 0, len(updates))
	values := make([]any, 0, len(updates))
	for _, raw := range types.SortedKeys(updates) {
		p, err := types.SplitPath(raw)
		if err != nil {
			return err
		}
		paths = append(paths, p)
		values = append(values, updates[raw])
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, p := range paths {
		segments := append([]string{p.Collection, p.Key}, p.Field...)
		types.SetField(s.root, segments, values[i])
	}
	return nil
}

// Ping implements types.Store.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close implements types.Store.
func (s *Store) Close() error {
	return nil
}

var _ types.Store = (*Store)(nil)
