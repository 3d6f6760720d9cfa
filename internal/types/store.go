// Package types holds the interfaces shared between the jobs and the
// storage providers.
package types

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/matthieukhl/bakehouse/internal/models"
)

// ErrInvalidPath is returned for update paths that do not address a field
// inside a record.
var ErrInvalidPath = errors.New("invalid update path")

// PageSource reads a collection in ascending key order.
type PageSource interface {
	// FetchPage returns at most limit records whose key is strictly greater
	// than afterKey. An empty afterKey starts from the first record.
	FetchPage(ctx context.Context, collection, afterKey string, limit int) ([]models.Record, error)
}

// BatchWriter applies a set of path -> value updates atomically. Paths are
// "<collection>/<key>/<field>[/<subfield>...]".
type BatchWriter interface {
	WriteBatch(ctx context.Context, updates map[string]any) error
}

// Reader loads a whole collection keyed by record key. A missing
// collection yields an empty map.
type Reader interface {
	ReadAll(ctx context.Context, collection string) (map[string]map[string]any, error)
}

// Store is the full collection access surface.
type Store interface {
	PageSource
	BatchWriter
	Reader
	Ping(ctx context.Context) error
	Close() error
}

// Path addresses a field inside a record.
type Path struct {
	Collection string
	Key        string
	Field      []string
}

// String renders the path in its slash form.
func (p Path) String() string {
	return p.Collection + "/" + p.Key + "/" + strings.Join(p.Field, "/")
}

// JoinPath builds an update path.
func JoinPath(collection, key string, field ...string) string {
	parts := append([]string{collection, key}, field...)
	return strings.Join(parts, "/")
}

// SplitPath parses an update path.
func SplitPath(path string) (Path, error) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 3 {
		return Path{}, fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	for _, part := range parts {
		if part == "" {
			return Path{}, fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
	}
	return Path{Collection: parts[0], Key: parts[1], Field: parts[2:]}, nil
}

// SortedKeys returns the keys of updates in ascending order.
func SortedKeys(updates map[string]any) []string {
	keys := make([]string, 0, len(updates))
	for k := range updates {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetField writes value at field inside doc, creating intermediate objects.
func SetField(doc map[string]any, field []string, value any) {
	cur := doc
	for _, name := range field[:len(field)-1] {
		next, ok := cur[name].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[name] = next
		}
		cur = next
	}
	last := field[len(field)-1]
	if value == nil {
		delete(cur, last)
		return
	}
	cur[last] = value
}
