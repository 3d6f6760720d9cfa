// Package mysql stores collections in a single MySQL (or TiDB) table with one
// JSON document per record.
package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/matthieukhl/bakehouse/internal/database"
	"github.com/matthieukhl/bakehouse/internal/models"
	"github.com/matthieukhl/bakehouse/internal/types"
)

type Store struct {
	db *database.DB
}

func New(db *database.DB) *Store {
	return &Store{db: db}
}

// FetchPage uses keyset pagination on the (collection, record_key) primary key.
func (s *Store) FetchPage(ctx context.Context, collection, afterKey string, limit int) ([]models.Record, error) {
	query := fmt.Sprintf(`SELECT record_key, doc FROM %s
		WHERE collection = ? AND record_key > ?
		ORDER BY record_key
		LIMIT ?`, s.db.Table)

	rows, err := s.db.QueryContext(ctx, query, collection, afterKey, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s page: %w", collection, err)
	}
	defer rows.Close()

	var records []models.Record
	for rows.Next() {
		var key string
		var raw []byte
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", collection, err)
		}
		records = append(records, models.Record{Key: key, Data: decodeDoc(raw)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s page: %w", collection, err)
	}

	return records, nil
}

func (s *Store) ReadAll(ctx context.Context, collection string) (map[string]map[string]any, error) {
	query := fmt.Sprintf(`SELECT record_key, doc FROM %s WHERE collection = ?`, s.db.Table)

	rows, err := s.db.QueryContext(ctx, query, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", collection, err)
	}
	defer rows.Close()

	out := make(map[string]map[string]any)
	for rows.Next() {
		var key string
		var raw []byte
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", collection, err)
		}
		if doc := decodeDoc(raw); doc != nil {
			out[key] = doc
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", collection, err)
	}

	return out, nil
}

type recordUpdate struct {
	collection string
	key        string
	fields     []types.Path
	values     []any
}

// WriteBatch applies all updates in one transaction. Each touched record is
// locked, patched and written back, so nested field paths and deletions
// behave as they do on the Realtime Database.
func (s *Store) WriteBatch(ctx context.Context, updates map[string]any) error {
	var order []*recordUpdate
	byRecord := make(map[string]*recordUpdate)

	for _, p := range types.SortedKeys(updates) {
		path, err := types.SplitPath(p)
		if err != nil {
			return err
		}
		id := path.Collection + "/" + path.Key
		ru, ok := byRecord[id]
		if !ok {
			ru = &recordUpdate{collection: path.Collection, key: path.Key}
			byRecord[id] = ru
			order = append(order, ru)
		}
		ru.fields = append(ru.fields, path)
		ru.values = append(ru.values, updates[p])
	}

	if len(order) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	selectSQL := fmt.Sprintf(`SELECT doc FROM %s WHERE collection = ? AND record_key = ? FOR UPDATE`, s.db.Table)
	upsertSQL := fmt.Sprintf(`INSERT INTO %s (collection, record_key, doc) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE doc = VALUES(doc)`, s.db.Table)

	for _, ru := range order {
		var raw []byte
		err := tx.QueryRowContext(ctx, selectSQL, ru.collection, ru.key).Scan(&raw)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to load %s/%s: %w", ru.collection, ru.key, err)
		}

		doc := decodeDoc(raw)
		if doc == nil {
			doc = map[string]any{}
		}
		for i, path := range ru.fields {
			types.SetField(doc, path.Field, ru.values[i])
		}

		encoded, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to encode %s/%s: %w", ru.collection, ru.key, err)
		}
		if _, err := tx.ExecContext(ctx, upsertSQL, ru.collection, ru.key, encoded); err != nil {
			return fmt.Errorf("failed to write %s/%s: %w", ru.collection, ru.key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.HealthCheck(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func decodeDoc(raw []byte) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil
	}
	return doc
}

var _ types.Store = (*Store)(nil)
