package database

import (
	"context"
	"fmt"
)

// Documents are stored one row per record. The doc column holds the record's
// JSON object exactly as the Realtime Database would return it.
const recordsTableSQL = `CREATE TABLE IF NOT EXISTS %s (
    collection VARCHAR(128) NOT NULL,
    record_key VARCHAR(255) NOT NULL,
    doc JSON NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    PRIMARY KEY (collection, record_key)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_bin`

// SetupSchema creates the records table
func (db *DB) SetupSchema(ctx context.Context) error {
	statements := []string{
		fmt.Sprintf(recordsTableSQL, db.Table),
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create %s: %w", db.Table, err)
		}
	}

	return nil
}

// CleanupData removes every record but keeps the schema
func (db *DB) CleanupData(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", db.Table)); err != nil {
		return fmt.Errorf("failed to clean %s: %w", db.Table, err)
	}
	return nil
}

// DropSchema removes the records table
func (db *DB) DropSchema(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", db.Table)); err != nil {
		return fmt.Errorf("failed to drop %s: %w", db.Table, err)
	}
	return nil
}
