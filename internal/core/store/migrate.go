package store

import (
	"context"
	"errors"
	"fmt"
)

// schemaVersion is written to PRAGMA user_version after migrating.
const schemaVersion = 1

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS throttle_window (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		request_count INTEGER NOT NULL DEFAULT 0,
		window_start_ms INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS backoffs (
		backoff_key TEXT PRIMARY KEY,
		not_before_ms INTEGER NOT NULL,
		recorded_at INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_backoffs_not_before ON backoffs(not_before_ms);`,
}

// ErrSchemaTooNew is returned when the database was written by a newer
// stacman.
var ErrSchemaTooNew = errors.New("store schema is newer than this binary")

// Migrate creates the throttle tables. It is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	current, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	if current > schemaVersion {
		return fmt.Errorf("%w: version %d, supported %d", ErrSchemaTooNew, current, schemaVersion)
	}

	for _, stmt := range schemaStatements {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store migration failed: %w", err)
		}
	}
	if current < schemaVersion {
		if _, err := s.DB.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
	}
	return nil
}

// SchemaVersion returns the recorded schema version, 0 for a new database.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.DB.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}
