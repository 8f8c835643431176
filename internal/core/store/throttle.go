package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/stacman/stacman/internal/core"
)

// LoadThrottleState returns the saved window and the backoffs that still
// apply. It returns nil when nothing has been saved yet.
func (s *Store) LoadThrottleState(ctx context.Context) (*core.ThrottleState, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	state := &core.ThrottleState{}
	found := false

	var (
		requestCount  int
		windowStartMs int64
	)
	row := s.DB.QueryRowContext(ctx, `
		SELECT request_count, window_start_ms
		FROM throttle_window
		WHERE id = 1
	`)
	switch err := row.Scan(&requestCount, &windowStartMs); {
	case err == nil:
		state.RequestCount = requestCount
		state.WindowStart = time.UnixMilli(windowStartMs).UTC()
		found = true
	case errors.Is(err, sql.ErrNoRows):
	default:
		return nil, fmt.Errorf("fetch throttle window: %w", err)
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT backoff_key, not_before_ms
		FROM backoffs
		WHERE not_before_ms > ?
		ORDER BY backoff_key
	`, s.now().UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("fetch backoffs: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	for rows.Next() {
		var (
			key         string
			notBeforeMs int64
		)
		if err := rows.Scan(&key, &notBeforeMs); err != nil {
			return nil, fmt.Errorf("scan backoffs: %w", err)
		}
		state.Backoffs = append(state.Backoffs, core.BackoffEntry{
			Key:       key,
			NotBefore: time.UnixMilli(notBeforeMs).UTC(),
		})
		found = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch backoffs: %w", err)
	}

	if !found {
		return nil, nil
	}
	return state, nil
}

// SaveThrottleState replaces the saved window and merges backoffs, keeping
// the later deadline when a key is already present. Expired rows are pruned.
func (s *Store) SaveThrottleState(ctx context.Context, state *core.ThrottleState) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if state == nil {
		return errors.New("throttle state is required")
	}

	now := s.now()
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin throttle save: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck // no-op after commit

	if !state.WindowStart.IsZero() {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO throttle_window (id, request_count, window_start_ms, updated_at)
			VALUES (1, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				request_count = excluded.request_count,
				window_start_ms = excluded.window_start_ms,
				updated_at = excluded.updated_at
		`, state.RequestCount, state.WindowStart.UTC().UnixMilli(), now.Unix())
		if err != nil {
			return fmt.Errorf("store throttle window: %w", err)
		}
	}

	for _, entry := range state.Backoffs {
		if entry.Key == "" {
			continue
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO backoffs (backoff_key, not_before_ms, recorded_at)
			VALUES (?, ?, ?)
			ON CONFLICT(backoff_key) DO UPDATE SET
				not_before_ms = max(backoffs.not_before_ms, excluded.not_before_ms),
				recorded_at = excluded.recorded_at
		`, entry.Key, entry.NotBefore.UTC().UnixMilli(), now.Unix())
		if err != nil {
			return fmt.Errorf("store backoff %s: %w", entry.Key, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM backoffs WHERE not_before_ms <= ?`, now.UnixMilli()); err != nil {
		return fmt.Errorf("prune backoffs: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit throttle save: %w", err)
	}
	return nil
}

// ResetWindow forgets the saved request window.
func (s *Store) ResetWindow(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := s.DB.ExecContext(ctx, `DELETE FROM throttle_window`); err != nil {
		return fmt.Errorf("reset throttle window: %w", err)
	}
	return nil
}
