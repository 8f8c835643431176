package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// BackoffRecord is one persisted server backoff as shown by rate-limit list.
type BackoffRecord struct {
	Key        string    `json:"key"`
	NotBefore  time.Time `json:"not_before"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Remaining returns how long the backoff still applies at now.
func (r BackoffRecord) Remaining(now time.Time) time.Duration {
	return max(r.NotBefore.Sub(now), 0)
}

// BackoffQuery selects backoff rows. All wins over Key, and Key over Prefix.
type BackoffQuery struct {
	All    bool
	Key    string
	Prefix string
}

func (q BackoffQuery) Validate() error {
	if q.All || strings.TrimSpace(q.Key) != "" || strings.TrimSpace(q.Prefix) != "" {
		return nil
	}
	return errors.New("must specify --all, --backoff-key or --prefix")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (q BackoffQuery) whereClause() (string, []any, error) {
	if err := q.Validate(); err != nil {
		return "", nil, err
	}
	switch key := strings.TrimSpace(q.Key); {
	case q.All:
		return "", nil, nil
	case key != "":
		return "WHERE backoff_key = ?", []any{key}, nil
	}
	return `WHERE backoff_key LIKE ? ESCAPE '\'`, []any{likeEscaper.Replace(strings.TrimSpace(q.Prefix)) + "%"}, nil
}

// scoped appends q's filter to stmt after checking the store is usable.
func (s *Store) scoped(q BackoffQuery, stmt string) (string, []any, error) {
	if s == nil || s.DB == nil {
		return "", nil, errors.New("store is not initialized")
	}
	where, args, err := q.whereClause()
	if err != nil {
		return "", nil, err
	}
	return stmt + " " + where, args, nil
}

func orBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// ListBackoffs returns matching backoffs ordered by key, expired ones
// included.
func (s *Store) ListBackoffs(ctx context.Context, q BackoffQuery) ([]BackoffRecord, error) {
	query, args, err := s.scoped(q, "SELECT backoff_key, not_before_ms, recorded_at FROM backoffs")
	if err != nil {
		return nil, err
	}
	rows, err := s.DB.QueryContext(orBackground(ctx), query+" ORDER BY backoff_key", args...)
	if err != nil {
		return nil, fmt.Errorf("list backoffs: %w", err)
	}
	defer rows.Close() // nolint:errcheck // read-only cursor

	records := []BackoffRecord{}
	for rows.Next() {
		var (
			rec                   BackoffRecord
			notBefore, recordedAt int64
		)
		if err := rows.Scan(&rec.Key, &notBefore, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan backoffs: %w", err)
		}
		rec.NotBefore = time.UnixMilli(notBefore).UTC()
		rec.RecordedAt = time.Unix(recordedAt, 0).UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list backoffs: %w", err)
	}
	return records, nil
}

func (s *Store) CountBackoffs(ctx context.Context, q BackoffQuery) (int, error) {
	query, args, err := s.scoped(q, "SELECT COUNT(*) FROM backoffs")
	if err != nil {
		return 0, err
	}
	var n int
	if err := s.DB.QueryRowContext(orBackground(ctx), query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count backoffs: %w", err)
	}
	return n, nil
}

// ResetBackoffs deletes matching backoffs and reports how many went.
func (s *Store) ResetBackoffs(ctx context.Context, q BackoffQuery) (int64, error) {
	query, args, err := s.scoped(q, "DELETE FROM backoffs")
	if err != nil {
		return 0, err
	}
	res, err := s.DB.ExecContext(orBackground(ctx), query, args...)
	if err == nil {
		var n int64
		if n, err = res.RowsAffected(); err == nil {
			return n, nil
		}
	}
	return 0, fmt.Errorf("reset backoffs: %w", err)
}
