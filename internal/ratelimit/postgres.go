package ratelimit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vmalyshev/authcore/internal/dbx"
)

// PostgresStore persists counters in the rate_limits table. The
// increment is a single INSERT .. ON CONFLICT statement so concurrent
// hits against the same key never lose updates.
type PostgresStore struct {
	db  dbx.DBTX
	now func() time.Time
}

func NewPostgresStore(db dbx.DBTX) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

func (s *PostgresStore) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	now := s.now()

	query := `
		INSERT INTO rate_limits (key, count, reset_at)
		VALUES ($1, 1, $2)
		ON CONFLICT (key) DO UPDATE SET
			count = CASE WHEN rate_limits.reset_at <= $3 THEN 1 ELSE rate_limits.count + 1 END,
			reset_at = CASE WHEN rate_limits.reset_at <= $3 THEN $2 ELSE rate_limits.reset_at END
		RETURNING count, reset_at;
	`

	var count int64
	var resetAt time.Time
	row := s.db.QueryRowContext(ctx, query, key, now.Add(window), now)
	if err := row.Scan(&count, &resetAt); err != nil {
		return 0, time.Time{}, fmt.Errorf("db error: %w", err)
	}
	return count, resetAt, nil
}

func (s *PostgresStore) Peek(ctx context.Context, key string) (int64, time.Time, error) {
	query := `
		SELECT count, reset_at FROM rate_limits
		WHERE key = $1 AND reset_at > $2;
	`

	var count int64
	var resetAt time.Time
	row := s.db.QueryRowContext(ctx, query, key, s.now())
	if err := row.Scan(&count, &resetAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, time.Time{}, nil
		}
		return 0, time.Time{}, fmt.Errorf("db error: %w", err)
	}
	return count, resetAt, nil
}

func (s *PostgresStore) Reset(ctx context.Context, key string) error {
	query := `DELETE FROM rate_limits WHERE key = $1;`
	if _, err := s.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *PostgresStore) Clear(ctx context.Context) error {
	query := `DELETE FROM rate_limits;`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Prune deletes counters whose window has already passed. Used by the
// maintenance command; the hit path never needs it because expiry is
// evaluated lazily.
func (s *PostgresStore) Prune(ctx context.Context) (int64, error) {
	query := `DELETE FROM rate_limits WHERE reset_at <= $1;`
	res, err := s.db.ExecContext(ctx, query, s.now())
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
