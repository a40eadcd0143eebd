package resettokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vmalyshev/authcore/internal/common"
	"github.com/vmalyshev/authcore/internal/dbx"
	"github.com/vmalyshev/authcore/internal/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, subject string, tokenHash string, expiresAt time.Time) error {
	query :=
		`INSERT INTO password_reset_tokens (email, token_hash, expires_at)
		 VALUES ($1, $2, $3)
		 `

	if _, err := r.db.ExecContext(ctx, query, subject, tokenHash, expiresAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) FindByHash(ctx context.Context, tokenHash string) (*models.Token, error) {
	query :=
		`SELECT email, token_hash, created_at, expires_at FROM password_reset_tokens
		 WHERE token_hash = $1
		 `

	token := &models.Token{}
	err := r.db.QueryRowContext(ctx, query, tokenHash).
		Scan(&token.Subject, &token.TokenHash, &token.CreatedAt, &token.ExpiresAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return token, nil
}

func (r *PostgresRepository) DeleteBySubject(ctx context.Context, subject string) error {
	query := `DELETE FROM password_reset_tokens WHERE email = $1`

	if _, err := r.db.ExecContext(ctx, query, subject); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteByHash(ctx context.Context, tokenHash string) error {
	query := `DELETE FROM password_reset_tokens WHERE token_hash = $1`

	if _, err := r.db.ExecContext(ctx, query, tokenHash); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM password_reset_tokens WHERE expires_at <= $1`

	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
