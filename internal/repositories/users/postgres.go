package users

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

const userColumns = `id, username, email, password_hash, role, status, email_verified,
	failed_login_attempts, locked_until, remember_token_hash, last_login_at, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.Role, &user.Status, &user.EmailVerified, &user.FailedLoginAttempts,
		&user.LockedUntil, &user.RememberTokenHash, &user.LastLoginAt, &user.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, username))
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepository) GetByRememberTokenHash(ctx context.Context, tokenHash string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE remember_token_hash = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, tokenHash))
}

func (r *PostgresRepository) IncrementFailedLoginAttempts(ctx context.Context, id string) (uint, error) {
	query :=
		`UPDATE users SET failed_login_attempts = failed_login_attempts + 1
		 WHERE id = $1
		 RETURNING failed_login_attempts
		 `

	var count uint
	err := r.db.QueryRowContext(ctx, query, id).Scan(&count)

	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return count, nil
}

func (r *PostgresRepository) ResetFailedLoginAttempts(ctx context.Context, id string) error {
	query :=
		`UPDATE users SET failed_login_attempts = 0, locked_until = NULL
		 WHERE id = $1
		 `

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SetLockedUntil(ctx context.Context, id string, until time.Time) error {
	query := `UPDATE users SET locked_until = $2 WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id, until); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, id string, passwordHash string) error {
	query := `UPDATE users SET password_hash = $2 WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id, passwordHash); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) UpdateRememberTokenHash(ctx context.Context, id string, tokenHash *string) error {
	query := `UPDATE users SET remember_token_hash = $2 WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id, tokenHash); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SetLastLoginAt(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE users SET last_login_at = $2 WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id, at); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) MarkEmailVerified(ctx context.Context, id string) error {
	query :=
		`UPDATE users SET email_verified = TRUE,
			status = CASE WHEN status = 'inactive' THEN 'active' ELSE status END
		 WHERE id = $1
		 `

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
