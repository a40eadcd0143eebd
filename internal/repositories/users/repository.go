// Package users persists CMS accounts and the security fields the
// authentication flows mutate.
package users

import (
	"context"
	"time"

	"github.com/vmalyshev/authcore/internal/models"
)

// Repository is the storage contract for user rows. Lookups return
// common.ErrorNotFound when no row matches. The counter mutations are
// storage-level atomic; callers never read-modify-write the counters.
type Repository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByRememberTokenHash(ctx context.Context, tokenHash string) (*models.User, error)

	// IncrementFailedLoginAttempts bumps the counter in a single UPDATE
	// and returns the new value, so concurrent failures never lose
	// increments.
	IncrementFailedLoginAttempts(ctx context.Context, id string) (uint, error)
	// ResetFailedLoginAttempts zeroes the counter and clears any lock.
	ResetFailedLoginAttempts(ctx context.Context, id string) error
	SetLockedUntil(ctx context.Context, id string, until time.Time) error

	UpdatePasswordHash(ctx context.Context, id string, passwordHash string) error
	// UpdateRememberTokenHash stores the sha256 of the remember-me
	// token; nil clears it.
	UpdateRememberTokenHash(ctx context.Context, id string, tokenHash *string) error
	SetLastLoginAt(ctx context.Context, id string, at time.Time) error

	// MarkEmailVerified flips email_verified and, when the account is
	// still inactive, promotes it to active in the same statement.
	MarkEmailVerified(ctx context.Context, id string) error
}
