// Package tokens implements the single-use, time-bound token pattern
// shared by the password-reset and email-verification flows. A token's
// plaintext is handed to the user exactly once (in a link); only its
// sha256 digest is persisted, so a storage leak exposes nothing usable.
package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vmalyshev/authcore/internal/common"
	"github.com/vmalyshev/authcore/internal/models"
)

// DefaultValidity is how long an issued token stays usable.
const DefaultValidity = 60 * time.Minute

// Repository persists hashed tokens keyed by an opaque subject (an
// email address for resets, a user ID for verification).
type Repository interface {
	Create(ctx context.Context, subject string, tokenHash string, expiresAt time.Time) error
	// FindByHash returns common.ErrorNotFound when no row matches.
	FindByHash(ctx context.Context, tokenHash string) (*models.Token, error)
	DeleteBySubject(ctx context.Context, subject string) error
	DeleteByHash(ctx context.Context, tokenHash string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Manager issues and validates tokens against one Repository.
type Manager struct {
	repo     Repository
	validity time.Duration
	now      func() time.Time
}

func NewManager(repo Repository, validity time.Duration) *Manager {
	if validity <= 0 {
		validity = DefaultValidity
	}
	return &Manager{repo: repo, validity: validity, now: time.Now}
}

// Issue invalidates any previously issued token for subject, then
// creates a fresh one and returns its plaintext (64 hex chars). At most
// one token per subject is live at a time; a race between two
// concurrent issuances may briefly leave two, which is harmless since
// validation only needs a matching unexpired row.
func (m *Manager) Issue(ctx context.Context, subject string) (string, error) {
	if err := m.repo.DeleteBySubject(ctx, subject); err != nil {
		return "", err
	}

	plaintext, err := common.MakeRandHexString(32)
	if err != nil {
		return "", err
	}

	expiresAt := m.now().Add(m.validity)
	if err := m.repo.Create(ctx, subject, common.HashToken(plaintext), expiresAt); err != nil {
		return "", err
	}
	return plaintext, nil
}

// Validate resolves a plaintext token to its stored record. A missing
// token and an expired one both return (nil, nil): the caller cannot
// tell the cases apart, which keeps token probing uninformative.
func (m *Manager) Validate(ctx context.Context, plaintext string) (*models.Token, error) {
	token, err := m.repo.FindByHash(ctx, common.HashToken(plaintext))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("token lookup error: %w", err)
	}
	if token.Expired(m.now()) {
		return nil, nil
	}
	return token, nil
}

// Delete removes the token matching plaintext, if any.
func (m *Manager) Delete(ctx context.Context, plaintext string) error {
	return m.repo.DeleteByHash(ctx, common.HashToken(plaintext))
}

// CleanupExpired batch-deletes every token past its expiration and
// returns how many rows went away.
func (m *Manager) CleanupExpired(ctx context.Context) (int64, error) {
	return m.repo.DeleteExpired(ctx, m.now())
}
