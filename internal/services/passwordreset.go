package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/vmalyshev/authcore/internal/common"
	"github.com/vmalyshev/authcore/internal/logging"
	"github.com/vmalyshev/authcore/internal/mail"
	"github.com/vmalyshev/authcore/internal/password"
	"github.com/vmalyshev/authcore/internal/repositories/users"
	"github.com/vmalyshev/authcore/internal/tokens"
)

// PasswordResetService runs the forgot-password flow. Tokens are keyed
// by the normalized email so a reset can be requested for any address;
// the users table enforces email uniqueness so two accounts can never
// share a token subject.
type PasswordResetService struct {
	users   users.Repository
	tokens  *tokens.Manager
	policy  *password.Policy
	mailer  mail.Mailer
	logger  logging.Logger
	baseURL string
}

func NewPasswordResetService(repo users.Repository, mgr *tokens.Manager, policy *password.Policy,
	mailer mail.Mailer, logger logging.Logger, baseURL string) *PasswordResetService {
	return &PasswordResetService{
		users:   repo,
		tokens:  mgr,
		policy:  policy,
		mailer:  mailer,
		logger:  logger,
		baseURL: baseURL,
	}
}

// RequestReset issues a reset token for email and mails the link. The
// boolean is true even when no account owns the address, so the
// response never discloses account existence. A mail transport failure
// is returned as an error but does not invalidate the already-persisted
// token; the user can request a resend.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) (bool, error) {
	addr := common.NormalizeEmail(email)

	if _, err := s.users.GetByEmail(ctx, addr); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return true, nil
		}
		return false, err
	}

	plaintext, err := s.tokens.Issue(ctx, addr)
	if err != nil {
		return false, err
	}

	msg := mail.Message{
		To:      addr,
		Subject: "Reset your password",
		Body:    fmt.Sprintf("Follow this link to choose a new password: %s?token=%s", s.baseURL, plaintext),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Error(ctx, "reset email send failed", "error", err)
		return true, fmt.Errorf("send reset email: %w", err)
	}
	return true, nil
}

// Consume validates the token and sets the new password. A missing or
// expired token returns (false, nil). A weak new password returns a
// *password.ValidationError listing the violated rules and leaves the
// token live so the user can retry from the same link. On success the
// token is deleted.
func (s *PasswordResetService) Consume(ctx context.Context, plaintext, newPassword string) (bool, error) {
	token, err := s.tokens.Validate(ctx, plaintext)
	if err != nil {
		return false, err
	}
	if token == nil {
		return false, nil
	}

	if err := s.policy.Validate(newPassword); err != nil {
		return false, err
	}

	user, err := s.users.GetByEmail(ctx, token.Subject)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// account vanished since issuance; the token is useless
			_ = s.tokens.Delete(ctx, plaintext)
			return false, nil
		}
		return false, err
	}

	hash, err := s.policy.Hash(newPassword)
	if err != nil {
		return false, err
	}
	if err := s.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return false, err
	}
	if err := s.tokens.Delete(ctx, plaintext); err != nil {
		return false, err
	}
	return true, nil
}

// CleanupExpired removes tokens past expiration.
func (s *PasswordResetService) CleanupExpired(ctx context.Context) (int64, error) {
	return s.tokens.CleanupExpired(ctx)
}
