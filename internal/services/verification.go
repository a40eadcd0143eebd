package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/vmalyshev/authcore/internal/common"
	"github.com/vmalyshev/authcore/internal/logging"
	"github.com/vmalyshev/authcore/internal/mail"
	"github.com/vmalyshev/authcore/internal/ratelimit"
	"github.com/vmalyshev/authcore/internal/repositories/users"
	"github.com/vmalyshev/authcore/internal/tokens"
)

// VerificationService runs the email-verification flow. Tokens are
// keyed by user ID; confirming one marks the email verified and
// promotes a still-inactive account to active.
type VerificationService struct {
	users    users.Repository
	tokens   *tokens.Manager
	throttle *ratelimit.ResendThrottle
	mailer   mail.Mailer
	logger   logging.Logger
	baseURL  string
}

func NewVerificationService(repo users.Repository, mgr *tokens.Manager, throttle *ratelimit.ResendThrottle,
	mailer mail.Mailer, logger logging.Logger, baseURL string) *VerificationService {
	return &VerificationService{
		users:    repo,
		tokens:   mgr,
		throttle: throttle,
		mailer:   mailer,
		logger:   logger,
		baseURL:  baseURL,
	}
}

// SendVerification issues a verification token for the user and mails
// the confirmation link. A transport failure is returned as an error
// but does not invalidate the persisted token.
func (s *VerificationService) SendVerification(ctx context.Context, userID string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	plaintext, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		return err
	}

	msg := mail.Message{
		To:      user.Email,
		Subject: "Confirm your email address",
		Body:    fmt.Sprintf("Follow this link to confirm your email: %s?token=%s", s.baseURL, plaintext),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Error(ctx, "verification email send failed", "error", err, "user_id", user.ID)
		return fmt.Errorf("send verification email: %w", err)
	}
	return nil
}

// ResendVerification re-sends the confirmation link. Both throttle
// windows (source IP and target email) must pass. The result is false
// when throttled or when the account is already verified; an unknown
// email reports true without sending, so the endpoint never discloses
// account existence.
func (s *VerificationService) ResendVerification(ctx context.Context, ip, email string) (bool, error) {
	ok, err := s.throttle.Allow(ctx, ip, email)
	if err != nil || !ok {
		return false, err
	}

	user, err := s.users.GetByEmail(ctx, common.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return true, nil
		}
		return false, err
	}
	if user.EmailVerified {
		return false, nil
	}

	if err := s.SendVerification(ctx, user.ID); err != nil {
		return false, err
	}
	return true, nil
}

// Confirm consumes a verification token: the user's email is marked
// verified (promoting an inactive account to active) and the token is
// deleted. Confirming an already-verified account still succeeds and
// still removes the token. A missing or expired token returns
// (false, nil).
func (s *VerificationService) Confirm(ctx context.Context, plaintext string) (bool, error) {
	token, err := s.tokens.Validate(ctx, plaintext)
	if err != nil {
		return false, err
	}
	if token == nil {
		return false, nil
	}

	if err := s.users.MarkEmailVerified(ctx, token.Subject); err != nil {
		return false, err
	}
	if err := s.tokens.Delete(ctx, plaintext); err != nil {
		return false, err
	}
	return true, nil
}

// CleanupExpired removes tokens past expiration.
func (s *VerificationService) CleanupExpired(ctx context.Context) (int64, error) {
	return s.tokens.CleanupExpired(ctx)
}
