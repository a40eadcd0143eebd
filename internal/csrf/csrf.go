// Package csrf issues and validates the per-session anti-forgery token.
// The token is carried in the hidden form field / header "csrf_token" and
// compared constant-time against the session-stored value. Tokens are
// deliberately NOT single-use: repeated validation with the same token
// succeeds until the token is rotated, which keeps multi-tab and
// multi-form flows usable. Callers rotate with Regenerate after privilege
// changes (e.g. login).
package csrf

import (
	"crypto/subtle"

	"github.com/vmalyshev/authcore/internal/common"
	"github.com/vmalyshev/authcore/internal/session"
)

// FieldName is the form field / header the token travels in.
const FieldName = "csrf_token"

const sessionKey = "csrf_token"

// Service binds token issuance and validation to one client's session.
type Service struct {
	sess *session.Session
}

func NewService(sess *session.Session) *Service {
	return &Service{sess: sess}
}

// Generate creates a fresh 32-byte random token (hex-encoded), stores it
// in the session overwriting any prior token, and returns it. A single
// token is active per session.
func (s *Service) Generate() (string, error) {
	token, err := common.MakeRandHexString(32)
	if err != nil {
		return "", err
	}
	if err := s.sess.Set(sessionKey, token); err != nil {
		return "", err
	}
	return token, nil
}

// Token returns the session's current token, generating one if absent.
func (s *Service) Token() (string, error) {
	if v, ok := s.sess.Get(sessionKey); ok {
		if token, ok := v.(string); ok && token != "" {
			return token, nil
		}
	}
	return s.Generate()
}

// Validate compares candidate against the stored token in constant time.
// It returns false when no token is stored or the candidate is empty.
func (s *Service) Validate(candidate string) bool {
	if candidate == "" {
		return false
	}
	v, ok := s.sess.Get(sessionKey)
	if !ok {
		return false
	}
	stored, ok := v.(string)
	if !ok || stored == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(candidate)) == 1
}

// Regenerate rotates the token. Alias for Generate, named for the call
// sites that rotate after privilege-level changes.
func (s *Service) Regenerate() (string, error) {
	return s.Generate()
}
