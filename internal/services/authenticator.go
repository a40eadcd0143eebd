// Package services orchestrates the authentication flows over the
// repositories: credential login with lockout and remember-me, password
// reset, and email verification.
package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/vmalyshev/authcore/internal/common"
	"github.com/vmalyshev/authcore/internal/models"
	"github.com/vmalyshev/authcore/internal/repositories/users"
	"github.com/vmalyshev/authcore/internal/session"
)

const (
	// RememberCookieName carries the plaintext remember-me token; only
	// its sha256 lands on the user row.
	RememberCookieName = "remember_token"

	DefaultLockoutThreshold = 5
	DefaultLockoutDuration  = 15 * time.Minute
	DefaultRememberValidity = 30 * 24 * time.Hour

	sessionKeyUserID  = "user_id"
	sessionKeyRole    = "role"
	sessionKeyLoginAt = "login_at"
)

// CookieJar is the outbound/inbound cookie surface of one request.
// Injected rather than read from ambient request state so the
// authenticator is testable without an HTTP server.
type CookieJar interface {
	Get(name string) (string, bool)
	Set(c *http.Cookie)
}

// Client bundles the per-request state the authenticator acts on.
type Client struct {
	Session *session.Session
	Cookies CookieJar
}

// PasswordPolicy is the slice of the password package the authenticator
// needs.
type PasswordPolicy interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
	NeedsRehash(hash string) bool
	DummyHash() string
}

// Authenticator runs login attempts against the user repository,
// enforcing lockout and establishing the session on success.
type Authenticator struct {
	users  users.Repository
	policy PasswordPolicy
	events EventSink

	LockoutThreshold uint
	LockoutDuration  time.Duration
	RememberValidity time.Duration

	now func() time.Time
}

func NewAuthenticator(repo users.Repository, policy PasswordPolicy, events EventSink) *Authenticator {
	return &Authenticator{
		users:            repo,
		policy:           policy,
		events:           events,
		LockoutThreshold: DefaultLockoutThreshold,
		LockoutDuration:  DefaultLockoutDuration,
		RememberValidity: DefaultRememberValidity,
		now:              time.Now,
	}
}

// Attempt runs one credential check. It only ever returns false for the
// expected failure modes (unknown user, locked, inactive, wrong
// password); the error return is reserved for storage trouble. Every
// outcome emits an audit event carrying the real reason.
func (a *Authenticator) Attempt(ctx context.Context, cl *Client, username, pass string, remember bool) (bool, error) {
	user, err := a.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// burn the same hashing cost as a real check so timing does
			// not reveal whether the username exists
			a.policy.Verify(pass, a.policy.DummyHash())
			a.events.Emit(ctx, Event{Name: EventLoginFailure, Username: username, Reason: ReasonUserNotFound})
			return false, nil
		}
		return false, err
	}

	now := a.now()

	if user.IsLocked(now) {
		a.events.Emit(ctx, Event{Name: EventLoginFailure, Username: username, UserID: user.ID, Reason: ReasonAccountLocked})
		return false, nil
	}

	if !user.IsActive() {
		a.events.Emit(ctx, Event{Name: EventLoginFailure, Username: username, UserID: user.ID, Reason: ReasonAccountInactive})
		return false, nil
	}

	if !a.policy.Verify(pass, user.PasswordHash) {
		// the increment happens inside the repository in one UPDATE, so
		// concurrent failures never lose counts
		count, err := a.users.IncrementFailedLoginAttempts(ctx, user.ID)
		if err != nil {
			return false, err
		}
		if count >= a.LockoutThreshold {
			if err := a.users.SetLockedUntil(ctx, user.ID, now.Add(a.LockoutDuration)); err != nil {
				return false, err
			}
		}
		a.events.Emit(ctx, Event{Name: EventLoginFailure, Username: username, UserID: user.ID, Reason: ReasonInvalidCredentials})
		return false, nil
	}

	if err := a.users.ResetFailedLoginAttempts(ctx, user.ID); err != nil {
		return false, err
	}
	user.FailedLoginAttempts = 0
	user.LockedUntil = nil

	if a.policy.NeedsRehash(user.PasswordHash) {
		hash, err := a.policy.Hash(pass)
		if err != nil {
			return false, err
		}
		if err := a.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
			return false, err
		}
		user.PasswordHash = hash
	}

	if err := a.users.SetLastLoginAt(ctx, user.ID, now); err != nil {
		return false, err
	}

	if err := a.Login(ctx, cl, user, remember); err != nil {
		return false, err
	}
	return true, nil
}

// Login establishes the authenticated session for user: the session ID
// is regenerated before the identity is trusted, the identity is stored
// in the session, and a remember-me token is issued when asked for.
func (a *Authenticator) Login(ctx context.Context, cl *Client, user *models.User, remember bool) error {
	if err := cl.Session.Regenerate(ctx, true); err != nil {
		return err
	}
	if err := cl.Session.Set(sessionKeyUserID, user.ID); err != nil {
		return err
	}
	if err := cl.Session.Set(sessionKeyRole, string(user.Role)); err != nil {
		return err
	}
	if err := cl.Session.Set(sessionKeyLoginAt, a.now().Unix()); err != nil {
		return err
	}
	if err := cl.Session.Save(ctx); err != nil {
		return err
	}
	cl.Cookies.Set(cl.Session.Cookie())

	if remember {
		plaintext, err := common.MakeRandHexString(32)
		if err != nil {
			return err
		}
		hash := common.HashToken(plaintext)
		if err := a.users.UpdateRememberTokenHash(ctx, user.ID, &hash); err != nil {
			return err
		}
		cl.Cookies.Set(&http.Cookie{
			Name:     RememberCookieName,
			Value:    plaintext,
			Path:     "/",
			MaxAge:   int(a.RememberValidity.Seconds()),
			HttpOnly: true,
			Secure:   true,
		})
	}

	a.events.Emit(ctx, Event{Name: EventLoginSuccess, Username: user.Username, UserID: user.ID})
	return nil
}

// Check reports whether the client is authenticated: a session identity
// wins, otherwise a silent remember-me login is attempted.
func (a *Authenticator) Check(ctx context.Context, cl *Client) (bool, error) {
	if cl.Session.Has(sessionKeyUserID) {
		return true, nil
	}
	return a.loginUsingRememberToken(ctx, cl)
}

// loginUsingRememberToken resolves the remember-me cookie to a user by
// stored hash. Fails closed: no cookie, no matching hash, or an
// inactive account all report unauthenticated.
func (a *Authenticator) loginUsingRememberToken(ctx context.Context, cl *Client) (bool, error) {
	raw, ok := cl.Cookies.Get(RememberCookieName)
	if !ok || raw == "" {
		return false, nil
	}

	user, err := a.users.GetByRememberTokenHash(ctx, common.HashToken(raw))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, nil
		}
		return false, err
	}
	if !user.IsActive() {
		return false, nil
	}

	if err := a.Login(ctx, cl, user, false); err != nil {
		return false, err
	}
	return true, nil
}

// CurrentUser resolves the session identity to a fresh user row.
func (a *Authenticator) CurrentUser(ctx context.Context, cl *Client) (*models.User, error) {
	v, ok := cl.Session.Get(sessionKeyUserID)
	if !ok {
		return nil, common.ErrorUnauthorized
	}
	id, ok := v.(string)
	if !ok || id == "" {
		return nil, common.ErrorUnauthorized
	}
	return a.users.GetByID(ctx, id)
}

// Logout tears the authenticated state down: the stored remember hash
// is cleared, the session is destroyed, and both cookies are expired.
// The logout event carries the session duration for telemetry.
func (a *Authenticator) Logout(ctx context.Context, cl *Client) error {
	var duration time.Duration
	if v, ok := cl.Session.Get(sessionKeyLoginAt); ok {
		if at, ok := loginUnix(v); ok {
			duration = a.now().Sub(time.Unix(at, 0))
		}
	}

	var userID, username string
	if v, ok := cl.Session.Get(sessionKeyUserID); ok {
		userID, _ = v.(string)
	}

	if userID != "" {
		if user, err := a.users.GetByID(ctx, userID); err == nil {
			username = user.Username
		}
		if err := a.users.UpdateRememberTokenHash(ctx, userID, nil); err != nil {
			return err
		}
	}

	if err := cl.Session.Destroy(ctx); err != nil {
		return err
	}
	cl.Cookies.Set(cl.Session.Cookie())
	cl.Cookies.Set(&http.Cookie{
		Name:     RememberCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
	})

	a.events.Emit(ctx, Event{Name: EventLogout, Username: username, UserID: userID, Duration: duration})
	return nil
}

// loginUnix reads the stored login timestamp. Backends that round-trip
// through JSON hand numbers back as float64.
func loginUnix(v any) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case float64:
		return int64(t), true
	case int:
		return int64(t), true
	}
	return 0, false
}
