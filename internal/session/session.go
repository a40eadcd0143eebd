// Package session implements the cookie-backed session lifecycle used at
// the authentication boundary: lazy idempotent start, ID regeneration
// against session fixation, read-once flash values, and destruction. The
// session data lives server-side in a pluggable Backend; the cookie only
// carries the random session ID.
package session

import (
	"context"
	"net/http"
	"time"

	"github.com/vmalyshev/authcore/internal/common"
)

const (
	DefaultCookieName = "cms_session"
	DefaultLifetime   = 7200 * time.Second

	flashPrefix = "_flash."
)

// Backend stores session payloads by ID. Save overwrites, Load reports
// presence, Delete is idempotent.
type Backend interface {
	Load(ctx context.Context, id string) (map[string]any, bool, error)
	Save(ctx context.Context, id string, data map[string]any, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

// Options configures the cookie policy.
type Options struct {
	CookieName string
	Lifetime   time.Duration
}

// Manager opens sessions against a Backend. One Manager serves all
// requests; each Session is request-scoped.
type Manager struct {
	backend Backend
	opts    Options
}

// NewManager creates a Manager. Zero-valued options fall back to the
// default cookie name and lifetime.
func NewManager(backend Backend, opts Options) *Manager {
	if opts.CookieName == "" {
		opts.CookieName = DefaultCookieName
	}
	if opts.Lifetime <= 0 {
		opts.Lifetime = DefaultLifetime
	}
	return &Manager{backend: backend, opts: opts}
}

// Lifetime returns the configured cookie/session lifetime.
func (m *Manager) Lifetime() time.Duration { return m.opts.Lifetime }

// Open resolves an inbound cookie value to a Session. IDs the backend
// does not know are ignored and a fresh, not-started session is returned
// instead: only server-generated IDs are ever honored (strict mode).
func (m *Manager) Open(ctx context.Context, cookieValue string) (*Session, error) {
	s := &Session{m: m, values: map[string]any{}}

	if cookieValue == "" {
		return s, nil
	}

	data, ok, err := m.backend.Load(ctx, cookieValue)
	if err != nil {
		return nil, err
	}
	if !ok {
		return s, nil
	}

	s.id = cookieValue
	s.started = true
	s.values = data
	return s, nil
}

// Session is the per-client session state. Not safe for concurrent use;
// session state is cookie-scoped so no cross-request locking is needed.
type Session struct {
	m         *Manager
	id        string
	values    map[string]any
	started   bool
	destroyed bool
}

// Start assigns a fresh session ID. It is idempotent and is invoked
// lazily by every accessor, so callers rarely need it directly.
func (s *Session) Start() error {
	if s.destroyed {
		return common.ErrSessionDestroyed
	}
	if s.started {
		return nil
	}
	id, err := common.MakeRandHexString(32)
	if err != nil {
		return err
	}
	s.id = id
	s.started = true
	return nil
}

// Started reports whether the session has an ID.
func (s *Session) Started() bool { return s.started }

// Destroyed reports whether Destroy has been called.
func (s *Session) Destroyed() bool { return s.destroyed }

// ID returns the current session identifier ("" before Start).
func (s *Session) ID() string { return s.id }

// Set stores a value, lazily starting the session.
func (s *Session) Set(key string, value any) error {
	if err := s.Start(); err != nil {
		return err
	}
	s.values[key] = value
	return nil
}

// Get returns the stored value and whether it was present.
func (s *Session) Get(key string) (any, bool) {
	_ = s.Start()
	v, ok := s.values[key]
	return v, ok
}

// Has reports whether a value is stored under key.
func (s *Session) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// Remove deletes the value stored under key.
func (s *Session) Remove(key string) {
	_ = s.Start()
	delete(s.values, key)
}

// Flash stores a value visible to exactly one subsequent GetFlash call.
func (s *Session) Flash(key string, value any) error {
	return s.Set(flashPrefix+key, value)
}

// GetFlash returns a flashed value and removes it, so a second read in
// the same or a later request reports absence.
func (s *Session) GetFlash(key string) (any, bool) {
	v, ok := s.Get(flashPrefix + key)
	if ok {
		delete(s.values, flashPrefix+key)
	}
	return v, ok
}

// Regenerate issues a new session ID while preserving the stored data,
// defeating session fixation. Callers MUST invoke this at the
// authentication boundary, before trusting a newly-authenticated
// identity. When deleteOld is true the previous backend record is
// removed.
func (s *Session) Regenerate(ctx context.Context, deleteOld bool) error {
	if err := s.Start(); err != nil {
		return err
	}

	oldID := s.id
	id, err := common.MakeRandHexString(32)
	if err != nil {
		return err
	}
	s.id = id

	if deleteOld && oldID != "" {
		if err := s.m.backend.Delete(ctx, oldID); err != nil {
			return err
		}
	}
	return s.Save(ctx)
}

// Destroy clears all data, removes the backend record, and marks the
// session unusable. The cookie returned by Cookie() afterwards expires
// the client's copy.
func (s *Session) Destroy(ctx context.Context) error {
	if s.id != "" {
		if err := s.m.backend.Delete(ctx, s.id); err != nil {
			return err
		}
	}
	s.values = map[string]any{}
	s.id = ""
	s.started = false
	s.destroyed = true
	return nil
}

// Save persists the session data under its current ID. A session that
// was never started has nothing to persist.
func (s *Session) Save(ctx context.Context) error {
	if s.destroyed || !s.started {
		return nil
	}
	return s.m.backend.Save(ctx, s.id, s.values, s.m.opts.Lifetime)
}

// Cookie returns the session cookie to send to the client: HttpOnly,
// Secure, SameSite=Lax, path "/", MaxAge = configured lifetime. For a
// destroyed session the returned cookie expires the client's copy.
func (s *Session) Cookie() *http.Cookie {
	c := &http.Cookie{
		Name:     s.m.opts.CookieName,
		Value:    s.id,
		Path:     "/",
		MaxAge:   int(s.m.opts.Lifetime.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
	if s.destroyed {
		c.Value = ""
		c.MaxAge = -1
	}
	return c
}
