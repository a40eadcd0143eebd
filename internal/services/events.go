package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vmalyshev/authcore/internal/logging"
)

// Authentication audit events. Failure reasons are recorded for audit
// only; callers and the UI see a bare boolean so the cases stay
// indistinguishable to an attacker.
const (
	EventLoginSuccess = "login_success"
	EventLoginFailure = "login_failure"
	EventLogout       = "logout"

	ReasonUserNotFound       = "user_not_found"
	ReasonAccountLocked      = "account_locked"
	ReasonAccountInactive    = "account_inactive"
	ReasonInvalidCredentials = "invalid_credentials"
)

// Event is one audit record emitted by the authenticator.
type Event struct {
	Name     string
	Username string
	UserID   string
	Reason   string
	// Duration is set on logout events: time since login.
	Duration time.Duration
}

// EventSink receives audit events. Injected so tests can assert on
// emitted events without global state.
type EventSink interface {
	Emit(ctx context.Context, e Event)
}

// LogSink writes audit events to the structured log.
type LogSink struct {
	logger logging.Logger
}

func NewLogSink(logger logging.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Emit(ctx context.Context, e Event) {
	// every audit record gets its own ID so log lines can be referenced
	// from incident reports
	args := []any{"event", e.Name, "event_id", uuid.NewString()}
	if e.Username != "" {
		args = append(args, "username", e.Username)
	}
	if e.UserID != "" {
		args = append(args, "user_id", e.UserID)
	}
	if e.Reason != "" {
		args = append(args, "reason", e.Reason)
	}
	if e.Name == EventLogout {
		args = append(args, "session_duration", e.Duration.String())
	}
	s.logger.Info(ctx, "auth event", args...)
}
