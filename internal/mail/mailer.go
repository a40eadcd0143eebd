// Package mail defines the outbound email contract consumed by the
// reset and verification flows. Actual transport lives behind the
// Mailer interface; the core never depends on a delivery mechanism.
package mail

import (
	"context"

	"github.com/vmalyshev/authcore/internal/logging"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer writes messages to the log instead of delivering them.
// Used in development and tests.
type LogMailer struct {
	logger logging.Logger
}

func NewLogMailer(logger logging.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.logger.Info(ctx, "outbound email", "to", msg.To, "subject", msg.Subject, "body", msg.Body)
	return nil
}
