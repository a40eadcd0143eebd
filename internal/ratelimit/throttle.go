package ratelimit

import (
	"context"
	"time"

	"github.com/vmalyshev/authcore/internal/common"
)

const (
	DefaultIPLimit     = 5
	DefaultIPWindow    = 300 * time.Second
	DefaultEmailLimit  = 1
	DefaultEmailWindow = 300 * time.Second
)

// ResendThrottle gates the resend-verification endpoint behind two
// independent windows: one per source IP and one per target email. Both
// must pass. Email addresses are normalized and hashed before keying so
// raw addresses never land in rate-limit storage.
type ResendThrottle struct {
	limiter *Limiter

	IPLimit     int64
	IPWindow    time.Duration
	EmailLimit  int64
	EmailWindow time.Duration
}

func NewResendThrottle(limiter *Limiter) *ResendThrottle {
	return &ResendThrottle{
		limiter:     limiter,
		IPLimit:     DefaultIPLimit,
		IPWindow:    DefaultIPWindow,
		EmailLimit:  DefaultEmailLimit,
		EmailWindow: DefaultEmailWindow,
	}
}

// Allow records a resend attempt from ip for email and reports whether
// it may proceed. The IP counter is incremented before the email window
// is checked; a failed email check does not roll the IP hit back (the
// store contract has no transaction primitive).
func (t *ResendThrottle) Allow(ctx context.Context, ip, email string) (bool, error) {
	ok, err := t.limiter.Allow(ctx, IPKey(ip), t.IPLimit, t.IPWindow)
	if err != nil || !ok {
		return false, err
	}
	return t.limiter.Allow(ctx, EmailKey(email), t.EmailLimit, t.EmailWindow)
}

// IPKey returns the rate-limit key for a source address.
func IPKey(ip string) string {
	return "ip:" + ip
}

// EmailKey returns the rate-limit key for a target email address.
func EmailKey(email string) string {
	return "email:" + common.HashToken(common.NormalizeEmail(email))
}
