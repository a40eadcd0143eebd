package models

import "time"

// Token is a single-use, time-bound credential row. Subject is the
// identity the token acts on: the normalized email for password resets
// (a reset may be requested for an email with no account), the user ID
// for email verification. Only the SHA-256 hash of the plaintext is
// stored.
type Token struct {
	Subject   string
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the token is past its expiration.
func (t *Token) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
