// Package resettokens persists hashed password-reset tokens, keyed by
// the account email.
package resettokens

import "github.com/vmalyshev/authcore/internal/tokens"

// Repository is the storage contract for password-reset tokens.
type Repository = tokens.Repository
