// Package verifytokens persists hashed email-verification tokens,
// keyed by the user ID.
package verifytokens

import "github.com/vmalyshev/authcore/internal/tokens"

// Repository is the storage contract for email-verification tokens.
type Repository = tokens.Repository
