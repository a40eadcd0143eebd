// Package repomanager vends storage-backed repository implementations
// and owns schema migrations.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/vmalyshev/authcore/internal/dbx"
	"github.com/vmalyshev/authcore/internal/ratelimit"
	"github.com/vmalyshev/authcore/internal/repositories/resettokens"
	"github.com/vmalyshev/authcore/internal/repositories/users"
	"github.com/vmalyshev/authcore/internal/repositories/verifytokens"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	ResetTokens(db dbx.DBTX) resettokens.Repository
	VerifyTokens(db dbx.DBTX) verifytokens.Repository
	RateLimits(db dbx.DBTX) ratelimit.Store
}
