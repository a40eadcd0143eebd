package repomanager

import (
	"context"
	"database/sql"

	"github.com/vmalyshev/authcore/internal/dbx"
	"github.com/vmalyshev/authcore/internal/migrations"
	"github.com/vmalyshev/authcore/internal/ratelimit"
	"github.com/vmalyshev/authcore/internal/repositories/resettokens"
	"github.com/vmalyshev/authcore/internal/repositories/users"
	"github.com/vmalyshev/authcore/internal/repositories/verifytokens"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repositories and
// exposes a schema migration hook.
type PostgresRepositoryManager struct{}

func NewPostgresRepositoryManager() *PostgresRepositoryManager {
	return &PostgresRepositoryManager{}
}

func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) ResetTokens(db dbx.DBTX) resettokens.Repository {
	return resettokens.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) VerifyTokens(db dbx.DBTX) verifytokens.Repository {
	return verifytokens.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) RateLimits(db dbx.DBTX) ratelimit.Store {
	return ratelimit.NewPostgresStore(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs
// them against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetDialect("pgx")
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return err
	}
	return nil
}

// Open connects to PostgreSQL via the pgx database/sql driver and
// verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
