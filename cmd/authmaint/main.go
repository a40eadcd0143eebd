// Command authmaint runs maintenance tasks against the auth database:
//
//	authmaint migrate   apply schema migrations
//	authmaint cleanup   delete expired tokens and stale rate-limit rows
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/vmalyshev/authcore/internal/config"
	"github.com/vmalyshev/authcore/internal/dbx"
	"github.com/vmalyshev/authcore/internal/logging"
	"github.com/vmalyshev/authcore/internal/ratelimit"
	"github.com/vmalyshev/authcore/internal/repositories/repomanager"
	"github.com/vmalyshev/authcore/internal/tokens"
)

func main() {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	ctx := context.Background()

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: authmaint <migrate|cleanup> [flags]")
		os.Exit(2)
	}
	command := os.Args[1]

	cfg := config.LoadConfig()

	db, err := repomanager.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.Error(ctx, "database connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	m := repomanager.NewPostgresRepositoryManager()

	switch command {
	case "migrate":
		if err := m.RunMigrations(ctx, db); err != nil {
			logger.Error(ctx, "migrations failed", "error", err)
			os.Exit(1)
		}
		logger.Info(ctx, "migrations applied")

	case "cleanup":
		var nReset, nVerify, nLimits int64

		// one transaction so a partial sweep never commits
		err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			var err error
			if nReset, err = tokens.NewManager(m.ResetTokens(tx), cfg.ResetTokenValidity).CleanupExpired(ctx); err != nil {
				return err
			}
			if nVerify, err = tokens.NewManager(m.VerifyTokens(tx), cfg.VerificationTokenValidity).CleanupExpired(ctx); err != nil {
				return err
			}
			nLimits, err = ratelimit.NewPostgresStore(tx).Prune(ctx)
			return err
		})
		if err != nil {
			logger.Error(ctx, "cleanup failed", "error", err)
			os.Exit(1)
		}

		logger.Info(ctx, "cleanup complete",
			"reset_tokens", nReset,
			"verification_tokens", nVerify,
			"rate_limits", nLimits)

	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\nusage: authmaint <migrate|cleanup> [flags]\n", command)
		os.Exit(2)
	}
}
