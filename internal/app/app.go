// Package app assembles the account-security services from
// configuration. Callers (controllers, schedulers) take the wired
// services from the App value; nothing here touches HTTP.
package app

import (
	"context"
	"database/sql"

	"github.com/redis/go-redis/v9"

	"github.com/vmalyshev/authcore/internal/config"
	"github.com/vmalyshev/authcore/internal/logging"
	"github.com/vmalyshev/authcore/internal/mail"
	"github.com/vmalyshev/authcore/internal/password"
	"github.com/vmalyshev/authcore/internal/ratelimit"
	"github.com/vmalyshev/authcore/internal/repositories/repomanager"
	"github.com/vmalyshev/authcore/internal/services"
	"github.com/vmalyshev/authcore/internal/session"
	"github.com/vmalyshev/authcore/internal/tokens"
)

// App is the wired object graph.
type App struct {
	Config *config.Config
	Logger logging.Logger

	DB    *sql.DB
	Redis *redis.Client

	Sessions *session.Manager
	Policy   *password.Policy
	Limiter  *ratelimit.Limiter
	Throttle *ratelimit.ResendThrottle

	Auth     *services.Authenticator
	Resets   *services.PasswordResetService
	Verifier *services.VerificationService
}

// New connects to the database and builds the service graph.
func New(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	db, err := repomanager.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	return NewWithDB(cfg, logger, db), nil
}

// NewWithDB builds the service graph over an existing database handle.
// When cfg.RedisAddr is set, sessions and rate-limit counters live in
// redis; otherwise sessions are in-memory and counters in postgres.
func NewWithDB(cfg *config.Config, logger logging.Logger, db *sql.DB) *App {
	m := repomanager.NewPostgresRepositoryManager()
	usersRepo := m.Users(db)

	var rdb *redis.Client
	var sessBackend session.Backend
	var rlStore ratelimit.Store
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		sessBackend = session.NewRedisBackend(rdb)
		rlStore = ratelimit.NewRedisStore(rdb)
	} else {
		sessBackend = session.NewMemoryBackend()
		rlStore = m.RateLimits(db)
	}

	sessions := session.NewManager(sessBackend, session.Options{
		CookieName: cfg.SessionCookieName,
		Lifetime:   cfg.SessionLifetime,
	})

	policy := password.New(password.DefaultParams, password.Requirements{
		MinLength: cfg.MinPasswordLength,
		Uppercase: cfg.RequireUppercase,
		Lowercase: cfg.RequireLowercase,
		Digit:     cfg.RequireDigit,
		Special:   cfg.RequireSpecial,
	})

	limiter := ratelimit.NewLimiter(rlStore)
	throttle := ratelimit.NewResendThrottle(limiter)
	throttle.IPLimit = int64(cfg.ResendIPLimit)
	throttle.IPWindow = cfg.ResendIPWindow
	throttle.EmailLimit = int64(cfg.ResendEmailLimit)
	throttle.EmailWindow = cfg.ResendEmailWindow

	auth := services.NewAuthenticator(usersRepo, policy, services.NewLogSink(logger))
	auth.LockoutThreshold = uint(cfg.LockoutThreshold)
	auth.LockoutDuration = cfg.LockoutDuration
	auth.RememberValidity = cfg.RememberTokenValidity

	mailer := mail.NewLogMailer(logger)
	resets := services.NewPasswordResetService(usersRepo,
		tokens.NewManager(m.ResetTokens(db), cfg.ResetTokenValidity),
		policy, mailer, logger, cfg.ResetBaseURL)
	verifier := services.NewVerificationService(usersRepo,
		tokens.NewManager(m.VerifyTokens(db), cfg.VerificationTokenValidity),
		throttle, mailer, logger, cfg.VerificationBaseURL)

	return &App{
		Config:   cfg,
		Logger:   logger,
		DB:       db,
		Redis:    rdb,
		Sessions: sessions,
		Policy:   policy,
		Limiter:  limiter,
		Throttle: throttle,
		Auth:     auth,
		Resets:   resets,
		Verifier: verifier,
	}
}

// Close releases the storage connections.
func (a *App) Close() error {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			return err
		}
	}
	return a.DB.Close()
}
