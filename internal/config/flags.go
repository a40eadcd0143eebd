package config

import (
	"flag"
	"os"
	"time"

	"github.com/vmalyshev/authcore/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   PostgreSQL DSN
//	-e string   redis endpoint (empty = in-memory backends)
//	-s int      session lifetime, seconds
//	-k int      lockout threshold (failed attempts)
//	-m int      lockout duration, minutes
//	-t int      reset/verification token validity, minutes
//	-b string   password-reset base URL
//	-v string   email-verification base URL
//
// The function first filters os.Args down to the flags it owns using
// flagx.FilterArgs, avoiding collisions with other components. Duration
// flags are plain integers converted to time.Duration afterwards.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-e", "-s", "-k", "-m", "-t", "-b", "-v"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.RedisAddr, "e", config.RedisAddr, "redis endpoint")
	fs.StringVar(&config.ResetBaseURL, "b", config.ResetBaseURL, "password-reset base URL")
	fs.StringVar(&config.VerificationBaseURL, "v", config.VerificationBaseURL, "email-verification base URL")
	fs.IntVar(&config.LockoutThreshold, "k", config.LockoutThreshold, "failed attempts before lockout")

	sessionLifetime := fs.Int("s", int(config.SessionLifetime.Seconds()), "session lifetime (in seconds)")
	lockoutDuration := fs.Int("m", int(config.LockoutDuration.Minutes()), "lockout duration (in minutes)")
	tokenValidity := fs.Int("t", int(config.ResetTokenValidity.Minutes()), "reset/verification token validity (in minutes)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.SessionLifetime = time.Duration(*sessionLifetime) * time.Second
	config.LockoutDuration = time.Duration(*lockoutDuration) * time.Minute
	config.ResetTokenValidity = time.Duration(*tokenValidity) * time.Minute
	config.VerificationTokenValidity = time.Duration(*tokenValidity) * time.Minute
}
