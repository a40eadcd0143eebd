package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/vmalyshev/authcore/internal/flagx"
	"github.com/vmalyshev/authcore/internal/timex"
)

// JsonConfig is the intermediate DTO used only for reading JSON config
// files. Interval fields use timex.Duration, which accepts both string
// values such as "15m" and integer nanoseconds. After unmarshalling, the
// fields are copied into the runtime Config.
//
// Zero values mean "keep the default", so a partial file is fine.
type JsonConfig struct {
	DatabaseDSN               string         `json:"database_dsn"`
	RedisAddr                 string         `json:"redis_addr"`
	SessionCookieName         string         `json:"session_cookie_name"`
	SessionLifetime           timex.Duration `json:"session_lifetime"`
	RememberTokenValidity     timex.Duration `json:"remember_token_validity"`
	LockoutThreshold          int            `json:"lockout_threshold"`
	LockoutDuration           timex.Duration `json:"lockout_duration"`
	ResetTokenValidity        timex.Duration `json:"reset_token_validity"`
	VerificationTokenValidity timex.Duration `json:"verification_token_validity"`
	ResetBaseURL              string         `json:"reset_base_url"`
	VerificationBaseURL       string         `json:"verification_base_url"`
	ResendIPLimit             int            `json:"resend_ip_limit"`
	ResendIPWindow            timex.Duration `json:"resend_ip_window"`
	ResendEmailLimit          int            `json:"resend_email_limit"`
	ResendEmailWindow         timex.Duration `json:"resend_email_window"`
	MinPasswordLength         int            `json:"min_password_length"`
	RequireUppercase          *bool          `json:"require_uppercase"`
	RequireLowercase          *bool          `json:"require_lowercase"`
	RequireDigit              *bool          `json:"require_digit"`
	RequireSpecial            *bool          `json:"require_special"`
}

// parseJson loads configuration values from the JSON file named by the
// -c or -config command-line flags. When no file is given, nothing is
// loaded. An unreadable or invalid file panics.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.RedisAddr != "" {
		config.RedisAddr = c.RedisAddr
	}
	if c.SessionCookieName != "" {
		config.SessionCookieName = c.SessionCookieName
	}
	if c.SessionLifetime.Duration != 0 {
		config.SessionLifetime = time.Duration(c.SessionLifetime.Duration)
	}
	if c.RememberTokenValidity.Duration != 0 {
		config.RememberTokenValidity = time.Duration(c.RememberTokenValidity.Duration)
	}
	if c.LockoutThreshold != 0 {
		config.LockoutThreshold = c.LockoutThreshold
	}
	if c.LockoutDuration.Duration != 0 {
		config.LockoutDuration = time.Duration(c.LockoutDuration.Duration)
	}
	if c.ResetTokenValidity.Duration != 0 {
		config.ResetTokenValidity = time.Duration(c.ResetTokenValidity.Duration)
	}
	if c.VerificationTokenValidity.Duration != 0 {
		config.VerificationTokenValidity = time.Duration(c.VerificationTokenValidity.Duration)
	}
	if c.ResetBaseURL != "" {
		config.ResetBaseURL = c.ResetBaseURL
	}
	if c.VerificationBaseURL != "" {
		config.VerificationBaseURL = c.VerificationBaseURL
	}
	if c.ResendIPLimit != 0 {
		config.ResendIPLimit = c.ResendIPLimit
	}
	if c.ResendIPWindow.Duration != 0 {
		config.ResendIPWindow = time.Duration(c.ResendIPWindow.Duration)
	}
	if c.ResendEmailLimit != 0 {
		config.ResendEmailLimit = c.ResendEmailLimit
	}
	if c.ResendEmailWindow.Duration != 0 {
		config.ResendEmailWindow = time.Duration(c.ResendEmailWindow.Duration)
	}
	if c.MinPasswordLength != 0 {
		config.MinPasswordLength = c.MinPasswordLength
	}
	if c.RequireUppercase != nil {
		config.RequireUppercase = *c.RequireUppercase
	}
	if c.RequireLowercase != nil {
		config.RequireLowercase = *c.RequireLowercase
	}
	if c.RequireDigit != nil {
		config.RequireDigit = *c.RequireDigit
	}
	if c.RequireSpecial != nil {
		config.RequireSpecial = *c.RequireSpecial
	}
}
