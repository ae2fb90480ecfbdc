package config

import (
	"strconv"
	"time"
)

// SessionConfig holds the cookie lifetimes that the rest of the portal relies on.
type SessionConfig interface {
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetUserCookieTTL() time.Duration
	GetMustChangePasswordTTL() time.Duration
	GetCookieSecure() bool
}

type Sessions struct{}

var _ SessionConfig = Sessions{}

func (Sessions) GetAccessTokenTTL() time.Duration {
	return 2 * time.Hour
}

func (Sessions) GetRefreshTokenTTL() time.Duration {
	return 7 * 24 * time.Hour // 7 days
}

// GetUserCookieTTL covers both the userRole and user cookies.
func (Sessions) GetUserCookieTTL() time.Duration {
	return 7 * 24 * time.Hour
}

func (Sessions) GetMustChangePasswordTTL() time.Duration {
	return 24 * time.Hour
}

// GetCookieSecure is true in production unless COOKIE_SECURE says otherwise.
func (Sessions) GetCookieSecure() bool {
	if v, err := strconv.ParseBool(GetEnv("COOKIE_SECURE", "")); err == nil {
		return v
	}
	return EnvVars{}.GetEnv() == productionEnvVal
}
