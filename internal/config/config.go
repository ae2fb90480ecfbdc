package config

import (
	"time"

	"github.com/joho/godotenv"
)

type Config interface {
	EnvConfig
	SessionConfig
	CorsConfig
	RateLimitConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetAPIBaseURL() string
	GetLogLevel() string
	GetHTTPTimeout() time.Duration
	GetFakeBackendPort() string
	GetFakeBackendSecret() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Sessions
	Cors
	RateLimits
}

func New() Config {
	return mainConfig{}
}

// Load reads an optional .env file into the process environment and returns
// the environment-backed config. Variables already set win over the file.
func Load(files ...string) Config {
	_ = godotenv.Load(files...)
	return New()
}
