package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	portEnvVar       = "PORT"
	appNameVar       = "APP_NAME"
	apiBaseURLVar    = "API_BASE_URL"
	logLevelVar      = "LOG_LEVEL"
	httpTimeoutVar   = "HTTP_TIMEOUT"
	fakePortVar      = "FAKE_BACKEND_PORT"
	fakeSecretVar    = "FAKE_BACKEND_SECRET"
	productionEnvVal = "PRODUCTION"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	return normalisePort(GetEnv(portEnvVar, "3000"))
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Warranty Portal")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return strings.ToUpper(env)
}

// GetAPIBaseURL returns the REST backend base URL (e.g. "https://api.example.com/api").
// All backend paths are relative to it.
func (EnvVars) GetAPIBaseURL() string {
	return strings.TrimRight(GetEnv(apiBaseURLVar, "http://localhost:4000/api"), "/")
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, "info")
}

// GetHTTPTimeout is the outbound request timeout. Zero leaves the transport default.
func (EnvVars) GetHTTPTimeout() time.Duration {
	d, err := time.ParseDuration(GetEnv(httpTimeoutVar, "0s"))
	if err != nil {
		return 0
	}
	return d
}

func (EnvVars) GetFakeBackendPort() string {
	return normalisePort(GetEnv(fakePortVar, "4000"))
}

func (EnvVars) GetFakeBackendSecret() string {
	return GetEnv(fakeSecretVar, "dev-only-signing-secret")
}

func normalisePort(port string) string {
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
