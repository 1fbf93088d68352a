package config

import (
	"fmt"
	"os"
)

const (
	portEnvVar  = "PORT"
	appNameVar  = "APP_NAME"
	baseURLVar  = "BASE_URL"
	postgresVar = "POSTGRES_DSN"
	logLevelVar = "LOG_LEVEL"
	audienceVar = "TOKEN_AUDIENCE"
)

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetBaseURL() string
	GetPostgresDSN() string
	GetLogLevel() string
	GetAudience() string
	GetEnv() string
}

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Identity Core")
}

// GetBaseURL returns the base URL for the authorization server
// (e.g., "https://auth.example.com"). Tenant issuers are derived from it.
func (EnvVars) GetBaseURL() string {
	return GetEnv(baseURLVar, "http://localhost:8080")
}

// GetPostgresDSN returns the DSN of the shared durable store. When empty the
// server runs against in-memory repositories, which is only safe for a single
// instance (replay protection and code consumption are per-process then).
func (EnvVars) GetPostgresDSN() string {
	return GetEnv(postgresVar, "")
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, "info")
}

func (EnvVars) GetAudience() string {
	return GetEnv(audienceVar, "api")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
