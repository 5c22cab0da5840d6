package app

import (
	"os"
	"strconv"
	"time"

	"github.com/portlink/interconsulta/pkg/jwtx"
)

type Config struct {
	Issuer string // Issuer claim for access tokens

	SigningKeyFile string // Optional: path to an Ed25519 PKCS8 PEM key; empty means ephemeral
	DatabaseFile   string // Path to SQLite database file (default: ./interconsulta.db)
	PepperFile     string // Path to the secret-hashing pepper file (default: ./pepper)

	// Bootstrap admin, created only when no principal exists yet.
	AdminUsername string
	AdminSecret   string

	AccessTTL  time.Duration // Access token lifetime (default: 30m)
	RefreshTTL time.Duration // Refresh token lifetime (default: 24h)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Expired-token sweep interval (default: 1h)
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:               getEnvOrDefault("ICS_ISSUER", "interconsulta"),
		SigningKeyFile:       os.Getenv("ICS_SIGNING_KEY_FILE"),
		DatabaseFile:         getEnvOrDefault("ICS_DATABASE_FILE", "interconsulta.db"),
		PepperFile:           getEnvOrDefault("ICS_PEPPER_FILE", "pepper"),
		AdminUsername:        os.Getenv("ICS_ADMIN_USERNAME"),
		AdminSecret:          os.Getenv("ICS_ADMIN_SECRET"),
		AccessTTL:            getEnvDurationOrDefault("ICS_ACCESS_TTL", jwtx.DefaultAccessTokenTTL),
		RefreshTTL:           getEnvDurationOrDefault("ICS_REFRESH_TTL", jwtx.DefaultRefreshTokenTTL),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", time.Hour),
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Integer seconds also accepted.
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
