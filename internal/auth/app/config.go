package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Storage. DatabaseURL selects the postgres driver for shared
	// deployments; when empty the embedded SQLite file is used.
	DatabaseURL  string // Optional: postgres DSN
	DatabaseFile string // Optional: path to SQLite database file (default: ./authbridge.db)
	KeyFile      string // Optional: path to the token sealing key file (default: ./seal.key)

	// Provider registration.
	OAuthClientID     string   // Required: Atlassian OAuth client ID
	OAuthClientSecret string   // Required: Atlassian OAuth client secret
	OAuthRedirectURI  string   // Required: public callback URL of this service
	OAuthScopes       []string // Optional: requested scopes
	ProviderFile      string   // Optional: YAML file overriding provider endpoints

	// Policy knobs.
	LoginTTL         time.Duration // How long an issued authorization URL stays valid (default: 10m)
	RefreshInterval  time.Duration // Scheduler sweep interval (default: 1m)
	RefreshThreshold time.Duration // Refresh when the token expires within this window (default: 5m)
	RememberDuration time.Duration // Default remember-me horizon (default: 30 days)

	// Optional integrations.
	RedisURL  string // Pending logins shared across instances
	AMQPURL   string // Lifecycle event broker
	SentryDSN string

	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

func LoadConfig() Config {
	cfg := Config{
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		DatabaseFile:      getEnvOrDefault("AUTH_DATABASE_FILE", "authbridge.db"),
		KeyFile:           getEnvOrDefault("AUTH_SEAL_KEY_FILE", "seal.key"),
		OAuthClientID:     os.Getenv("OAUTH_CLIENT_ID"),
		OAuthClientSecret: os.Getenv("OAUTH_CLIENT_SECRET"),
		OAuthRedirectURI:  os.Getenv("OAUTH_REDIRECT_URI"),
		ProviderFile:      os.Getenv("OAUTH_PROVIDER_FILE"),

		LoginTTL:         getEnvDurationOrDefault("AUTH_LOGIN_TTL", 10*time.Minute),
		RefreshInterval:  getEnvDurationOrDefault("AUTH_REFRESH_INTERVAL", time.Minute),
		RefreshThreshold: getEnvDurationOrDefault("AUTH_REFRESH_THRESHOLD", 5*time.Minute),
		RememberDuration: getEnvDurationOrDefault("AUTH_REMEMBER_DURATION", 30*24*time.Hour),

		RedisURL:  os.Getenv("REDIS_URL"),
		AMQPURL:   os.Getenv("AMQP_URL"),
		SentryDSN: os.Getenv("SENTRY_DSN"),

		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}

	if scopes := os.Getenv("OAUTH_SCOPES"); scopes != "" {
		cfg.OAuthScopes = strings.Fields(scopes)
	} else {
		cfg.OAuthScopes = []string{"read:jira-work", "write:jira-work", "offline_access"}
	}

	if cfg.OAuthRedirectURI == "" {
		cfg.OAuthRedirectURI = "http://localhost:8080/auth/oauth/callback"
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

	// Plain integers are read as minutes.
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
