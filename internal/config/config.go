package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ActorCredential maps one API key to the actor it authenticates.
// ACTOR_KEYS format: "key=id:role[:station_id]", comma separated.
type ActorCredential struct {
	APIKey    string
	ActorID   string
	Role      string
	StationID string
}

// Config holds the application configuration.
type Config struct {
	DatabaseURL string
	HTTPPort    string
	LogLevel    string

	// Redis Config
	RedisAddr string
	RedisPass string
	RedisDB   int

	// Webhook Config
	WebhookURL        string
	WebhookSecret     string
	WebhookTimeout    time.Duration
	WebhookMaxRetries int
	WebhookBaseDelay  time.Duration

	// Actor credentials for request authentication
	ActorKeys []ActorCredential

	// DemoMode allows the X-Demo-Role header to override the actor role.
	// Never enable outside local demos.
	DemoMode bool
}

// LoadConfig loads configuration from environment variables and a .env file.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &Config{
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		HTTPPort:          getEnv("HTTP_PORT", "8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:           getEnvAsInt("REDIS_DB", 0),
		WebhookURL:        os.Getenv("WEBHOOK_URL"),
		WebhookSecret:     os.Getenv("WEBHOOK_SECRET"),
		WebhookTimeout:    getEnvAsDuration("WEBHOOK_TIMEOUT", 5*time.Second),
		WebhookMaxRetries: getEnvAsInt("WEBHOOK_MAX_RETRIES", 3),
		WebhookBaseDelay:  getEnvAsDuration("WEBHOOK_BASE_DELAY", time.Second),
		DemoMode:          getEnvAsBool("DEMO_MODE", false),
	}

	actorKeys, err := parseActorKeys(os.Getenv("ACTOR_KEYS"))
	if err != nil {
		return nil, err
	}
	cfg.ActorKeys = actorKeys

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	return cfg, nil
}

// parseActorKeys parses the ACTOR_KEYS credential list. Validation of role
// names and actor ids happens in the identity provider, which owns the
// meaning of both.
func parseActorKeys(raw string) ([]ActorCredential, error) {
	if raw == "" {
		return nil, nil
	}
	entries := strings.Split(raw, ",")
	credentials := make([]ActorCredential, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		key, actor, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("invalid ACTOR_KEYS entry %q: expected key=id:role", entry)
		}
		parts := strings.Split(actor, ":")
		if len(parts) < 2 || len(parts) > 3 {
			return nil, fmt.Errorf("invalid ACTOR_KEYS entry %q: expected key=id:role[:station]", entry)
		}
		cred := ActorCredential{
			APIKey:  strings.TrimSpace(key),
			ActorID: strings.TrimSpace(parts[0]),
			Role:    strings.TrimSpace(parts[1]),
		}
		if len(parts) == 3 {
			cred.StationID = strings.TrimSpace(parts[2])
		}
		credentials = append(credentials, cred)
	}
	return credentials, nil
}

// getEnv returns the environment variable value or a default.
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt returns the environment variable value as int or a default.
func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool returns the environment variable value as bool or a default.
func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration returns the environment variable value as time.Duration or a default.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if durationValue, err := time.ParseDuration(value); err == nil {
			return durationValue
		}
	}
	return defaultValue
}
