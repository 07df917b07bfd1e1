package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultAdminEmail is the reserved, well-known administrator identity. The
// profile behind it is synthesized on first login rather than registered.
const DefaultAdminEmail = "admin@sapkids.edu.vn"

// CasdoorConfig holds the Casdoor connection settings.
type CasdoorConfig struct {
	Endpoint     string
	ClientID     string
	ClientSecret string
	Cert         string
	Organization string
	Application  string
}

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	DatabaseURL string
	RedisURL    string

	// KafkaBrokers is optional; identity audit events are dropped when empty.
	KafkaBrokers []string

	// AdminEmail is the reserved administrator identity. Overridable for
	// test environments only.
	AdminEmail string

	// SessionStartupTimeout bounds how long session bootstrap waits for the
	// first principal-change event before settling as unauthenticated.
	SessionStartupTimeout time.Duration

	Casdoor CasdoorConfig
}

// LoadConfig reads configuration from the environment, with .env support for
// local development.
func LoadConfig() (*Config, error) {
	// Ignore missing .env; production uses real environment variables.
	_ = godotenv.Load()

	cfg := &Config{
		Port:                  getEnv("PORT", "8080"),
		Environment:           getEnv("ENVIRONMENT", "development"),
		LogLevel:              parseLogLevel(getEnv("LOG_LEVEL", "info")),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		RedisURL:              os.Getenv("REDIS_URL"),
		AdminEmail:            getEnv("ADMIN_EMAIL", DefaultAdminEmail),
		SessionStartupTimeout: 5 * time.Second,
		Casdoor: CasdoorConfig{
			Endpoint:     os.Getenv("CASDOOR_ENDPOINT"),
			ClientID:     os.Getenv("CASDOOR_CLIENT_ID"),
			ClientSecret: os.Getenv("CASDOOR_CLIENT_SECRET"),
			Cert:         os.Getenv("CASDOOR_CERT"),
			Organization: getEnv("CASDOOR_ORGANIZATION", "sapkids"),
			Application:  getEnv("CASDOOR_APPLICATION", "identity-service"),
		},
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	if timeout := os.Getenv("SESSION_STARTUP_TIMEOUT"); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid SESSION_STARTUP_TIMEOUT: %w", err)
		}
		cfg.SessionStartupTimeout = d
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.Casdoor.Endpoint == "" {
		return nil, fmt.Errorf("CASDOOR_ENDPOINT is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
