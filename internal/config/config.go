// Package config handles loading and validation of application
// configuration from environment variables. Supports .env files via
// godotenv.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	Port        int
	Environment string // "development" | "staging" | "production"

	// Stores
	DatabaseURL string // PostgreSQL (users, audit trail)
	MongoURI    string // MongoDB (complaints); empty selects the in-memory store
	MongoDB     string

	// Security
	JWTSecret      string
	TokenTTLHours  int
	AllowedOrigins []string

	// Redis (complaint-creation rate limiting)
	RedisURL         string
	ComplaintsPerDay int

	// RabbitMQ (complaint events); empty disables publishing
	AMQPURL    string
	EventQueue string

	// Audit trail integrity
	IntegrityRebuildMinutes int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnvInt("PORT", 8080),
		Environment: getEnv("ENVIRONMENT", "development"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		MongoURI:    getEnv("MONGO_URI", ""),
		MongoDB:     getEnv("MONGO_DB", "civic"),

		JWTSecret:      getEnv("JWT_SECRET", "dev-secret-change-in-production"),
		TokenTTLHours:  getEnvInt("TOKEN_TTL_HOURS", 72),
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000"), ","),

		RedisURL:         getEnv("REDIS_URL", ""),
		ComplaintsPerDay: getEnvInt("COMPLAINTS_PER_DAY", 20),

		AMQPURL:    getEnv("AMQP_URL", ""),
		EventQueue: getEnv("EVENT_QUEUE", "complaint_events"),

		IntegrityRebuildMinutes: getEnvInt("INTEGRITY_REBUILD_MINUTES", 5),
	}

	if cfg.Environment == "production" {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required in production")
		}
		if cfg.MongoURI == "" {
			return nil, fmt.Errorf("MONGO_URI is required in production")
		}
		if cfg.JWTSecret == "dev-secret-change-in-production" {
			return nil, fmt.Errorf("JWT_SECRET must be set in production")
		}
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}
