package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds the process-level settings read from the environment.
// godotenv loads the .env file in main before this runs.
type Config struct {
	HTTPAddr    string
	DatabaseDSN string
	RedisAddr   string
	RedisDB     int

	OpenAIKey   string
	OpenAIModel string

	JWTSecret string
	LogMode   string

	MaxTurnsPerSide int
}

// Load reads the configuration from the environment. OPENAI_API_KEY and
// JWT_SECRET are required; everything else has a development default.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPAddr:        envOr("HTTP_ADDR", ":8080"),
		DatabaseDSN:     envOr("DATABASE_DSN", "host=localhost user=user password=password dbname=wingmate port=5432 sslmode=disable"),
		RedisAddr:       envOr("REDIS_ADDR", "localhost:6379"),
		OpenAIKey:       os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:     envOr("OPENAI_MODEL", "gpt-4o-mini"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		LogMode:         envOr("LOG_MODE", "dev"),
		MaxTurnsPerSide: DefaultMaxTurnsPerSide,
	}

	if cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is not set")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is not set")
	}

	if raw := os.Getenv("REDIS_DB"); raw != "" {
		db, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB %q: %w", raw, err)
		}
		cfg.RedisDB = db
	}
	if raw := os.Getenv("AUTOPILOT_MAX_TURNS"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid AUTOPILOT_MAX_TURNS %q", raw)
		}
		cfg.MaxTurnsPerSide = n
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
