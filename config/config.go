package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	ListenAddr  string `envconfig:"LISTEN_ADDR" default:":8080"`
	DatabaseDSN string `envconfig:"DATABASE_DSN" required:"true"`

	JWTSecret string        `envconfig:"JWT_SECRET" required:"true"`
	TokenTTL  time.Duration `envconfig:"TOKEN_TTL" default:"24h"`

	// SessionBuffer is the size of each session's outbound event channel.
	// A session that falls this far behind starts losing events.
	SessionBuffer int `envconfig:"SESSION_BUFFER" default:"64"`

	RateLimit          int        `envconfig:"RATE_LIMIT" default:"10"`
	MinPasswordEntropy float64    `envconfig:"MIN_PASSWORD_ENTROPY" default:"50"`
	LogLevel           slog.Level `envconfig:"LOG_LEVEL" default:"info"`
}

func Load() (*Config, error) {
	// A missing .env file is fine; the environment may be set directly.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
