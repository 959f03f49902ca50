package config

import (
	"fmt"
	"log/slog"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	Env      string `env:"ENV" envDefault:"local" validate:"required,oneof=local staging production"`
	Port     string `env:"PORT" envDefault:"8080" validate:"required"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`

	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`

	StoreDriver string `env:"STORE_DRIVER" envDefault:"sqlite" validate:"oneof=postgres sqlite"`
	DatabaseURL string `env:"DATABASE_URL" validate:"required_if=StoreDriver postgres"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"data/scheduler.db" validate:"required_if=StoreDriver sqlite"`

	// IANA zone cron rules are evaluated in.
	Timezone       string        `env:"TIMEZONE" envDefault:"UTC" validate:"required"`
	ExecutionLease time.Duration `env:"EXECUTION_LEASE" envDefault:"5m" validate:"min=1s"`

	WAServiceURL       string        `env:"WA_SERVICE_URL" envDefault:"http://localhost:3001" validate:"required,url"`
	GatewayTimeout     time.Duration `env:"GATEWAY_TIMEOUT" envDefault:"30s"`
	GatewayMaxAttempts int           `env:"GATEWAY_MAX_ATTEMPTS" envDefault:"3" validate:"min=1,max=10"`
	GatewayRatePerSec  float64       `env:"GATEWAY_RATE_PER_SEC" envDefault:"5" validate:"gt=0"`

	TelegramToken  string `env:"TELEGRAM_TOKEN"`
	TelegramChatID int64  `env:"TELEGRAM_CHAT_ID" validate:"required_with=TelegramToken"`

	ResendAPIKey  string `env:"RESEND_API_KEY"`
	ResendFrom    string `env:"RESEND_FROM"     validate:"required_with=ResendAPIKey"`
	NotifyEmailTo string `env:"NOTIFY_EMAIL_TO" validate:"required_with=ResendAPIKey"`

	JWTSecret string `env:"JWT_SECRET,required" validate:"required,min=32"`
}

func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("invalid config: timezone %q: %w", cfg.Timezone, err)
	}

	return cfg, nil
}

func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Location returns the configured zone, falling back to UTC. Load has
// already rejected unknown names.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
