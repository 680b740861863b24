package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration parsed from environment
// variables. A .env file is loaded by main before Load runs.
type Config struct {
	Env  string `env:"ENV" envDefault:"development"`
	Port string `env:"PORT" envDefault:"8080"`

	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD"`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	JWTSecret   string        `env:"JWT_SECRET" envDefault:"baccarat-game-secret"`
	TokenExpiry time.Duration `env:"TOKEN_EXPIRY" envDefault:"720h"` // 30 days

	// StartingBalance is credited to every new identity.
	StartingBalance float64 `env:"STARTING_BALANCE" envDefault:"1000"`

	// ResolveDelay is the dealing-animation window between bet admission
	// and settlement.
	ResolveDelay time.Duration `env:"RESOLVE_DELAY" envDefault:"1500ms"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
