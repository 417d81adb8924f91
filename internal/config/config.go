// Package config loads service configuration from the environment into an
// explicit struct.
//
// WHY A STRUCT AND NOT os.Getenv AT THE CALL SITE?
// Every knob the service has is listed here, typed, with its default next
// to it. Constructors receive the values they need as plain fields — no
// package reaches into the environment at runtime, which keeps behaviour
// reproducible in tests.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config contains all server configuration parameters.
type Config struct {
	AppURL  string `env:"APP_URL" envDefault:"http://localhost"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`
	DBPath  string `env:"DB_PATH" envDefault:"data/auth.db"`

	AccessTokenSecret  string        `env:"ACCESS_TOKEN_SECRET"`
	RefreshTokenSecret string        `env:"REFRESH_TOKEN_SECRET"`
	AccessTokenTTL     time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"1h"`
	RefreshTokenTTL    time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"720h"` // 30 days

	LogLevel int `env:"LOG_LEVEL" envDefault:"0"` // slog levels: -4 debug, 0 info, 4 warn, 8 error
}

// Load parses configuration from environment variables.
//
// Both token secrets are mandatory: issuing or verifying tokens with an
// empty HMAC key would silently produce forgeable tokens, so we refuse to
// start instead.
func Load() (*Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config: parsing environment: %w", err)
	}

	if cfg.AccessTokenSecret == "" {
		return nil, errors.New("config: ACCESS_TOKEN_SECRET must be set")
	}
	if cfg.RefreshTokenSecret == "" {
		return nil, errors.New("config: REFRESH_TOKEN_SECRET must be set")
	}

	return &cfg, nil
}

// Issuer builds the "iss" claim value for tokens minted by this server,
// e.g. "http://localhost:8080".
func (c *Config) Issuer() string {
	return fmt.Sprintf("%s:%d", c.AppURL, c.AppPort)
}
