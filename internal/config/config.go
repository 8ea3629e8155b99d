// Package config loads runtime configuration from the environment.
package config

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds every setting the API server needs.
type Config struct {
	DatabaseURL    string `envconfig:"DATABASE_URL" required:"true"`
	AppPort        string `envconfig:"APP_PORT" default:"8080"`
	JWTSecret      string `envconfig:"JWT_SECRET" required:"true"`
	ClientURL      string `envconfig:"CLIENT_URL" default:"http://localhost:3000"`
	MigrationsPath string `envconfig:"MIGRATIONS_PATH" default:"migrations"`

	PayPalClientID string `envconfig:"PAYPAL_CLIENT_ID"`
	PayPalSecret   string `envconfig:"PAYPAL_SECRET"`
	PayPalMode     string `envconfig:"PAYPAL_MODE" default:"sandbox"`
	PayPalBaseURL  string `envconfig:"PAYPAL_BASE_URL" default:"https://api.sandbox.paypal.com"`
}

// Load reads .env (when present) and populates Config from the environment.
func Load() (*Config, error) {
	// A missing .env is fine in deployed environments.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
