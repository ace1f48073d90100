package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// MinSessionSecretLength is the shortest SESSION_SECRET accepted, in bytes.
const MinSessionSecretLength = 32

type Config struct {
	Environment  string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`
	Port         string `envconfig:"PORT" default:"8080"`
	BaseURL      string `envconfig:"BASE_URL" default:"http://localhost:8080"`
	DatabasePath string `envconfig:"DATABASE_PATH" default:"./data/curiosity.db"`
	Timezone     string `envconfig:"TIMEZONE" default:"UTC"`

	SessionSecret string        `envconfig:"SESSION_SECRET"`
	TokenTTL      time.Duration `envconfig:"TOKEN_TTL" default:"24h"`

	// OIDC sign-in is optional; password sign-in is always available.
	OIDCIssuer       string `envconfig:"OIDC_ISSUER"`
	OIDCClientID     string `envconfig:"OIDC_CLIENT_ID"`
	OIDCClientSecret string `envconfig:"OIDC_CLIENT_SECRET"`
	OIDCRedirectURL  string `envconfig:"OIDC_REDIRECT_URL"`
}

func Load() (Config, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return Config{}, fmt.Errorf("loading config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (config Config) Validate() error {
	if config.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}
	if len(config.SessionSecret) < MinSessionSecretLength {
		return fmt.Errorf("SESSION_SECRET must be at least %d bytes", MinSessionSecretLength)
	}
	switch config.Environment {
	case "development", "staging", "production":
	default:
		return fmt.Errorf("ENVIRONMENT must be one of development, staging, production; got %q", config.Environment)
	}
	if _, err := config.Location(); err != nil {
		return err
	}
	if config.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	return nil
}

// Location is the zone that defines a calendar day for streaks and daily
// activity aggregation.
func (config Config) Location() (*time.Location, error) {
	location, err := time.LoadLocation(config.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading TIMEZONE %q: %w", config.Timezone, err)
	}
	return location, nil
}

func (config Config) OIDCEnabled() bool {
	return config.OIDCIssuer != ""
}

// OIDCCallbackURL falls back to the callback route under BASE_URL.
func (config Config) OIDCCallbackURL() string {
	if config.OIDCRedirectURL != "" {
		return config.OIDCRedirectURL
	}
	return strings.TrimSuffix(config.BaseURL, "/") + "/auth/oidc/callback"
}
