// Package config loads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every variable, e.g. RECEIPTSPLIT_PORT.
const EnvPrefix = "RECEIPTSPLIT"

const EnvDev = "dev"

// Config holds all server settings.
type Config struct {
	Env      string `envconfig:"ENV" default:"dev"`
	Port     int    `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	DBPath string `envconfig:"DB_PATH" default:"./data/receipts.db"`

	BlobDir      string `envconfig:"BLOB_DIR" default:"./data/blobs"`
	BlobBaseURL  string `envconfig:"BLOB_BASE_URL" default:"http://localhost:8080/blobs"`
	MaxBlobBytes int64  `envconfig:"MAX_BLOB_BYTES" default:"10485760"`

	JWTSecret string        `envconfig:"JWT_SECRET"`
	TokenTTL  time.Duration `envconfig:"TOKEN_TTL" default:"24h"`

	MetricsEnabled bool `envconfig:"METRICS_ENABLED" default:"true"`
}

// devJWTSecret is only accepted when Env is dev.
const devJWTSecret = "dev-secret-do-not-use-in-production"

// Load reads an optional .env file, then the environment.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	// A missing .env file is fine; variables may come from the environment.
	if err := godotenv.Load(envFiles...); err != nil {
		slog.Debug("No .env file loaded", "files", envFiles, "error", err)
	}

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.IsDev() && cfg.JWTSecret == "" {
		cfg.JWTSecret = devJWTSecret
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsDev reports whether the server runs in development mode.
func (c *Config) IsDev() bool {
	return strings.EqualFold(c.Env, EnvDev)
}

// Validate checks settings that have no safe default.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT secret is required outside dev"))
	}
	if !c.IsDev() && c.JWTSecret == devJWTSecret {
		errs = append(errs, errors.New("the development JWT secret is not allowed outside dev"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d", c.Port))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, fmt.Errorf("invalid token TTL %s", c.TokenTTL))
	}
	return errors.Join(errs...)
}

// SlogLevel maps LogLevel onto a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
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
