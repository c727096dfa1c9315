// Package config loads service configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every setting the service reads at startup.
type Config struct {
	Port      string `env:"EVENTREG_PORT"       envDefault:"8080"`
	LogLevel  string `env:"EVENTREG_LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"EVENTREG_LOG_FORMAT" envDefault:"text"`
	Seed      bool   `env:"EVENTREG_SEED"       envDefault:"true"`
	Timezone  string `env:"EVENTREG_TIMEZONE"   envDefault:"UTC"`
	Tracing   string `env:"EVENTREG_TRACING"    envDefault:"none"`

	Audit Audit
}

// Audit configures the optional Postgres mirror of the audit log.
// An empty DSN disables it.
type Audit struct {
	PostgresDSN   string        `env:"EVENTREG_AUDIT_POSTGRES_DSN"`
	BatchSize     int           `env:"EVENTREG_AUDIT_BATCH_SIZE"     envDefault:"100"`
	FlushInterval time.Duration `env:"EVENTREG_AUDIT_FLUSH_INTERVAL" envDefault:"1s"`
	QueueSize     int           `env:"EVENTREG_AUDIT_QUEUE_SIZE"     envDefault:"1024"`
}

// Load parses the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if _, err := cfg.Location(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Location resolves Timezone.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// AuditEnabled reports whether audit entries are mirrored to Postgres.
func (c Config) AuditEnabled() bool {
	return c.Audit.PostgresDSN != ""
}
