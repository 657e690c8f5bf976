// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// knownWeakSecrets contains default/example secrets that must be rejected.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
	"qbr-development-secret-change-me!",
}

// Config holds the QBR application configuration loaded from environment variables.
type Config struct {
	DBPath        string `env:"QBR_DB_PATH" envDefault:"./data/qbr.db"`
	SessionSecret string `env:"QBR_SESSION_SECRET,required"`
	ServerHost    string `env:"QBR_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"QBR_SERVER_PORT" envDefault:"8080"`
	Env           string `env:"QBR_ENV" envDefault:"development"`
	LogLevel      string `env:"QBR_LOG_LEVEL" envDefault:"info"`

	// Optional Redis URL; when set, failed-login counters are shared across instances.
	RedisURL    string `env:"QBR_REDIS_URL"`
	RedisPrefix string `env:"QBR_REDIS_PREFIX" envDefault:"qbr:"`

	// Optional GeoLite2-Country database; audit events then record the client country.
	GeoIPDBPath string `env:"QBR_GEOIP_DB_PATH"`

	// Audit log retention, enforced by the scheduler.
	EventRetentionDays int `env:"QBR_EVENT_RETENTION_DAYS" envDefault:"90"`

	// Bootstrap admin, created on first start when seeding is enabled.
	DoSeed        bool   `env:"QBR_DO_SEED" envDefault:"false"`
	AdminUsername string `env:"QBR_ADMIN_USERNAME" envDefault:"admin"`
	AdminEmail    string `env:"QBR_ADMIN_EMAIL" envDefault:"admin@example.com"`
	AdminPassword string `env:"QBR_ADMIN_PASSWORD"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedis returns true if a Redis URL is configured.
func (c Config) UseRedis() bool {
	return c.RedisURL != ""
}

// EventRetention returns the audit log retention period.
func (c Config) EventRetention() time.Duration {
	return time.Duration(c.EventRetentionDays) * 24 * time.Hour
}

// SlogLevel maps LogLevel onto a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// MinSessionSecretLength is the minimum required length for the session secret.
const MinSessionSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if len(cfg.SessionSecret) < MinSessionSecretLength {
		return nil, fmt.Errorf("QBR_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(cfg.SessionSecret))
	}

	for _, weak := range knownWeakSecrets {
		if cfg.SessionSecret == weak {
			return nil, fmt.Errorf("QBR_SESSION_SECRET is a known default value and must not be used; " +
				"generate a secure secret with: openssl rand -base64 32")
		}
	}

	if !hasMinimumEntropy(cfg.SessionSecret) {
		slog.Warn("QBR_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	switch cfg.Env {
	case "development", "production":
	default:
		return nil, fmt.Errorf("QBR_ENV must be development or production, got %q", cfg.Env)
	}

	if cfg.EventRetentionDays < 1 {
		return nil, fmt.Errorf("QBR_EVENT_RETENTION_DAYS must be positive, got %d", cfg.EventRetentionDays)
	}

	return cfg, nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
