package cache

import (
	"fmt"
	"log/slog"
)

// Config selects the backend for New.
type Config struct {
	RedisURL    string
	RedisPrefix string
}

// New returns a Redis store when a URL is configured and an in-memory
// store otherwise.
func New(cfg Config) (Store, error) {
	if cfg.RedisURL == "" {
		slog.Info("using in-memory state store")
		return NewMemoryStore(), nil
	}

	opts := DefaultRedisOptions()
	opts.URL = cfg.RedisURL
	if cfg.RedisPrefix != "" {
		opts.Prefix = cfg.RedisPrefix
	}

	s, err := NewRedisStore(opts)
	if err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	slog.Info("using redis state store", "prefix", opts.Prefix)
	return s, nil
}
