// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cache provides short-lived key/value state with expiry, backed
// either by process memory or by Redis when several instances must share
// counters such as failed login attempts.
package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrCacheMiss is returned when a key does not exist or has expired.
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheClosed is returned when operating on a closed store.
	ErrCacheClosed = errors.New("cache closed")
)

// Store is the key/value contract shared by the memory and Redis backends.
type Store interface {
	// Get returns the value for key or ErrCacheMiss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key. A ttl of zero keeps the entry until deleted.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Incr atomically increments an integer counter and returns the new
	// value. The ttl is applied only when the counter is created.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// TTL returns the remaining lifetime of key, or zero when it is missing.
	TTL(ctx context.Context, key string) (time.Duration, error)

	// Delete removes the given keys. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases resources held by the store.
	Close() error
}

// Pruner is implemented by backends that must drop expired entries
// explicitly. Redis expires keys on its own.
type Pruner interface {
	Prune() int
}
