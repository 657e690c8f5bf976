// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package testutil provides shared test helpers for the QBR packages.
package testutil

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lightsail-qbr/qbr/internal/auth"
	"github.com/lightsail-qbr/qbr/internal/model"
	"github.com/lightsail-qbr/qbr/internal/store"
	"github.com/lightsail-qbr/qbr/internal/util"
)

// TestPassword is the plaintext password of every user created by CreateUser.
const TestPassword = "correct-horse-battery"

// TestLogger creates a silent test logger that only outputs warnings and errors.
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

// TestDB creates a temporary test database with all migrations applied.
// Returns the database and a cleanup function that should be deferred.
func TestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "qbr-test.db")

	db, err := store.NewDB(dbPath)
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}

	if err := store.Migrate(db); err != nil {
		_ = db.Close()
		t.Fatalf("Migrate: %v", err)
	}

	return db, func() {
		_ = db.Close()
		_ = os.Remove(dbPath)
	}
}

// CreateUser inserts an active user with TestPassword and the given role.
func CreateUser(t *testing.T, db *sql.DB, username string, role model.Role) store.User {
	t.Helper()

	hash, err := auth.HashPassword(TestPassword)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	email := username + "@example.com"
	now := time.Now()
	user, err := store.New(db).CreateUser(context.Background(), store.CreateUserParams{
		Username:     username,
		UsernameKey:  util.UsernameKey(username),
		Email:        email,
		EmailKey:     util.EmailKey(email),
		PasswordHash: hash,
		Role:         string(role),
		FullName:     "Test " + username,
		Department:   "QA",
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("CreateUser(%s): %v", username, err)
	}
	return user
}

// CreateProject inserts a Planning project owned by ownerID.
func CreateProject(t *testing.T, db *sql.DB, title string, ownerID int64) store.Project {
	t.Helper()

	now := time.Now()
	project, err := store.New(db).CreateProject(context.Background(), store.CreateProjectParams{
		Title:       title,
		Description: "About " + title,
		Priority:    string(model.PriorityMedium),
		Status:      string(model.StatusPlanning),
		CreatedBy:   ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("CreateProject(%s): %v", title, err)
	}
	return project
}
