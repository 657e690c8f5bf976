package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"github.com/lightsail-qbr/qbr/internal/auth"
	"github.com/lightsail-qbr/qbr/internal/model"
	"github.com/lightsail-qbr/qbr/internal/util"
)

// DefaultAdminName is the full name given to the bootstrap admin.
const DefaultAdminName = "Administrator"

// SeedConfig describes the bootstrap admin account.
type SeedConfig struct {
	Enabled  bool
	Username string
	Email    string
	// Password may be empty, in which case a random one is generated and logged once.
	Password string
}

// Seed creates the bootstrap admin when seeding is enabled and the users
// table is still empty.
func Seed(ctx context.Context, db *sql.DB, cfg SeedConfig) error {
	if !cfg.Enabled {
		return nil
	}

	queries := New(db)

	count, err := queries.CountUsers(ctx)
	if err != nil {
		return fmt.Errorf("counting users: %w", err)
	}
	if count > 0 {
		slog.Info("users already exist, skipping seed")
		return nil
	}

	username := util.NormalizeUsername(cfg.Username)
	if err := util.ValidateUsername(username); err != nil {
		return fmt.Errorf("bootstrap admin username: %w", err)
	}
	email, err := util.NormalizeEmail(cfg.Email)
	if err != nil {
		return fmt.Errorf("bootstrap admin email: %w", err)
	}

	password := cfg.Password
	generated := false
	if password == "" {
		if password, err = randomPassword(); err != nil {
			return err
		}
		generated = true
	}
	if err := auth.ValidatePassword(password); err != nil {
		return fmt.Errorf("bootstrap admin password: %w", err)
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	now := time.Now()
	user, err := queries.CreateUser(ctx, CreateUserParams{
		Username:     username,
		UsernameKey:  util.UsernameKey(username),
		Email:        email,
		EmailKey:     util.EmailKey(email),
		PasswordHash: passwordHash,
		Role:         string(model.RoleAdmin),
		FullName:     DefaultAdminName,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return fmt.Errorf("creating admin user: %w", err)
	}

	if generated {
		slog.Info("created bootstrap admin with a generated password, change it after first login",
			"id", user.ID,
			"username", user.Username,
			"password", password,
		)
		return nil
	}
	slog.Info("created bootstrap admin", "id", user.ID, "username", user.Username)
	return nil
}

func randomPassword() (string, error) {
	b := make([]byte, 18)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating admin password: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
