// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/lightsail-qbr/qbr/internal/auth"
	"github.com/lightsail-qbr/qbr/internal/model"
	"github.com/lightsail-qbr/qbr/internal/store"
	"github.com/lightsail-qbr/qbr/internal/util"
)

// Profile field limits, in characters.
const (
	MaxFullNameLength   = 100
	MaxDepartmentLength = 100
)

// UserService manages accounts: registration, login, profile edits and
// the admin user screens.
type UserService struct {
	db      *sql.DB
	queries *store.Queries
}

// NewUserService creates a new UserService.
func NewUserService(db *sql.DB) *UserService {
	return &UserService{
		db:      db,
		queries: store.New(db),
	}
}

// RegistrationInput is the self-service signup form.
type RegistrationInput struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
	FullName        string
	Department      string
}

// ProfileInput is the self-service profile form. An empty NewPassword
// keeps the current password.
type ProfileInput struct {
	Email           string
	FullName        string
	Department      string
	NewPassword     string
	ConfirmPassword string
}

func validateNames(verr *ValidationError, fullName, department string) {
	switch n := utf8.RuneCountInString(fullName); {
	case n == 0:
		verr.Add("full_name", "Full name is required")
	case n > MaxFullNameLength:
		verr.Add("full_name", fmt.Sprintf("Full name must be at most %d characters", MaxFullNameLength))
	}
	if utf8.RuneCountInString(department) > MaxDepartmentLength {
		verr.Add("department", fmt.Sprintf("Department must be at most %d characters", MaxDepartmentLength))
	}
}

// Register creates an employee account. Registration never grants admin.
func (s *UserService) Register(ctx context.Context, in RegistrationInput) (store.User, error) {
	verr := NewValidationError()

	username := util.NormalizeUsername(in.Username)
	if err := util.ValidateUsername(username); err != nil {
		verr.Add("username", capitalize(err.Error()))
	}
	email, err := util.NormalizeEmail(in.Email)
	if err != nil {
		verr.Add("email", capitalize(err.Error()))
	}
	fullName := strings.TrimSpace(in.FullName)
	department := strings.TrimSpace(in.Department)
	validateNames(verr, fullName, department)
	if err := auth.ValidatePasswordPair(in.Password, in.ConfirmPassword); err != nil {
		verr.Add("password", capitalize(err.Error()))
	}
	if verr.HasErrors() {
		return store.User{}, verr
	}

	usernameKey := util.UsernameKey(username)
	emailKey := util.EmailKey(email)

	count, err := s.queries.CountUsersByUsernameOrEmail(ctx, store.CountUsersByUsernameOrEmailParams{
		UsernameKey: usernameKey,
		EmailKey:    emailKey,
	})
	if err != nil {
		return store.User{}, fmt.Errorf("checking existing users: %w", err)
	}
	if count > 0 {
		return store.User{}, invalid("username", "Username or email already exists")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return store.User{}, err
	}

	now := time.Now()
	user, err := s.queries.CreateUser(ctx, store.CreateUserParams{
		Username:     username,
		UsernameKey:  usernameKey,
		Email:        email,
		EmailKey:     emailKey,
		PasswordHash: hash,
		Role:         string(model.RoleEmployee),
		FullName:     fullName,
		Department:   department,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		// A concurrent signup can pass the pre-check; the UNIQUE index decides.
		if store.IsUniqueViolation(err) {
			return store.User{}, invalid("username", "Username or email already exists")
		}
		return store.User{}, fmt.Errorf("creating user: %w", err)
	}
	return user, nil
}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// equalizeTiming burns one password check so unknown usernames take as
// long as wrong passwords.
func equalizeTiming(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = auth.HashPassword("qbr-timing-equalizer")
	})
	_, _ = auth.CheckPassword(password, dummyHash)
}

// Authenticate verifies credentials. Unknown usernames and wrong passwords
// both yield ErrInvalidCredentials; a deactivated account with the right
// password yields ErrAccountInactive. Legacy hashes are upgraded on success.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (store.User, error) {
	key := util.UsernameKey(username)
	if key == "" || password == "" {
		return store.User{}, ErrInvalidCredentials
	}

	user, err := s.queries.GetUserByUsernameKey(ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		equalizeTiming(password)
		return store.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return store.User{}, fmt.Errorf("loading user: %w", err)
	}

	ok, err := auth.CheckPassword(password, user.PasswordHash)
	if err != nil {
		slog.Warn("unreadable password hash", "user_id", user.ID, "error", err)
		return store.User{}, ErrInvalidCredentials
	}
	if !ok {
		return store.User{}, ErrInvalidCredentials
	}
	if !user.Active {
		return store.User{}, ErrAccountInactive
	}

	now := time.Now()
	if auth.NeedsRehash(user.PasswordHash) {
		if hash, err := auth.HashPassword(password); err == nil {
			if err := s.queries.UpdateUserPassword(ctx, store.UpdateUserPasswordParams{
				PasswordHash: hash,
				UpdatedAt:    now,
				ID:           user.ID,
			}); err != nil {
				slog.Error("failed to upgrade password hash", "user_id", user.ID, "error", err)
			} else {
				user.PasswordHash = hash
			}
		}
	}

	if err := s.queries.UpdateUserLastLogin(ctx, store.UpdateUserLastLoginParams{
		LastLoginAt: sql.NullTime{Time: now, Valid: true},
		ID:          user.ID,
	}); err != nil {
		slog.Error("failed to update last login", "user_id", user.ID, "error", err)
	}
	user.LastLoginAt = sql.NullTime{Time: now, Valid: true}

	return user, nil
}

// GetUser loads a user by id.
func (s *UserService) GetUser(ctx context.Context, id int64) (store.User, error) {
	user, err := s.queries.GetUserByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return store.User{}, ErrNotFound
	}
	if err != nil {
		return store.User{}, fmt.Errorf("loading user %d: %w", id, err)
	}
	return user, nil
}

// UpdateProfile applies a self-service profile edit.
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, in ProfileInput) (store.User, error) {
	verr := NewValidationError()

	email, err := util.NormalizeEmail(in.Email)
	if err != nil {
		verr.Add("email", capitalize(err.Error()))
	}
	fullName := strings.TrimSpace(in.FullName)
	department := strings.TrimSpace(in.Department)
	validateNames(verr, fullName, department)
	if in.NewPassword != "" || in.ConfirmPassword != "" {
		if err := auth.ValidatePasswordPair(in.NewPassword, in.ConfirmPassword); err != nil {
			verr.Add("password", capitalize(err.Error()))
		}
	}
	if verr.HasErrors() {
		return store.User{}, verr
	}

	var hash string
	if in.NewPassword != "" {
		if hash, err = auth.HashPassword(in.NewPassword); err != nil {
			return store.User{}, err
		}
	}

	emailKey := util.EmailKey(email)
	err = store.ExecTx(ctx, s.db, func(q *store.Queries) error {
		existing, err := q.GetUserByEmailKey(ctx, emailKey)
		switch {
		case err == nil && existing.ID != userID:
			return invalid("email", "Email is already used by another account")
		case err != nil && !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("checking email: %w", err)
		}

		now := time.Now()
		n, err := q.UpdateUserProfile(ctx, store.UpdateUserProfileParams{
			Email:      email,
			EmailKey:   emailKey,
			FullName:   fullName,
			Department: department,
			UpdatedAt:  now,
			ID:         userID,
		})
		if err != nil {
			if store.IsUniqueViolation(err) {
				return invalid("email", "Email is already used by another account")
			}
			return fmt.Errorf("updating profile: %w", err)
		}
		if n == 0 {
			return ErrNotFound
		}

		if hash != "" {
			if err := q.UpdateUserPassword(ctx, store.UpdateUserPasswordParams{
				PasswordHash: hash,
				UpdatedAt:    now,
				ID:           userID,
			}); err != nil {
				return fmt.Errorf("updating password: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return store.User{}, err
	}

	return s.GetUser(ctx, userID)
}

// ListUsersWithStats returns every user, newest first, with their project,
// vote and comment counts.
func (s *UserService) ListUsersWithStats(ctx context.Context) ([]store.ListUsersWithStatsRow, error) {
	rows, err := s.queries.ListUsersWithStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return rows, nil
}

// UpdateUserRole changes another user's role. An admin cannot change
// their own role.
func (s *UserService) UpdateUserRole(ctx context.Context, actingID, targetID int64, role string) error {
	r, err := model.ParseRole(role)
	if err != nil {
		return invalid("role", "Invalid role")
	}
	if actingID == targetID {
		return ErrSelfModification
	}

	n, err := s.queries.UpdateUserRole(ctx, store.UpdateUserRoleParams{
		Role:      string(r),
		UpdatedAt: time.Now(),
		ID:        targetID,
	})
	if err != nil {
		return fmt.Errorf("updating role of user %d: %w", targetID, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetUserActive activates or deactivates another user. Deactivated users
// cannot log in and lose their current sessions on the next request.
func (s *UserService) SetUserActive(ctx context.Context, actingID, targetID int64, active bool) error {
	if actingID == targetID {
		return ErrSelfModification
	}

	n, err := s.queries.UpdateUserActive(ctx, store.UpdateUserActiveParams{
		Active:    active,
		UpdatedAt: time.Now(),
		ID:        targetID,
	})
	if err != nil {
		return fmt.Errorf("updating active flag of user %d: %w", targetID, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUser removes another user in one transaction: their votes and
// comments are deleted, their projects are reassigned to the acting admin
// and the account row is removed. Nothing changes if any step fails.
func (s *UserService) DeleteUser(ctx context.Context, actingID, targetID int64) error {
	if actingID == targetID {
		return ErrSelfModification
	}

	return store.ExecTx(ctx, s.db, func(q *store.Queries) error {
		if _, err := q.GetUserByID(ctx, targetID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("loading user %d: %w", targetID, err)
		}
		if err := q.DeleteVotesByUser(ctx, targetID); err != nil {
			return fmt.Errorf("deleting votes of user %d: %w", targetID, err)
		}
		if err := q.DeleteCommentsByUser(ctx, targetID); err != nil {
			return fmt.Errorf("deleting comments of user %d: %w", targetID, err)
		}
		if _, err := q.ReassignProjects(ctx, store.ReassignProjectsParams{
			NewOwner:  actingID,
			UpdatedAt: time.Now(),
			OldOwner:  targetID,
		}); err != nil {
			return fmt.Errorf("reassigning projects of user %d: %w", targetID, err)
		}
		if _, err := q.DeleteUser(ctx, targetID); err != nil {
			return fmt.Errorf("deleting user %d: %w", targetID, err)
		}
		return nil
	})
}
