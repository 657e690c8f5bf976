// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for authentication,
// authorization, CSRF checks and request hardening.
package middleware

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/lightsail-qbr/qbr/internal/model"
	"github.com/lightsail-qbr/qbr/internal/service"
	"github.com/lightsail-qbr/qbr/internal/session"
	"github.com/lightsail-qbr/qbr/internal/store"
	"github.com/lightsail-qbr/qbr/internal/util"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// Context keys for request-scoped user data.
const (
	ContextKeyIdentity ContextKey = "identity"
	ContextKeyUser     ContextKey = "user"
)

// Access control failures. Handlers never see them; the gate turns them
// into redirects.
var (
	ErrUnauthorized = errors.New("authentication required")
	ErrForbidden    = errors.New("insufficient permissions")
)

// Flasher stores a one-shot message shown on the next rendered page.
type Flasher interface {
	SetFlash(r *http.Request, message, flashType string)
}

// LoadIdentity puts the session identity into the request context.
// Anonymous visitors get session.Anonymous.
func LoadIdentity(ids *session.Identities) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ids.Current(r.Context())
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id session.Identity) context.Context {
	return context.WithValue(ctx, ContextKeyIdentity, id)
}

// GetIdentity returns the identity stored by LoadIdentity, or anonymous.
func GetIdentity(r *http.Request) session.Identity {
	id, ok := r.Context().Value(ContextKeyIdentity).(session.Identity)
	if !ok {
		return session.Anonymous
	}
	return id
}

// RequireAuthenticated redirects anonymous visitors to the login page.
func RequireAuthenticated() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !GetIdentity(r).IsAuthenticated() {
				slog.Debug("redirecting anonymous request", "path", r.URL.Path, "error", ErrUnauthorized)
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin allows only administrators. Anonymous visitors go to the
// login page; employees are sent back to the project list with a warning.
// Denials are written to the event log when events is non-nil.
func RequireAdmin(flash Flasher, events *service.EventService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := GetIdentity(r)
			if !id.IsAuthenticated() {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			switch id.Role {
			case model.RoleAdmin:
				next.ServeHTTP(w, r)
				return
			case model.RoleEmployee:
			}

			slog.Warn("access denied",
				"status", http.StatusForbidden,
				"method", r.Method,
				"path", r.URL.Path,
				"user_id", id.UserID,
				"user_role", string(id.Role),
				"error", ErrForbidden,
			)

			if events != nil {
				userID := id.UserID
				_ = events.LogSecurityEvent(r.Context(), model.EventLevelWarning,
					"Access denied: admin privileges required", &userID, util.ClientIP(r),
					map[string]any{"method": r.Method, "path": r.URL.Path, "user_role": string(id.Role)})
			}

			if flash != nil {
				flash.SetFlash(r, "Access denied. Administrator privileges required.", "error")
			}
			http.Redirect(w, r, "/", http.StatusSeeOther)
		})
	}
}

// LoadUser re-reads the signed-in user from the database on every request.
// Deleted or deactivated accounts lose their session; a role changed by an
// administrator is written back into the session. Must run after LoadIdentity.
func LoadUser(ids *session.Identities, db *sql.DB) func(http.Handler) http.Handler {
	queries := store.New(db)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := GetIdentity(r)
			if !id.IsAuthenticated() {
				next.ServeHTTP(w, r)
				return
			}

			user, err := queries.GetUserByID(r.Context(), id.UserID)
			switch {
			case errors.Is(err, sql.ErrNoRows) || (err == nil && !user.Active):
				slog.Info("ending session for unavailable account", "user_id", id.UserID)
				if err := ids.Destroy(r.Context()); err != nil {
					slog.Error("failed to destroy session", "error", err, "user_id", id.UserID)
				}
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			case err != nil:
				slog.Error("failed to load user", "error", err, "user_id", id.UserID)
				http.Error(w, "Something went wrong. Please try again.", http.StatusInternalServerError)
				return
			}

			if role, err := model.ParseRole(user.Role); err == nil && role != id.Role {
				ids.UpdateRole(r.Context(), role)
				id.Role = role
			}
			if user.Email != id.Email {
				ids.UpdateEmail(r.Context(), user.Email)
				id.Email = user.Email
			}
			id.Username = user.Username

			ctx := WithIdentity(r.Context(), id)
			ctx = context.WithValue(ctx, ContextKeyUser, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUser retrieves the current user from the request context.
// Returns nil if no user is in context.
func GetUser(r *http.Request) *store.User {
	user, ok := r.Context().Value(ContextKeyUser).(store.User)
	if !ok {
		return nil
	}
	return &user
}

// GetUserID returns the current user's ID from context, or 0 if not found.
func GetUserID(r *http.Request) int64 {
	return GetIdentity(r).UserID
}

// GetUserIDPtr returns a pointer to the current user's ID, or nil for
// anonymous requests. Useful for optional user IDs in event logging.
func GetUserIDPtr(r *http.Request) *int64 {
	if id := GetIdentity(r); id.IsAuthenticated() {
		userID := id.UserID
		return &userID
	}
	return nil
}
