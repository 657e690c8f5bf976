// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/lightsail-qbr/qbr/internal/middleware"
	"github.com/lightsail-qbr/qbr/internal/model"
	"github.com/lightsail-qbr/qbr/internal/render"
	"github.com/lightsail-qbr/qbr/internal/service"
	"github.com/lightsail-qbr/qbr/internal/session"
	"github.com/lightsail-qbr/qbr/internal/util"
)

// loginPage is the data of the login form.
type loginPage struct {
	Username string
}

// AuthHandler handles login, logout and self-service registration.
type AuthHandler struct {
	users           *service.UserService
	events          *service.EventService
	renderer        *render.Renderer
	identities      *session.Identities
	loginProtection *middleware.LoginProtection
}

// NewAuthHandler creates a new AuthHandler. lp may be nil to disable
// account lockout.
func NewAuthHandler(db *sql.DB, renderer *render.Renderer, ids *session.Identities, lp *middleware.LoginProtection) *AuthHandler {
	return &AuthHandler{
		users:           service.NewUserService(db),
		events:          service.NewEventService(db),
		renderer:        renderer,
		identities:      ids,
		loginProtection: lp,
	}
}

// LoginForm renders the login page. Signed-in users go to the project list.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if middleware.GetIdentity(r).IsAuthenticated() {
		http.Redirect(w, r, RouteRoot, http.StatusSeeOther)
		return
	}
	renderPage(w, r, h.renderer, http.StatusOK, "auth/login", render.TemplateData{
		Title: "Log in",
		Data:  loginPage{},
	})
}

// loginError redisplays the login form with an error and the username kept.
func (h *AuthHandler) loginError(w http.ResponseWriter, r *http.Request, status int, username, message string) {
	renderPage(w, r, h.renderer, status, "auth/login", render.TemplateData{
		Title:     "Log in",
		Flash:     message,
		FlashType: render.FlashError,
		Data:      loginPage{Username: username},
	})
}

// Login handles the login form submission.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, RouteLogin) {
		return
	}

	username := formValue(r, "username")
	password := r.FormValue("password")
	if username == "" || password == "" {
		h.loginError(w, r, http.StatusBadRequest, username, "Please enter both username and password.")
		return
	}

	ctx := r.Context()
	clientIP := util.ClientIP(r)
	account := util.UsernameKey(username)
	meta := service.ClientMetadata(r.UserAgent())
	meta["username"] = username

	if h.loginProtection != nil {
		if locked, remaining := h.loginProtection.IsAccountLocked(ctx, account); locked {
			_ = h.events.LogAuthEvent(ctx, model.EventLevelWarning, "Login attempt on locked account", nil, clientIP, meta)
			h.loginError(w, r, http.StatusTooManyRequests, username, middleware.LockoutMessage(remaining))
			return
		}
	}

	user, err := h.users.Authenticate(ctx, username, password)
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		_ = h.events.LogAuthEvent(ctx, model.EventLevelWarning, "Login failed: invalid credentials", nil, clientIP, meta)
		h.loginError(w, r, http.StatusUnauthorized, username, h.recordFailure(r, account, clientIP, meta))
		return
	case errors.Is(err, service.ErrAccountInactive):
		_ = h.events.LogAuthEvent(ctx, model.EventLevelWarning, "Login failed: account deactivated", nil, clientIP, meta)
		h.loginError(w, r, http.StatusForbidden, username, "Your account has been deactivated. Please contact an administrator.")
		return
	case err != nil:
		slog.Error("login failed", "error", err, "username", username)
		h.loginError(w, r, http.StatusInternalServerError, username, msgSomethingWrong)
		return
	}

	role, err := model.ParseRole(user.Role)
	if err != nil {
		slog.Error("user has unknown role", "user_id", user.ID, "role", user.Role)
		h.loginError(w, r, http.StatusInternalServerError, username, msgSomethingWrong)
		return
	}

	if h.loginProtection != nil {
		h.loginProtection.RecordSuccessfulLogin(ctx, account)
	}

	if err := h.identities.SetIdentity(ctx, session.Identity{
		UserID:   user.ID,
		Username: user.Username,
		Role:     role,
		Email:    user.Email,
	}); err != nil {
		logAndInternalError(w, "failed to start session", "error", err, "user_id", user.ID)
		return
	}

	slog.Info("user logged in", "user_id", user.ID, "username", user.Username)
	_ = h.events.LogAuthEvent(ctx, model.EventLevelInfo, "User logged in", &user.ID, clientIP, meta)

	flashSuccess(w, r, h.renderer, RouteRoot, fmt.Sprintf("Welcome back, %s!", user.FullName))
}

// recordFailure counts a failed login and returns the message to show.
func (h *AuthHandler) recordFailure(r *http.Request, account, clientIP string, meta map[string]any) string {
	const invalid = "Invalid username or password."
	if h.loginProtection == nil {
		return invalid
	}

	ctx := r.Context()
	if locked, d := h.loginProtection.RecordFailedAttempt(ctx, account); locked {
		_ = h.events.LogSecurityEvent(ctx, model.EventLevelWarning, "Account locked due to failed login attempts", nil, clientIP,
			map[string]any{"username": meta["username"], "duration": d.String()})
		return middleware.LockoutMessage(d)
	}

	switch remaining := h.loginProtection.GetRemainingAttempts(ctx, account); remaining {
	case 1:
		return invalid + " 1 attempt remaining before the account is locked."
	case 2:
		return fmt.Sprintf("%s %d attempts remaining before the account is locked.", invalid, remaining)
	default:
		return invalid
	}
}

// Logout ends the session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	id := middleware.GetIdentity(r)

	if err := h.identities.Destroy(r.Context()); err != nil {
		logAndInternalError(w, "failed to destroy session", "error", err)
		return
	}

	if id.IsAuthenticated() {
		slog.Info("user logged out", "user_id", id.UserID)
		_ = h.events.LogAuthEvent(r.Context(), model.EventLevelInfo, "User logged out", &id.UserID, util.ClientIP(r), nil)
	}

	flashAndRedirect(w, r, h.renderer, RouteLogin, "You have been logged out.", render.FlashInfo)
}

// RegisterForm renders the registration page. Signed-in users go to the
// project list.
func (h *AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	if middleware.GetIdentity(r).IsAuthenticated() {
		http.Redirect(w, r, RouteRoot, http.StatusSeeOther)
		return
	}
	renderPage(w, r, h.renderer, http.StatusOK, "auth/register", render.TemplateData{
		Title: "Register",
		Data:  formPage[service.RegistrationInput]{},
	})
}

// Register creates an employee account from the registration form.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, RouteRegister) {
		return
	}

	in := service.RegistrationInput{
		Username:        formValue(r, "username"),
		Email:           formValue(r, "email"),
		Password:        r.FormValue("password"),
		ConfirmPassword: r.FormValue("confirm_password"),
		FullName:        formValue(r, "full_name"),
		Department:      formValue(r, "department"),
	}

	user, err := h.users.Register(r.Context(), in)
	if err != nil {
		if fields, ok := validationErrors(err); ok {
			in.Password, in.ConfirmPassword = "", ""
			renderPage(w, r, h.renderer, http.StatusUnprocessableEntity, "auth/register", render.TemplateData{
				Title: "Register",
				Data:  formPage[service.RegistrationInput]{Form: in, Errors: fields},
			})
			return
		}
		logAndInternalError(w, "registration failed", "error", err, "username", in.Username)
		return
	}

	slog.Info("user registered", "user_id", user.ID, "username", user.Username)
	meta := service.ClientMetadata(r.UserAgent())
	meta["username"] = user.Username
	_ = h.events.LogAuthEvent(r.Context(), model.EventLevelInfo, "User registered", &user.ID, util.ClientIP(r), meta)

	flashSuccess(w, r, h.renderer, RouteLogin, "Registration successful. Please log in.")
}
