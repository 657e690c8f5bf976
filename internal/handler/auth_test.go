// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"net/http"
	"net/url"
	"slices"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lightsail-qbr/qbr/internal/middleware"
	"github.com/lightsail-qbr/qbr/internal/model"
	"github.com/lightsail-qbr/qbr/internal/store"
	"github.com/lightsail-qbr/qbr/internal/testutil"
	"github.com/lightsail-qbr/qbr/internal/util"
)

func newAuthApp(t *testing.T, lp *middleware.LoginProtection) *testApp {
	t.Helper()
	return newTestApp(t, func(r chi.Router, app *testApp) {
		auth := NewAuthHandler(app.db, app.renderer, app.ids, lp)
		projects := NewProjectsHandler(app.db, app.renderer)
		r.Get("/", projects.Index)
		r.Get("/login", auth.LoginForm)
		r.Post("/login", auth.Login)
		r.Post("/logout", auth.Logout)
		r.Get("/register", auth.RegisterForm)
		r.Post("/register", auth.Register)
	})
}

func loginForm(username, password string) url.Values {
	return url.Values{"username": {username}, "password": {password}}
}

func TestLogin_Success(t *testing.T) {
	app := newAuthApp(t, nil)
	user := testutil.CreateUser(t, app.db, "alice", model.RoleEmployee)

	resp := app.post(t, "/login", loginForm("Alice", testutil.TestPassword))
	app.expectFlash(t, resp, "/", "Welcome back, Test alice!")

	page := app.get(t, "/")
	assert.Contains(t, page.body, `href="/profile">alice</a>`)
	assert.NotContains(t, page.body, "Manage Projects")

	got, err := store.New(app.db).GetUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.True(t, got.LastLoginAt.Valid, "last login should be recorded")
	assert.Contains(t, eventMessages(t, app.db), "User logged in")
}

func TestLogin_InvalidCredentials(t *testing.T) {
	app := newAuthApp(t, nil)
	testutil.CreateUser(t, app.db, "alice", model.RoleEmployee)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "alice", "not-the-password"},
		{"unknown user", "mallory", testutil.TestPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := app.post(t, "/login", loginForm(tt.username, tt.password))
			assert.Equal(t, http.StatusUnauthorized, resp.status)
			assert.Contains(t, resp.body, "Invalid username or password.")
			assert.Contains(t, resp.body, `value="`+tt.username+`"`)
		})
	}

	assert.Contains(t, eventMessages(t, app.db), "Login failed: invalid credentials")
}

func TestLogin_MissingFields(t *testing.T) {
	app := newAuthApp(t, nil)

	resp := app.post(t, "/login", loginForm("alice", ""))
	assert.Equal(t, http.StatusBadRequest, resp.status)
	assert.Contains(t, resp.body, "Please enter both username and password.")
}

func TestLogin_InactiveAccount(t *testing.T) {
	app := newAuthApp(t, nil)
	user := testutil.CreateUser(t, app.db, "bob", model.RoleEmployee)
	_, err := store.New(app.db).UpdateUserActive(context.Background(), store.UpdateUserActiveParams{
		Active: false, UpdatedAt: time.Now(), ID: user.ID,
	})
	require.NoError(t, err)

	resp := app.post(t, "/login", loginForm("bob", testutil.TestPassword))
	assert.Equal(t, http.StatusForbidden, resp.status)
	assert.Contains(t, resp.body, "Your account has been deactivated.")
}

func TestLogin_LockoutAfterFailedAttempts(t *testing.T) {
	cfg := middleware.DefaultLoginProtectionConfig()
	cfg.MaxFailedAttempts = 3
	lp := middleware.NewLoginProtection(cfg, nil)
	app := newAuthApp(t, lp)
	testutil.CreateUser(t, app.db, "carol", model.RoleEmployee)

	resp := app.post(t, "/login", loginForm("carol", "wrong-1"))
	assert.Equal(t, http.StatusUnauthorized, resp.status)
	assert.Contains(t, resp.body, "2 attempts remaining")

	resp = app.post(t, "/login", loginForm("carol", "wrong-2"))
	assert.Contains(t, resp.body, "1 attempt remaining")

	resp = app.post(t, "/login", loginForm("carol", "wrong-3"))
	assert.Contains(t, resp.body, "Too many failed login attempts.")

	// The correct password is refused while the lock holds.
	resp = app.post(t, "/login", loginForm("CAROL", testutil.TestPassword))
	assert.Equal(t, http.StatusTooManyRequests, resp.status)
	assert.Contains(t, resp.body, "Too many failed login attempts.")

	locked, _ := lp.IsAccountLocked(context.Background(), util.UsernameKey("carol"))
	assert.True(t, locked)
	assert.Contains(t, eventMessages(t, app.db), "Account locked due to failed login attempts")
}

func TestLogin_SuccessResetsFailures(t *testing.T) {
	cfg := middleware.DefaultLoginProtectionConfig()
	cfg.MaxFailedAttempts = 3
	lp := middleware.NewLoginProtection(cfg, nil)
	app := newAuthApp(t, lp)
	testutil.CreateUser(t, app.db, "dave", model.RoleEmployee)

	app.post(t, "/login", loginForm("dave", "wrong"))
	app.post(t, "/login", loginForm("dave", "wrong"))
	resp := app.post(t, "/login", loginForm("dave", testutil.TestPassword))
	require.Equal(t, http.StatusSeeOther, resp.status)

	assert.Equal(t, 3, lp.GetRemainingAttempts(context.Background(), util.UsernameKey("dave")))
}

func TestLoginForm_RedirectsSignedInUsers(t *testing.T) {
	app := newAuthApp(t, nil)
	app.loginAs(t, testutil.CreateUser(t, app.db, "erin", model.RoleEmployee))

	for _, path := range []string{"/login", "/register"} {
		resp := app.get(t, path)
		assert.Equal(t, http.StatusSeeOther, resp.status, path)
		assert.Equal(t, "/", resp.location, path)
	}
}

func TestLogout(t *testing.T) {
	app := newAuthApp(t, nil)
	user := testutil.CreateUser(t, app.db, "frank", model.RoleEmployee)
	app.loginAs(t, user)

	resp := app.post(t, "/logout", nil)
	app.expectFlash(t, resp, "/login", "You have been logged out.")

	page := app.get(t, "/")
	assert.Contains(t, page.body, `href="/login"`)
	assert.NotContains(t, page.body, "Log out")
	assert.Contains(t, eventMessages(t, app.db), "User logged out")
}

func registrationForm(username, email, password, confirm string) url.Values {
	return url.Values{
		"username":         {username},
		"email":            {email},
		"full_name":        {"New Person"},
		"department":       {"Sales"},
		"password":         {password},
		"confirm_password": {confirm},
	}
}

func TestRegister_CreatesEmployee(t *testing.T) {
	app := newAuthApp(t, nil)

	resp := app.post(t, "/register", registrationForm("newbie", "newbie@example.com", "long-enough-pw", "long-enough-pw"))
	app.expectFlash(t, resp, "/login", "Registration successful. Please log in.")

	user, err := store.New(app.db).GetUserByUsernameKey(context.Background(), util.UsernameKey("newbie"))
	require.NoError(t, err)
	assert.Equal(t, string(model.RoleEmployee), user.Role)
	assert.Equal(t, "Sales", user.Department)
	assert.True(t, slices.Contains(eventMessages(t, app.db), "User registered"))

	login := app.post(t, "/login", loginForm("newbie", "long-enough-pw"))
	assert.Equal(t, http.StatusSeeOther, login.status)
}

func TestRegister_IgnoresRoleField(t *testing.T) {
	app := newAuthApp(t, nil)

	form := registrationForm("sneaky", "sneaky@example.com", "long-enough-pw", "long-enough-pw")
	form.Set("role", "admin")
	resp := app.post(t, "/register", form)
	require.Equal(t, http.StatusSeeOther, resp.status)

	user, err := store.New(app.db).GetUserByUsernameKey(context.Background(), util.UsernameKey("sneaky"))
	require.NoError(t, err)
	assert.Equal(t, string(model.RoleEmployee), user.Role)
}

func TestRegister_Rejected(t *testing.T) {
	app := newAuthApp(t, nil)
	testutil.CreateUser(t, app.db, "taken", model.RoleEmployee)

	tests := []struct {
		name    string
		form    url.Values
		wantErr string
	}{
		{"duplicate username", registrationForm("TAKEN", "other@example.com", "long-enough-pw", "long-enough-pw"), "Username or email already exists"},
		{"duplicate email", registrationForm("other", "Taken@Example.com", "long-enough-pw", "long-enough-pw"), "Username or email already exists"},
		{"password mismatch", registrationForm("other", "other@example.com", "long-enough-pw", "different-pw-1"), "Passwords do not match"},
		{"short password", registrationForm("other", "other@example.com", "short", "short"), "at least 8 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := app.post(t, "/register", tt.form)
			assert.Equal(t, http.StatusUnprocessableEntity, resp.status)
			assert.Contains(t, resp.body, tt.wantErr)
			assert.NotContains(t, resp.body, "long-enough-pw", "passwords must not be echoed")
		})
	}

	assert.Equal(t, 1, countRows(t, app.db, "SELECT COUNT(*) FROM users"))
}
