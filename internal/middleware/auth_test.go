// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lightsail-qbr/qbr/internal/model"
	"github.com/lightsail-qbr/qbr/internal/service"
	"github.com/lightsail-qbr/qbr/internal/session"
	"github.com/lightsail-qbr/qbr/internal/store"
	"github.com/lightsail-qbr/qbr/internal/testutil"
)

func requestAs(id session.Identity) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/admin/projects", nil)
	return req.WithContext(WithIdentity(req.Context(), id))
}

func TestGetIdentity_DefaultsToAnonymous(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if id := GetIdentity(req); id.IsAuthenticated() {
		t.Errorf("GetIdentity() = %+v, want anonymous", id)
	}
	if GetUserIDPtr(req) != nil {
		t.Error("GetUserIDPtr() should be nil for anonymous requests")
	}
	if GetUser(req) != nil {
		t.Error("GetUser() should be nil without LoadUser")
	}
}

func TestRequireAuthenticated(t *testing.T) {
	tests := []struct {
		name         string
		id           session.Identity
		wantStatus   int
		wantLocation string
	}{
		{"anonymous redirected", session.Anonymous, http.StatusSeeOther, "/login"},
		{"employee allowed", session.Identity{UserID: 2, Role: model.RoleEmployee}, http.StatusOK, ""},
		{"admin allowed", session.Identity{UserID: 1, Role: model.RoleAdmin}, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			RequireAuthenticated()(okHandler(nil)).ServeHTTP(rec, requestAs(tt.id))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if loc := rec.Header().Get("Location"); loc != tt.wantLocation {
				t.Errorf("Location = %q, want %q", loc, tt.wantLocation)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name         string
		id           session.Identity
		wantCalled   bool
		wantLocation string
		wantFlash    bool
	}{
		{"anonymous to login", session.Anonymous, false, "/login", false},
		{"employee to dashboard", session.Identity{UserID: 2, Role: model.RoleEmployee}, false, "/", true},
		{"admin allowed", session.Identity{UserID: 1, Role: model.RoleAdmin}, true, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flash := &recordingFlasher{}
			called := false
			rec := httptest.NewRecorder()

			RequireAdmin(flash, nil)(okHandler(&called)).ServeHTTP(rec, requestAs(tt.id))

			if called != tt.wantCalled {
				t.Errorf("handler called = %v, want %v", called, tt.wantCalled)
			}
			if loc := rec.Header().Get("Location"); loc != tt.wantLocation {
				t.Errorf("Location = %q, want %q", loc, tt.wantLocation)
			}
			if (flash.message != "") != tt.wantFlash {
				t.Errorf("flash = %q, want flash %v", flash.message, tt.wantFlash)
			}
			if tt.wantFlash && flash.flashType != "error" {
				t.Errorf("flash type = %q, want error", flash.flashType)
			}
		})
	}
}

func TestRequireAdmin_LogsDenial(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()
	emp := testutil.CreateUser(t, db, "erin", model.RoleEmployee)

	events := service.NewEventService(db)
	id := session.Identity{UserID: emp.ID, Username: emp.Username, Role: model.RoleEmployee}

	rec := httptest.NewRecorder()
	RequireAdmin(nil, events)(okHandler(nil)).ServeHTTP(rec, requestAs(id))

	rows, err := store.New(db).ListRecentEvents(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListRecentEvents: %v", err)
	}
	if len(rows) != 1 || rows[0].Category != model.EventCategorySecurity {
		t.Fatalf("expected one security event, got %+v", rows)
	}
	if !rows[0].UserID.Valid || rows[0].UserID.Int64 != emp.ID {
		t.Errorf("event user = %+v, want %d", rows[0].UserID, emp.ID)
	}
}

// chain mirrors the router order: session, identity, user reload.
func (e *testEnv) chain(next http.Handler) http.Handler {
	return e.sm.LoadAndSave(LoadIdentity(e.ids)(LoadUser(e.ids, e.db)(next)))
}

func TestLoadUser_RefreshesRole(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.CreateUser(t, env.db, "grace", model.RoleEmployee)

	cookie := env.newSession(t, func(ctx context.Context) {
		_ = env.ids.SetIdentity(ctx, session.Identity{
			UserID: user.ID, Username: user.Username, Role: model.RoleEmployee, Email: user.Email,
		})
	})

	// An admin promotes the user while their session is live.
	if _, err := store.New(env.db).UpdateUserRole(context.Background(), store.UpdateUserRoleParams{
		Role: string(model.RoleAdmin), ID: user.ID,
	}); err != nil {
		t.Fatalf("UpdateUserRole: %v", err)
	}

	var seen session.Identity
	var loaded *store.User
	handler := env.chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetIdentity(r)
		loaded = GetUser(r)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if seen.Role != model.RoleAdmin {
		t.Errorf("identity role = %q, want admin", seen.Role)
	}
	if loaded == nil || loaded.ID != user.ID {
		t.Fatalf("GetUser() = %+v, want user %d", loaded, user.ID)
	}

	// The refreshed role is persisted in the session for the next request.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	env.sm.LoadAndSave(LoadIdentity(env.ids)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetIdentity(r)
	}))).ServeHTTP(httptest.NewRecorder(), req)
	if seen.Role != model.RoleAdmin {
		t.Errorf("session role after refresh = %q, want admin", seen.Role)
	}
}

func TestLoadUser_DeactivatedUserLoggedOut(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.CreateUser(t, env.db, "heidi", model.RoleEmployee)

	cookie := env.newSession(t, func(ctx context.Context) {
		_ = env.ids.SetIdentity(ctx, session.Identity{UserID: user.ID, Username: user.Username, Role: model.RoleEmployee})
	})

	if _, err := store.New(env.db).UpdateUserActive(context.Background(), store.UpdateUserActiveParams{
		Active: false, ID: user.ID,
	}); err != nil {
		t.Fatalf("UpdateUserActive: %v", err)
	}

	called := false
	req := httptest.NewRequest(http.MethodGet, "/project/1", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	env.chain(okHandler(&called)).ServeHTTP(rec, req)

	if called {
		t.Error("handler should not run for a deactivated account")
	}
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login" {
		t.Errorf("got %d %q, want 303 /login", rec.Code, rec.Header().Get("Location"))
	}
}

func TestLoadUser_DeletedUserLoggedOut(t *testing.T) {
	env := newTestEnv(t)

	cookie := env.newSession(t, func(ctx context.Context) {
		_ = env.ids.SetIdentity(ctx, session.Identity{UserID: 999, Username: "ghost", Role: model.RoleAdmin})
	})

	called := false
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	env.chain(okHandler(&called)).ServeHTTP(rec, req)

	if called || rec.Header().Get("Location") != "/login" {
		t.Errorf("deleted user: called = %v, Location = %q", called, rec.Header().Get("Location"))
	}
}

func TestLoadUser_AnonymousPassesThrough(t *testing.T) {
	env := newTestEnv(t)

	called := false
	rec := httptest.NewRecorder()
	env.chain(okHandler(&called)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if !called || rec.Code != http.StatusOK {
		t.Errorf("anonymous: called = %v, status = %d", called, rec.Code)
	}
}
