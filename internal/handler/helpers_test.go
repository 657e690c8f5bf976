// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"io"
	"io/fs"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"

	"github.com/lightsail-qbr/qbr/internal/middleware"
	"github.com/lightsail-qbr/qbr/internal/model"
	"github.com/lightsail-qbr/qbr/internal/render"
	"github.com/lightsail-qbr/qbr/internal/service"
	"github.com/lightsail-qbr/qbr/internal/session"
	"github.com/lightsail-qbr/qbr/internal/store"
	"github.com/lightsail-qbr/qbr/internal/testutil"
	"github.com/lightsail-qbr/qbr/web"
)

// testApp serves handlers behind the session and identity middleware and
// drives them with a cookie-keeping client that does not follow redirects.
type testApp struct {
	db       *sql.DB
	sm       *scs.SessionManager
	ids      *session.Identities
	renderer *render.Renderer
	events   *service.EventService
	server   *httptest.Server
	client   *http.Client
}

// response is a fully read HTTP response.
type response struct {
	status   int
	location string
	body     string
	header   http.Header
}

func newTestApp(t *testing.T, mount func(r chi.Router, app *testApp)) *testApp {
	t.Helper()

	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)

	sm := session.New(db, true)
	ids := session.NewIdentities(sm)
	tokens := session.NewCSRFTokens(sm)

	templates, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		t.Fatalf("fs.Sub: %v", err)
	}
	renderer, err := render.New(render.Config{
		TemplatesFS:    templates,
		SessionManager: sm,
		CSRFTokens:     tokens,
		IsDev:          true,
	})
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}

	app := &testApp{
		db:       db,
		sm:       sm,
		ids:      ids,
		renderer: renderer,
		events:   service.NewEventService(db),
	}

	r := chi.NewRouter()
	r.Use(sm.LoadAndSave)
	r.Use(middleware.LoadIdentity(ids))
	r.Use(middleware.LoadUser(ids, db))

	// Signs the client in without going through the login form.
	r.Post("/test/login/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, _ := urlParamInt64(r, "id")
		user, err := store.New(db).GetUserByID(r.Context(), id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if err := ids.SetIdentity(r.Context(), session.Identity{
			UserID: user.ID, Username: user.Username, Role: model.Role(user.Role), Email: user.Email,
		}); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mount(r, app)

	app.server = httptest.NewServer(r)
	t.Cleanup(app.server.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	app.client = &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return app
}

func (a *testApp) do(t *testing.T, req *http.Request) response {
	t.Helper()
	resp, err := a.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	return response{
		status:   resp.StatusCode,
		location: resp.Header.Get("Location"),
		body:     string(body),
		header:   resp.Header,
	}
}

func (a *testApp) get(t *testing.T, path string) response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, a.server.URL+path, nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	return a.do(t, req)
}

func (a *testApp) post(t *testing.T, path string, form url.Values) response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, a.server.URL+path, strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.do(t, req)
}

// loginAs binds user to the client's session.
func (a *testApp) loginAs(t *testing.T, user store.User) {
	t.Helper()
	if resp := a.post(t, "/test/login/"+itoa(user.ID), nil); resp.status != http.StatusNoContent {
		t.Fatalf("test login failed: %d %s", resp.status, resp.body)
	}
}

// expectFlash asserts a 303 redirect to location whose next page shows flash.
func (a *testApp) expectFlash(t *testing.T, resp response, location, flash string) {
	t.Helper()
	if resp.status != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303; body: %s", resp.status, resp.body)
	}
	if resp.location != location {
		t.Fatalf("Location = %q, want %q", resp.location, location)
	}
	next := a.get(t, location)
	if !strings.Contains(next.body, flash) {
		t.Errorf("page %s does not show flash %q", location, flash)
	}
}

// countRows runs a COUNT(*) query.
func countRows(t *testing.T, db *sql.DB, query string, args ...any) int {
	t.Helper()
	var n int
	if err := db.QueryRowContext(context.Background(), query, args...).Scan(&n); err != nil {
		t.Fatalf("%s: %v", query, err)
	}
	return n
}

// eventMessages returns the messages of the newest audit events.
func eventMessages(t *testing.T, db *sql.DB) []string {
	t.Helper()
	rows, err := service.NewEventService(db).ListRecent(context.Background(), 50)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	msgs := make([]string, 0, len(rows))
	for _, r := range rows {
		msgs = append(msgs, r.Message)
	}
	return msgs
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
