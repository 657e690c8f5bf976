// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"database/sql"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/lightsail-qbr/qbr/internal/cache"
	"github.com/lightsail-qbr/qbr/internal/handler"
	"github.com/lightsail-qbr/qbr/internal/middleware"
	"github.com/lightsail-qbr/qbr/internal/render"
	"github.com/lightsail-qbr/qbr/internal/service"
	"github.com/lightsail-qbr/qbr/internal/session"
	"github.com/lightsail-qbr/qbr/web"
)

// app holds the shared dependencies of the HTTP layer.
type app struct {
	db              *sql.DB
	sessions        *scs.SessionManager
	identities      *session.Identities
	csrfTokens      *session.CSRFTokens
	renderer        *render.Renderer
	events          *service.EventService
	loginProtection *middleware.LoginProtection
	state           cache.Store
	csrf            middleware.CSRFConfig
	isDev           bool
}

// routes builds the router. Mutating requests pass the cross-origin check,
// then the access gate, then the session token check. The token check is
// the last middleware before the handler so the gate answers before any
// request body is read.
func (a *app) routes() (http.Handler, error) {
	projectsHandler := handler.NewProjectsHandler(a.db, a.renderer)
	authHandler := handler.NewAuthHandler(a.db, a.renderer, a.identities, a.loginProtection)
	profileHandler := handler.NewProfileHandler(a.db, a.renderer, a.identities)
	adminProjectsHandler := handler.NewAdminProjectsHandler(a.db, a.renderer)
	adminUsersHandler := handler.NewAdminUsersHandler(a.db, a.renderer)
	healthHandler := handler.NewHealthHandler(a.db, a.state)
	requireToken := middleware.RequireCSRFToken(a.csrfTokens, a.events)

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.StripTrailingSlash)
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(a.isDev)))

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		return nil, fmt.Errorf("getting static fs: %w", err)
	}
	r.Handle("/static/*", staticCache(http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))))

	// Probes stay outside the session stack.
	r.Get("/health/live", healthHandler.Liveness)
	r.Get("/health/ready", healthHandler.Readiness)

	r.Group(func(r chi.Router) {
		r.Use(a.sessions.LoadAndSave)
		r.Use(middleware.CSRF(a.csrf))
		r.Use(middleware.LoadIdentity(a.identities))
		r.Use(middleware.LoadUser(a.identities, a.db))

		r.Get("/health", healthHandler.Health)

		r.Get(handler.RouteRoot, projectsHandler.Index)

		r.Get(handler.RouteLogin, authHandler.LoginForm)
		r.With(a.loginProtection.Middleware(), requireToken).Post(handler.RouteLogin, authHandler.Login)
		r.Get(handler.RouteRegister, authHandler.RegisterForm)
		r.With(a.loginProtection.Middleware(), requireToken).Post(handler.RouteRegister, authHandler.Register)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuthenticated())
			r.Use(requireToken)

			r.Post("/logout", authHandler.Logout)
			r.Get("/project/{id}", projectsHandler.Show)
			r.Post("/project/{id}", projectsHandler.Action)
			r.Get(handler.RouteProfile, profileHandler.Show)
			r.Post(handler.RouteProfile, profileHandler.Update)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin(a.renderer, a.events))
			r.Use(requireToken)

			r.Get("/", func(w http.ResponseWriter, req *http.Request) {
				http.Redirect(w, req, handler.RouteAdminProjects, http.StatusSeeOther)
			})
			r.Get("/projects", adminProjectsHandler.List)
			r.Get("/projects/new", adminProjectsHandler.NewForm)
			r.Post("/projects", adminProjectsHandler.Post)
			r.Get("/users", adminUsersHandler.List)
			r.Post("/users", adminUsersHandler.Post)
		})
	})

	return r, nil
}

// staticCache marks embedded assets cacheable for a day.
func staticCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=86400")
		next.ServeHTTP(w, r)
	})
}
