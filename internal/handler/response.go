// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler implements the HTTP handlers of the QBR web application.
// Handlers translate form posts into service calls and every outcome into
// a rendered page or a flash message plus redirect.
package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/lightsail-qbr/qbr/internal/render"
	"github.com/lightsail-qbr/qbr/internal/service"
)

// Routes used in redirects.
const (
	RouteRoot          = "/"
	RouteLogin         = "/login"
	RouteRegister      = "/register"
	RouteProfile       = "/profile"
	RouteAdminProjects = "/admin/projects"
	RouteAdminUsers    = "/admin/users"
)

// msgSomethingWrong is the only message clients see for storage failures.
const msgSomethingWrong = "Something went wrong. Please try again."

// flashAndRedirect sets a flash message and redirects to the given URL.
// Uses http.StatusSeeOther (303) for POST redirects.
func flashAndRedirect(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, url, message, messageType string) {
	renderer.SetFlash(r, message, messageType)
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// flashError sets an error flash message and redirects to the given URL.
func flashError(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, url, message string) {
	flashAndRedirect(w, r, renderer, url, message, render.FlashError)
}

// flashSuccess sets a success flash message and redirects to the given URL.
func flashSuccess(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, url, message string) {
	flashAndRedirect(w, r, renderer, url, message, render.FlashSuccess)
}

// parseFormOrRedirect parses the request form and redirects with an error message on failure.
// Returns true if parsing succeeded, false if it failed (and redirect was performed).
func parseFormOrRedirect(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, redirectURL string) bool {
	if err := r.ParseForm(); err != nil {
		flashError(w, r, renderer, redirectURL, "Invalid form data")
		return false
	}
	return true
}

// logAndInternalError logs an error and writes a 500 response with the
// generic message.
func logAndInternalError(w http.ResponseWriter, logMsg string, args ...any) {
	slog.Error(logMsg, args...)
	http.Error(w, msgSomethingWrong, http.StatusInternalServerError)
}

// renderPage renders a page and turns a template failure into a 500.
func renderPage(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, status int, name string, data render.TemplateData) {
	if err := renderer.RenderStatus(w, r, status, name, data); err != nil {
		logAndInternalError(w, "failed to render template", "template", name, "error", err)
	}
}

// formValue returns the trimmed form value for key.
func formValue(r *http.Request, key string) string {
	return strings.TrimSpace(r.FormValue(key))
}

// formInt64 parses a positive id from the form.
func formInt64(r *http.Request, key string) (int64, bool) {
	return parsePositiveID(r.FormValue(key))
}

// urlParamInt64 parses a positive id from a chi URL parameter.
func urlParamInt64(r *http.Request, key string) (int64, bool) {
	return parsePositiveID(chi.URLParam(r, key))
}

func parsePositiveID(s string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// formPage is the data of pages that redisplay a submitted form with
// per-field errors.
type formPage[T any] struct {
	Form   T
	Errors map[string]string
}

// validationErrors extracts the field messages of a *service.ValidationError.
func validationErrors(err error) (map[string]string, bool) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		return verr.Fields, true
	}
	return nil, false
}

// flashServiceError maps a service error from an admin or voting action to
// a flash message and redirect. Unexpected errors are logged and reported
// with the generic message.
func flashServiceError(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, url string, err error, notFound string, logArgs ...any) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		flashError(w, r, renderer, url, verr.Message())
	case errors.Is(err, service.ErrNotFound):
		flashError(w, r, renderer, url, notFound)
	default:
		slog.Error("request failed", append(logArgs, "error", err)...)
		flashError(w, r, renderer, url, msgSomethingWrong)
	}
}
