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
	"github.com/lightsail-qbr/qbr/internal/render"
	"github.com/lightsail-qbr/qbr/internal/service"
	"github.com/lightsail-qbr/qbr/internal/store"
)

const msgProjectNotFound = "Project not found"

// indexPage is the data of the project list.
type indexPage struct {
	Projects []store.ListProjectsWithStatsRow
}

// ProjectsHandler serves the public project list and the project page
// where employees vote and comment.
type ProjectsHandler struct {
	voting   *service.VotingService
	renderer *render.Renderer
}

// NewProjectsHandler creates a new ProjectsHandler.
func NewProjectsHandler(db *sql.DB, renderer *render.Renderer) *ProjectsHandler {
	return &ProjectsHandler{
		voting:   service.NewVotingService(db),
		renderer: renderer,
	}
}

// Index handles GET / and lists every project with its counts.
func (h *ProjectsHandler) Index(w http.ResponseWriter, r *http.Request) {
	projects, err := h.voting.ListProjects(r.Context())
	if err != nil {
		logAndInternalError(w, "failed to list projects", "error", err)
		return
	}
	renderPage(w, r, h.renderer, http.StatusOK, "pages/index", render.TemplateData{
		Title: "Projects",
		Data:  indexPage{Projects: projects},
	})
}

// Show handles GET /project/{id}.
func (h *ProjectsHandler) Show(w http.ResponseWriter, r *http.Request) {
	projectID, ok := urlParamInt64(r, "id")
	if !ok {
		flashError(w, r, h.renderer, RouteRoot, msgProjectNotFound)
		return
	}

	detail, err := h.voting.ProjectDetail(r.Context(), projectID, middleware.GetUserID(r))
	if errors.Is(err, service.ErrNotFound) {
		flashError(w, r, h.renderer, RouteRoot, msgProjectNotFound)
		return
	}
	if err != nil {
		logAndInternalError(w, "failed to load project", "error", err, "project_id", projectID)
		return
	}

	renderPage(w, r, h.renderer, http.StatusOK, "pages/project", render.TemplateData{
		Title: detail.Project.Title,
		Data:  detail,
	})
}

// Action handles POST /project/{id} with action=vote or action=comment.
func (h *ProjectsHandler) Action(w http.ResponseWriter, r *http.Request) {
	projectID, ok := urlParamInt64(r, "id")
	if !ok {
		flashError(w, r, h.renderer, RouteRoot, msgProjectNotFound)
		return
	}
	projectURL := fmt.Sprintf("/project/%d", projectID)
	if !parseFormOrRedirect(w, r, h.renderer, projectURL) {
		return
	}

	userID := middleware.GetUserID(r)

	switch r.FormValue("action") {
	case "vote":
		err := h.voting.Vote(r.Context(), projectID, userID)
		switch {
		case err == nil:
			slog.Info("vote recorded", "project_id", projectID, "user_id", userID)
			flashSuccess(w, r, h.renderer, projectURL, "Your vote has been recorded.")
		case errors.Is(err, service.ErrAlreadyVoted):
			flashAndRedirect(w, r, h.renderer, projectURL, "You have already voted for this project.", render.FlashWarning)
		case errors.Is(err, service.ErrNotFound):
			flashError(w, r, h.renderer, RouteRoot, msgProjectNotFound)
		default:
			flashServiceError(w, r, h.renderer, projectURL, err, msgProjectNotFound, "project_id", projectID, "user_id", userID)
		}

	case "comment":
		_, err := h.voting.Comment(r.Context(), projectID, userID, r.FormValue("comment_text"))
		switch {
		case err == nil:
			slog.Info("comment added", "project_id", projectID, "user_id", userID)
			flashSuccess(w, r, h.renderer, projectURL, "Your comment has been added.")
		case errors.Is(err, service.ErrNotFound):
			flashError(w, r, h.renderer, RouteRoot, msgProjectNotFound)
		default:
			flashServiceError(w, r, h.renderer, projectURL, err, msgProjectNotFound, "project_id", projectID, "user_id", userID)
		}

	default:
		flashError(w, r, h.renderer, projectURL, "Invalid action")
	}
}
