// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/lightsail-qbr/qbr/internal/middleware"
	"github.com/lightsail-qbr/qbr/internal/model"
	"github.com/lightsail-qbr/qbr/internal/render"
	"github.com/lightsail-qbr/qbr/internal/service"
	"github.com/lightsail-qbr/qbr/internal/util"
)

// AdminProjectsHandler serves the admin project screens.
type AdminProjectsHandler struct {
	projects *service.ProjectService
	events   *service.EventService
	renderer *render.Renderer
}

// NewAdminProjectsHandler creates a new AdminProjectsHandler.
func NewAdminProjectsHandler(db *sql.DB, renderer *render.Renderer) *AdminProjectsHandler {
	return &AdminProjectsHandler{
		projects: service.NewProjectService(db),
		events:   service.NewEventService(db),
		renderer: renderer,
	}
}

// List handles GET /admin/projects.
func (h *AdminProjectsHandler) List(w http.ResponseWriter, r *http.Request) {
	projects, err := h.projects.ListProjectsWithStats(r.Context())
	if err != nil {
		logAndInternalError(w, "failed to list projects", "error", err)
		return
	}
	renderPage(w, r, h.renderer, http.StatusOK, "admin/projects", render.TemplateData{
		Title: "Manage Projects",
		Data:  indexPage{Projects: projects},
	})
}

// NewForm handles GET /admin/projects/new.
func (h *AdminProjectsHandler) NewForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, http.StatusOK, service.ProjectInput{
		Priority: string(model.PriorityMedium),
		Status:   string(model.StatusPlanning),
	}, nil)
}

func (h *AdminProjectsHandler) renderForm(w http.ResponseWriter, r *http.Request, status int, in service.ProjectInput, errs map[string]string) {
	renderPage(w, r, h.renderer, status, "admin/project_new", render.TemplateData{
		Title: "Add Project",
		Data:  formPage[service.ProjectInput]{Form: in, Errors: errs},
	})
}

// Post handles POST /admin/projects with action=create, update_status or delete.
func (h *AdminProjectsHandler) Post(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, RouteAdminProjects) {
		return
	}

	switch r.FormValue("action") {
	case "create":
		h.create(w, r)
	case "update_status":
		h.updateStatus(w, r)
	case "delete":
		h.delete(w, r)
	default:
		flashError(w, r, h.renderer, RouteAdminProjects, "Invalid action")
	}
}

func (h *AdminProjectsHandler) create(w http.ResponseWriter, r *http.Request) {
	in := service.ProjectInput{
		Title:       formValue(r, "title"),
		Description: formValue(r, "description"),
		Priority:    formValue(r, "priority"),
		Status:      formValue(r, "status"),
		StartDate:   formValue(r, "start_date"),
		EndDate:     formValue(r, "end_date"),
	}

	adminID := middleware.GetUserID(r)
	project, err := h.projects.CreateProject(r.Context(), adminID, in)
	if err != nil {
		if fields, ok := validationErrors(err); ok {
			h.renderForm(w, r, http.StatusUnprocessableEntity, in, fields)
			return
		}
		logAndInternalError(w, "failed to create project", "error", err, "user_id", adminID)
		return
	}

	slog.Info("project created", "project_id", project.ID, "user_id", adminID)
	_ = h.events.LogProjectEvent(r.Context(), model.EventLevelInfo, "Project created", &adminID, util.ClientIP(r),
		map[string]any{"project_id": project.ID, "title": project.Title})

	flashSuccess(w, r, h.renderer, RouteAdminProjects, "Project created successfully.")
}

func (h *AdminProjectsHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	projectID, ok := formInt64(r, "project_id")
	if !ok {
		flashError(w, r, h.renderer, RouteAdminProjects, msgProjectNotFound)
		return
	}
	status := formValue(r, "status")

	if err := h.projects.UpdateProjectStatus(r.Context(), projectID, status); err != nil {
		flashServiceError(w, r, h.renderer, RouteAdminProjects, err, msgProjectNotFound, "project_id", projectID)
		return
	}

	adminID := middleware.GetUserID(r)
	slog.Info("project status updated", "project_id", projectID, "status", status, "user_id", adminID)
	_ = h.events.LogProjectEvent(r.Context(), model.EventLevelInfo, "Project status updated", &adminID, util.ClientIP(r),
		map[string]any{"project_id": projectID, "status": status})

	flashSuccess(w, r, h.renderer, RouteAdminProjects, "Project status updated.")
}

func (h *AdminProjectsHandler) delete(w http.ResponseWriter, r *http.Request) {
	projectID, ok := formInt64(r, "project_id")
	if !ok {
		flashError(w, r, h.renderer, RouteAdminProjects, msgProjectNotFound)
		return
	}

	if err := h.projects.DeleteProject(r.Context(), projectID); err != nil {
		flashServiceError(w, r, h.renderer, RouteAdminProjects, err, msgProjectNotFound, "project_id", projectID)
		return
	}

	adminID := middleware.GetUserID(r)
	slog.Info("project deleted", "project_id", projectID, "user_id", adminID)
	_ = h.events.LogProjectEvent(r.Context(), model.EventLevelWarning, "Project deleted", &adminID, util.ClientIP(r),
		map[string]any{"project_id": projectID})

	flashSuccess(w, r, h.renderer, RouteAdminProjects, "Project deleted successfully.")
}
