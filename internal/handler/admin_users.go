// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/lightsail-qbr/qbr/internal/middleware"
	"github.com/lightsail-qbr/qbr/internal/model"
	"github.com/lightsail-qbr/qbr/internal/render"
	"github.com/lightsail-qbr/qbr/internal/service"
	"github.com/lightsail-qbr/qbr/internal/store"
	"github.com/lightsail-qbr/qbr/internal/util"
)

const msgUserNotFound = "User not found"

// usersPage is the data of the admin user list.
type usersPage struct {
	Users []store.ListUsersWithStatsRow
}

// AdminUsersHandler serves the admin user screens.
type AdminUsersHandler struct {
	users    *service.UserService
	events   *service.EventService
	renderer *render.Renderer
}

// NewAdminUsersHandler creates a new AdminUsersHandler.
func NewAdminUsersHandler(db *sql.DB, renderer *render.Renderer) *AdminUsersHandler {
	return &AdminUsersHandler{
		users:    service.NewUserService(db),
		events:   service.NewEventService(db),
		renderer: renderer,
	}
}

// List handles GET /admin/users.
func (h *AdminUsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsersWithStats(r.Context())
	if err != nil {
		logAndInternalError(w, "failed to list users", "error", err)
		return
	}
	renderPage(w, r, h.renderer, http.StatusOK, "admin/users", render.TemplateData{
		Title: "Manage Users",
		Data:  usersPage{Users: users},
	})
}

// Post handles POST /admin/users with action=update_role, set_active or delete.
func (h *AdminUsersHandler) Post(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, RouteAdminUsers) {
		return
	}

	targetID, ok := formInt64(r, "user_id")
	if !ok {
		flashError(w, r, h.renderer, RouteAdminUsers, msgUserNotFound)
		return
	}

	switch r.FormValue("action") {
	case "update_role":
		h.updateRole(w, r, targetID)
	case "set_active":
		h.setActive(w, r, targetID)
	case "delete":
		h.delete(w, r, targetID)
	default:
		flashError(w, r, h.renderer, RouteAdminUsers, "Invalid action")
	}
}

func (h *AdminUsersHandler) updateRole(w http.ResponseWriter, r *http.Request, targetID int64) {
	actingID := middleware.GetUserID(r)
	role := formValue(r, "role")

	err := h.users.UpdateUserRole(r.Context(), actingID, targetID, role)
	if errors.Is(err, service.ErrSelfModification) {
		flashError(w, r, h.renderer, RouteAdminUsers, "You cannot change your own role.")
		return
	}
	if err != nil {
		flashServiceError(w, r, h.renderer, RouteAdminUsers, err, msgUserNotFound, "target_user_id", targetID)
		return
	}

	slog.Info("user role changed", "target_user_id", targetID, "role", role, "user_id", actingID)
	_ = h.events.LogUserEvent(r.Context(), model.EventLevelInfo, "User role changed", &actingID, util.ClientIP(r),
		map[string]any{"target_user_id": targetID, "role": role})

	flashSuccess(w, r, h.renderer, RouteAdminUsers, "User role updated.")
}

func (h *AdminUsersHandler) setActive(w http.ResponseWriter, r *http.Request, targetID int64) {
	actingID := middleware.GetUserID(r)

	active, err := strconv.ParseBool(r.FormValue("active"))
	if err != nil {
		flashError(w, r, h.renderer, RouteAdminUsers, "Invalid form data")
		return
	}

	err = h.users.SetUserActive(r.Context(), actingID, targetID, active)
	if errors.Is(err, service.ErrSelfModification) {
		flashError(w, r, h.renderer, RouteAdminUsers, "You cannot deactivate your own account.")
		return
	}
	if err != nil {
		flashServiceError(w, r, h.renderer, RouteAdminUsers, err, msgUserNotFound, "target_user_id", targetID)
		return
	}

	msg, message := "User deactivated", "User deactivated."
	if active {
		msg, message = "User activated", "User activated."
	}
	slog.Info(msg, "target_user_id", targetID, "user_id", actingID)
	_ = h.events.LogUserEvent(r.Context(), model.EventLevelInfo, msg, &actingID, util.ClientIP(r),
		map[string]any{"target_user_id": targetID, "active": active})

	flashSuccess(w, r, h.renderer, RouteAdminUsers, message)
}

func (h *AdminUsersHandler) delete(w http.ResponseWriter, r *http.Request, targetID int64) {
	actingID := middleware.GetUserID(r)

	err := h.users.DeleteUser(r.Context(), actingID, targetID)
	if errors.Is(err, service.ErrSelfModification) {
		flashError(w, r, h.renderer, RouteAdminUsers, "You cannot delete your own account.")
		return
	}
	if err != nil {
		flashServiceError(w, r, h.renderer, RouteAdminUsers, err, msgUserNotFound, "target_user_id", targetID)
		return
	}

	slog.Info("user deleted", "target_user_id", targetID, "user_id", actingID)
	_ = h.events.LogUserEvent(r.Context(), model.EventLevelWarning, "User deleted", &actingID, util.ClientIP(r),
		map[string]any{"target_user_id": targetID})

	flashSuccess(w, r, h.renderer, RouteAdminUsers, "User deleted. Their projects were reassigned to you.")
}
