package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/lightsail-qbr/qbr/internal/middleware"
	"github.com/lightsail-qbr/qbr/internal/model"
	"github.com/lightsail-qbr/qbr/internal/render"
	"github.com/lightsail-qbr/qbr/internal/service"
	"github.com/lightsail-qbr/qbr/internal/session"
	"github.com/lightsail-qbr/qbr/internal/store"
	"github.com/lightsail-qbr/qbr/internal/util"
)

// profilePage is the data of the profile form.
type profilePage struct {
	User   store.User
	Form   service.ProfileInput
	Errors map[string]string
}

// ProfileHandler lets users edit their own contact details and password.
type ProfileHandler struct {
	users      *service.UserService
	events     *service.EventService
	renderer   *render.Renderer
	identities *session.Identities
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(db *sql.DB, renderer *render.Renderer, ids *session.Identities) *ProfileHandler {
	return &ProfileHandler{
		users:      service.NewUserService(db),
		events:     service.NewEventService(db),
		renderer:   renderer,
		identities: ids,
	}
}

// currentUser returns the user loaded by middleware.LoadUser, falling back
// to a lookup by session id.
func (h *ProfileHandler) currentUser(r *http.Request) (store.User, error) {
	if u := middleware.GetUser(r); u != nil {
		return *u, nil
	}
	return h.users.GetUser(r.Context(), middleware.GetUserID(r))
}

// Show handles GET /profile.
func (h *ProfileHandler) Show(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if errors.Is(err, service.ErrNotFound) {
		http.Redirect(w, r, RouteLogin, http.StatusSeeOther)
		return
	}
	if err != nil {
		logAndInternalError(w, "failed to load profile", "error", err, "user_id", middleware.GetUserID(r))
		return
	}

	renderPage(w, r, h.renderer, http.StatusOK, "pages/profile", render.TemplateData{
		Title: "My Profile",
		Data: profilePage{
			User: user,
			Form: service.ProfileInput{Email: user.Email, FullName: user.FullName, Department: user.Department},
		},
	})
}

// Update handles POST /profile.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, RouteProfile) {
		return
	}

	user, err := h.currentUser(r)
	if err != nil {
		logAndInternalError(w, "failed to load profile", "error", err, "user_id", middleware.GetUserID(r))
		return
	}

	in := service.ProfileInput{
		Email:           formValue(r, "email"),
		FullName:        formValue(r, "full_name"),
		Department:      formValue(r, "department"),
		NewPassword:     r.FormValue("new_password"),
		ConfirmPassword: r.FormValue("confirm_password"),
	}

	updated, err := h.users.UpdateProfile(r.Context(), user.ID, in)
	if err != nil {
		if fields, ok := validationErrors(err); ok {
			in.NewPassword, in.ConfirmPassword = "", ""
			renderPage(w, r, h.renderer, http.StatusUnprocessableEntity, "pages/profile", render.TemplateData{
				Title: "My Profile",
				Data:  profilePage{User: user, Form: in, Errors: fields},
			})
			return
		}
		logAndInternalError(w, "failed to update profile", "error", err, "user_id", user.ID)
		return
	}

	h.identities.UpdateEmail(r.Context(), updated.Email)

	meta := map[string]any{"password_changed": in.NewPassword != ""}
	if updated.Email != user.Email {
		meta["email_changed"] = true
	}
	slog.Info("profile updated", "user_id", user.ID)
	_ = h.events.LogUserEvent(r.Context(), model.EventLevelInfo, "Profile updated", &user.ID, util.ClientIP(r), meta)

	flashSuccess(w, r, h.renderer, RouteProfile, "Profile updated successfully.")
}
