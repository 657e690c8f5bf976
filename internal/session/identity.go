// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"context"
	"fmt"

	"github.com/alexedwards/scs/v2"

	"github.com/lightsail-qbr/qbr/internal/model"
)

// Identity is the user bound to a session. The zero value is the anonymous
// identity.
type Identity struct {
	UserID   int64
	Username string
	Role     model.Role
	Email    string
}

// Anonymous is the identity of a request without a valid login.
var Anonymous = Identity{}

// IsAuthenticated reports whether the identity belongs to a logged-in user.
func (i Identity) IsAuthenticated() bool {
	return i.UserID > 0
}

// IsAdmin reports whether the identity may use the admin screens.
func (i Identity) IsAdmin() bool {
	return i.IsAuthenticated() && i.Role.IsAdmin()
}

// Identities binds and reads identities on scs sessions.
type Identities struct {
	sm *scs.SessionManager
}

// NewIdentities creates an identity manager over sm.
func NewIdentities(sm *scs.SessionManager) *Identities {
	return &Identities{sm: sm}
}

// SetIdentity binds id to the session after credentials have been verified.
// The session token is renewed and the anonymous CSRF token dropped, so
// neither pre-login token is accepted afterwards.
func (m *Identities) SetIdentity(ctx context.Context, id Identity) error {
	if err := m.sm.RenewToken(ctx); err != nil {
		return fmt.Errorf("renewing session token: %w", err)
	}
	m.sm.Remove(ctx, KeyCSRFToken)
	m.sm.Put(ctx, KeyUserID, id.UserID)
	m.sm.Put(ctx, KeyUsername, id.Username)
	m.sm.Put(ctx, KeyRole, string(id.Role))
	m.sm.Put(ctx, KeyEmail, id.Email)
	return nil
}

// UpdateRole rewrites the role of the bound identity, used when an admin
// changes a role while the user is logged in.
func (m *Identities) UpdateRole(ctx context.Context, role model.Role) {
	m.sm.Put(ctx, KeyRole, string(role))
}

// UpdateEmail rewrites the email of the bound identity after a profile edit.
func (m *Identities) UpdateEmail(ctx context.Context, email string) {
	m.sm.Put(ctx, KeyEmail, email)
}

// Current returns the identity bound to the session. Missing, expired or
// inconsistent session data yields Anonymous rather than an error.
func (m *Identities) Current(ctx context.Context) Identity {
	userID := m.sm.GetInt64(ctx, KeyUserID)
	if userID <= 0 {
		return Anonymous
	}
	role, err := model.ParseRole(m.sm.GetString(ctx, KeyRole))
	if err != nil {
		return Anonymous
	}
	return Identity{
		UserID:   userID,
		Username: m.sm.GetString(ctx, KeyUsername),
		Role:     role,
		Email:    m.sm.GetString(ctx, KeyEmail),
	}
}

// Destroy ends the session and discards all bound state, including the
// CSRF token.
func (m *Identities) Destroy(ctx context.Context) error {
	return m.sm.Destroy(ctx)
}
