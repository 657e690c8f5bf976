// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines the closed domain vocabularies shared by the store,
// service and handler layers: user roles, project priorities and statuses,
// and event log levels and categories.
package model

import "fmt"

// Role is the access level of a user account.
type Role string

// User roles. Registration always produces RoleEmployee.
const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
)

// Roles lists every valid role in display order.
var Roles = []Role{RoleAdmin, RoleEmployee}

// ParseRole converts a stored or submitted value into a Role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleEmployee:
		return Role(s), nil
	default:
		return "", fmt.Errorf("invalid role %q", s)
	}
}

// IsAdmin returns true if the role grants access to the admin screens.
func (r Role) IsAdmin() bool {
	switch r {
	case RoleAdmin:
		return true
	case RoleEmployee:
		return false
	default:
		return false
	}
}

// Label returns the human readable role name.
func (r Role) Label() string {
	switch r {
	case RoleAdmin:
		return "Administrator"
	case RoleEmployee:
		return "Employee"
	default:
		return string(r)
	}
}

func (r Role) String() string {
	return string(r)
}
