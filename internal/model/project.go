// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "fmt"

// Priority ranks a project for quarterly review.
type Priority string

// Project priorities.
const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Priorities lists every valid priority, highest first.
var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

// ParsePriority converts a stored or submitted value into a Priority.
func ParsePriority(s string) (Priority, error) {
	switch Priority(s) {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return Priority(s), nil
	default:
		return "", fmt.Errorf("invalid priority %q", s)
	}
}

// Label returns the capitalised priority name.
func (p Priority) Label() string {
	switch p {
	case PriorityHigh:
		return "High"
	case PriorityMedium:
		return "Medium"
	case PriorityLow:
		return "Low"
	default:
		return string(p)
	}
}

func (p Priority) String() string {
	return string(p)
}

// Status is the lifecycle state of a project. Admins may move a project
// between any two statuses.
type Status string

// Project statuses. The values are stored verbatim.
const (
	StatusPlanning   Status = "Planning"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
	StatusOnHold     Status = "On Hold"
)

// Statuses lists every valid status in workflow order.
var Statuses = []Status{StatusPlanning, StatusInProgress, StatusCompleted, StatusOnHold}

// ParseStatus converts a stored or submitted value into a Status.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPlanning, StatusInProgress, StatusCompleted, StatusOnHold:
		return Status(s), nil
	default:
		return "", fmt.Errorf("invalid status %q", s)
	}
}

// Slug returns a CSS-friendly form of the status, e.g. "in-progress".
func (s Status) Slug() string {
	switch s {
	case StatusPlanning:
		return "planning"
	case StatusInProgress:
		return "in-progress"
	case StatusCompleted:
		return "completed"
	case StatusOnHold:
		return "on-hold"
	default:
		return "unknown"
	}
}

func (s Status) String() string {
	return string(s)
}
