// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"errors"
	"strings"
)

// Domain errors returned by the services. Handlers map them to flash
// messages; none of them indicates a storage failure.
var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyVoted       = errors.New("you have already voted for this project")
	ErrSelfModification   = errors.New("you cannot change or delete your own account")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountInactive    = errors.New("account is deactivated")
	ErrInvalidDateRange   = errors.New("end date must be after start date")
)

// ValidationError collects per-field input problems. It may wrap a cause
// such as ErrInvalidDateRange so callers can test for it with errors.Is.
type ValidationError struct {
	Fields map[string]string
	order  []string
	cause  error
}

// NewValidationError returns an empty ValidationError.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

// Add records msg for field. The first message per field wins.
func (e *ValidationError) Add(field, msg string) {
	if _, ok := e.Fields[field]; ok {
		return
	}
	e.Fields[field] = msg
	e.order = append(e.order, field)
}

// AddCause records msg for field and remembers cause for errors.Is.
func (e *ValidationError) AddCause(field string, cause error) {
	e.Add(field, capitalize(cause.Error()))
	if e.cause == nil {
		e.cause = cause
	}
}

// HasErrors reports whether any field failed.
func (e *ValidationError) HasErrors() bool {
	return len(e.order) > 0
}

// Message returns the first recorded message, suitable for a flash.
func (e *ValidationError) Message() string {
	if len(e.order) == 0 {
		return ""
	}
	return e.Fields[e.order[0]]
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.order))
	for _, f := range e.order {
		msgs = append(msgs, e.Fields[f])
	}
	return strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() error {
	return e.cause
}

// orNil returns e when it holds errors and nil otherwise.
func (e *ValidationError) orNil() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

// invalid builds a single-field ValidationError.
func invalid(field, msg string) *ValidationError {
	e := NewValidationError()
	e.Add(field, msg)
	return e
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
