// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package util provides small helpers shared across packages: identity
// canonicalisation with Unicode normalisation, date parsing for form input
// and client address extraction.
package util

import (
	"errors"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Username length limits, in characters.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 32
	MaxEmailLength    = 254
)

var usernameRegex = regexp.MustCompile(`^[\p{L}\p{N}._-]+$`)

// NormalizeUsername trims and NFKC-normalises a username for display and storage.
func NormalizeUsername(s string) string {
	return norm.NFKC.String(strings.TrimSpace(s))
}

// UsernameKey returns the case-folded form used for uniqueness checks, so
// "Alice" and "ALICE" collide.
func UsernameKey(s string) string {
	return cases.Fold().String(NormalizeUsername(s))
}

// ValidateUsername checks a normalised username against the allowed
// length and character set.
func ValidateUsername(s string) error {
	n := utf8.RuneCountInString(s)
	switch {
	case n == 0:
		return errors.New("username is required")
	case n < MinUsernameLength:
		return errors.New("username must be at least 3 characters")
	case n > MaxUsernameLength:
		return errors.New("username must be at most 32 characters")
	case !usernameRegex.MatchString(s):
		return errors.New("username may only contain letters, digits, dots, underscores and hyphens")
	}
	return nil
}

// NormalizeEmail trims the address and validates it. The returned address
// keeps the user's casing.
func NormalizeEmail(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errors.New("email is required")
	}
	if len(s) > MaxEmailLength {
		return "", errors.New("email is too long")
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return "", errors.New("invalid email address")
	}
	return addr.Address, nil
}

// EmailKey returns the lower-cased form used for uniqueness checks.
func EmailKey(s string) string {
	return cases.Fold().String(norm.NFKC.String(strings.TrimSpace(s)))
}
