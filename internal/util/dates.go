// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the format used by HTML date inputs.
const DateLayout = "2006-01-02"

// ParseNullDate parses an optional YYYY-MM-DD form value. An empty value
// yields an invalid NullTime; dates are normalised to midnight UTC.
func ParseNullDate(s string) (sql.NullTime, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return sql.NullTime{}, nil
	}
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return sql.NullTime{}, fmt.Errorf("invalid date %q", s)
	}
	return sql.NullTime{Time: t, Valid: true}, nil
}

// FormatNullDate renders a NullTime for a date input, or "" when unset.
func FormatNullDate(t sql.NullTime) string {
	if !t.Valid {
		return ""
	}
	return t.Time.UTC().Format(DateLayout)
}

// NullInt64FromPtr converts a pointer to int64 to sql.NullInt64.
func NullInt64FromPtr(ptr *int64) sql.NullInt64 {
	if ptr == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *ptr, Valid: true}
}
