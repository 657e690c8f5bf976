// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestUsernameKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "lowercase stays", input: "alice", expected: "alice"},
		{name: "uppercase folds", input: "ALICE", expected: "alice"},
		{name: "surrounding spaces trimmed", input: "  Bob  ", expected: "bob"},
		{name: "fullwidth letters normalised", input: "ＡＢＣ", expected: "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UsernameKey(tt.input); got != tt.expected {
				t.Errorf("UsernameKey(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"alice", false},
		{"j.doe_99", false},
		{"ab", true},
		{"", true},
		{"has space", true},
		{"semi;colon", true},
		{"abcdefghijklmnopqrstuvwxyz0123456", true},
	}

	for _, tt := range tests {
		err := ValidateUsername(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateUsername(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
	}
}

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "plain", input: "user@example.com", want: "user@example.com"},
		{name: "trimmed", input: "  user@example.com ", want: "user@example.com"},
		{name: "keeps casing", input: "User@Example.com", want: "User@Example.com"},
		{name: "empty", input: "", wantErr: true},
		{name: "missing at", input: "user.example.com", wantErr: true},
		{name: "display name rejected", input: "Bob <bob@example.com>", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeEmail(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NormalizeEmail(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("NormalizeEmail(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}

	if EmailKey("User@Example.COM") != EmailKey("user@example.com") {
		t.Error("EmailKey should be case-insensitive")
	}
}

func TestParseNullDate(t *testing.T) {
	got, err := ParseNullDate("")
	if err != nil || got.Valid {
		t.Errorf("ParseNullDate(\"\") = %v, %v; want invalid, nil", got, err)
	}

	got, err = ParseNullDate("2025-03-01")
	if err != nil {
		t.Fatalf("ParseNullDate: %v", err)
	}
	want := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	if !got.Valid || !got.Time.Equal(want) {
		t.Errorf("ParseNullDate = %v, want %v", got.Time, want)
	}
	if FormatNullDate(got) != "2025-03-01" {
		t.Errorf("FormatNullDate = %q", FormatNullDate(got))
	}

	if _, err := ParseNullDate("03/01/2025"); err == nil {
		t.Error("expected error for non-ISO date")
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "192.0.2.1:1234"
	if got := ClientIP(r); got != "192.0.2.1" {
		t.Errorf("ClientIP = %q, want 192.0.2.1", got)
	}

	r.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	if got := ClientIP(r); got != "203.0.113.5" {
		t.Errorf("ClientIP = %q, want 203.0.113.5", got)
	}

	r.Header.Set("X-Real-IP", "198.51.100.7")
	if got := ClientIP(r); got != "198.51.100.7" {
		t.Errorf("ClientIP = %q, want 198.51.100.7", got)
	}
}
