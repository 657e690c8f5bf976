// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"github.com/alexedwards/scs/v2"
)

// CSRFTokenBytes is the entropy of a CSRF token (256 bits).
const CSRFTokenBytes = 32

// CSRFFieldName is the hidden form field carrying the token.
const CSRFFieldName = "csrf_token"

// CSRFHeaderName is accepted in place of the form field for scripted requests.
const CSRFHeaderName = "X-CSRF-Token"

// CSRFTokens issues and validates the synchroniser token stored in each session.
type CSRFTokens struct {
	sm *scs.SessionManager
}

// NewCSRFTokens creates a token manager over sm.
func NewCSRFTokens(sm *scs.SessionManager) *CSRFTokens {
	return &CSRFTokens{sm: sm}
}

// Issue returns the session's token, generating it on first use. The same
// value is returned for the rest of the session's life.
func (c *CSRFTokens) Issue(ctx context.Context) (string, error) {
	if token := c.sm.GetString(ctx, KeyCSRFToken); token != "" {
		return token, nil
	}

	b := make([]byte, CSRFTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating csrf token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(b)
	c.sm.Put(ctx, KeyCSRFToken, token)
	return token, nil
}

// Validate compares supplied with the session's token in constant time.
// It is false when either side is empty.
func (c *CSRFTokens) Validate(ctx context.Context, supplied string) bool {
	expected := c.sm.GetString(ctx, KeyCSRFToken)
	if expected == "" || supplied == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(supplied)) == 1
}
