// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service holds the QBR business rules: account management, the
// vote and comment engine, admin project and user mutations, and the audit
// event log. Services return domain errors from errors.go and wrap storage
// failures.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"maps"
	"sync/atomic"
	"time"

	"github.com/mileusna/useragent"

	"github.com/lightsail-qbr/qbr/internal/logging"
	"github.com/lightsail-qbr/qbr/internal/model"
	"github.com/lightsail-qbr/qbr/internal/store"
	"github.com/lightsail-qbr/qbr/internal/util"
)

// CountryResolver maps a client IP address to an ISO country code.
type CountryResolver interface {
	LookupCountry(ip string) string
}

type resolverHolder struct{ CountryResolver }

var countryResolver atomic.Pointer[resolverHolder]

// SetCountryResolver installs the resolver used to add a "country" entry to
// the metadata of events that carry an IP address. Nil disables it.
func SetCountryResolver(r CountryResolver) {
	if r == nil {
		countryResolver.Store(nil)
		return
	}
	countryResolver.Store(&resolverHolder{r})
}

// withCountry returns metadata extended with the client country, if known.
// The caller's map is never modified.
func withCountry(ipAddress string, metadata map[string]any) map[string]any {
	h := countryResolver.Load()
	if h == nil || ipAddress == "" {
		return metadata
	}
	country := h.LookupCountry(ipAddress)
	if country == "" {
		return metadata
	}
	out := make(map[string]any, len(metadata)+1)
	maps.Copy(out, metadata)
	out["country"] = country
	return out
}

// EventService writes audit events.
type EventService struct {
	queries *store.Queries
}

// NewEventService creates a new EventService.
func NewEventService(db *sql.DB) *EventService {
	return &EventService{
		queries: store.New(db),
	}
}

// LogEvent creates a new event log entry.
func (s *EventService) LogEvent(ctx context.Context, level, category, message string, userID *int64, ipAddress string, metadata map[string]any) error {
	metadata = withCountry(ipAddress, metadata)
	metadataJSON := "{}"
	if metadata != nil {
		jsonBytes, err := json.Marshal(metadata)
		if err == nil {
			metadataJSON = string(jsonBytes)
		}
	}

	_, err := s.queries.CreateEvent(ctx, store.CreateEventParams{
		Level:     level,
		Category:  category,
		Message:   message,
		UserID:    util.NullInt64FromPtr(userID),
		Metadata:  metadataJSON,
		IpAddress: ipAddress,
		CreatedAt: time.Now(),
	})
	if err != nil {
		slog.Error("failed to record event",
			"error", err,
			"category", category,
			"event_level", level,
			"event", message,
			logging.SkipEventLog(),
		)
		return err
	}

	return nil
}

// LogAuthEvent logs an authentication-related event.
func (s *EventService) LogAuthEvent(ctx context.Context, level, message string, userID *int64, ipAddress string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategoryAuth, message, userID, ipAddress, metadata)
}

// LogUserEvent logs a user-related event.
func (s *EventService) LogUserEvent(ctx context.Context, level, message string, userID *int64, ipAddress string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategoryUser, message, userID, ipAddress, metadata)
}

// LogProjectEvent logs a project-related event.
func (s *EventService) LogProjectEvent(ctx context.Context, level, message string, userID *int64, ipAddress string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategoryProject, message, userID, ipAddress, metadata)
}

// LogSecurityEvent logs a rejected or suspicious request.
func (s *EventService) LogSecurityEvent(ctx context.Context, level, message string, userID *int64, ipAddress string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategorySecurity, message, userID, ipAddress, metadata)
}

// LogImportEvent logs a legacy import run.
func (s *EventService) LogImportEvent(ctx context.Context, level, message string, userID *int64, ipAddress string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategoryImport, message, userID, ipAddress, metadata)
}

// ListRecent returns the newest events with the acting username resolved.
func (s *EventService) ListRecent(ctx context.Context, limit int64) ([]store.ListRecentEventsRow, error) {
	return s.queries.ListRecentEvents(ctx, limit)
}

// DeleteOldEvents removes events older than the specified duration.
func (s *EventService) DeleteOldEvents(ctx context.Context, olderThan time.Duration) error {
	cutoff := time.Now().Add(-olderThan)
	return s.queries.DeleteOldEvents(ctx, cutoff)
}

// ClientMetadata describes the client of a request for event metadata.
// Unknown fields are omitted.
func ClientMetadata(userAgent string) map[string]any {
	meta := map[string]any{}
	if userAgent == "" {
		return meta
	}

	ua := useragent.Parse(userAgent)
	if ua.Name != "" {
		meta["browser"] = ua.Name
	}
	if ua.OS != "" {
		meta["os"] = ua.OS
	}
	switch {
	case ua.Bot:
		meta["device"] = "bot"
	case ua.Mobile:
		meta["device"] = "mobile"
	case ua.Tablet:
		meta["device"] = "tablet"
	case ua.Desktop:
		meta["device"] = "desktop"
	}
	return meta
}
