// Package logging provides a slog handler that persists warnings and errors
// to the QBR audit event log alongside normal log output.
package logging

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"slices"
	"strings"
	"unicode"

	"github.com/lightsail-qbr/qbr/internal/model"
	"github.com/lightsail-qbr/qbr/internal/store"
)

// Attribute keys with special meaning for the event log.
const (
	AttrCategory = "category"
	AttrUserID   = "user_id"
	AttrIP       = "ip"

	// AttrSkipEventLog marks a record that must only reach the inner
	// handler, such as a report that the events table cannot be written.
	AttrSkipEventLog = "skip_event_log"
)

// SkipEventLog returns the attribute that keeps a record out of the event log.
func SkipEventLog() slog.Attr {
	return slog.Bool(AttrSkipEventLog, true)
}

// redactedKeys never reach the event log.
var redactedKeys = map[string]bool{
	"password":      true,
	"password_hash": true,
	"csrf_token":    true,
	"token":         true,
}

// EventLogHandler is a slog.Handler that wraps another handler and also writes
// records at or above its level to the events table.
type EventLogHandler struct {
	inner   slog.Handler
	queries *store.Queries
	level   slog.Level
	attrs   []slog.Attr
}

// NewEventLogHandler wraps inner and forwards WARN and above to the event log.
func NewEventLogHandler(inner slog.Handler, db *sql.DB) *EventLogHandler {
	return NewEventLogHandlerWithLevel(inner, db, slog.LevelWarn)
}

// NewEventLogHandlerWithLevel creates a new EventLogHandler with a custom minimum level.
func NewEventLogHandlerWithLevel(inner slog.Handler, db *sql.DB, level slog.Level) *EventLogHandler {
	return &EventLogHandler{
		inner:   inner,
		queries: store.New(db),
		level:   level,
	}
}

// Enabled implements slog.Handler.
func (h *EventLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *EventLogHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}

	if r.Level >= h.level && !skipsEventLog(r) {
		h.writeToEventLog(r)
	}

	return nil
}

// WithAttrs implements slog.Handler.
func (h *EventLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &EventLogHandler{
		inner:   h.inner.WithAttrs(attrs),
		queries: h.queries,
		level:   h.level,
		attrs:   merged,
	}
}

// WithGroup implements slog.Handler. Grouped attributes are flattened in
// the event metadata.
func (h *EventLogHandler) WithGroup(name string) slog.Handler {
	return &EventLogHandler{
		inner:   h.inner.WithGroup(name),
		queries: h.queries,
		level:   h.level,
		attrs:   h.attrs,
	}
}

// writeToEventLog writes a log record to the events table. Failures are
// dropped: logging them would recurse into this handler.
func (h *EventLogHandler) writeToEventLog(r slog.Record) {
	var (
		category string
		userID   sql.NullInt64
		ip       string
		meta     = map[string]string{}
	)

	collect := func(a slog.Attr) bool {
		switch {
		case a.Key == AttrCategory:
			category = a.Value.String()
		case a.Key == AttrUserID && a.Value.Kind() == slog.KindInt64:
			userID = sql.NullInt64{Int64: a.Value.Int64(), Valid: true}
		case a.Key == AttrIP:
			ip = a.Value.String()
		case a.Key == AttrSkipEventLog:
		case redactedKeys[strings.ToLower(a.Key)]:
			meta[a.Key] = "[redacted]"
		default:
			meta[a.Key] = a.Value.Resolve().String()
		}
		return true
	}
	for _, a := range h.attrs {
		collect(a)
	}
	r.Attrs(collect)

	if category == "" {
		category = inferCategory(r.Message)
	}

	metadata := "{}"
	if len(meta) > 0 {
		if b, err := json.Marshal(meta); err == nil {
			metadata = string(b)
		}
	}

	// Background context: the event must be written even if the request was cancelled.
	_, _ = h.queries.CreateEvent(context.Background(), store.CreateEventParams{
		Level:     eventLevel(r.Level),
		Category:  category,
		Message:   r.Message,
		UserID:    userID,
		Metadata:  metadata,
		IpAddress: ip,
		CreatedAt: r.Time,
	})
}

func skipsEventLog(r slog.Record) bool {
	skip := false
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == AttrSkipEventLog && a.Value.Kind() == slog.KindBool && a.Value.Bool() {
			skip = true
			return false
		}
		return true
	})
	return skip
}

// eventLevel converts a slog.Level to an event level.
func eventLevel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return model.EventLevelError
	case level >= slog.LevelWarn:
		return model.EventLevelWarning
	default:
		return model.EventLevelInfo
	}
}

// inferCategory guesses a category from the message when the record does
// not carry one.
func inferCategory(message string) string {
	msg := strings.ToLower(message)
	switch {
	case strings.Contains(msg, "csrf") || strings.Contains(msg, "denied") ||
		strings.Contains(msg, "rate limit") || hasWord(msg, "locked", "lockout"):
		return model.EventCategorySecurity
	case strings.Contains(msg, "auth") || strings.Contains(msg, "login") || strings.Contains(msg, "logout"):
		return model.EventCategoryAuth
	case strings.Contains(msg, "project") || strings.Contains(msg, "vote") || strings.Contains(msg, "comment"):
		return model.EventCategoryProject
	case strings.Contains(msg, "user"):
		return model.EventCategoryUser
	case strings.Contains(msg, "import"):
		return model.EventCategoryImport
	default:
		return model.EventCategorySystem
	}
}

// hasWord reports whether msg contains any of words as a whole word, so
// "locked" does not match "blocked".
func hasWord(msg string, words ...string) bool {
	for _, field := range strings.FieldsFunc(msg, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if slices.Contains(words, field) {
			return true
		}
	}
	return false
}
