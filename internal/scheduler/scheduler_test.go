package scheduler

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/lightsail-qbr/qbr/internal/service"
	"github.com/lightsail-qbr/qbr/internal/store"
	"github.com/lightsail-qbr/qbr/internal/testutil"
)

func TestNew(t *testing.T) {
	logger := slog.Default()

	s := New(nil, time.Hour, logger)
	if s == nil {
		t.Fatal("New() returned nil")
	}
	if s.cron == nil {
		t.Error("New() scheduler has nil cron")
	}
	if s.logger != logger {
		t.Error("New() scheduler has wrong logger")
	}
}

func TestScheduler_StartStop(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	s := New(service.NewEventService(db), 24*time.Hour, testutil.TestLogger())
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if got := len(s.cron.Entries()); got != 1 {
		t.Errorf("entries = %d, want 1", got)
	}
	s.Stop()
}

func TestScheduler_AddJobInvalidSpec(t *testing.T) {
	s := New(nil, time.Hour, testutil.TestLogger())
	err := s.AddJob("not a cron spec", "broken", func(context.Context) error { return nil })
	if err == nil {
		t.Error("expected error for invalid spec")
	}
}

func TestPurgeOldEvents(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	ctx := context.Background()
	q := store.New(db)
	now := time.Now()
	for _, age := range []time.Duration{40 * 24 * time.Hour, time.Hour} {
		if _, err := q.CreateEvent(ctx, store.CreateEventParams{
			Level:     "info",
			Category:  "auth",
			Message:   "login",
			Metadata:  "{}",
			CreatedAt: now.Add(-age),
		}); err != nil {
			t.Fatalf("CreateEvent: %v", err)
		}
	}

	s := New(service.NewEventService(db), 30*24*time.Hour, testutil.TestLogger())
	if err := s.PurgeOldEvents(ctx); err != nil {
		t.Fatalf("PurgeOldEvents: %v", err)
	}

	events, err := q.ListRecentEvents(ctx, 10)
	if err != nil {
		t.Fatalf("ListRecentEvents: %v", err)
	}
	// The recent login plus the purge record itself.
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].Category != "system" {
		t.Errorf("newest event category = %q, want system", events[0].Category)
	}
}
