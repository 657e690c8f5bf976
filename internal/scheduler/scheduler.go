// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs periodic maintenance jobs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/lightsail-qbr/qbr/internal/model"
	"github.com/lightsail-qbr/qbr/internal/service"
)

// RetentionSchedule runs the audit log cleanup daily at 03:15.
const RetentionSchedule = "15 3 * * *"

// jobTimeout bounds a single job run.
const jobTimeout = 5 * time.Minute

// Scheduler handles periodic jobs such as audit log retention.
type Scheduler struct {
	events    *service.EventService
	retention time.Duration
	cron      *cron.Cron
	logger    *slog.Logger
}

// New creates a new scheduler. events may be nil, in which case no
// retention job is registered.
func New(events *service.EventService, retention time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		events:    events,
		retention: retention,
		cron:      cron.New(),
		logger:    logger,
	}
}

// AddJob registers fn under a standard five-field cron spec. Errors
// returned by fn are logged with the job name.
func (s *Scheduler) AddJob(spec, name string, fn func(ctx context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			s.logger.Error("scheduled job failed", "job", name, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("scheduling %s: %w", name, err)
	}
	return nil
}

// Start registers the built-in jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	if s.events != nil {
		if err := s.AddJob(RetentionSchedule, "event-retention", s.PurgeOldEvents); err != nil {
			return err
		}
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
	return nil
}

// Stop gracefully stops the scheduler, waiting for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// PurgeOldEvents deletes audit events older than the retention period and
// records the run as a system event.
func (s *Scheduler) PurgeOldEvents(ctx context.Context) error {
	if err := s.events.DeleteOldEvents(ctx, s.retention); err != nil {
		return fmt.Errorf("deleting old events: %w", err)
	}

	s.logger.Info("purged old events", "retention", s.retention)
	_ = s.events.LogEvent(ctx, model.EventLevelInfo, model.EventCategorySystem,
		"Old events purged by scheduler", nil, "", map[string]any{
			"retention_days": int(s.retention.Hours() / 24),
		})
	return nil
}
