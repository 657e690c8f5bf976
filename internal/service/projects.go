// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/lightsail-qbr/qbr/internal/model"
	"github.com/lightsail-qbr/qbr/internal/store"
	"github.com/lightsail-qbr/qbr/internal/util"
)

// Project field limits, in characters.
const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 10000
)

// ProjectService implements the admin project screens.
type ProjectService struct {
	db      *sql.DB
	queries *store.Queries
}

// NewProjectService creates a new ProjectService.
func NewProjectService(db *sql.DB) *ProjectService {
	return &ProjectService{
		db:      db,
		queries: store.New(db),
	}
}

// ProjectInput is the add-project form. Dates use the YYYY-MM-DD layout
// and may be empty.
type ProjectInput struct {
	Title       string
	Description string
	Priority    string
	Status      string
	StartDate   string
	EndDate     string
}

// CreateProject validates in and stores a project owned by adminID.
func (s *ProjectService) CreateProject(ctx context.Context, adminID int64, in ProjectInput) (store.Project, error) {
	verr := NewValidationError()

	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	switch n := utf8.RuneCountInString(title); {
	case n == 0:
		verr.Add("title", "Title is required")
	case n > MaxTitleLength:
		verr.Add("title", fmt.Sprintf("Title must be at most %d characters", MaxTitleLength))
	}
	switch n := utf8.RuneCountInString(description); {
	case n == 0:
		verr.Add("description", "Description is required")
	case n > MaxDescriptionLength:
		verr.Add("description", fmt.Sprintf("Description must be at most %d characters", MaxDescriptionLength))
	}

	priority, err := model.ParsePriority(strings.TrimSpace(in.Priority))
	if err != nil {
		verr.Add("priority", "Priority must be high, medium or low")
	}
	status, err := model.ParseStatus(strings.TrimSpace(in.Status))
	if err != nil {
		verr.Add("status", "Status is invalid")
	}

	start, err := util.ParseNullDate(in.StartDate)
	if err != nil {
		verr.Add("start_date", "Start date must be a valid date")
	}
	end, err := util.ParseNullDate(in.EndDate)
	if err != nil {
		verr.Add("end_date", "End date must be a valid date")
	}
	if start.Valid && end.Valid && end.Time.Before(start.Time) {
		verr.AddCause("end_date", ErrInvalidDateRange)
	}

	if err := verr.orNil(); err != nil {
		return store.Project{}, err
	}

	now := time.Now()
	project, err := s.queries.CreateProject(ctx, store.CreateProjectParams{
		Title:       title,
		Description: description,
		Priority:    string(priority),
		Status:      string(status),
		StartDate:   start,
		EndDate:     end,
		CreatedBy:   adminID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return store.Project{}, fmt.Errorf("creating project: %w", err)
	}
	return project, nil
}

// GetProject loads a project by id.
func (s *ProjectService) GetProject(ctx context.Context, id int64) (store.Project, error) {
	project, err := s.queries.GetProjectByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Project{}, ErrNotFound
	}
	if err != nil {
		return store.Project{}, fmt.Errorf("loading project %d: %w", id, err)
	}
	return project, nil
}

// ListProjectsWithStats returns all projects for the admin screen.
func (s *ProjectService) ListProjectsWithStats(ctx context.Context) ([]store.ListProjectsWithStatsRow, error) {
	rows, err := s.queries.ListProjectsWithStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	return rows, nil
}

// UpdateProjectStatus moves a project to any valid status.
func (s *ProjectService) UpdateProjectStatus(ctx context.Context, projectID int64, status string) error {
	st, err := model.ParseStatus(strings.TrimSpace(status))
	if err != nil {
		return invalid("status", "Status is invalid")
	}

	n, err := s.queries.UpdateProjectStatus(ctx, store.UpdateProjectStatusParams{
		Status:    string(st),
		UpdatedAt: time.Now(),
		ID:        projectID,
	})
	if err != nil {
		return fmt.Errorf("updating status of project %d: %w", projectID, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteProject removes a project with its votes and comments in one
// transaction.
func (s *ProjectService) DeleteProject(ctx context.Context, projectID int64) error {
	return store.ExecTx(ctx, s.db, func(q *store.Queries) error {
		if err := q.DeleteVotesByProject(ctx, projectID); err != nil {
			return fmt.Errorf("deleting votes of project %d: %w", projectID, err)
		}
		if err := q.DeleteCommentsByProject(ctx, projectID); err != nil {
			return fmt.Errorf("deleting comments of project %d: %w", projectID, err)
		}
		n, err := q.DeleteProject(ctx, projectID)
		if err != nil {
			return fmt.Errorf("deleting project %d: %w", projectID, err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}
