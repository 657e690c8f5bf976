// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/lightsail-qbr/qbr/internal/store"
)

// MaxCommentLength is the longest accepted comment, in characters.
const MaxCommentLength = 2000

// VotingService implements the per-user vote and comment rules on projects.
// A user votes at most once per project and votes cannot be withdrawn;
// comments are append-only.
type VotingService struct {
	db      *sql.DB
	queries *store.Queries
	strip   *bluemonday.Policy
}

// NewVotingService creates a new VotingService.
func NewVotingService(db *sql.DB) *VotingService {
	return &VotingService{
		db:      db,
		queries: store.New(db),
		strip:   bluemonday.StrictPolicy(),
	}
}

// ProjectDetail is the project page as seen by one viewer.
type ProjectDetail struct {
	Project   store.GetProjectDetailRow
	Comments  []store.ListCommentsForProjectRow
	UserVoted bool
}

// Vote records userID's vote for projectID. A repeated vote is a no-op that
// returns ErrAlreadyVoted; uniqueness is enforced by the votes table.
func (s *VotingService) Vote(ctx context.Context, projectID, userID int64) error {
	return store.ExecTx(ctx, s.db, func(q *store.Queries) error {
		if _, err := q.GetProjectByID(ctx, projectID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("loading project %d: %w", projectID, err)
		}

		n, err := q.CreateVote(ctx, store.CreateVoteParams{
			ProjectID: projectID,
			UserID:    userID,
			CreatedAt: time.Now(),
		})
		if err != nil {
			return fmt.Errorf("recording vote: %w", err)
		}
		if n == 0 {
			return ErrAlreadyVoted
		}
		return nil
	})
}

// cleanComment strips markup and surrounding whitespace. The result is
// plain text; templates escape it on output.
func (s *VotingService) cleanComment(text string) string {
	return strings.TrimSpace(html.UnescapeString(s.strip.Sanitize(strings.TrimSpace(text))))
}

// Comment appends a comment by userID to projectID.
func (s *VotingService) Comment(ctx context.Context, projectID, userID int64, text string) (store.Comment, error) {
	text = s.cleanComment(text)
	switch n := utf8.RuneCountInString(text); {
	case n == 0:
		return store.Comment{}, invalid("comment", "Comment cannot be empty")
	case n > MaxCommentLength:
		return store.Comment{}, invalid("comment", fmt.Sprintf("Comment must be at most %d characters", MaxCommentLength))
	}

	var comment store.Comment
	err := store.ExecTx(ctx, s.db, func(q *store.Queries) error {
		if _, err := q.GetProjectByID(ctx, projectID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("loading project %d: %w", projectID, err)
		}

		var err error
		comment, err = q.CreateComment(ctx, store.CreateCommentParams{
			ProjectID:   projectID,
			UserID:      userID,
			CommentText: text,
			CreatedAt:   time.Now(),
		})
		if err != nil {
			return fmt.Errorf("adding comment: %w", err)
		}
		return nil
	})
	return comment, err
}

// ProjectDetail loads a project with its counts, comments (newest first)
// and whether viewerID has voted.
func (s *VotingService) ProjectDetail(ctx context.Context, projectID, viewerID int64) (ProjectDetail, error) {
	row, err := s.queries.GetProjectDetail(ctx, store.GetProjectDetailParams{
		ViewerID: viewerID,
		ID:       projectID,
	})
	if errors.Is(err, sql.ErrNoRows) {
		return ProjectDetail{}, ErrNotFound
	}
	if err != nil {
		return ProjectDetail{}, fmt.Errorf("loading project %d: %w", projectID, err)
	}

	comments, err := s.queries.ListCommentsForProject(ctx, projectID)
	if err != nil {
		return ProjectDetail{}, fmt.Errorf("loading comments for project %d: %w", projectID, err)
	}

	return ProjectDetail{
		Project:   row,
		Comments:  comments,
		UserVoted: row.UserVoted != 0,
	}, nil
}

// ListProjects returns all projects newest first with vote and comment counts.
func (s *VotingService) ListProjects(ctx context.Context) ([]store.ListProjectsWithStatsRow, error) {
	rows, err := s.queries.ListProjectsWithStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	return rows, nil
}
