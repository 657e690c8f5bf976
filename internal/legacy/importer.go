// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package legacy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lightsail-qbr/qbr/internal/auth"
	"github.com/lightsail-qbr/qbr/internal/model"
	"github.com/lightsail-qbr/qbr/internal/service"
	"github.com/lightsail-qbr/qbr/internal/store"
	"github.com/lightsail-qbr/qbr/internal/util"
)

// errDryRun rolls back a dry run after every step has been applied.
var errDryRun = errors.New("dry run")

// ImportOptions controls an import run.
type ImportOptions struct {
	// DryRun performs the whole import inside one transaction and rolls it back.
	DryRun bool
	// FallbackOwnerID owns projects whose legacy creator was not imported.
	// Zero selects the first administrator in the target database.
	FallbackOwnerID int64
}

// ImportResult contains the results of an import run.
type ImportResult struct {
	RunID  string
	DryRun bool

	UsersImported    int
	ProjectsImported int
	VotesImported    int
	CommentsImported int

	UsersSkipped    int
	ProjectsSkipped int
	VotesSkipped    int
	CommentsSkipped int

	Errors []string
}

// TotalImported returns the total number of rows imported.
func (r *ImportResult) TotalImported() int {
	return r.UsersImported + r.ProjectsImported + r.VotesImported + r.CommentsImported
}

// TotalSkipped returns the total number of rows skipped.
func (r *ImportResult) TotalSkipped() int {
	return r.UsersSkipped + r.ProjectsSkipped + r.VotesSkipped + r.CommentsSkipped
}

// HasErrors returns true if any row was skipped with a reported problem.
func (r *ImportResult) HasErrors() bool {
	return len(r.Errors) > 0
}

func (r *ImportResult) addError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Importer copies legacy rows into the QBR store.
type Importer struct {
	db     *sql.DB
	events *service.EventService
	now    func() time.Time
}

// NewImporter creates an Importer writing to db.
func NewImporter(db *sql.DB) *Importer {
	return &Importer{
		db:     db,
		events: service.NewEventService(db),
		now:    time.Now,
	}
}

// idMaps translates legacy ids into ids of the target database.
type idMaps struct {
	users    map[int64]int64
	projects map[int64]int64
}

// Import reads every legacy table from src and writes it into the store.
// Each entity kind is committed in its own transaction, in dependency order.
func (im *Importer) Import(ctx context.Context, src Source, opts ImportOptions) (*ImportResult, error) {
	result := &ImportResult{RunID: uuid.NewString(), DryRun: opts.DryRun}
	logger := slog.With("run_id", result.RunID)

	users, err := src.Users(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading users: %w", err)
	}
	projects, err := src.Projects(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading projects: %w", err)
	}
	votes, err := src.Votes(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading votes: %w", err)
	}
	comments, err := src.Comments(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading comments: %w", err)
	}
	logger.Info("legacy data loaded",
		"users", len(users), "projects", len(projects),
		"votes", len(votes), "comments", len(comments))

	ids := idMaps{users: make(map[int64]int64), projects: make(map[int64]int64)}
	steps := []struct {
		name string
		fn   func(q *store.Queries) error
	}{
		{"users", func(q *store.Queries) error { return im.importUsers(ctx, q, users, ids, result) }},
		{"projects", func(q *store.Queries) error { return im.importProjects(ctx, q, projects, ids, opts, result) }},
		{"votes", func(q *store.Queries) error { return im.importVotes(ctx, q, votes, ids, result) }},
		{"comments", func(q *store.Queries) error { return im.importComments(ctx, q, comments, ids, result) }},
	}

	if opts.DryRun {
		err := store.ExecTx(ctx, im.db, func(q *store.Queries) error {
			for _, step := range steps {
				if err := step.fn(q); err != nil {
					return fmt.Errorf("importing %s: %w", step.name, err)
				}
			}
			return errDryRun
		})
		if !errors.Is(err, errDryRun) {
			return result, err
		}
	} else {
		for _, step := range steps {
			if err := store.ExecTx(ctx, im.db, step.fn); err != nil {
				return result, fmt.Errorf("importing %s: %w", step.name, err)
			}
			logger.Info("legacy import step committed", "step", step.name)
		}
	}

	level := model.EventLevelInfo
	if result.HasErrors() {
		level = model.EventLevelWarning
	}
	_ = im.events.LogImportEvent(ctx, level, "Legacy import completed", nil, "", map[string]any{
		"run_id":   result.RunID,
		"dry_run":  result.DryRun,
		"imported": result.TotalImported(),
		"skipped":  result.TotalSkipped(),
		"errors":   len(result.Errors),
	})
	logger.Info("legacy import finished",
		"dry_run", result.DryRun,
		"imported", result.TotalImported(),
		"skipped", result.TotalSkipped(),
		"errors", len(result.Errors))

	return result, nil
}

// importUsers creates accounts. A legacy user whose username already exists
// is mapped onto the existing account so their votes and comments follow;
// an email collision alone skips the user.
func (im *Importer) importUsers(ctx context.Context, q *store.Queries, users []User, ids idMaps, result *ImportResult) error {
	for _, u := range users {
		username := util.NormalizeUsername(u.Username)
		if err := util.ValidateUsername(username); err != nil {
			result.UsersSkipped++
			result.addError("user %d: %v", u.ID, err)
			continue
		}

		existing, err := q.GetUserByUsernameKey(ctx, util.UsernameKey(username))
		switch {
		case err == nil:
			ids.users[u.ID] = existing.ID
			result.UsersSkipped++
			continue
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("looking up user %q: %w", username, err)
		}

		email, err := util.NormalizeEmail(u.Email)
		if err != nil {
			result.UsersSkipped++
			result.addError("user %d: invalid email %q", u.ID, u.Email)
			continue
		}
		if !auth.IsSupportedHash(u.PasswordHash) {
			result.UsersSkipped++
			result.addError("user %d: unsupported password hash", u.ID)
			continue
		}

		role, err := model.ParseRole(strings.ToLower(strings.TrimSpace(u.Role)))
		if err != nil {
			role = model.RoleEmployee
		}
		fullName := strings.TrimSpace(u.FullName)
		if fullName == "" {
			fullName = username
		}
		createdAt := im.timestamp(u.CreatedAt)

		created, err := q.CreateUser(ctx, store.CreateUserParams{
			Username:     username,
			UsernameKey:  util.UsernameKey(username),
			Email:        email,
			EmailKey:     util.EmailKey(email),
			PasswordHash: u.PasswordHash,
			Role:         string(role),
			FullName:     fullName,
			Department:   strings.TrimSpace(u.Department),
			Active:       u.Active,
			CreatedAt:    createdAt,
			UpdatedAt:    createdAt,
		})
		if store.IsUniqueViolation(err) {
			result.UsersSkipped++
			result.addError("user %d: email %q is already used", u.ID, email)
			continue
		}
		if err != nil {
			return fmt.Errorf("creating user %q: %w", username, err)
		}

		if u.LastLogin.Valid {
			if err := q.UpdateUserLastLogin(ctx, store.UpdateUserLastLoginParams{
				LastLoginAt: u.LastLogin,
				ID:          created.ID,
			}); err != nil {
				return fmt.Errorf("setting last login for %q: %w", username, err)
			}
		}

		ids.users[u.ID] = created.ID
		result.UsersImported++
	}
	return nil
}

func (im *Importer) importProjects(ctx context.Context, q *store.Queries, projects []Project, ids idMaps, opts ImportOptions, result *ImportResult) error {
	fallback := opts.FallbackOwnerID

	for _, p := range projects {
		title := strings.TrimSpace(p.Title)
		if title == "" {
			result.ProjectsSkipped++
			result.addError("project %d: empty title", p.ID)
			continue
		}

		owner, ok := ids.users[p.CreatedBy]
		if !ok {
			if fallback == 0 {
				id, err := firstAdminID(ctx, q)
				if err != nil {
					return err
				}
				fallback = id
			}
			if fallback == 0 {
				result.ProjectsSkipped++
				result.addError("project %d: creator %d not imported and no administrator exists", p.ID, p.CreatedBy)
				continue
			}
			owner = fallback
		}

		priority, err := model.ParsePriority(strings.ToLower(strings.TrimSpace(p.Priority)))
		if err != nil {
			priority = model.PriorityMedium
		}
		status, err := model.ParseStatus(strings.TrimSpace(p.Status))
		if err != nil {
			status = model.StatusPlanning
		}

		endDate := p.EndDate
		if p.StartDate.Valid && endDate.Valid && endDate.Time.Before(p.StartDate.Time) {
			result.addError("project %d: end date before start date, end date dropped", p.ID)
			endDate = sql.NullTime{}
		}
		createdAt := im.timestamp(p.CreatedAt)

		created, err := q.CreateProject(ctx, store.CreateProjectParams{
			Title:       title,
			Description: p.Description,
			Priority:    string(priority),
			Status:      string(status),
			StartDate:   p.StartDate,
			EndDate:     endDate,
			CreatedBy:   owner,
			CreatedAt:   createdAt,
			UpdatedAt:   createdAt,
		})
		if err != nil {
			return fmt.Errorf("creating project %d: %w", p.ID, err)
		}

		ids.projects[p.ID] = created.ID
		result.ProjectsImported++
	}
	return nil
}

// importVotes relies on the (project_id, user_id) constraint to drop
// duplicates, including votes already cast in the target database.
func (im *Importer) importVotes(ctx context.Context, q *store.Queries, votes []Vote, ids idMaps, result *ImportResult) error {
	for _, v := range votes {
		projectID, okProject := ids.projects[v.ProjectID]
		userID, okUser := ids.users[v.UserID]
		if !okProject || !okUser {
			result.VotesSkipped++
			continue
		}

		n, err := q.CreateVote(ctx, store.CreateVoteParams{
			ProjectID: projectID,
			UserID:    userID,
			CreatedAt: im.timestamp(v.CreatedAt),
		})
		if err != nil {
			return fmt.Errorf("creating vote for project %d: %w", v.ProjectID, err)
		}
		if n == 0 {
			result.VotesSkipped++
			continue
		}
		result.VotesImported++
	}
	return nil
}

func (im *Importer) importComments(ctx context.Context, q *store.Queries, comments []Comment, ids idMaps, result *ImportResult) error {
	for _, c := range comments {
		projectID, okProject := ids.projects[c.ProjectID]
		userID, okUser := ids.users[c.UserID]
		text := strings.TrimSpace(c.Text)
		if !okProject || !okUser || text == "" {
			result.CommentsSkipped++
			continue
		}

		if _, err := q.CreateComment(ctx, store.CreateCommentParams{
			ProjectID:   projectID,
			UserID:      userID,
			CommentText: text,
			CreatedAt:   im.timestamp(c.CreatedAt),
		}); err != nil {
			return fmt.Errorf("creating comment %d: %w", c.ID, err)
		}
		result.CommentsImported++
	}
	return nil
}

// timestamp keeps the legacy time, substituting now for MySQL zero dates.
func (im *Importer) timestamp(t time.Time) time.Time {
	if t.IsZero() {
		return im.now().UTC()
	}
	return t.UTC()
}

// firstAdminID returns the lowest administrator id, or 0 when none exists.
func firstAdminID(ctx context.Context, q *store.Queries) (int64, error) {
	users, err := q.ListUsersWithStats(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing users: %w", err)
	}
	var id int64
	for _, u := range users {
		if u.Role == string(model.RoleAdmin) && (id == 0 || u.ID < id) {
			id = u.ID
		}
	}
	return id, nil
}
