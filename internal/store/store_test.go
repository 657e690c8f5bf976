package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// testDB creates a migrated database in a temporary directory.
func testDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "qbr-test.db")

	db, err := NewDB(dbPath)
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}

	if err := Migrate(db); err != nil {
		db.Close()
		t.Fatalf("Migrate: %v", err)
	}

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}

	return db, cleanup
}

func createTestUser(t *testing.T, q *Queries, username string, created time.Time) User {
	t.Helper()
	user, err := q.CreateUser(context.Background(), CreateUserParams{
		Username:     username,
		UsernameKey:  username,
		Email:        username + "@example.com",
		EmailKey:     username + "@example.com",
		PasswordHash: "hashed-password",
		Role:         "employee",
		FullName:     "User " + username,
		Department:   "Engineering",
		Active:       true,
		CreatedAt:    created,
		UpdatedAt:    created,
	})
	if err != nil {
		t.Fatalf("CreateUser(%s): %v", username, err)
	}
	return user
}

func createTestProject(t *testing.T, q *Queries, title string, owner int64, created time.Time) Project {
	t.Helper()
	project, err := q.CreateProject(context.Background(), CreateProjectParams{
		Title:       title,
		Description: "Description of " + title,
		Priority:    "medium",
		Status:      "Planning",
		CreatedBy:   owner,
		CreatedAt:   created,
		UpdatedAt:   created,
	})
	if err != nil {
		t.Fatalf("CreateProject(%s): %v", title, err)
	}
	return project
}

func TestMigrationVersion(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	version, err := MigrationVersion(db)
	if err != nil {
		t.Fatalf("MigrationVersion: %v", err)
	}
	if version != 5 {
		t.Errorf("version = %d, want 5", version)
	}
}

func TestDSN(t *testing.T) {
	dsn := DSN("/tmp/qbr.db")
	for _, want := range []string{"file:/tmp/qbr.db?", "foreign_keys%281%29", "_time_format=sqlite"} {
		if !strings.Contains(dsn, want) {
			t.Errorf("DSN %q missing %q", dsn, want)
		}
	}
}

func TestCreateUser(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	q := New(db)
	user := createTestUser(t, q, "alice", time.Now())

	if user.ID == 0 {
		t.Error("user.ID should not be 0")
	}
	if user.Role != "employee" {
		t.Errorf("Role = %q, want employee", user.Role)
	}
	if !user.Active {
		t.Error("user should be active")
	}
	if user.LastLoginAt.Valid {
		t.Error("LastLoginAt should be NULL for a new user")
	}
}

func TestCreateUser_DuplicateKeys(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	createTestUser(t, q, "alice", time.Now())

	now := time.Now()
	_, err := q.CreateUser(ctx, CreateUserParams{
		Username:     "Alice",
		UsernameKey:  "alice",
		Email:        "other@example.com",
		EmailKey:     "other@example.com",
		PasswordHash: "x",
		Role:         "employee",
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if !IsUniqueViolation(err) {
		t.Fatalf("expected unique violation, got %v", err)
	}

	count, err := q.CountUsersByUsernameOrEmail(ctx, CountUsersByUsernameOrEmailParams{
		UsernameKey: "nobody",
		EmailKey:    "alice@example.com",
	})
	if err != nil {
		t.Fatalf("CountUsersByUsernameOrEmail: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestCreateUser_InvalidRole(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	now := time.Now()
	_, err := New(db).CreateUser(context.Background(), CreateUserParams{
		Username:     "mallory",
		UsernameKey:  "mallory",
		Email:        "m@example.com",
		EmailKey:     "m@example.com",
		PasswordHash: "x",
		Role:         "root",
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err == nil {
		t.Fatal("expected CHECK constraint to reject role")
	}
}

func TestGetUserByUsernameKey_NotFound(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	_, err := New(db).GetUserByUsernameKey(context.Background(), "ghost")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestUpdateUserRoleAndActive(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	user := createTestUser(t, q, "bob", time.Now())

	n, err := q.UpdateUserRole(ctx, UpdateUserRoleParams{Role: "admin", UpdatedAt: time.Now(), ID: user.ID})
	if err != nil || n != 1 {
		t.Fatalf("UpdateUserRole: n=%d err=%v", n, err)
	}
	n, err = q.UpdateUserActive(ctx, UpdateUserActiveParams{Active: false, UpdatedAt: time.Now(), ID: user.ID})
	if err != nil || n != 1 {
		t.Fatalf("UpdateUserActive: n=%d err=%v", n, err)
	}

	got, err := q.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if got.Role != "admin" || got.Active {
		t.Errorf("got role=%q active=%v, want admin/false", got.Role, got.Active)
	}

	n, err = q.UpdateUserRole(ctx, UpdateUserRoleParams{Role: "admin", UpdatedAt: time.Now(), ID: 9999})
	if err != nil || n != 0 {
		t.Errorf("UpdateUserRole on missing user: n=%d err=%v", n, err)
	}
}

func TestCreateVote_Unique(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	user := createTestUser(t, q, "carol", time.Now())
	project := createTestProject(t, q, "Portal", user.ID, time.Now())

	params := CreateVoteParams{ProjectID: project.ID, UserID: user.ID, CreatedAt: time.Now()}
	n, err := q.CreateVote(ctx, params)
	if err != nil || n != 1 {
		t.Fatalf("first vote: n=%d err=%v", n, err)
	}
	n, err = q.CreateVote(ctx, params)
	if err != nil {
		t.Fatalf("second vote: %v", err)
	}
	if n != 0 {
		t.Errorf("second vote affected %d rows, want 0", n)
	}

	count, err := q.CountVotesForProject(ctx, project.ID)
	if err != nil {
		t.Fatalf("CountVotesForProject: %v", err)
	}
	if count != 1 {
		t.Errorf("vote count = %d, want 1", count)
	}

	voted, err := q.HasUserVoted(ctx, HasUserVotedParams{ProjectID: project.ID, UserID: user.ID})
	if err != nil {
		t.Fatalf("HasUserVoted: %v", err)
	}
	if voted != 1 {
		t.Errorf("HasUserVoted = %d, want 1", voted)
	}
}

func TestProjectDateRangeConstraint(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	user := createTestUser(t, q, "dave", time.Now())

	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Now()
	_, err := q.CreateProject(ctx, CreateProjectParams{
		Title:       "Backwards",
		Description: "End before start",
		Priority:    "low",
		Status:      "Planning",
		StartDate:   sql.NullTime{Time: start, Valid: true},
		EndDate:     sql.NullTime{Time: end, Valid: true},
		CreatedBy:   user.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err == nil {
		t.Fatal("expected CHECK constraint to reject end_date before start_date")
	}
}

func TestGetProjectDetail(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	owner := createTestUser(t, q, "erin", time.Now())
	viewer := createTestUser(t, q, "frank", time.Now())
	project := createTestProject(t, q, "Intranet", owner.ID, time.Now())

	if _, err := q.CreateVote(ctx, CreateVoteParams{ProjectID: project.ID, UserID: viewer.ID, CreatedAt: time.Now()}); err != nil {
		t.Fatalf("CreateVote: %v", err)
	}
	if _, err := q.CreateComment(ctx, CreateCommentParams{ProjectID: project.ID, UserID: viewer.ID, CommentText: "Nice", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("CreateComment: %v", err)
	}

	detail, err := q.GetProjectDetail(ctx, GetProjectDetailParams{ViewerID: viewer.ID, ID: project.ID})
	if err != nil {
		t.Fatalf("GetProjectDetail: %v", err)
	}
	if detail.CreatedByName != owner.FullName {
		t.Errorf("CreatedByName = %q, want %q", detail.CreatedByName, owner.FullName)
	}
	if detail.VoteCount != 1 || detail.CommentCount != 1 {
		t.Errorf("counts = %d/%d, want 1/1", detail.VoteCount, detail.CommentCount)
	}
	if detail.UserVoted != 1 {
		t.Error("viewer should be marked as voted")
	}

	ownerView, err := q.GetProjectDetail(ctx, GetProjectDetailParams{ViewerID: owner.ID, ID: project.ID})
	if err != nil {
		t.Fatalf("GetProjectDetail: %v", err)
	}
	if ownerView.UserVoted != 0 {
		t.Error("owner has not voted")
	}

	_, err = q.GetProjectDetail(ctx, GetProjectDetailParams{ViewerID: owner.ID, ID: 9999})
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows for unknown project, got %v", err)
	}
}

func TestListProjectsWithStats_NewestFirst(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	q := New(db)
	base := time.Now().Add(-time.Hour)
	owner := createTestUser(t, q, "gina", base)
	createTestProject(t, q, "Older", owner.ID, base)
	createTestProject(t, q, "Newer", owner.ID, base.Add(time.Minute))

	rows, err := q.ListProjectsWithStats(context.Background())
	if err != nil {
		t.Fatalf("ListProjectsWithStats: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len = %d, want 2", len(rows))
	}
	if rows[0].Title != "Newer" || rows[1].Title != "Older" {
		t.Errorf("order = %q, %q", rows[0].Title, rows[1].Title)
	}
	if rows[0].CreatedByUsername != "gina" {
		t.Errorf("CreatedByUsername = %q", rows[0].CreatedByUsername)
	}
}

func TestListCommentsForProject_NewestFirst(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	base := time.Now().Add(-time.Hour)
	user := createTestUser(t, q, "hank", base)
	project := createTestProject(t, q, "Wiki", user.ID, base)

	for i, text := range []string{"first", "second", "third"} {
		if _, err := q.CreateComment(ctx, CreateCommentParams{
			ProjectID:   project.ID,
			UserID:      user.ID,
			CommentText: text,
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("CreateComment: %v", err)
		}
	}

	comments, err := q.ListCommentsForProject(ctx, project.ID)
	if err != nil {
		t.Fatalf("ListCommentsForProject: %v", err)
	}
	if len(comments) != 3 {
		t.Fatalf("len = %d, want 3", len(comments))
	}
	if comments[0].CommentText != "third" || comments[2].CommentText != "first" {
		t.Errorf("unexpected order: %q ... %q", comments[0].CommentText, comments[2].CommentText)
	}
	if comments[0].Department != "Engineering" {
		t.Errorf("Department = %q", comments[0].Department)
	}
}

func TestListUsersWithStats(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	base := time.Now().Add(-time.Hour)
	owner := createTestUser(t, q, "ivan", base)
	voter := createTestUser(t, q, "judy", base.Add(time.Minute))
	project := createTestProject(t, q, "CRM", owner.ID, base)

	if _, err := q.CreateVote(ctx, CreateVoteParams{ProjectID: project.ID, UserID: voter.ID, CreatedAt: time.Now()}); err != nil {
		t.Fatalf("CreateVote: %v", err)
	}

	rows, err := q.ListUsersWithStats(ctx)
	if err != nil {
		t.Fatalf("ListUsersWithStats: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len = %d, want 2", len(rows))
	}
	if rows[0].Username != "judy" {
		t.Errorf("first row = %q, want newest user judy", rows[0].Username)
	}
	if rows[0].VoteCount != 1 || rows[0].ProjectCount != 0 {
		t.Errorf("judy stats = %+v", rows[0])
	}
	if rows[1].ProjectCount != 1 {
		t.Errorf("ivan project count = %d, want 1", rows[1].ProjectCount)
	}
}

func TestExecTx_RollbackOnError(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	user := createTestUser(t, q, "kate", time.Now())
	project := createTestProject(t, q, "Rollback", user.ID, time.Now())

	boom := errors.New("boom")
	err := ExecTx(ctx, db, func(tq *Queries) error {
		if err := tq.DeleteVotesByProject(ctx, project.ID); err != nil {
			return err
		}
		if _, err := tq.DeleteProject(ctx, project.ID); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("ExecTx error = %v, want boom", err)
	}

	if _, err := q.GetProjectByID(ctx, project.ID); err != nil {
		t.Errorf("project should survive rollback: %v", err)
	}
}

func TestExecTx_RollbackOnPanic(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	user := createTestUser(t, q, "liam", time.Now())

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected panic to propagate")
			}
		}()
		_ = ExecTx(ctx, db, func(tq *Queries) error {
			if _, err := tq.DeleteUser(ctx, user.ID); err != nil {
				return err
			}
			panic("mid-transaction")
		})
	}()

	if _, err := q.GetUserByID(ctx, user.ID); err != nil {
		t.Errorf("user should survive rollback: %v", err)
	}
}

func TestExecTx_Commit(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	admin := createTestUser(t, q, "mia", time.Now())
	leaver := createTestUser(t, q, "noah", time.Now())
	project := createTestProject(t, q, "Handover", leaver.ID, time.Now())

	err := ExecTx(ctx, db, func(tq *Queries) error {
		if _, err := tq.ReassignProjects(ctx, ReassignProjectsParams{
			NewOwner:  admin.ID,
			UpdatedAt: time.Now(),
			OldOwner:  leaver.ID,
		}); err != nil {
			return err
		}
		_, err := tq.DeleteUser(ctx, leaver.ID)
		return err
	})
	if err != nil {
		t.Fatalf("ExecTx: %v", err)
	}

	got, err := q.GetProjectByID(ctx, project.ID)
	if err != nil {
		t.Fatalf("GetProjectByID: %v", err)
	}
	if got.CreatedBy != admin.ID {
		t.Errorf("CreatedBy = %d, want %d", got.CreatedBy, admin.ID)
	}
}

func TestForeignKeysEnforced(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	owner := createTestUser(t, q, "olga", time.Now())
	createTestProject(t, q, "Owned", owner.ID, time.Now())

	// Projects reference their creator without cascade, so the user row is protected.
	if _, err := q.DeleteUser(ctx, owner.ID); err == nil {
		t.Error("expected foreign key violation deleting a project owner")
	}
}

func TestDeleteOldEvents(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	now := time.Now()

	for _, age := range []time.Duration{100 * 24 * time.Hour, time.Hour} {
		if _, err := q.CreateEvent(ctx, CreateEventParams{
			Level:     "info",
			Category:  "system",
			Message:   "tick",
			Metadata:  "{}",
			CreatedAt: now.Add(-age),
		}); err != nil {
			t.Fatalf("CreateEvent: %v", err)
		}
	}

	if err := q.DeleteOldEvents(ctx, now.Add(-90*24*time.Hour)); err != nil {
		t.Fatalf("DeleteOldEvents: %v", err)
	}

	count, err := q.CountEvents(ctx)
	if err != nil {
		t.Fatalf("CountEvents: %v", err)
	}
	if count != 1 {
		t.Errorf("events left = %d, want 1", count)
	}
}

func TestSeed(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)

	cfg := SeedConfig{Enabled: true, Username: "admin", Email: "admin@example.com", Password: "bootstrap-pass"}
	if err := Seed(ctx, db, cfg); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	admin, err := q.GetUserByUsernameKey(ctx, "admin")
	if err != nil {
		t.Fatalf("GetUserByUsernameKey: %v", err)
	}
	if admin.Role != "admin" || !admin.Active {
		t.Errorf("admin role=%q active=%v", admin.Role, admin.Active)
	}
	if admin.PasswordHash == cfg.Password {
		t.Error("password must be hashed")
	}

	// Second run is a no-op.
	if err := Seed(ctx, db, cfg); err != nil {
		t.Fatalf("Seed (second run): %v", err)
	}
	count, err := q.CountUsers(ctx)
	if err != nil {
		t.Fatalf("CountUsers: %v", err)
	}
	if count != 1 {
		t.Errorf("users = %d, want 1", count)
	}
}

func TestSeed_Disabled(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	if err := Seed(context.Background(), db, SeedConfig{Username: "admin", Email: "admin@example.com"}); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	count, err := New(db).CountUsers(context.Background())
	if err != nil {
		t.Fatalf("CountUsers: %v", err)
	}
	if count != 0 {
		t.Errorf("users = %d, want 0 when seeding is disabled", count)
	}
}

func TestSeed_RejectsShortPassword(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	err := Seed(context.Background(), db, SeedConfig{
		Enabled:  true,
		Username: "admin",
		Email:    "admin@example.com",
		Password: "short",
	})
	if err == nil {
		t.Fatal("expected password policy error")
	}
}
