package middleware

import (
	"context"
	"database/sql"
	"net/http"
	"testing"

	"github.com/alexedwards/scs/v2"

	"github.com/lightsail-qbr/qbr/internal/session"
	"github.com/lightsail-qbr/qbr/internal/testutil"
)

// testEnv bundles a migrated database with the session plumbing used by the
// middleware under test.
type testEnv struct {
	db     *sql.DB
	sm     *scs.SessionManager
	ids    *session.Identities
	tokens *session.CSRFTokens
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)

	sm := session.New(db, true)
	return &testEnv{
		db:     db,
		sm:     sm,
		ids:    session.NewIdentities(sm),
		tokens: session.NewCSRFTokens(sm),
	}
}

// newSession creates a committed session, lets setup populate it and
// returns the cookie that resumes it.
func (e *testEnv) newSession(t *testing.T, setup func(ctx context.Context)) *http.Cookie {
	t.Helper()
	ctx, err := e.sm.Load(context.Background(), "")
	if err != nil {
		t.Fatalf("failed to load session: %v", err)
	}
	setup(ctx)
	token, _, err := e.sm.Commit(ctx)
	if err != nil {
		t.Fatalf("failed to commit session: %v", err)
	}
	return &http.Cookie{Name: e.sm.Cookie.Name, Value: token}
}

// recordingFlasher captures flash messages instead of writing the session.
type recordingFlasher struct {
	message   string
	flashType string
}

func (f *recordingFlasher) SetFlash(_ *http.Request, message, flashType string) {
	f.message = message
	f.flashType = flashType
}

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if called != nil {
			*called = true
		}
		w.WriteHeader(http.StatusOK)
	})
}
