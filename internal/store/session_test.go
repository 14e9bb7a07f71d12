package store

import (
	"testing"
	"time"

	"taskbeacon/internal/database"
)

func setupSessionTestDB(t *testing.T) (*SessionStore, *UserStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSessionStore(db), NewUserStore(db)
}

func TestSessionCreateAndGet(t *testing.T) {
	ss, us := setupSessionTestDB(t)
	user := createTestUser(t, us, "alice")

	sess, err := ss.Create(user.ID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if len(sess.Token) != 64 {
		t.Errorf("token length = %d, want 64", len(sess.Token))
	}
	if !sess.ExpiresAt.After(time.Now()) {
		t.Error("session should expire in the future")
	}

	got, err := ss.GetByToken(sess.Token)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got == nil || got.UserID != user.ID {
		t.Fatalf("get by token returned %+v", got)
	}
}

func TestSessionUniqueTokens(t *testing.T) {
	ss, us := setupSessionTestDB(t)
	user := createTestUser(t, us, "alice")

	a, err := ss.Create(user.ID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	b, err := ss.Create(user.ID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if a.Token == b.Token {
		t.Fatal("two sessions must not share a token")
	}
}

func TestSessionDelete(t *testing.T) {
	ss, us := setupSessionTestDB(t)
	user := createTestUser(t, us, "alice")

	sess, err := ss.Create(user.ID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := ss.DeleteByToken(sess.Token); err != nil {
		t.Fatalf("delete session: %v", err)
	}

	got, err := ss.GetByToken(sess.Token)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got != nil {
		t.Fatal("session still resolvable after deletion")
	}
}

func TestSessionUnknownToken(t *testing.T) {
	ss, _ := setupSessionTestDB(t)

	got, err := ss.GetByToken("not-a-real-token")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got != nil {
		t.Fatal("expected nil for unknown token")
	}
}
