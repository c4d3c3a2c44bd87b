package store

import (
	"testing"
	"time"
)

func TestSessionLifecycle(t *testing.T) {
	db := openTest(t)
	h := seedHousehold(t, db)
	users := NewUserStore(db)
	u, err := users.Create("parent@example.com", "Pat", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	s := NewSessionStore(db)

	sess, err := s.Create(u.ID, h.ID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if len(sess.Token) != 64 {
		t.Errorf("token length = %d, want 64 hex chars", len(sess.Token))
	}

	got, err := s.GetByToken(sess.Token)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if got == nil || got.UserID != u.ID || got.HouseholdID != h.ID {
		t.Errorf("got %+v", got)
	}

	if err := s.Delete(sess.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err = s.GetByToken(sess.Token)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil after delete, got %+v", got)
	}
}

func TestGetByTokenIgnoresExpired(t *testing.T) {
	db := openTest(t)
	h := seedHousehold(t, db)
	u, err := NewUserStore(db).Create("parent@example.com", "Pat", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	s := NewSessionStore(db)

	// Insert an already-expired session directly.
	expired := time.Now().UTC().Add(-time.Hour)
	if _, err := db.Exec(
		`INSERT INTO sessions (token, user_id, household_id, expires_at) VALUES (?, ?, ?, ?)`,
		"deadbeef", u.ID, h.ID, expired,
	); err != nil {
		t.Fatalf("insert expired session: %v", err)
	}

	got, err := s.GetByToken("deadbeef")
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if got != nil {
		t.Errorf("expired session should not resolve, got %+v", got)
	}
}

func TestDeleteExpired(t *testing.T) {
	db := openTest(t)
	h := seedHousehold(t, db)
	u, err := NewUserStore(db).Create("parent@example.com", "Pat", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	s := NewSessionStore(db)

	live, err := s.Create(u.ID, h.ID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	expired := time.Now().UTC().Add(-time.Hour)
	for _, token := range []string{"old1", "old2"} {
		if _, err := db.Exec(
			`INSERT INTO sessions (token, user_id, household_id, expires_at) VALUES (?, ?, ?, ?)`,
			token, u.ID, h.ID, expired,
		); err != nil {
			t.Fatalf("insert expired session: %v", err)
		}
	}

	pruned, err := s.DeleteExpired()
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if pruned != 2 {
		t.Errorf("pruned = %d, want 2", pruned)
	}

	got, _ := s.GetByToken(live.Token)
	if got == nil {
		t.Error("live session should survive pruning")
	}
}
