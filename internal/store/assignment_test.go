package store

import (
	"testing"

	"chorewheel/internal/model"
)

func TestInsertIfAbsent(t *testing.T) {
	db := openTest(t)
	h := seedHousehold(t, db)
	task := seedTask(t, db, h.ID, "Feed the dog", "DAILY", 10)
	s := NewAssignmentStore(db)

	a := model.Assignment{
		TaskID:      task.ID,
		HouseholdID: h.ID,
		Title:       task.Title,
		Points:      task.Points,
		DueDate:     "2025-01-06",
	}

	inserted, err := s.InsertIfAbsent(a)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if !inserted {
		t.Error("first insert should report true")
	}

	inserted, err = s.InsertIfAbsent(a)
	if err != nil {
		t.Fatalf("duplicate insert: %v", err)
	}
	if inserted {
		t.Error("duplicate insert should report false")
	}

	all, err := s.ListByTask(task.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("got %d rows, want 1", len(all))
	}
}

func TestInsertIfAbsentDistinguishesChildren(t *testing.T) {
	db := openTest(t)
	h := seedHousehold(t, db)
	alice := seedChild(t, db, h.ID, "Alice")
	bob := seedChild(t, db, h.ID, "Bob")
	task := seedTask(t, db, h.ID, "Clean room", "DAILY", 15)
	s := NewAssignmentStore(db)

	base := model.Assignment{TaskID: task.ID, HouseholdID: h.ID, Title: task.Title, DueDate: "2025-01-06"}

	// Shared, Alice's, and Bob's rows on the same date are all distinct keys.
	for _, childID := range []*int64{nil, &alice.ID, &bob.ID} {
		a := base
		a.ChildID = childID
		inserted, err := s.InsertIfAbsent(a)
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
		if !inserted {
			t.Errorf("insert for child %v should succeed", childID)
		}
	}

	// But re-inserting any of them is a no-op.
	shared := base
	if inserted, _ := s.InsertIfAbsent(shared); inserted {
		t.Error("duplicate shared insert should report false")
	}
	owned := base
	owned.ChildID = &alice.ID
	if inserted, _ := s.InsertIfAbsent(owned); inserted {
		t.Error("duplicate owned insert should report false")
	}
}

func TestCompleteAndUndo(t *testing.T) {
	db := openTest(t)
	h := seedHousehold(t, db)
	alice := seedChild(t, db, h.ID, "Alice")
	task := seedTask(t, db, h.ID, "Feed the dog", "DAILY", 10)
	s := NewAssignmentStore(db)

	if _, err := s.InsertIfAbsent(model.Assignment{
		TaskID: task.ID, HouseholdID: h.ID, Title: task.Title, Points: 10, DueDate: "2025-01-06",
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	all, _ := s.ListByTask(task.ID)
	id := all[0].ID

	// Completing a shared assignment records who did it.
	done, err := s.Complete(id, &alice.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != model.AssignmentCompleted {
		t.Errorf("status = %q", done.Status)
	}
	if done.ChildID == nil || *done.ChildID != alice.ID {
		t.Errorf("child = %v, want %d", done.ChildID, alice.ID)
	}
	if done.CompletedAt == nil {
		t.Error("completed_at not set")
	}

	undone, err := s.UndoComplete(id)
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	if undone.Status != model.AssignmentPending {
		t.Errorf("status after undo = %q", undone.Status)
	}
	if undone.CompletedAt != nil {
		t.Error("completed_at should be cleared")
	}
}

func TestCompleteKeepsExistingOwner(t *testing.T) {
	db := openTest(t)
	h := seedHousehold(t, db)
	alice := seedChild(t, db, h.ID, "Alice")
	task := seedTask(t, db, h.ID, "Clean room", "DAILY", 15)
	s := NewAssignmentStore(db)

	if _, err := s.InsertIfAbsent(model.Assignment{
		TaskID: task.ID, HouseholdID: h.ID, ChildID: &alice.ID,
		Title: task.Title, Points: 15, DueDate: "2025-01-06",
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	all, _ := s.ListByTask(task.ID)

	// Completing without a child keeps the assigned owner.
	done, err := s.Complete(all[0].ID, nil)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.ChildID == nil || *done.ChildID != alice.ID {
		t.Errorf("owner = %v, want %d", done.ChildID, alice.ID)
	}
}

func TestCompleteTwiceKeepsFirstCredit(t *testing.T) {
	db := openTest(t)
	h := seedHousehold(t, db)
	alice := seedChild(t, db, h.ID, "Alice")
	bob := seedChild(t, db, h.ID, "Bob")
	task := seedTask(t, db, h.ID, "Feed the dog", "DAILY", 10)
	s := NewAssignmentStore(db)

	if _, err := s.InsertIfAbsent(model.Assignment{
		TaskID: task.ID, HouseholdID: h.ID, Title: task.Title, Points: 10, DueDate: "2025-01-06",
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	all, _ := s.ListByTask(task.ID)
	id := all[0].ID

	first, err := s.Complete(id, &alice.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}

	// A second tap, even by another child, changes nothing.
	second, err := s.Complete(id, &bob.ID)
	if err != nil {
		t.Fatalf("second complete: %v", err)
	}
	if second.ChildID == nil || *second.ChildID != alice.ID {
		t.Errorf("credit moved to %v, want %d", second.ChildID, alice.ID)
	}
	if second.CompletedAt == nil || first.CompletedAt == nil {
		t.Fatal("completed_at not set")
	}
	if !second.CompletedAt.Equal(*first.CompletedAt) {
		t.Errorf("completed_at rewritten: %v vs %v", second.CompletedAt, first.CompletedAt)
	}
}

func TestListByDateRange(t *testing.T) {
	db := openTest(t)
	h := seedHousehold(t, db)
	task := seedTask(t, db, h.ID, "Feed the dog", "DAILY", 10)
	s := NewAssignmentStore(db)

	for _, d := range []string{"2025-01-05", "2025-01-06", "2025-01-07", "2025-01-08"} {
		if _, err := s.InsertIfAbsent(model.Assignment{
			TaskID: task.ID, HouseholdID: h.ID, Title: task.Title, DueDate: d,
		}); err != nil {
			t.Fatalf("insert %s: %v", d, err)
		}
	}

	got, err := s.ListByDateRange(h.ID, "2025-01-06", "2025-01-07")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d rows, want 2", len(got))
	}
	if got[0].DueDate != "2025-01-06" || got[1].DueDate != "2025-01-07" {
		t.Errorf("dates = %s, %s", got[0].DueDate, got[1].DueDate)
	}
}

func TestPointsEarned(t *testing.T) {
	db := openTest(t)
	h := seedHousehold(t, db)
	alice := seedChild(t, db, h.ID, "Alice")
	task := seedTask(t, db, h.ID, "Feed the dog", "DAILY", 10)
	s := NewAssignmentStore(db)

	for _, d := range []string{"2025-01-06", "2025-01-07", "2025-01-08"} {
		if _, err := s.InsertIfAbsent(model.Assignment{
			TaskID: task.ID, HouseholdID: h.ID, Title: task.Title, Points: 10, DueDate: d,
		}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	all, _ := s.ListByTask(task.ID)

	// Complete two of three.
	for _, a := range all[:2] {
		if _, err := s.Complete(a.ID, &alice.ID); err != nil {
			t.Fatalf("complete: %v", err)
		}
	}

	earned, err := s.PointsEarned(alice.ID)
	if err != nil {
		t.Fatalf("points earned: %v", err)
	}
	if earned != 20 {
		t.Errorf("earned = %d, want 20", earned)
	}
}
