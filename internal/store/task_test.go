package store

import (
	"testing"
	"time"
)

func TestTaskCRUD(t *testing.T) {
	db := openTest(t)
	h := seedHousehold(t, db)
	s := NewTaskStore(db)

	deadline := time.Date(2025, 1, 10, 18, 0, 0, 0, time.UTC)
	task, err := s.Create(h.ID, "Feed the dog", "Before breakfast", 10, "DAILY", &deadline)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.Title != "Feed the dog" || task.Points != 10 || task.Rule != "DAILY" {
		t.Errorf("created task = %+v", task)
	}
	if !task.Active {
		t.Error("new task should be active")
	}
	if task.Deadline == nil {
		t.Error("deadline not stored")
	}

	got, err := s.GetByID(task.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.Description != "Before breakfast" {
		t.Errorf("get = %+v", got)
	}

	updated, err := s.Update(task.ID, "Feed the cat", "", 12, "REPEATING;BYDAY=MO,FR", nil)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "Feed the cat" || updated.Points != 12 {
		t.Errorf("updated = %+v", updated)
	}
	if updated.Deadline != nil {
		t.Error("deadline should be cleared")
	}

	missing, err := s.GetByID(9999)
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for missing task, got %+v", missing)
	}
}

func TestListActiveExcludesDeactivated(t *testing.T) {
	db := openTest(t)
	h := seedHousehold(t, db)
	s := NewTaskStore(db)

	active := seedTask(t, db, h.ID, "Feed the dog", "DAILY", 10)
	retired := seedTask(t, db, h.ID, "Water plants", "DAILY", 5)
	if err := s.SetActive(retired.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	all, err := s.ListByHousehold(h.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("list all = %d, want 2", len(all))
	}

	onlyActive, err := s.ListActiveByHousehold(h.ID)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(onlyActive) != 1 || onlyActive[0].ID != active.ID {
		t.Errorf("list active = %+v", onlyActive)
	}

	// Reactivation brings it back.
	if err := s.SetActive(retired.ID, true); err != nil {
		t.Fatalf("activate: %v", err)
	}
	onlyActive, _ = s.ListActiveByHousehold(h.ID)
	if len(onlyActive) != 2 {
		t.Errorf("after reactivation: %d active, want 2", len(onlyActive))
	}
}

func TestTaskScopedToHousehold(t *testing.T) {
	db := openTest(t)
	h1 := seedHousehold(t, db)
	h2, err := NewHouseholdStore(db).Create("Other Family")
	if err != nil {
		t.Fatalf("create household: %v", err)
	}
	s := NewTaskStore(db)

	seedTask(t, db, h1.ID, "Feed the dog", "DAILY", 10)
	seedTask(t, db, h2.ID, "Mow the lawn", "DAILY", 20)

	tasks, err := s.ListByHousehold(h1.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Title != "Feed the dog" {
		t.Errorf("household 1 tasks = %+v", tasks)
	}
}
