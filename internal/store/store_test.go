package store

import (
	"database/sql"
	"testing"

	"chorewheel/internal/database"
	"chorewheel/internal/model"
)

func openTest(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedHousehold(t *testing.T, db *sql.DB) *model.Household {
	t.Helper()
	h, err := NewHouseholdStore(db).Create("Test Family")
	if err != nil {
		t.Fatalf("create household: %v", err)
	}
	return h
}

func seedChild(t *testing.T, db *sql.DB, householdID int64, name string) *model.Child {
	t.Helper()
	c, err := NewChildStore(db).Create(householdID, name, "", "")
	if err != nil {
		t.Fatalf("create child: %v", err)
	}
	return c
}

func seedTask(t *testing.T, db *sql.DB, householdID int64, title, rule string, points int) *model.Task {
	t.Helper()
	task, err := NewTaskStore(db).Create(householdID, title, "", points, rule, nil)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}
