package generate

import (
	"context"
	"log/slog"
	"strconv"
	"testing"

	"chorewheel/internal/calendar"
	"chorewheel/internal/database"
	"chorewheel/internal/model"
	"chorewheel/internal/store"
)

type fixture struct {
	generator   *Generator
	tasks       *store.TaskStore
	assignments *store.AssignmentStore
	household   *model.Household
	alice       *model.Child
	bob         *model.Child
}

func setup(t *testing.T) *fixture {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	households := store.NewHouseholdStore(db)
	children := store.NewChildStore(db)
	tasks := store.NewTaskStore(db)
	assignments := store.NewAssignmentStore(db)

	household, err := households.Create("Test Family")
	if err != nil {
		t.Fatalf("create household: %v", err)
	}
	alice, err := children.Create(household.ID, "Alice", "#ff0000", "🦊")
	if err != nil {
		t.Fatalf("create child: %v", err)
	}
	bob, err := children.Create(household.ID, "Bob", "#0000ff", "🐻")
	if err != nil {
		t.Fatalf("create child: %v", err)
	}

	return &fixture{
		generator:   New(tasks, assignments, slog.Default()),
		tasks:       tasks,
		assignments: assignments,
		household:   household,
		alice:       alice,
		bob:         bob,
	}
}

func date(t *testing.T, s string) calendar.Date {
	t.Helper()
	d, err := calendar.Parse(s)
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	return d
}

func TestGenerateDailyAndRotation(t *testing.T) {
	f := setup(t)

	if _, err := f.tasks.Create(f.household.ID, "Feed the dog", "", 10, "DAILY", nil); err != nil {
		t.Fatalf("create task: %v", err)
	}
	rotation := "ROTATION;STRATEGY=ALTERNATING;CHILDREN=" +
		int64s(f.alice.ID) + "," + int64s(f.bob.ID)
	if _, err := f.tasks.Create(f.household.ID, "Clean room", "", 15, rotation, nil); err != nil {
		t.Fatalf("create task: %v", err)
	}

	// 2025-01-06 through 2025-01-08 all fall in ISO week 2.
	res, err := f.generator.Generate(context.Background(), f.household.ID,
		date(t, "2025-01-06"), date(t, "2025-01-08"))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.Created != 6 {
		t.Errorf("created = %d, want 6", res.Created)
	}
	if len(res.Errors) != 0 {
		t.Errorf("unexpected template errors: %v", res.Errors)
	}

	all, err := f.assignments.ListByDateRange(f.household.ID, "2025-01-06", "2025-01-08")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 6 {
		t.Fatalf("got %d assignments, want 6", len(all))
	}

	var shared, owned int
	for _, a := range all {
		switch a.Title {
		case "Feed the dog":
			shared++
			if a.ChildID != nil {
				t.Errorf("daily assignment on %s should be unassigned", a.DueDate)
			}
			if a.Points != 10 {
				t.Errorf("daily points = %d, want 10", a.Points)
			}
		case "Clean room":
			owned++
			if a.ChildID == nil {
				t.Errorf("rotation assignment on %s should have an owner", a.DueDate)
			} else if *a.ChildID != f.alice.ID && *a.ChildID != f.bob.ID {
				t.Errorf("rotation owner = %d", *a.ChildID)
			}
			if a.Points != 15 {
				t.Errorf("rotation points = %d, want 15", a.Points)
			}
		default:
			t.Errorf("unexpected assignment %q", a.Title)
		}
		if a.Status != model.AssignmentPending {
			t.Errorf("status = %q", a.Status)
		}
	}
	if shared != 3 || owned != 3 {
		t.Errorf("shared = %d, owned = %d, want 3 and 3", shared, owned)
	}

	// The whole range is one ISO week: a single child owns every rotation day.
	var owner *int64
	for _, a := range all {
		if a.Title != "Clean room" {
			continue
		}
		if owner == nil {
			owner = a.ChildID
		} else if *a.ChildID != *owner {
			t.Errorf("rotation owner changed mid-week: %d vs %d", *a.ChildID, *owner)
		}
	}
}

func TestGenerateIdempotent(t *testing.T) {
	f := setup(t)

	if _, err := f.tasks.Create(f.household.ID, "Feed the dog", "", 10, "DAILY", nil); err != nil {
		t.Fatalf("create task: %v", err)
	}

	start, end := date(t, "2025-01-06"), date(t, "2025-01-08")

	first, err := f.generator.Generate(context.Background(), f.household.ID, start, end)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.Created != 3 || first.Skipped != 0 {
		t.Errorf("first run: created %d skipped %d, want 3 and 0", first.Created, first.Skipped)
	}

	second, err := f.generator.Generate(context.Background(), f.household.ID, start, end)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Created != 0 || second.Skipped != 3 {
		t.Errorf("second run: created %d skipped %d, want 0 and 3", second.Created, second.Skipped)
	}

	// Overlapping range only fills the gap.
	third, err := f.generator.Generate(context.Background(), f.household.ID, start, end.AddDays(2))
	if err != nil {
		t.Fatalf("third run: %v", err)
	}
	if third.Created != 2 || third.Skipped != 3 {
		t.Errorf("third run: created %d skipped %d, want 2 and 3", third.Created, third.Skipped)
	}
}

func TestGenerateRepeatingCoversOnlyListedDays(t *testing.T) {
	f := setup(t)

	if _, err := f.tasks.Create(f.household.ID, "Trash", "", 5, "REPEATING;BYDAY=MO,WE,FR", nil); err != nil {
		t.Fatalf("create task: %v", err)
	}

	// Full week Monday through Sunday.
	res, err := f.generator.Generate(context.Background(), f.household.ID,
		date(t, "2025-01-06"), date(t, "2025-01-12"))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.Created != 3 {
		t.Errorf("created = %d, want 3 (Mon, Wed, Fri)", res.Created)
	}

	all, _ := f.assignments.ListByDateRange(f.household.ID, "2025-01-06", "2025-01-12")
	wantDates := map[string]bool{"2025-01-06": true, "2025-01-08": true, "2025-01-10": true}
	for _, a := range all {
		if !wantDates[a.DueDate] {
			t.Errorf("unexpected assignment on %s", a.DueDate)
		}
	}
}

func TestGenerateSkipsSingleTasks(t *testing.T) {
	f := setup(t)

	if _, err := f.tasks.Create(f.household.ID, "Wash the car", "", 25, "SINGLE", nil); err != nil {
		t.Fatalf("create task: %v", err)
	}

	res, err := f.generator.Generate(context.Background(), f.household.ID,
		date(t, "2025-01-06"), date(t, "2025-01-12"))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.Created != 0 {
		t.Errorf("created = %d, want 0: one-off tasks are not generated", res.Created)
	}
}

func TestGenerateCollectsBadRules(t *testing.T) {
	f := setup(t)

	// Insert a broken rule directly; Create validates via the handler layer.
	bad, err := f.tasks.Create(f.household.ID, "Broken", "", 1, "GARBAGE", nil)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if _, err := f.tasks.Create(f.household.ID, "Feed the dog", "", 10, "DAILY", nil); err != nil {
		t.Fatalf("create task: %v", err)
	}

	res, err := f.generator.Generate(context.Background(), f.household.ID,
		date(t, "2025-01-06"), date(t, "2025-01-06"))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	// The good template still generated.
	if res.Created != 1 {
		t.Errorf("created = %d, want 1", res.Created)
	}
	if len(res.Errors) != 1 {
		t.Fatalf("got %d template errors, want 1", len(res.Errors))
	}
	if res.Errors[0].TaskID != bad.ID {
		t.Errorf("error task id = %d, want %d", res.Errors[0].TaskID, bad.ID)
	}
}

func TestGenerateInvalidRange(t *testing.T) {
	f := setup(t)
	_, err := f.generator.Generate(context.Background(), f.household.ID,
		date(t, "2025-01-08"), date(t, "2025-01-06"))
	if err == nil {
		t.Fatal("expected error for end before start")
	}
}

func TestGenerateIgnoresInactiveTasks(t *testing.T) {
	f := setup(t)

	task, err := f.tasks.Create(f.household.ID, "Feed the dog", "", 10, "DAILY", nil)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if err := f.tasks.SetActive(task.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	res, err := f.generator.Generate(context.Background(), f.household.ID,
		date(t, "2025-01-06"), date(t, "2025-01-08"))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.Created != 0 {
		t.Errorf("created = %d, want 0 for inactive template", res.Created)
	}
}

func int64s(id int64) string {
	return strconv.FormatInt(id, 10)
}
