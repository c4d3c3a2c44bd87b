package generate

import (
	"context"
	"fmt"
	"log/slog"

	"chorewheel/internal/calendar"
	"chorewheel/internal/model"
	"chorewheel/internal/schedule"
)

// TaskSource lists the active task templates to generate from.
type TaskSource interface {
	ListActiveByHousehold(householdID int64) ([]model.Task, error)
}

// AssignmentWriter persists assignment rows. InsertIfAbsent must be atomic
// on the (task, date, child) key and report whether a row was inserted.
type AssignmentWriter interface {
	InsertIfAbsent(a model.Assignment) (bool, error)
}

// TemplateError reports a task template whose rule could not be evaluated.
// One bad template never aborts generation for the rest of the household.
type TemplateError struct {
	TaskID int64
	Title  string
	Err    error
}

func (e TemplateError) Error() string {
	return fmt.Sprintf("task %d (%s): %v", e.TaskID, e.Title, e.Err)
}

func (e TemplateError) Unwrap() error { return e.Err }

// Result summarizes a generation run.
type Result struct {
	Created int             `json:"created"`
	Skipped int             `json:"skipped"`
	Errors  []TemplateError `json:"-"`
}

// Generator materializes dated assignments from task templates.
type Generator struct {
	tasks       TaskSource
	assignments AssignmentWriter
	logger      *slog.Logger
}

func New(tasks TaskSource, assignments AssignmentWriter, logger *slog.Logger) *Generator {
	return &Generator{tasks: tasks, assignments: assignments, logger: logger}
}

// Generate walks every active template over [start, end] inclusive and
// writes one assignment per due date. Re-running over an overlapping range
// is a no-op for already-covered dates: the storage uniqueness key turns
// duplicates into skips. Cancellation leaves prior inserts in place; a
// retried run picks up where it stopped.
func (g *Generator) Generate(ctx context.Context, householdID int64, start, end calendar.Date) (Result, error) {
	dates, err := calendar.Range(start, end)
	if err != nil {
		return Result{}, err
	}

	tasks, err := g.tasks.ListActiveByHousehold(householdID)
	if err != nil {
		return Result{}, fmt.Errorf("list active tasks: %w", err)
	}

	var res Result
	for _, task := range tasks {
		rule, err := schedule.Parse(task.Rule)
		if err != nil {
			res.Errors = append(res.Errors, TemplateError{TaskID: task.ID, Title: task.Title, Err: err})
			g.logger.Warn("skipping task with bad rule", "task_id", task.ID, "rule", task.Rule, "error", err)
			continue
		}
		if rule.Type == schedule.RuleSingle {
			continue
		}

		for _, date := range dates {
			if err := ctx.Err(); err != nil {
				return res, err
			}

			decision, err := schedule.Evaluate(rule, date)
			if err != nil {
				res.Errors = append(res.Errors, TemplateError{TaskID: task.ID, Title: task.Title, Err: err})
				break
			}
			if decision.Kind == schedule.NotDue {
				continue
			}

			a := model.Assignment{
				TaskID:      task.ID,
				HouseholdID: task.HouseholdID,
				Title:       task.Title,
				Description: task.Description,
				Points:      task.Points,
				DueDate:     date.String(),
				Status:      model.AssignmentPending,
			}
			if decision.Kind == schedule.DueForChild {
				childID := decision.ChildID
				a.ChildID = &childID
			}

			inserted, err := g.assignments.InsertIfAbsent(a)
			if err != nil {
				return res, fmt.Errorf("insert assignment for task %d on %s: %w", task.ID, date, err)
			}
			if inserted {
				res.Created++
			} else {
				res.Skipped++
			}
		}
	}

	g.logger.Info("generation run finished",
		"household_id", householdID,
		"start", start.String(), "end", end.String(),
		"created", res.Created, "skipped", res.Skipped, "failed_tasks", len(res.Errors))

	return res, nil
}
