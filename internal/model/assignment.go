package model

import "time"

const (
	AssignmentPending   = "pending"
	AssignmentCompleted = "completed"
)

// Assignment is one dated instance of a task. Title, Description, and Points
// are snapshots taken at generation time. ChildID is nil for shared tasks
// that any family member may pick up.
type Assignment struct {
	ID          int64      `json:"id"`
	TaskID      int64      `json:"task_id"`
	HouseholdID int64      `json:"household_id"`
	ChildID     *int64     `json:"child_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Points      int        `json:"points"`
	DueDate     string     `json:"due_date"` // YYYY-MM-DD
	Status      string     `json:"status"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
}
