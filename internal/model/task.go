package model

import "time"

// Task is the parent-authored chore template. Rule is a serialized schedule
// rule (see internal/schedule); Active soft-disables generation without
// deleting history.
type Task struct {
	ID          int64      `json:"id"`
	HouseholdID int64      `json:"household_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Points      int        `json:"points"`
	Rule        string     `json:"rule"`
	Active      bool       `json:"active"`
	Deadline    *time.Time `json:"deadline"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
