package model

import "time"

const (
	ResponseAccepted = "accepted"
	ResponseDeclined = "declined"
)

// TaskCandidate marks a child as eligible to claim a single (one-off) task.
type TaskCandidate struct {
	ID          int64     `json:"id"`
	TaskID      int64     `json:"task_id"`
	ChildID     int64     `json:"child_id"`
	HouseholdID int64     `json:"household_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// TaskResponse records a candidate's accept or decline decision.
type TaskResponse struct {
	ID          int64     `json:"id"`
	TaskID      int64     `json:"task_id"`
	ChildID     int64     `json:"child_id"`
	HouseholdID int64     `json:"household_id"`
	Decision    string    `json:"decision"`
	CreatedAt   time.Time `json:"created_at"`
}
