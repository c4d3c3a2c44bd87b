package store

import (
	"database/sql"
	"fmt"
	"time"

	"chorewheel/internal/model"
)

type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

func scanTask(scanner interface{ Scan(...any) error }) (*model.Task, error) {
	var t model.Task
	var active int
	var deadline sql.NullTime

	err := scanner.Scan(
		&t.ID, &t.HouseholdID, &t.Title, &t.Description, &t.Points,
		&t.Rule, &active, &deadline, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Active = active != 0
	if deadline.Valid {
		t.Deadline = &deadline.Time
	}
	return &t, nil
}

const taskCols = `id, household_id, title, description, points, rule, active, deadline, created_at, updated_at`

func (s *TaskStore) Create(householdID int64, title, description string, points int, rule string, deadline *time.Time) (*model.Task, error) {
	var dl sql.NullTime
	if deadline != nil {
		dl = sql.NullTime{Time: *deadline, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO tasks (household_id, title, description, points, rule, deadline) VALUES (?, ?, ?, ?, ?, ?)`,
		householdID, title, description, points, rule, dl,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *TaskStore) GetByID(id int64) (*model.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskCols+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func (s *TaskStore) ListByHousehold(householdID int64) ([]model.Task, error) {
	rows, err := s.db.Query(
		`SELECT `+taskCols+` FROM tasks WHERE household_id = ? ORDER BY title ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// ListActiveByHousehold returns the templates the generator should expand,
// in a stable order so generation runs are deterministic.
func (s *TaskStore) ListActiveByHousehold(householdID int64) ([]model.Task, error) {
	rows, err := s.db.Query(
		`SELECT `+taskCols+` FROM tasks WHERE household_id = ? AND active = 1 ORDER BY id ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list active tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (s *TaskStore) Update(id int64, title, description string, points int, rule string, deadline *time.Time) (*model.Task, error) {
	var dl sql.NullTime
	if deadline != nil {
		dl = sql.NullTime{Time: *deadline, Valid: true}
	}

	_, err := s.db.Exec(
		`UPDATE tasks SET title = ?, description = ?, points = ?, rule = ?, deadline = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		title, description, points, rule, dl, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return s.GetByID(id)
}

// SetActive soft-enables or disables a template. Templates are never
// deleted so historical assignments keep a valid parent row.
func (s *TaskStore) SetActive(id int64, active bool) error {
	var a int
	if active {
		a = 1
	}
	_, err := s.db.Exec(
		`UPDATE tasks SET active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		a, id,
	)
	if err != nil {
		return fmt.Errorf("set task active: %w", err)
	}
	return nil
}
