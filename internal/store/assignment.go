package store

import (
	"database/sql"
	"fmt"

	"chorewheel/internal/model"
)

type AssignmentStore struct {
	db *sql.DB
}

func NewAssignmentStore(db *sql.DB) *AssignmentStore {
	return &AssignmentStore{db: db}
}

func scanAssignment(scanner interface{ Scan(...any) error }) (*model.Assignment, error) {
	var a model.Assignment
	var childID sql.NullInt64
	var completedAt sql.NullTime

	err := scanner.Scan(
		&a.ID, &a.TaskID, &a.HouseholdID, &childID, &a.Title, &a.Description,
		&a.Points, &a.DueDate, &a.Status, &completedAt, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if childID.Valid {
		a.ChildID = &childID.Int64
	}
	if completedAt.Valid {
		a.CompletedAt = &completedAt.Time
	}
	return &a, nil
}

const assignmentCols = `id, task_id, household_id, child_id, title, description, points, due_date, status, completed_at, created_at`

// InsertIfAbsent writes a new assignment unless one already exists for the
// same (task, date, child) key. The unique index makes the conflict check
// and the insert a single atomic statement, so concurrent generation runs
// cannot double-write.
func (s *AssignmentStore) InsertIfAbsent(a model.Assignment) (bool, error) {
	var childID sql.NullInt64
	if a.ChildID != nil {
		childID = sql.NullInt64{Int64: *a.ChildID, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO assignments (task_id, household_id, child_id, title, description, points, due_date, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT DO NOTHING`,
		a.TaskID, a.HouseholdID, childID, a.Title, a.Description, a.Points, a.DueDate, model.AssignmentPending,
	)
	if err != nil {
		return false, fmt.Errorf("insert assignment: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *AssignmentStore) GetByID(id int64) (*model.Assignment, error) {
	row := s.db.QueryRow(`SELECT `+assignmentCols+` FROM assignments WHERE id = ?`, id)
	a, err := scanAssignment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	return a, nil
}

// ListByDateRange returns a household's assignments with due dates in
// [startDate, endDate] inclusive. Dates compare correctly as strings in
// YYYY-MM-DD form.
func (s *AssignmentStore) ListByDateRange(householdID int64, startDate, endDate string) ([]model.Assignment, error) {
	rows, err := s.db.Query(
		`SELECT `+assignmentCols+` FROM assignments
		 WHERE household_id = ? AND due_date >= ? AND due_date <= ?
		 ORDER BY due_date ASC, id ASC`,
		householdID, startDate, endDate,
	)
	if err != nil {
		return nil, fmt.Errorf("list assignments by range: %w", err)
	}
	defer rows.Close()

	return collectAssignments(rows)
}

func (s *AssignmentStore) ListByChild(childID int64, startDate, endDate string) ([]model.Assignment, error) {
	rows, err := s.db.Query(
		`SELECT `+assignmentCols+` FROM assignments
		 WHERE child_id = ? AND due_date >= ? AND due_date <= ?
		 ORDER BY due_date ASC, id ASC`,
		childID, startDate, endDate,
	)
	if err != nil {
		return nil, fmt.Errorf("list assignments by child: %w", err)
	}
	defer rows.Close()

	return collectAssignments(rows)
}

func (s *AssignmentStore) ListByTask(taskID int64) ([]model.Assignment, error) {
	rows, err := s.db.Query(
		`SELECT `+assignmentCols+` FROM assignments WHERE task_id = ? ORDER BY due_date ASC, id ASC`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("list assignments by task: %w", err)
	}
	defer rows.Close()

	return collectAssignments(rows)
}

func collectAssignments(rows *sql.Rows) ([]model.Assignment, error) {
	var assignments []model.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		assignments = append(assignments, *a)
	}
	return assignments, rows.Err()
}

// Complete marks a pending assignment done, crediting the given child. For
// shared assignments (nil child) this also records who actually did the
// chore. An already-completed assignment is left untouched: a double-tap
// cannot move the credit or refresh the timestamp.
func (s *AssignmentStore) Complete(id int64, completedBy *int64) (*model.Assignment, error) {
	var child sql.NullInt64
	if completedBy != nil {
		child = sql.NullInt64{Int64: *completedBy, Valid: true}
	}

	_, err := s.db.Exec(
		`UPDATE assignments
		 SET status = ?, completed_at = CURRENT_TIMESTAMP,
		     child_id = COALESCE(?, child_id)
		 WHERE id = ? AND status = ?`,
		model.AssignmentCompleted, child, id, model.AssignmentPending,
	)
	if err != nil {
		return nil, fmt.Errorf("complete assignment: %w", err)
	}
	return s.GetByID(id)
}

func (s *AssignmentStore) UndoComplete(id int64) (*model.Assignment, error) {
	_, err := s.db.Exec(
		`UPDATE assignments SET status = ?, completed_at = NULL WHERE id = ?`,
		model.AssignmentPending, id,
	)
	if err != nil {
		return nil, fmt.Errorf("undo complete: %w", err)
	}
	return s.GetByID(id)
}

// PointsEarned sums the points of a child's completed assignments.
func (s *AssignmentStore) PointsEarned(childID int64) (int, error) {
	var total sql.NullInt64
	err := s.db.QueryRow(
		`SELECT COALESCE(SUM(points), 0) FROM assignments WHERE child_id = ? AND status = ?`,
		childID, model.AssignmentCompleted,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum points earned: %w", err)
	}
	return int(total.Int64), nil
}
