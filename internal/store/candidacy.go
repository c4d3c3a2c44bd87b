package store

import (
	"database/sql"
	"fmt"

	"chorewheel/internal/model"
)

type CandidacyStore struct {
	db *sql.DB
}

func NewCandidacyStore(db *sql.DB) *CandidacyStore {
	return &CandidacyStore{db: db}
}

func scanCandidate(scanner interface{ Scan(...any) error }) (*model.TaskCandidate, error) {
	var c model.TaskCandidate
	err := scanner.Scan(&c.ID, &c.TaskID, &c.ChildID, &c.HouseholdID, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanResponse(scanner interface{ Scan(...any) error }) (*model.TaskResponse, error) {
	var r model.TaskResponse
	err := scanner.Scan(&r.ID, &r.TaskID, &r.ChildID, &r.HouseholdID, &r.Decision, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

const candidateCols = `id, task_id, child_id, household_id, created_at`
const responseCols = `id, task_id, child_id, household_id, decision, created_at`

// CreateCandidates publishes a task to a pool of children in one
// transaction: either the whole pool exists afterwards or none of it does.
func (s *CandidacyStore) CreateCandidates(taskID, householdID int64, childIDs []int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, childID := range childIDs {
		if _, err := tx.Exec(
			`INSERT INTO task_candidates (task_id, child_id, household_id) VALUES (?, ?, ?)`,
			taskID, childID, householdID,
		); err != nil {
			return fmt.Errorf("insert candidate %d: %w", childID, err)
		}
	}
	return tx.Commit()
}

func (s *CandidacyStore) ListCandidates(taskID int64) ([]model.TaskCandidate, error) {
	rows, err := s.db.Query(
		`SELECT `+candidateCols+` FROM task_candidates WHERE task_id = ? ORDER BY id ASC`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	var candidates []model.TaskCandidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		candidates = append(candidates, *c)
	}
	return candidates, rows.Err()
}

func (s *CandidacyStore) ListResponses(taskID int64) ([]model.TaskResponse, error) {
	rows, err := s.db.Query(
		`SELECT `+responseCols+` FROM task_responses WHERE task_id = ? ORDER BY id ASC`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	defer rows.Close()

	var responses []model.TaskResponse
	for rows.Next() {
		r, err := scanResponse(rows)
		if err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		responses = append(responses, *r)
	}
	return responses, rows.Err()
}

// InsertResponse records one child's decision. Two constraints guard it:
// UNIQUE(task_id, child_id) rejects a second response from the same child,
// and the partial index on accepted rows rejects a second acceptance for
// the task. The latter is what decides concurrent accepts: exactly one
// insert commits, every other connection gets ErrTaskBound.
func (s *CandidacyStore) InsertResponse(taskID, childID, householdID int64, decision string) (*model.TaskResponse, error) {
	result, err := s.db.Exec(
		`INSERT INTO task_responses (task_id, child_id, household_id, decision) VALUES (?, ?, ?, ?)`,
		taskID, childID, householdID, decision,
	)
	if err != nil {
		if isUniqueViolation(err) {
			// Which constraint fired: the error text is driver-specific,
			// so look for the child's prior response instead.
			row := s.db.QueryRow(
				`SELECT `+responseCols+` FROM task_responses WHERE task_id = ? AND child_id = ?`,
				taskID, childID,
			)
			if _, scanErr := scanResponse(row); scanErr == nil {
				return nil, ErrDuplicateResponse
			}
			return nil, ErrTaskBound
		}
		return nil, fmt.Errorf("insert response: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+responseCols+` FROM task_responses WHERE id = ?`, id)
	return scanResponse(row)
}

// GetAcceptedResponse returns the winning response for a task, or nil if
// nobody has accepted.
func (s *CandidacyStore) GetAcceptedResponse(taskID int64) (*model.TaskResponse, error) {
	row := s.db.QueryRow(
		`SELECT `+responseCols+` FROM task_responses WHERE task_id = ? AND decision = ?`,
		taskID, model.ResponseAccepted,
	)
	r, err := scanResponse(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get accepted response: %w", err)
	}
	return r, nil
}
