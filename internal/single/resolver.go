package single

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"chorewheel/internal/calendar"
	"chorewheel/internal/model"
	"chorewheel/internal/schedule"
	"chorewheel/internal/store"
)

// State of a single task's candidacy.
type State string

const (
	// StatePublished: candidates exist and nobody has accepted yet.
	StatePublished State = "published"
	// StateBound: one child accepted; the task is theirs.
	StateBound State = "bound"
	// StateExhausted: every candidate declined; no assignment will be made.
	StateExhausted State = "exhausted"
)

var (
	ErrTaskNotFound     = errors.New("task not found")
	ErrTaskNotSingle    = errors.New("task is not a single task")
	ErrAlreadyPublished = errors.New("task already published to candidates")
	ErrNoCandidates     = errors.New("no candidate children given")
	ErrNotACandidate    = errors.New("child is not a candidate for this task")

	// ErrDuplicateResponse and ErrAlreadyBound surface the storage
	// constraints directly; the accept race in particular is decided by
	// the database, not by this process.
	ErrDuplicateResponse = store.ErrDuplicateResponse
	ErrAlreadyBound      = store.ErrTaskBound
)

// TaskSource looks up task templates.
type TaskSource interface {
	GetByID(id int64) (*model.Task, error)
}

// CandidacyStore persists candidate pools and responses. InsertResponse must
// atomically reject a second accepted response for the same task.
type CandidacyStore interface {
	CreateCandidates(taskID, householdID int64, childIDs []int64) error
	ListCandidates(taskID int64) ([]model.TaskCandidate, error)
	ListResponses(taskID int64) ([]model.TaskResponse, error)
	InsertResponse(taskID, childID, householdID int64, decision string) (*model.TaskResponse, error)
}

// AssignmentWriter materializes the assignment for the winning child.
type AssignmentWriter interface {
	InsertIfAbsent(a model.Assignment) (bool, error)
}

// Status describes where a single task stands in its candidacy lifecycle.
type Status struct {
	State      State                `json:"state"`
	Candidates []model.TaskCandidate `json:"candidates"`
	Responses  []model.TaskResponse  `json:"responses"`
	BoundChild *int64               `json:"bound_child,omitempty"`
}

// Resolver runs the candidacy state machine for single tasks: publish to a
// pool of children, then record accept/decline responses until one child
// wins or everyone declines.
type Resolver struct {
	tasks       TaskSource
	candidacy   CandidacyStore
	assignments AssignmentWriter
	logger      *slog.Logger
	now         func() time.Time
}

func NewResolver(tasks TaskSource, candidacy CandidacyStore, assignments AssignmentWriter, logger *slog.Logger) *Resolver {
	return &Resolver{
		tasks:       tasks,
		candidacy:   candidacy,
		assignments: assignments,
		logger:      logger,
		now:         time.Now,
	}
}

// Publish opens the task to the given children. It fails if the task is not
// a single task or has already been published.
func (r *Resolver) Publish(taskID int64, childIDs []int64) error {
	if len(childIDs) == 0 {
		return ErrNoCandidates
	}

	task, err := r.loadSingleTask(taskID)
	if err != nil {
		return err
	}

	existing, err := r.candidacy.ListCandidates(taskID)
	if err != nil {
		return fmt.Errorf("list candidates: %w", err)
	}
	if len(existing) > 0 {
		return ErrAlreadyPublished
	}

	if err := r.candidacy.CreateCandidates(taskID, task.HouseholdID, childIDs); err != nil {
		return fmt.Errorf("create candidates: %w", err)
	}

	r.logger.Info("single task published", "task_id", taskID, "candidates", len(childIDs))
	return nil
}

// Respond records one child's accept or decline. The first accepted response
// wins: the storage layer's uniqueness constraint serializes concurrent
// accepts, and losers get ErrAlreadyBound. A winning accept materializes
// exactly one assignment for the child.
func (r *Resolver) Respond(taskID, childID int64, decision string) (State, error) {
	if decision != model.ResponseAccepted && decision != model.ResponseDeclined {
		return "", fmt.Errorf("invalid decision %q", decision)
	}

	task, err := r.loadSingleTask(taskID)
	if err != nil {
		return "", err
	}

	candidates, err := r.candidacy.ListCandidates(taskID)
	if err != nil {
		return "", fmt.Errorf("list candidates: %w", err)
	}
	if !isCandidate(candidates, childID) {
		return "", ErrNotACandidate
	}

	responses, err := r.candidacy.ListResponses(taskID)
	if err != nil {
		return "", fmt.Errorf("list responses: %w", err)
	}
	for _, resp := range responses {
		if resp.ChildID == childID {
			return "", ErrDuplicateResponse
		}
	}
	if decision == model.ResponseAccepted && hasAccepted(responses) {
		return "", ErrAlreadyBound
	}

	// The pre-checks above are advisory; the insert is where concurrent
	// accepts are actually decided.
	if _, err := r.candidacy.InsertResponse(taskID, childID, task.HouseholdID, decision); err != nil {
		if errors.Is(err, store.ErrTaskBound) || errors.Is(err, store.ErrDuplicateResponse) {
			return "", err
		}
		return "", fmt.Errorf("record response: %w", err)
	}

	if decision == model.ResponseAccepted {
		if err := r.bind(task, childID); err != nil {
			return "", err
		}
		return StateBound, nil
	}

	// Declined. A bound task stays bound no matter how many declines
	// follow; only a full set of declines exhausts it.
	if hasAccepted(responses) {
		return StateBound, nil
	}
	if len(responses)+1 >= len(candidates) {
		r.logger.Info("single task exhausted", "task_id", taskID)
		return StateExhausted, nil
	}
	return StatePublished, nil
}

// Status reports the task's current candidacy state.
func (r *Resolver) Status(taskID int64) (*Status, error) {
	if _, err := r.loadSingleTask(taskID); err != nil {
		return nil, err
	}

	candidates, err := r.candidacy.ListCandidates(taskID)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	responses, err := r.candidacy.ListResponses(taskID)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}

	st := &Status{State: StatePublished, Candidates: candidates, Responses: responses}
	for _, resp := range responses {
		if resp.Decision == model.ResponseAccepted {
			childID := resp.ChildID
			st.State = StateBound
			st.BoundChild = &childID
			return st, nil
		}
	}
	if len(candidates) > 0 && len(responses) >= len(candidates) {
		st.State = StateExhausted
	}
	return st, nil
}

func (r *Resolver) bind(task *model.Task, childID int64) error {
	due := calendar.FromTime(r.now())
	if task.Deadline != nil {
		due = calendar.FromTime(*task.Deadline)
	}

	a := model.Assignment{
		TaskID:      task.ID,
		HouseholdID: task.HouseholdID,
		ChildID:     &childID,
		Title:       task.Title,
		Description: task.Description,
		Points:      task.Points,
		DueDate:     due.String(),
		Status:      model.AssignmentPending,
	}
	if _, err := r.assignments.InsertIfAbsent(a); err != nil {
		return fmt.Errorf("materialize assignment: %w", err)
	}

	r.logger.Info("single task bound", "task_id", task.ID, "child_id", childID)
	return nil
}

func (r *Resolver) loadSingleTask(taskID int64) (*model.Task, error) {
	task, err := r.tasks.GetByID(taskID)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}

	rule, err := schedule.Parse(task.Rule)
	if err != nil {
		return nil, err
	}
	if rule.Type != schedule.RuleSingle {
		return nil, ErrTaskNotSingle
	}
	return task, nil
}

func isCandidate(candidates []model.TaskCandidate, childID int64) bool {
	for _, c := range candidates {
		if c.ChildID == childID {
			return true
		}
	}
	return false
}

func hasAccepted(responses []model.TaskResponse) bool {
	for _, resp := range responses {
		if resp.Decision == model.ResponseAccepted {
			return true
		}
	}
	return false
}
