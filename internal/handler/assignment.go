package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"chorewheel/internal/auth"
	"chorewheel/internal/calendar"
	"chorewheel/internal/generate"
	"chorewheel/internal/model"
	"chorewheel/internal/store"
	"chorewheel/internal/websocket"
)

type AssignmentHandler struct {
	assignments *store.AssignmentStore
	generator   *generate.Generator
	hub         *websocket.Hub
	logger      *slog.Logger
}

func NewAssignmentHandler(as *store.AssignmentStore, gen *generate.Generator, hub *websocket.Hub, logger *slog.Logger) *AssignmentHandler {
	return &AssignmentHandler{assignments: as, generator: gen, hub: hub, logger: logger}
}

func (h *AssignmentHandler) broadcast(householdID int64, msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(householdID, msg)
	}
}

// List returns assignments for a date range. Defaults to today when no range
// is given; start and end are inclusive YYYY-MM-DD.
func (h *AssignmentHandler) List(w http.ResponseWriter, r *http.Request) {
	today := calendar.FromTime(time.Now().UTC()).String()
	start := r.URL.Query().Get("start")
	end := r.URL.Query().Get("end")
	if start == "" {
		start = today
	}
	if end == "" {
		end = start
	}
	if _, err := calendar.Parse(start); err != nil {
		writeError(w, http.StatusBadRequest, "invalid start date")
		return
	}
	if _, err := calendar.Parse(end); err != nil {
		writeError(w, http.StatusBadRequest, "invalid end date")
		return
	}

	assignments, err := h.assignments.ListByDateRange(auth.HouseholdID(r.Context()), start, end)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list assignments")
		return
	}
	if assignments == nil {
		assignments = []model.Assignment{}
	}
	writeJSON(w, http.StatusOK, assignments)
}

type completeRequest struct {
	ChildID *int64 `json:"child_id"`
}

// Complete marks an assignment done. For shared assignments the completing
// child takes ownership.
func (h *AssignmentHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.loadOwned(r, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get assignment")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "assignment not found")
		return
	}

	var req completeRequest
	json.NewDecoder(r.Body).Decode(&req)

	assignment, err := h.assignments.Complete(id, req.ChildID)
	if err != nil {
		h.logger.Error("complete assignment", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to complete assignment")
		return
	}

	h.broadcast(assignment.HouseholdID, websocket.NewMessage("assignment", "completed", id, nil))
	writeJSON(w, http.StatusOK, assignment)
}

func (h *AssignmentHandler) UndoComplete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.loadOwned(r, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get assignment")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "assignment not found")
		return
	}

	assignment, err := h.assignments.UndoComplete(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to undo completion")
		return
	}

	h.broadcast(assignment.HouseholdID, websocket.NewMessage("assignment", "completion_undone", id, nil))
	writeJSON(w, http.StatusOK, assignment)
}

type generateRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Generate runs assignment generation for the caller's household over an
// inclusive date range. Re-running an overlapping range only creates the
// missing assignments.
func (h *AssignmentHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	start, err := calendar.Parse(req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start date")
		return
	}
	end, err := calendar.Parse(req.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end date")
		return
	}

	householdID := auth.HouseholdID(r.Context())
	res, err := h.generator.Generate(r.Context(), householdID, start, end)
	if err != nil {
		h.logger.Error("generation run", "household_id", householdID, "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if res.Created > 0 {
		h.broadcast(householdID, websocket.NewMessage("assignment", "generated", 0, map[string]any{
			"created": res.Created,
		}))
	}

	failed := make([]string, 0, len(res.Errors))
	for _, e := range res.Errors {
		failed = append(failed, e.Error())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"created": res.Created,
		"skipped": res.Skipped,
		"failed":  failed,
	})
}

func (h *AssignmentHandler) loadOwned(r *http.Request, id int64) (*model.Assignment, error) {
	assignment, err := h.assignments.GetByID(id)
	if err != nil {
		return nil, err
	}
	if assignment == nil || assignment.HouseholdID != auth.HouseholdID(r.Context()) {
		return nil, nil
	}
	return assignment, nil
}
