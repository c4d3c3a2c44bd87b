package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"chorewheel/internal/auth"
	"chorewheel/internal/model"
	"chorewheel/internal/schedule"
	"chorewheel/internal/store"
	"chorewheel/internal/websocket"
)

type TaskHandler struct {
	tasks  *store.TaskStore
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewTaskHandler(ts *store.TaskStore, hub *websocket.Hub, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{tasks: ts, hub: hub, logger: logger}
}

func (h *TaskHandler) broadcast(householdID int64, msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(householdID, msg)
	}
}

type taskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Points      int        `json:"points"`
	Rule        string     `json:"rule"`
	Deadline    *time.Time `json:"deadline"`
}

func (req *taskRequest) validate() string {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return "title is required"
	}
	if req.Points < 0 {
		return "points must not be negative"
	}
	rule, err := schedule.Parse(req.Rule)
	if err != nil {
		return "invalid rule: " + err.Error()
	}
	if err := rule.Validate(); err != nil {
		return "invalid rule: " + err.Error()
	}
	return ""
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	task, err := h.tasks.Create(auth.HouseholdID(r.Context()), req.Title, req.Description, req.Points, req.Rule, req.Deadline)
	if err != nil {
		h.logger.Error("create task", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create task")
		return
	}

	h.broadcast(task.HouseholdID, websocket.NewMessage("task", "created", task.ID, nil))
	writeJSON(w, http.StatusCreated, task)
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.tasks.ListByHousehold(auth.HouseholdID(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	task, err := h.loadOwned(r, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get task")
		return
	}
	if task == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.loadOwned(r, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get task")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	task, err := h.tasks.Update(id, req.Title, req.Description, req.Points, req.Rule, req.Deadline)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update task")
		return
	}

	h.broadcast(task.HouseholdID, websocket.NewMessage("task", "updated", id, nil))
	writeJSON(w, http.StatusOK, task)
}

// Deactivate soft-disables a template. Existing assignments keep their
// snapshots, so history survives.
func (h *TaskHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *TaskHandler) Activate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *TaskHandler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.loadOwned(r, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get task")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	if err := h.tasks.SetActive(id, active); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update task")
		return
	}

	action := "deactivated"
	if active {
		action = "activated"
	}
	h.broadcast(existing.HouseholdID, websocket.NewMessage("task", action, id, nil))
	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) loadOwned(r *http.Request, id int64) (*model.Task, error) {
	task, err := h.tasks.GetByID(id)
	if err != nil {
		return nil, err
	}
	if task == nil || task.HouseholdID != auth.HouseholdID(r.Context()) {
		return nil, nil
	}
	return task, nil
}
