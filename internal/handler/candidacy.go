package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"chorewheel/internal/auth"
	"chorewheel/internal/model"
	"chorewheel/internal/push"
	"chorewheel/internal/single"
	"chorewheel/internal/store"
	"chorewheel/internal/websocket"
)

// CandidacyHandler exposes the one-off task lifecycle: publish to a pool of
// children, record accept/decline responses, and report status.
type CandidacyHandler struct {
	resolver *single.Resolver
	tasks    *store.TaskStore
	children *store.ChildStore
	hub      *websocket.Hub
	notifier *push.Notifier
	logger   *slog.Logger
}

func NewCandidacyHandler(
	resolver *single.Resolver,
	tasks *store.TaskStore,
	children *store.ChildStore,
	hub *websocket.Hub,
	notifier *push.Notifier,
	logger *slog.Logger,
) *CandidacyHandler {
	return &CandidacyHandler{
		resolver: resolver,
		tasks:    tasks,
		children: children,
		hub:      hub,
		notifier: notifier,
		logger:   logger,
	}
}

func (h *CandidacyHandler) broadcast(householdID int64, msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(householdID, msg)
	}
}

type publishRequest struct {
	ChildIDs []int64 `json:"child_ids"`
}

func (h *CandidacyHandler) Publish(w http.ResponseWriter, r *http.Request) {
	taskID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	task, err := h.loadOwnedTask(r, taskID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get task")
		return
	}
	if task == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	// Every candidate must be a child of this household.
	for _, childID := range req.ChildIDs {
		child, err := h.children.GetByID(childID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to check child")
			return
		}
		if child == nil || child.HouseholdID != task.HouseholdID {
			writeError(w, http.StatusBadRequest, "child not in household")
			return
		}
	}

	if err := h.resolver.Publish(taskID, req.ChildIDs); err != nil {
		switch {
		case errors.Is(err, single.ErrNoCandidates):
			writeError(w, http.StatusBadRequest, "child_ids must not be empty")
		case errors.Is(err, single.ErrTaskNotSingle):
			writeError(w, http.StatusBadRequest, "task is not a one-off task")
		case errors.Is(err, single.ErrAlreadyPublished):
			writeError(w, http.StatusConflict, "task already published")
		default:
			h.logger.Error("publish task", "task_id", taskID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to publish task")
		}
		return
	}

	h.broadcast(task.HouseholdID, websocket.NewMessage("candidacy", "published", taskID, nil))
	if h.notifier != nil {
		h.notifier.TaskOffered(task.HouseholdID, taskID, task.Title)
	}
	w.WriteHeader(http.StatusNoContent)
}

type respondRequest struct {
	ChildID  int64  `json:"child_id"`
	Decision string `json:"decision"`
}

func (h *CandidacyHandler) Respond(w http.ResponseWriter, r *http.Request) {
	taskID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	task, err := h.loadOwnedTask(r, taskID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get task")
		return
	}
	if task == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	var req respondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	state, err := h.resolver.Respond(taskID, req.ChildID, req.Decision)
	if err != nil {
		switch {
		case errors.Is(err, single.ErrNotACandidate):
			writeError(w, http.StatusForbidden, "child is not a candidate for this task")
		case errors.Is(err, single.ErrDuplicateResponse):
			writeError(w, http.StatusConflict, "child already responded")
		case errors.Is(err, single.ErrAlreadyBound):
			writeError(w, http.StatusConflict, "task already accepted by another child")
		case errors.Is(err, single.ErrTaskNotSingle):
			writeError(w, http.StatusBadRequest, "task is not a one-off task")
		default:
			h.logger.Error("record response", "task_id", taskID, "error", err)
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	switch {
	// A decline against an already-bound task also reports StateBound;
	// only the winning accept announces the bind.
	case state == single.StateBound && req.Decision == model.ResponseAccepted:
		h.broadcast(task.HouseholdID, websocket.NewMessage("candidacy", "accepted", taskID, map[string]any{
			"child_id": req.ChildID,
		}))
		if h.notifier != nil {
			name := h.childName(req.ChildID)
			h.notifier.TaskBound(task.HouseholdID, taskID, task.Title, name)
		}
	case state == single.StateExhausted:
		h.broadcast(task.HouseholdID, websocket.NewMessage("candidacy", "exhausted", taskID, nil))
		if h.notifier != nil {
			h.notifier.TaskExhausted(task.HouseholdID, taskID, task.Title)
		}
	default:
		h.broadcast(task.HouseholdID, websocket.NewMessage("candidacy", "declined", taskID, map[string]any{
			"child_id": req.ChildID,
		}))
	}

	writeJSON(w, http.StatusOK, map[string]string{"state": string(state)})
}

func (h *CandidacyHandler) Status(w http.ResponseWriter, r *http.Request) {
	taskID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	task, err := h.loadOwnedTask(r, taskID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get task")
		return
	}
	if task == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	status, err := h.resolver.Status(taskID)
	if err != nil {
		if errors.Is(err, single.ErrTaskNotSingle) {
			writeError(w, http.StatusBadRequest, "task is not a one-off task")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get status")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *CandidacyHandler) loadOwnedTask(r *http.Request, id int64) (*model.Task, error) {
	task, err := h.tasks.GetByID(id)
	if err != nil {
		return nil, err
	}
	if task == nil || task.HouseholdID != auth.HouseholdID(r.Context()) {
		return nil, nil
	}
	return task, nil
}

func (h *CandidacyHandler) childName(childID int64) string {
	child, err := h.children.GetByID(childID)
	if err != nil || child == nil {
		return "Someone"
	}
	return child.Name
}
