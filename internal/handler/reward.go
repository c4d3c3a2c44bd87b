package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"chorewheel/internal/auth"
	"chorewheel/internal/model"
	"chorewheel/internal/store"
	"chorewheel/internal/websocket"
)

type RewardHandler struct {
	rewards  *store.RewardStore
	children *store.ChildStore
	hub      *websocket.Hub
	logger   *slog.Logger
}

func NewRewardHandler(rs *store.RewardStore, cs *store.ChildStore, hub *websocket.Hub, logger *slog.Logger) *RewardHandler {
	return &RewardHandler{rewards: rs, children: cs, hub: hub, logger: logger}
}

func (h *RewardHandler) broadcast(householdID int64, msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(householdID, msg)
	}
}

type rewardRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	PointCost   int    `json:"point_cost"`
	Active      bool   `json:"active"`
}

func (h *RewardHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req rewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.PointCost <= 0 {
		writeError(w, http.StatusBadRequest, "point_cost must be positive")
		return
	}

	reward, err := h.rewards.Create(auth.HouseholdID(r.Context()), req.Title, req.Description, req.PointCost)
	if err != nil {
		h.logger.Error("create reward", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create reward")
		return
	}

	h.broadcast(reward.HouseholdID, websocket.NewMessage("reward", "created", reward.ID, nil))
	writeJSON(w, http.StatusCreated, reward)
}

func (h *RewardHandler) List(w http.ResponseWriter, r *http.Request) {
	rewards, err := h.rewards.ListByHousehold(auth.HouseholdID(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list rewards")
		return
	}
	if rewards == nil {
		rewards = []model.Reward{}
	}
	writeJSON(w, http.StatusOK, rewards)
}

func (h *RewardHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.loadOwned(r, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get reward")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "reward not found")
		return
	}

	var req rewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	reward, err := h.rewards.Update(id, req.Title, req.Description, req.PointCost, req.Active)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update reward")
		return
	}

	h.broadcast(reward.HouseholdID, websocket.NewMessage("reward", "updated", id, nil))
	writeJSON(w, http.StatusOK, reward)
}

func (h *RewardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.loadOwned(r, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get reward")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "reward not found")
		return
	}

	if err := h.rewards.Delete(id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete reward")
		return
	}

	h.broadcast(existing.HouseholdID, websocket.NewMessage("reward", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

type redeemRequest struct {
	ChildID int64 `json:"child_id"`
}

// Redeem spends a child's points on a reward. The balance check is advisory
// for the UI; parents can always undo through the redemption history.
func (h *RewardHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	reward, err := h.loadOwned(r, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get reward")
		return
	}
	if reward == nil {
		writeError(w, http.StatusNotFound, "reward not found")
		return
	}
	if !reward.Active {
		writeError(w, http.StatusBadRequest, "reward is not active")
		return
	}

	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	child, err := h.children.GetByID(req.ChildID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check child")
		return
	}
	if child == nil || child.HouseholdID != reward.HouseholdID {
		writeError(w, http.StatusBadRequest, "child not in household")
		return
	}

	balance, err := h.rewards.GetPointBalance(req.ChildID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check balance")
		return
	}
	if balance.Balance < reward.PointCost {
		writeError(w, http.StatusBadRequest, "not enough points")
		return
	}

	redemption, err := h.rewards.Redeem(id, &req.ChildID, reward.PointCost)
	if err != nil {
		h.logger.Error("redeem reward", "reward_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to redeem reward")
		return
	}

	h.broadcast(reward.HouseholdID, websocket.NewMessage("reward", "redeemed", id, map[string]any{
		"child_id": req.ChildID,
	}))
	writeJSON(w, http.StatusCreated, redemption)
}

// Balance returns one child's earned/spent/balance totals.
func (h *RewardHandler) Balance(w http.ResponseWriter, r *http.Request) {
	childID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	child, err := h.children.GetByID(childID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get child")
		return
	}
	if child == nil || child.HouseholdID != auth.HouseholdID(r.Context()) {
		writeError(w, http.StatusNotFound, "child not found")
		return
	}

	balance, err := h.rewards.GetPointBalance(childID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get balance")
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

// Leaderboard returns every child's balance sorted highest first.
func (h *RewardHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	board, err := h.rewards.GetLeaderboard(auth.HouseholdID(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get leaderboard")
		return
	}
	if board == nil {
		board = []model.PointBalance{}
	}
	writeJSON(w, http.StatusOK, board)
}

func (h *RewardHandler) loadOwned(r *http.Request, id int64) (*model.Reward, error) {
	reward, err := h.rewards.GetByID(id)
	if err != nil {
		return nil, err
	}
	if reward == nil || reward.HouseholdID != auth.HouseholdID(r.Context()) {
		return nil, nil
	}
	return reward, nil
}
