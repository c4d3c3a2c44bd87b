package handler

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"chorewheel/internal/auth"
	"chorewheel/internal/backup"
	"chorewheel/internal/model"
	"chorewheel/internal/store"
)

type BackupHandler struct {
	manager *backup.Manager
	records *store.BackupStore
	logger  *slog.Logger
}

func NewBackupHandler(manager *backup.Manager, records *store.BackupStore, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{manager: manager, records: records, logger: logger}
}

func (h *BackupHandler) List(w http.ResponseWriter, r *http.Request) {
	backups, err := h.records.ListByHousehold(auth.HouseholdID(r.Context()), 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list backups")
		return
	}
	if backups == nil {
		backups = []model.BackupRecord{}
	}
	writeJSON(w, http.StatusOK, backups)
}

// Run triggers an immediate backup.
func (h *BackupHandler) Run(w http.ResponseWriter, r *http.Request) {
	if !h.manager.Enabled() {
		writeError(w, http.StatusServiceUnavailable, "backups are not configured")
		return
	}

	id, err := h.manager.Run(r.Context(), auth.HouseholdID(r.Context()))
	if err != nil {
		h.logger.Error("manual backup", "error", err)
		writeError(w, http.StatusInternalServerError, "backup failed")
		return
	}

	record, err := h.records.GetByID(id)
	if err != nil || record == nil {
		writeError(w, http.StatusInternalServerError, "backup record missing")
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

// Download streams a stored backup file.
func (h *BackupHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	record, err := h.records.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get backup")
		return
	}
	if record == nil || record.HouseholdID != auth.HouseholdID(r.Context()) {
		writeError(w, http.StatusNotFound, "backup not found")
		return
	}

	body, size, err := h.manager.Download(r.Context(), id)
	if err != nil {
		h.logger.Error("download backup", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to download backup")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", record.Filename))
	if size > 0 {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", size))
	}
	io.Copy(w, body)
}
