package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"taskbeacon/internal/auth"
	"taskbeacon/internal/hardware"
	"taskbeacon/internal/model"
	"taskbeacon/internal/store"
)

type HardwareHandler struct {
	hardware *hardware.Service
	users    *store.UserStore
	logger   *slog.Logger
}

func NewHardwareHandler(hw *hardware.Service, users *store.UserStore, logger *slog.Logger) *HardwareHandler {
	return &HardwareHandler{hardware: hw, users: users, logger: logger}
}

// PairingCode returns the user's current code, issuing one on first request.
func (h *HardwareHandler) PairingCode(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	user, err := h.users.GetByID(userID)
	if err != nil || user == nil {
		writeError(w, http.StatusInternalServerError, "Failed to load user")
		return
	}
	code := user.PairingCode
	if code == "" {
		code, err = h.hardware.GeneratePairingCode(userID)
		if err != nil {
			h.logger.Error("generate pairing code", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to generate pairing code")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"code": code})
}

// RotateCode always issues a fresh code, invalidating the old one.
func (h *HardwareHandler) RotateCode(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	code, err := h.hardware.GeneratePairingCode(userID)
	if err != nil {
		h.logger.Error("rotate pairing code", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to rotate pairing code")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"code": code})
}

type pairRequest struct {
	PairingCode string `json:"pairing_code"`
	HardwareID  string `json:"hardware_id"`
}

func (h *HardwareHandler) Pair(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	var req pairRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.PairingCode = strings.ToUpper(strings.TrimSpace(req.PairingCode))
	if req.PairingCode == "" || req.HardwareID == "" {
		writeError(w, http.StatusBadRequest, "Pairing code and hardware id are required")
		return
	}

	if err := h.hardware.Pair(userID, req.PairingCode, req.HardwareID); err != nil {
		if errors.Is(err, hardware.ErrCodeMismatch) {
			writeError(w, http.StatusBadRequest, "Invalid pairing code")
			return
		}
		h.logger.Error("pair hardware", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to pair")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Paired successfully"})
}

type actionRequest struct {
	PairingCode string `json:"pairing_code"`
	Action      string `json:"action"`
	TaskID      int64  `json:"task_id"`
}

// SubmitAction is the device-facing endpoint: unauthenticated, keyed by
// pairing code. The action is queued and applied asynchronously.
func (h *HardwareHandler) SubmitAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.PairingCode = strings.ToUpper(strings.TrimSpace(req.PairingCode))
	if req.Action != model.ActionComplete && req.Action != model.ActionReschedule {
		writeFieldError(w, "Invalid action", "action")
		return
	}
	if req.TaskID == 0 {
		writeFieldError(w, "Task id is required", "task_id")
		return
	}

	if err := h.hardware.SubmitAction(req.PairingCode, req.Action, req.TaskID); err != nil {
		if errors.Is(err, hardware.ErrUnknownCode) {
			writeError(w, http.StatusNotFound, "Unknown pairing code")
			return
		}
		h.logger.Error("submit hardware action", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to submit action")
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// Tasks returns the device projection for the authenticated user, mirroring
// what a paired display would show.
func (h *HardwareHandler) Tasks(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	tasks, err := h.hardware.Snapshot(userID)
	if err != nil {
		h.logger.Error("hardware snapshot", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load hardware tasks")
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}
