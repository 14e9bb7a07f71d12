package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"taskbeacon/internal/auth"
	"taskbeacon/internal/store"
	"taskbeacon/internal/task"
)

type AccountHandler struct {
	users  *store.UserStore
	ledger *store.LedgerStore
	tasks  *task.Service
	logger *slog.Logger
}

func NewAccountHandler(users *store.UserStore, ledger *store.LedgerStore, tasks *task.Service, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{users: users, ledger: ledger, tasks: tasks, logger: logger}
}

func (h *AccountHandler) UpdateUsername(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	var req struct {
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		writeError(w, http.StatusBadRequest, "Username cannot be empty")
		return
	}

	if err := h.users.UpdateUsername(userID, req.Username); err != nil {
		if errors.Is(err, store.ErrUsernameTaken) {
			writeError(w, http.StatusBadRequest, "Username already exists")
			return
		}
		h.logger.Error("update username", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to update username")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Username updated successfully"})
}

func (h *AccountHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "Current and new passwords are required")
		return
	}
	if len(req.NewPassword) < minPasswordLength {
		writeFieldError(w, "Password must be at least 8 characters", "new_password")
		return
	}

	user, err := h.users.GetByID(userID)
	if err != nil || user == nil {
		writeError(w, http.StatusInternalServerError, "Failed to load user")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)) != nil {
		writeError(w, http.StatusBadRequest, "Current password is incorrect")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to update password")
		return
	}
	if err := h.users.UpdatePassword(userID, string(hash)); err != nil {
		h.logger.Error("update password", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to update password")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated successfully"})
}

func (h *AccountHandler) ResetScores(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	if err := h.ledger.ResetScore(userID); err != nil {
		h.logger.Error("reset score history", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to reset score history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Score history reset successfully"})
}

func (h *AccountHandler) ResetAnalytics(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	if err := h.ledger.ResetAnalytics(userID); err != nil {
		h.logger.Error("reset analytics history", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to reset analytics history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Analytics history reset successfully"})
}

func (h *AccountHandler) CleanupDeleted(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	if err := h.tasks.CleanupDeleted(userID); err != nil {
		h.logger.Error("cleanup deleted tasks", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to cleanup deleted tasks")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Deleted tasks cleaned up successfully"})
}
