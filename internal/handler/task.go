package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"taskbeacon/internal/auth"
	"taskbeacon/internal/model"
	"taskbeacon/internal/task"
)

type TaskHandler struct {
	tasks  *task.Service
	logger *slog.Logger
}

func NewTaskHandler(tasks *task.Service, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{tasks: tasks, logger: logger}
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	f := task.Filters{
		Status:   r.URL.Query().Get("status"),
		Category: r.URL.Query().Get("category"),
	}
	if from := r.URL.Query().Get("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			writeFieldError(w, "invalid from timestamp", "from")
			return
		}
		f.From = &t
	}
	if to := r.URL.Query().Get("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			writeFieldError(w, "invalid to timestamp", "to")
			return
		}
		f.To = &t
	}

	tasks, err := h.tasks.List(userID, f)
	if err != nil {
		h.logger.Error("list tasks", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list tasks")
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	var req model.Task
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeFieldError(w, "Title is required", "title")
		return
	}
	if req.DueAt.IsZero() {
		writeFieldError(w, "Due date is required", "due_date_time")
		return
	}
	if req.Priority == "" {
		req.Priority = model.PriorityMedium
	}
	if !req.Priority.Valid() {
		writeFieldError(w, "Invalid priority", "priority")
		return
	}
	if req.Status != "" && !req.Status.Valid() {
		writeFieldError(w, "Invalid status", "status")
		return
	}
	if req.IsRecurring && !req.RecurrenceType.Valid() {
		writeFieldError(w, "Invalid recurrence type", "recurrence_type")
		return
	}

	created, err := h.tasks.Create(userID, req)
	if err != nil {
		h.logger.Error("create task", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to create task")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, ok := h.ownedTask(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	t, ok := h.ownedTask(w, r)
	if !ok {
		return
	}

	var patch model.TaskPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if patch.Status != nil && !patch.Status.Valid() {
		writeFieldError(w, "Invalid status", "status")
		return
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		writeFieldError(w, "Invalid priority", "priority")
		return
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		writeFieldError(w, "Title cannot be empty", "title")
		return
	}

	updated, err := h.tasks.Update(t.ID, patch)
	if err != nil {
		h.logger.Error("update task", "task_id", t.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to update task")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	t, ok := h.ownedTask(w, r)
	if !ok {
		return
	}

	if err := h.tasks.Delete(t.ID); err != nil {
		h.logger.Error("delete task", "task_id", t.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete task")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ownedTask loads the task from the path id and enforces ownership: a missing
// task answers 404 before the ownership check so ids cannot be probed for
// existence ahead of authorization.
func (h *TaskHandler) ownedTask(w http.ResponseWriter, r *http.Request) (*model.Task, bool) {
	userID, _ := auth.UserID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil, false
	}

	t, err := h.tasks.Get(id)
	if err != nil {
		h.logger.Error("get task", "task_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to get task")
		return nil, false
	}
	if t == nil {
		writeError(w, http.StatusNotFound, "Task not found")
		return nil, false
	}
	if t.UserID != userID {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return nil, false
	}
	return t, true
}
