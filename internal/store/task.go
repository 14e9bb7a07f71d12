package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"taskbeacon/internal/model"
)

type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

const taskCols = `id, user_id, title, description, category, priority, due_at, status, attachments, is_recurring, recurrence_type, auto_reschedule, reschedule_interval, score_impact, created_at, deleted_at, deletion_reason, original_due_at, reschedule_count`

func scanTask(scanner interface{ Scan(...any) error }) (*model.Task, error) {
	var t model.Task
	var attachments string
	var isRecurring, autoReschedule int
	var deletedAt, originalDueAt sql.NullTime

	err := scanner.Scan(
		&t.ID, &t.UserID, &t.Title, &t.Description, &t.Category, &t.Priority,
		&t.DueAt, &t.Status, &attachments, &isRecurring, &t.RecurrenceType,
		&autoReschedule, &t.RescheduleInterval, &t.ScoreImpact, &t.CreatedAt,
		&deletedAt, &t.DeletionReason, &originalDueAt, &t.RescheduleCount,
	)
	if err != nil {
		return nil, err
	}

	t.IsRecurring = isRecurring != 0
	t.AutoReschedule = autoReschedule != 0
	if deletedAt.Valid {
		t.DeletedAt = &deletedAt.Time
	}
	if originalDueAt.Valid {
		t.OriginalDueAt = &originalDueAt.Time
	}
	if attachments != "" {
		if err := json.Unmarshal([]byte(attachments), &t.Attachments); err != nil {
			return nil, fmt.Errorf("decode attachments: %w", err)
		}
	}
	return &t, nil
}

func encodeAttachments(attachments []model.Attachment) (string, error) {
	if attachments == nil {
		attachments = []model.Attachment{}
	}
	data, err := json.Marshal(attachments)
	if err != nil {
		return "", fmt.Errorf("encode attachments: %w", err)
	}
	return string(data), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *TaskStore) Create(task model.Task) (*model.Task, error) {
	attachments, err := encodeAttachments(task.Attachments)
	if err != nil {
		return nil, err
	}

	var originalDueAt sql.NullTime
	if task.OriginalDueAt != nil {
		originalDueAt = sql.NullTime{Time: task.OriginalDueAt.UTC(), Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO tasks (user_id, title, description, category, priority, due_at, status, attachments, is_recurring, recurrence_type, auto_reschedule, reschedule_interval, score_impact, created_at, original_due_at, reschedule_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.UserID, task.Title, task.Description, task.Category, task.Priority,
		task.DueAt.UTC(), task.Status, attachments, boolToInt(task.IsRecurring),
		task.RecurrenceType, boolToInt(task.AutoReschedule), task.RescheduleInterval,
		task.ScoreImpact, task.CreatedAt.UTC(), originalDueAt, task.RescheduleCount,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *TaskStore) GetByID(id int64) (*model.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskCols+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func (s *TaskStore) ListByUser(userID int64) ([]model.Task, error) {
	rows, err := s.db.Query(`SELECT `+taskCols+` FROM tasks WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// Update applies the non-nil fields of the patch and returns the updated row.
func (s *TaskStore) Update(id int64, patch model.TaskPatch) (*model.Task, error) {
	var sets []string
	var args []any

	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}

	if patch.Title != nil {
		set("title", *patch.Title)
	}
	if patch.Description != nil {
		set("description", *patch.Description)
	}
	if patch.Category != nil {
		set("category", *patch.Category)
	}
	if patch.Priority != nil {
		set("priority", *patch.Priority)
	}
	if patch.DueAt != nil {
		set("due_at", patch.DueAt.UTC())
	}
	if patch.Status != nil {
		set("status", *patch.Status)
	}
	if patch.Attachments != nil {
		encoded, err := encodeAttachments(*patch.Attachments)
		if err != nil {
			return nil, err
		}
		set("attachments", encoded)
	}
	if patch.IsRecurring != nil {
		set("is_recurring", boolToInt(*patch.IsRecurring))
	}
	if patch.RecurrenceType != nil {
		set("recurrence_type", *patch.RecurrenceType)
	}
	if patch.AutoReschedule != nil {
		set("auto_reschedule", boolToInt(*patch.AutoReschedule))
	}
	if patch.RescheduleInterval != nil {
		set("reschedule_interval", *patch.RescheduleInterval)
	}
	if patch.ScoreImpact != nil {
		set("score_impact", *patch.ScoreImpact)
	}
	if patch.DeletedAt != nil {
		set("deleted_at", patch.DeletedAt.UTC())
	}
	if patch.DeletionReason != nil {
		set("deletion_reason", *patch.DeletionReason)
	}
	if patch.OriginalDueAt != nil {
		set("original_due_at", patch.OriginalDueAt.UTC())
	}
	if patch.RescheduleCount != nil {
		set("reschedule_count", *patch.RescheduleCount)
	}

	if len(sets) == 0 {
		return s.GetByID(id)
	}

	args = append(args, id)
	_, err := s.db.Exec(`UPDATE tasks SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return s.GetByID(id)
}

// DeleteDeletedByUser hard-removes all soft-deleted rows for the user. Ledger
// entries are untouched: the score impact of a task outlives the task.
func (s *TaskStore) DeleteDeletedByUser(userID int64) error {
	_, err := s.db.Exec(
		`DELETE FROM tasks WHERE user_id = ? AND status = ?`,
		userID, model.StatusDeleted,
	)
	if err != nil {
		return fmt.Errorf("cleanup deleted tasks: %w", err)
	}
	return nil
}
