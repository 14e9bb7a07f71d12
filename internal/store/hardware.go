package store

import (
	"database/sql"
	"fmt"
	"time"

	"taskbeacon/internal/model"
)

// HardwareStore persists the device-visible projection and the inbound action
// queue, both keyed by pairing code.
type HardwareStore struct {
	db *sql.DB
}

func NewHardwareStore(db *sql.DB) *HardwareStore {
	return &HardwareStore{db: db}
}

// ReplaceProjection swaps the device task list for the pairing code wholesale.
func (s *HardwareStore) ReplaceProjection(pairingCode string, tasks []model.HardwareTask) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM hardware_tasks WHERE pairing_code = ?`, pairingCode); err != nil {
		return fmt.Errorf("clear projection: %w", err)
	}
	for i, t := range tasks {
		_, err := tx.Exec(
			`INSERT INTO hardware_tasks (pairing_code, position, task_id, title, priority, due_at, status) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			pairingCode, i, t.TaskID, t.Title, t.Priority, t.DueAt.UTC(), t.Status,
		)
		if err != nil {
			return fmt.Errorf("insert projection row: %w", err)
		}
	}
	return tx.Commit()
}

// ListProjection returns the current projection in display order.
func (s *HardwareStore) ListProjection(pairingCode string) ([]model.HardwareTask, error) {
	rows, err := s.db.Query(
		`SELECT task_id, title, priority, due_at, status FROM hardware_tasks WHERE pairing_code = ? ORDER BY position ASC`,
		pairingCode,
	)
	if err != nil {
		return nil, fmt.Errorf("list projection: %w", err)
	}
	defer rows.Close()

	var tasks []model.HardwareTask
	for rows.Next() {
		var t model.HardwareTask
		if err := rows.Scan(&t.TaskID, &t.Title, &t.Priority, &t.DueAt, &t.Status); err != nil {
			return nil, fmt.Errorf("scan projection row: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// DeleteProjection removes the projection for a retired pairing code.
func (s *HardwareStore) DeleteProjection(pairingCode string) error {
	_, err := s.db.Exec(`DELETE FROM hardware_tasks WHERE pairing_code = ?`, pairingCode)
	if err != nil {
		return fmt.Errorf("delete projection: %w", err)
	}
	return nil
}

func scanAction(scanner interface{ Scan(...any) error }) (*model.HardwareAction, error) {
	var a model.HardwareAction
	var handled int
	var handledAt sql.NullTime
	err := scanner.Scan(&a.ID, &a.PairingCode, &a.Action, &a.TaskID, &handled, &a.SubmittedAt, &handledAt)
	if err != nil {
		return nil, err
	}
	a.Handled = handled != 0
	if handledAt.Valid {
		a.HandledAt = &handledAt.Time
	}
	return &a, nil
}

const actionCols = `id, pairing_code, action, task_id, handled, submitted_at, handled_at`

// SubmitAction queues a device action for the poller.
func (s *HardwareStore) SubmitAction(pairingCode, action string, taskID int64) (*model.HardwareAction, error) {
	result, err := s.db.Exec(
		`INSERT INTO hardware_actions (pairing_code, action, task_id, submitted_at) VALUES (?, ?, ?, ?)`,
		pairingCode, action, taskID, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert hardware action: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRow(`SELECT `+actionCols+` FROM hardware_actions WHERE id = ?`, id)
	return scanAction(row)
}

// ListUnhandled returns queued actions in submission order.
func (s *HardwareStore) ListUnhandled() ([]model.HardwareAction, error) {
	rows, err := s.db.Query(
		`SELECT ` + actionCols + ` FROM hardware_actions WHERE handled = 0 ORDER BY submitted_at ASC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list unhandled actions: %w", err)
	}
	defer rows.Close()

	var actions []model.HardwareAction
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan hardware action: %w", err)
		}
		actions = append(actions, *a)
	}
	return actions, rows.Err()
}

// MarkHandled flips the handled flag so the action is never applied twice.
func (s *HardwareStore) MarkHandled(id int64) error {
	_, err := s.db.Exec(
		`UPDATE hardware_actions SET handled = 1, handled_at = ? WHERE id = ?`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("mark action handled: %w", err)
	}
	return nil
}
