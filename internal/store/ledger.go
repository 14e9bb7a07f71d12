package store

import (
	"database/sql"
	"fmt"

	"taskbeacon/internal/model"
)

// LedgerStore holds the two append-only ledgers: score entries and analytics
// entries. Rows are never updated; they are only appended, or bulk-deleted on
// a full per-user reset.
type LedgerStore struct {
	db *sql.DB
}

func NewLedgerStore(db *sql.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

func scanScoreEntry(scanner interface{ Scan(...any) error }) (*model.ScoreEntry, error) {
	var e model.ScoreEntry
	err := scanner.Scan(&e.ID, &e.UserID, &e.TaskID, &e.TaskTitle, &e.ScoreAmount, &e.Type, &e.RecordedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

const scoreCols = `id, user_id, task_id, task_title, score_amount, type, recorded_at`

// AppendScore inserts a score-ledger entry. Inserting an id that already
// exists is a no-op, which makes deterministic-id miss entries idempotent.
func (s *LedgerStore) AppendScore(e model.ScoreEntry) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO score_entries (`+scoreCols+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.TaskID, e.TaskTitle, e.ScoreAmount, e.Type, e.RecordedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("append score entry: %w", err)
	}
	return nil
}

func (s *LedgerStore) ListScoreByUser(userID int64) ([]model.ScoreEntry, error) {
	rows, err := s.db.Query(
		`SELECT `+scoreCols+` FROM score_entries WHERE user_id = ? ORDER BY recorded_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list score entries: %w", err)
	}
	defer rows.Close()

	var entries []model.ScoreEntry
	for rows.Next() {
		e, err := scanScoreEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan score entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// ResetScore deletes all score-ledger entries for the user.
func (s *LedgerStore) ResetScore(userID int64) error {
	_, err := s.db.Exec(`DELETE FROM score_entries WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("reset score entries: %w", err)
	}
	return nil
}

func scanAnalyticsEntry(scanner interface{ Scan(...any) error }) (*model.AnalyticsEntry, error) {
	var e model.AnalyticsEntry
	err := scanner.Scan(&e.ID, &e.UserID, &e.TaskID, &e.TaskTitle, &e.Priority, &e.EventType, &e.RecordedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

const analyticsCols = `id, user_id, task_id, task_title, priority, event_type, recorded_at`

// AppendAnalytics inserts an analytics-ledger entry with the same
// duplicate-id behavior as AppendScore.
func (s *LedgerStore) AppendAnalytics(e model.AnalyticsEntry) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO analytics_entries (`+analyticsCols+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.TaskID, e.TaskTitle, e.Priority, e.EventType, e.RecordedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("append analytics entry: %w", err)
	}
	return nil
}

func (s *LedgerStore) ListAnalyticsByUser(userID int64) ([]model.AnalyticsEntry, error) {
	rows, err := s.db.Query(
		`SELECT `+analyticsCols+` FROM analytics_entries WHERE user_id = ? ORDER BY recorded_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list analytics entries: %w", err)
	}
	defer rows.Close()

	var entries []model.AnalyticsEntry
	for rows.Next() {
		e, err := scanAnalyticsEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan analytics entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// HasMissEvent reports whether a missed analytics event was ever recorded for
// the task. The sweep uses this as a second guard against double counting.
func (s *LedgerStore) HasMissEvent(userID, taskID int64) (bool, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM analytics_entries WHERE user_id = ? AND task_id = ? AND event_type = ?`,
		userID, taskID, model.EventMissed,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check miss event: %w", err)
	}
	return n > 0, nil
}

// CountAnalyticsByType returns the all-time number of analytics entries of
// the given event type for the user.
func (s *LedgerStore) CountAnalyticsByType(userID int64, eventType model.EventType) (int, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM analytics_entries WHERE user_id = ? AND event_type = ?`,
		userID, eventType,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count analytics entries: %w", err)
	}
	return n, nil
}

// ResetAnalytics deletes all analytics-ledger entries for the user.
func (s *LedgerStore) ResetAnalytics(userID int64) error {
	_, err := s.db.Exec(`DELETE FROM analytics_entries WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("reset analytics entries: %w", err)
	}
	return nil
}
