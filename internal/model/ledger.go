package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// EventType labels ledger entries. The score ledger uses completed/missed;
// the analytics ledger additionally records created events.
type EventType string

const (
	EventCompleted EventType = "completed"
	EventMissed    EventType = "missed"
	EventCreated   EventType = "created"
)

// ScoreEntry is an immutable score-ledger row. Completed entries add their
// amount to period scores, missed entries subtract it.
type ScoreEntry struct {
	ID          string    `json:"id"`
	UserID      int64     `json:"user_id"`
	TaskID      int64     `json:"task_id"`
	TaskTitle   string    `json:"task_title"`
	ScoreAmount int       `json:"score_amount"`
	Type        EventType `json:"type"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// AnalyticsEntry is an immutable analytics-ledger row, one per lifecycle event.
type AnalyticsEntry struct {
	ID         string    `json:"id"`
	UserID     int64     `json:"user_id"`
	TaskID     int64     `json:"task_id"`
	TaskTitle  string    `json:"task_title"`
	Priority   Priority  `json:"priority"`
	EventType  EventType `json:"event_type"`
	RecordedAt time.Time `json:"recorded_at"`
}

// MissEventID returns the content-addressed ledger id for a miss event,
// derived from the task id and the missed due date. Recording the same miss
// twice therefore collides on the primary key and is ignored, which is the
// at-most-once guarantee for miss penalties.
func MissEventID(taskID int64, dueAt time.Time) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("missed:%d:%d", taskID, dueAt.UnixMilli())))
	return hex.EncodeToString(sum[:])
}
