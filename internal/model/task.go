package model

import "time"

// TaskStatus is the closed set of lifecycle states a task can be in.
type TaskStatus string

const (
	StatusPending     TaskStatus = "pending"
	StatusCompleted   TaskStatus = "completed"
	StatusMissed      TaskStatus = "missed"
	StatusDeleted     TaskStatus = "deleted"
	StatusRescheduled TaskStatus = "rescheduled"
)

// Valid reports whether s is one of the known task statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusMissed, StatusDeleted, StatusRescheduled:
		return true
	}
	return false
}

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

type RecurrenceType string

const (
	RecurDaily   RecurrenceType = "daily"
	RecurWeekly  RecurrenceType = "weekly"
	RecurMonthly RecurrenceType = "monthly"
)

func (r RecurrenceType) Valid() bool {
	switch r {
	case RecurDaily, RecurWeekly, RecurMonthly:
		return true
	}
	return false
}

type Attachment struct {
	URL  string `json:"url"`
	Name string `json:"name"`
	Type string `json:"type"` // "link" or "image"
}

type Task struct {
	ID                 int64          `json:"id"`
	UserID             int64          `json:"user_id"`
	Title              string         `json:"title"`
	Description        string         `json:"description"`
	Category           string         `json:"category"`
	Priority           Priority       `json:"priority"`
	DueAt              time.Time      `json:"due_date_time"`
	Status             TaskStatus     `json:"status"`
	Attachments        []Attachment   `json:"attachments"`
	IsRecurring        bool           `json:"is_recurring"`
	RecurrenceType     RecurrenceType `json:"recurrence_type,omitempty"`
	AutoReschedule     bool           `json:"auto_reschedule"`
	RescheduleInterval string         `json:"reschedule_interval,omitempty"`
	ScoreImpact        int            `json:"score_impact"`
	CreatedAt          time.Time      `json:"created_at"`
	DeletedAt          *time.Time     `json:"deleted_at,omitempty"`
	DeletionReason     string         `json:"deletion_reason,omitempty"`
	OriginalDueAt      *time.Time     `json:"original_due_date_time,omitempty"`
	RescheduleCount    int            `json:"reschedule_count"`
}

// TaskPatch is a partial task update. Nil fields are left untouched.
type TaskPatch struct {
	Title              *string         `json:"title"`
	Description        *string         `json:"description"`
	Category           *string         `json:"category"`
	Priority           *Priority       `json:"priority"`
	DueAt              *time.Time      `json:"due_date_time"`
	Status             *TaskStatus     `json:"status"`
	Attachments        *[]Attachment   `json:"attachments"`
	IsRecurring        *bool           `json:"is_recurring"`
	RecurrenceType     *RecurrenceType `json:"recurrence_type"`
	AutoReschedule     *bool           `json:"auto_reschedule"`
	RescheduleInterval *string         `json:"reschedule_interval"`
	ScoreImpact        *int            `json:"score_impact"`
	DeletedAt          *time.Time      `json:"deleted_at"`
	DeletionReason     *string         `json:"deletion_reason"`
	OriginalDueAt      *time.Time      `json:"original_due_date_time"`
	RescheduleCount    *int            `json:"reschedule_count"`
}
