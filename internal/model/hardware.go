package model

import "time"

// Device-visible task statuses.
const (
	HardwareDueSoon  = "due-soon"
	HardwareUpcoming = "upcoming"
)

// Hardware action verbs accepted from a paired device.
const (
	ActionComplete   = "complete"
	ActionReschedule = "reschedule"
)

// HardwareTask is one row of the projection a paired display consumes.
type HardwareTask struct {
	TaskID   int64     `json:"id"`
	Title    string    `json:"title"`
	Priority Priority  `json:"priority"`
	DueAt    time.Time `json:"due_time"`
	Status   string    `json:"status"`
}

// HardwareAction is a queued complete/reschedule request submitted by a
// device, keyed by its pairing code. The poller drains unhandled actions and
// flips Handled so re-delivery is applied at most once.
type HardwareAction struct {
	ID          int64      `json:"id"`
	PairingCode string     `json:"pairing_code"`
	Action      string     `json:"action"`
	TaskID      int64      `json:"task_id"`
	Handled     bool       `json:"handled"`
	SubmittedAt time.Time  `json:"submitted_at"`
	HandledAt   *time.Time `json:"handled_at,omitempty"`
}
