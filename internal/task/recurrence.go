package task

import (
	"time"

	"taskbeacon/internal/model"
)

// Reschedule intervals a task can opt into for automatic rescheduling after a
// miss.
const (
	IntervalOneDay    = "1day"
	IntervalTwoDays   = "2days"
	IntervalThreeDays = "3days"
	IntervalOneWeek   = "1week"
)

// NextRecurrence returns the due date of the next occurrence of a recurring
// task. Calendar arithmetic: monthly recurrence advances the month and lets
// day-of-month overflow normalize.
func NextRecurrence(from time.Time, recurrence model.RecurrenceType) time.Time {
	switch recurrence {
	case model.RecurWeekly:
		return from.AddDate(0, 0, 7)
	case model.RecurMonthly:
		return from.AddDate(0, 1, 0)
	default:
		return from.AddDate(0, 0, 1)
	}
}

// NextReschedule returns the new due date for an auto-rescheduled miss.
// Unrecognized intervals fall back to one day.
func NextReschedule(from time.Time, interval string) time.Time {
	switch interval {
	case IntervalTwoDays:
		return from.AddDate(0, 0, 2)
	case IntervalThreeDays:
		return from.AddDate(0, 0, 3)
	case IntervalOneWeek:
		return from.AddDate(0, 0, 7)
	default:
		return from.AddDate(0, 0, 1)
	}
}
