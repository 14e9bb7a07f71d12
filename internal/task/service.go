package task

import (
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"taskbeacon/internal/model"
	"taskbeacon/internal/store"
)

// ErrNotFound is returned when an operation references a task that does not
// exist.
var ErrNotFound = errors.New("task not found")

// Projector pushes the device-visible task list for a user after mutations.
type Projector interface {
	Project(userID int64) error
}

// Filters narrows a task listing. Empty or "all" values match everything;
// the date range is inclusive on both ends.
type Filters struct {
	Status   string
	Category string
	From     *time.Time
	To       *time.Time
}

// Service owns the task lifecycle: the miss-detection sweep, the status
// transition rules, and the ledger entries those transitions emit.
type Service struct {
	tasks     *store.TaskStore
	ledger    *store.LedgerStore
	projector Projector
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(tasks *store.TaskStore, ledger *store.LedgerStore, projector Projector, logger *slog.Logger) *Service {
	return &Service{
		tasks:     tasks,
		ledger:    ledger,
		projector: projector,
		logger:    logger,
		now:       time.Now,
	}
}

// List runs the miss-detection sweep over the user's tasks, then applies the
// filters and returns the result sorted by due date descending.
func (s *Service) List(userID int64, f Filters) ([]model.Task, error) {
	tasks, err := s.tasks.ListByUser(userID)
	if err != nil {
		return nil, err
	}

	s.sweep(tasks, s.now())

	var out []model.Task
	for _, t := range tasks {
		if f.Status != "" && f.Status != "all" && string(t.Status) != f.Status {
			continue
		}
		if f.Category != "" && f.Category != "all" && t.Category != f.Category {
			continue
		}
		if f.From != nil && t.DueAt.Before(*f.From) {
			continue
		}
		if f.To != nil && t.DueAt.After(*f.To) {
			continue
		}
		out = append(out, t)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].DueAt.After(out[j].DueAt)
	})
	return out, nil
}

func (s *Service) Get(id int64) (*model.Task, error) {
	return s.tasks.GetByID(id)
}

// Create persists a new task for the user, records a created analytics event,
// and refreshes the hardware projection.
func (s *Service) Create(userID int64, t model.Task) (*model.Task, error) {
	now := s.now()
	t.UserID = userID
	t.CreatedAt = now
	if t.Status == "" {
		t.Status = model.StatusPending
	}

	created, err := s.tasks.Create(t)
	if err != nil {
		return nil, err
	}

	s.recordAnalytics(model.AnalyticsEntry{
		ID:         uuid.NewString(),
		UserID:     userID,
		TaskID:     created.ID,
		TaskTitle:  created.Title,
		Priority:   created.Priority,
		EventType:  model.EventCreated,
		RecordedAt: now,
	})
	s.project(userID)
	return created, nil
}

// Update applies a partial update, routing status changes through the
// lifecycle rules. Evaluated in precedence order:
//
//  1. missed -> pending/rescheduled: bump the reschedule count, never touch
//     the ledger (the miss penalty is permanent).
//  2. anything-but-completed -> completed: credit the completion on both
//     ledgers and spawn the next occurrence of a recurring task.
//  3. completed -> anything else: cancel the earlier credit with a
//     missed-typed score entry of the same amount. Analytics history is not
//     adjusted.
//  4. otherwise: plain field patch.
func (s *Service) Update(id int64, patch model.TaskPatch) (*model.Task, error) {
	existing, err := s.tasks.GetByID(id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrNotFound
	}
	now := s.now()

	switch {
	case existing.Status == model.StatusMissed && patch.Status != nil &&
		(*patch.Status == model.StatusPending || *patch.Status == model.StatusRescheduled):
		count := existing.RescheduleCount + 1
		patch.RescheduleCount = &count

	case patch.Status != nil && *patch.Status == model.StatusCompleted &&
		existing.Status != model.StatusCompleted:
		impact := existing.ScoreImpact
		if impact == 0 {
			impact = CompletionReward(existing.Priority)
		}
		s.recordScore(model.ScoreEntry{
			ID:          uuid.NewString(),
			UserID:      existing.UserID,
			TaskID:      existing.ID,
			TaskTitle:   existing.Title,
			ScoreAmount: impact,
			Type:        model.EventCompleted,
			RecordedAt:  now,
		})
		s.recordAnalytics(model.AnalyticsEntry{
			ID:         uuid.NewString(),
			UserID:     existing.UserID,
			TaskID:     existing.ID,
			TaskTitle:  existing.Title,
			Priority:   existing.Priority,
			EventType:  model.EventCompleted,
			RecordedAt: now,
		})
		if existing.IsRecurring && existing.RecurrenceType != "" {
			if err := s.spawnNext(*existing, now); err != nil {
				s.logger.Error("spawn recurring task", "task_id", existing.ID, "error", err)
			}
		}

	case existing.Status == model.StatusCompleted && patch.Status != nil &&
		*patch.Status != model.StatusCompleted:
		// A missed-typed entry is always subtracted during aggregation, so a
		// positive amount exactly cancels the earlier completion credit.
		impact := existing.ScoreImpact
		if impact == 0 {
			impact = CompletionReward(existing.Priority)
		}
		s.recordScore(model.ScoreEntry{
			ID:          uuid.NewString(),
			UserID:      existing.UserID,
			TaskID:      existing.ID,
			TaskTitle:   existing.Title,
			ScoreAmount: impact,
			Type:        model.EventMissed,
			RecordedAt:  now,
		})
	}

	updated, err := s.tasks.Update(id, patch)
	if err != nil {
		return nil, err
	}
	s.project(existing.UserID)
	return updated, nil
}

// Delete soft-deletes a task, recording why it was deleted. Routed through
// Update so leaving completed status still reverses the score credit.
func (s *Service) Delete(id int64) error {
	existing, err := s.tasks.GetByID(id)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrNotFound
	}

	reason := "deleted while pending"
	if existing.Status == model.StatusMissed {
		reason = "deleted while missed"
	}
	now := s.now()
	deleted := model.StatusDeleted
	_, err = s.Update(id, model.TaskPatch{
		Status:         &deleted,
		DeletedAt:      &now,
		DeletionReason: &reason,
	})
	return err
}

// CleanupDeleted hard-removes the user's soft-deleted tasks.
func (s *Service) CleanupDeleted(userID int64) error {
	return s.tasks.DeleteDeletedByUser(userID)
}

// sweep marks overdue pending tasks as missed, records the penalty on both
// ledgers, and handles recurrence or auto-rescheduling. Failures are logged
// and skipped per task so one task's bookkeeping cannot block the listing.
func (s *Service) sweep(tasks []model.Task, now time.Time) {
	mutated := false
	var userID int64

	for i := range tasks {
		t := &tasks[i]
		userID = t.UserID
		if t.Status != model.StatusPending || !t.DueAt.Before(now) {
			continue
		}

		recorded, err := s.ledger.HasMissEvent(t.UserID, t.ID)
		if err != nil {
			s.logger.Error("sweep: check miss event", "task_id", t.ID, "error", err)
			continue
		}
		if recorded {
			// The penalty is already on the ledger but the row update must
			// have been lost. Repair this response only.
			t.Status = model.StatusMissed
			continue
		}

		penalty := MissPenalty(t.Priority)
		missID := model.MissEventID(t.ID, t.DueAt)
		s.recordScore(model.ScoreEntry{
			ID:          missID,
			UserID:      t.UserID,
			TaskID:      t.ID,
			TaskTitle:   t.Title,
			ScoreAmount: penalty,
			Type:        model.EventMissed,
			RecordedAt:  now,
		})
		s.recordAnalytics(model.AnalyticsEntry{
			ID:         missID,
			UserID:     t.UserID,
			TaskID:     t.ID,
			TaskTitle:  t.Title,
			Priority:   t.Priority,
			EventType:  model.EventMissed,
			RecordedAt: now,
		})

		missed := model.StatusMissed
		patch := model.TaskPatch{Status: &missed, ScoreImpact: &penalty}
		if t.OriginalDueAt == nil {
			due := t.DueAt
			patch.OriginalDueAt = &due
		}
		if _, err := s.tasks.Update(t.ID, patch); err != nil {
			s.logger.Error("sweep: mark missed", "task_id", t.ID, "error", err)
			continue
		}
		t.Status = model.StatusMissed
		t.ScoreImpact = penalty
		if patch.OriginalDueAt != nil {
			t.OriginalDueAt = patch.OriginalDueAt
		}
		mutated = true

		switch {
		case t.IsRecurring && t.RecurrenceType != "":
			if err := s.spawnNext(*t, now); err != nil {
				s.logger.Error("sweep: spawn recurring task", "task_id", t.ID, "error", err)
			}
		case t.AutoReschedule && t.RescheduleInterval != "":
			next := NextReschedule(t.DueAt, t.RescheduleInterval)
			pending := model.StatusPending
			count := t.RescheduleCount + 1
			if _, err := s.tasks.Update(t.ID, model.TaskPatch{
				DueAt:           &next,
				Status:          &pending,
				RescheduleCount: &count,
			}); err != nil {
				s.logger.Error("sweep: auto-reschedule", "task_id", t.ID, "error", err)
			}
		}
	}

	if mutated {
		s.project(userID)
	}
}

// spawnNext creates the next occurrence of a recurring task: a fresh row with
// a clean lifecycle state. The parent row keeps its terminal status.
func (s *Service) spawnNext(parent model.Task, now time.Time) error {
	next := model.Task{
		UserID:             parent.UserID,
		Title:              parent.Title,
		Description:        parent.Description,
		Category:           parent.Category,
		Priority:           parent.Priority,
		Attachments:        parent.Attachments,
		DueAt:              NextRecurrence(parent.DueAt, parent.RecurrenceType),
		Status:             model.StatusPending,
		IsRecurring:        parent.IsRecurring,
		RecurrenceType:     parent.RecurrenceType,
		AutoReschedule:     parent.AutoReschedule,
		RescheduleInterval: parent.RescheduleInterval,
		CreatedAt:          now,
	}

	created, err := s.tasks.Create(next)
	if err != nil {
		return err
	}
	s.recordAnalytics(model.AnalyticsEntry{
		ID:         uuid.NewString(),
		UserID:     created.UserID,
		TaskID:     created.ID,
		TaskTitle:  created.Title,
		Priority:   created.Priority,
		EventType:  model.EventCreated,
		RecordedAt: now,
	})
	return nil
}

// recordScore appends to the score ledger, logging and swallowing failures:
// losing a bookkeeping row must never fail the triggering transition.
func (s *Service) recordScore(e model.ScoreEntry) {
	if err := s.ledger.AppendScore(e); err != nil {
		s.logger.Error("record score entry", "task_id", e.TaskID, "error", err)
	}
}

func (s *Service) recordAnalytics(e model.AnalyticsEntry) {
	if err := s.ledger.AppendAnalytics(e); err != nil {
		s.logger.Error("record analytics entry", "task_id", e.TaskID, "error", err)
	}
}

func (s *Service) project(userID int64) {
	if s.projector == nil {
		return
	}
	if err := s.projector.Project(userID); err != nil {
		s.logger.Error("hardware projection", "user_id", userID, "error", err)
	}
}
