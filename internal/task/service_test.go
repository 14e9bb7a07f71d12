package task

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"taskbeacon/internal/database"
	"taskbeacon/internal/model"
	"taskbeacon/internal/store"
)

func setupServiceTest(t *testing.T) (*Service, *store.LedgerStore, int64) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	users := store.NewUserStore(db)
	user, err := users.Create("alice", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ledger := store.NewLedgerStore(db)
	svc := NewService(store.NewTaskStore(db), ledger, nil, logger)
	return svc, ledger, user.ID
}

func createAt(t *testing.T, svc *Service, userID int64, due time.Time, tmpl model.Task) *model.Task {
	t.Helper()
	tmpl.Title = orDefault(tmpl.Title, "task")
	tmpl.Category = orDefault(tmpl.Category, "Personal")
	if tmpl.Priority == "" {
		tmpl.Priority = model.PriorityMedium
	}
	tmpl.DueAt = due
	created, err := svc.Create(userID, tmpl)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return created
}

func orDefault(s, d string) string {
	if s == "" {
		return d
	}
	return s
}

func TestSweepMarksOverdueTaskMissed(t *testing.T) {
	svc, ledger, userID := setupServiceTest(t)

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	due := now.Add(-time.Hour)
	svc.now = func() time.Time { return due.Add(-time.Hour) }
	created := createAt(t, svc, userID, due, model.Task{Priority: model.PriorityHigh})
	svc.now = func() time.Time { return now }

	tasks, err := svc.List(userID, Filters{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	got := tasks[0]
	if got.Status != model.StatusMissed {
		t.Errorf("status = %q, want missed", got.Status)
	}
	if got.ScoreImpact != 20 {
		t.Errorf("score_impact = %d, want 20 for high priority", got.ScoreImpact)
	}
	if got.OriginalDueAt == nil || !got.OriginalDueAt.Equal(due) {
		t.Errorf("original due = %v, want %v", got.OriginalDueAt, due)
	}

	entries, err := ledger.ListScoreByUser(userID)
	if err != nil {
		t.Fatalf("list score entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 score entry, got %d", len(entries))
	}
	if entries[0].Type != model.EventMissed || entries[0].ScoreAmount != 20 {
		t.Errorf("entry = %+v, want missed/20", entries[0])
	}
	if entries[0].ID != model.MissEventID(created.ID, due) {
		t.Error("miss entry id is not content-addressed")
	}
}

func TestSweepIsIdempotent(t *testing.T) {
	svc, ledger, userID := setupServiceTest(t)

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	due := now.Add(-time.Hour)
	svc.now = func() time.Time { return due.Add(-time.Hour) }
	createAt(t, svc, userID, due, model.Task{})
	svc.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if _, err := svc.List(userID, Filters{}); err != nil {
			t.Fatalf("list %d: %v", i, err)
		}
	}

	entries, err := ledger.ListScoreByUser(userID)
	if err != nil {
		t.Fatalf("list score entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly 1 penalty after repeated sweeps, got %d", len(entries))
	}
}

func TestCompleteRecordsReward(t *testing.T) {
	svc, ledger, userID := setupServiceTest(t)

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	created := createAt(t, svc, userID, now.Add(time.Hour), model.Task{Priority: model.PriorityMedium})

	completed := model.StatusCompleted
	updated, err := svc.Update(created.ID, model.TaskPatch{Status: &completed})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if updated.Status != model.StatusCompleted {
		t.Errorf("status = %q, want completed", updated.Status)
	}

	entries, err := ledger.ListScoreByUser(userID)
	if err != nil {
		t.Fatalf("list score entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 score entry, got %d", len(entries))
	}
	if entries[0].Type != model.EventCompleted || entries[0].ScoreAmount != 5 {
		t.Errorf("entry = %+v, want completed/5", entries[0])
	}
}

func TestCompleteMissedTaskUsesRecordedImpact(t *testing.T) {
	svc, ledger, userID := setupServiceTest(t)

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	due := now.Add(-time.Hour)
	svc.now = func() time.Time { return due.Add(-time.Hour) }
	created := createAt(t, svc, userID, due, model.Task{Priority: model.PriorityHigh})
	svc.now = func() time.Time { return now }

	if _, err := svc.List(userID, Filters{}); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	completed := model.StatusCompleted
	if _, err := svc.Update(created.ID, model.TaskPatch{Status: &completed}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	entries, _ := ledger.ListScoreByUser(userID)
	if len(entries) != 2 {
		t.Fatalf("expected penalty + reward, got %d entries", len(entries))
	}
	var reward *model.ScoreEntry
	for i := range entries {
		if entries[i].Type == model.EventCompleted {
			reward = &entries[i]
		}
	}
	if reward == nil {
		t.Fatal("no completion entry recorded")
	}
	if reward.ScoreAmount != 20 {
		t.Errorf("reward amount = %d, want the task's recorded impact 20", reward.ScoreAmount)
	}
}

func TestUncompleteReversesCredit(t *testing.T) {
	svc, ledger, userID := setupServiceTest(t)

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	created := createAt(t, svc, userID, now.Add(time.Hour), model.Task{Priority: model.PriorityLow})

	completed := model.StatusCompleted
	if _, err := svc.Update(created.ID, model.TaskPatch{Status: &completed}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	pending := model.StatusPending
	if _, err := svc.Update(created.ID, model.TaskPatch{Status: &pending}); err != nil {
		t.Fatalf("uncomplete: %v", err)
	}

	entries, _ := ledger.ListScoreByUser(userID)
	if len(entries) != 2 {
		t.Fatalf("expected credit + reversal, got %d entries", len(entries))
	}
	net := 0
	for _, e := range entries {
		if e.Type == model.EventCompleted {
			net += e.ScoreAmount
		} else {
			net -= e.ScoreAmount
		}
	}
	if net != 0 {
		t.Errorf("net score after reversal = %d, want 0", net)
	}

	// Analytics keeps the completion: history is never rewritten.
	count, err := ledger.CountAnalyticsByType(userID, model.EventCompleted)
	if err != nil {
		t.Fatalf("count analytics: %v", err)
	}
	if count != 1 {
		t.Errorf("completed analytics count = %d, want 1", count)
	}
}

func TestRescheduleMissedTaskKeepsPenalty(t *testing.T) {
	svc, ledger, userID := setupServiceTest(t)

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	due := now.Add(-time.Hour)
	svc.now = func() time.Time { return due.Add(-time.Hour) }
	created := createAt(t, svc, userID, due, model.Task{})
	svc.now = func() time.Time { return now }

	if _, err := svc.List(userID, Filters{}); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	newDue := now.Add(24 * time.Hour)
	pending := model.StatusPending
	updated, err := svc.Update(created.ID, model.TaskPatch{Status: &pending, DueAt: &newDue})
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if updated.Status != model.StatusPending {
		t.Errorf("status = %q, want pending", updated.Status)
	}
	if updated.RescheduleCount != 1 {
		t.Errorf("reschedule_count = %d, want 1", updated.RescheduleCount)
	}
	if updated.OriginalDueAt == nil || !updated.OriginalDueAt.Equal(due) {
		t.Errorf("original due = %v, want first due %v", updated.OriginalDueAt, due)
	}

	entries, _ := ledger.ListScoreByUser(userID)
	if len(entries) != 1 {
		t.Fatalf("expected only the original penalty, got %d entries", len(entries))
	}
}

func TestMissedRecurringTaskSpawnsNext(t *testing.T) {
	svc, ledger, userID := setupServiceTest(t)

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	due := now.Add(-time.Hour)
	svc.now = func() time.Time { return due.Add(-time.Hour) }
	created := createAt(t, svc, userID, due, model.Task{
		IsRecurring:    true,
		RecurrenceType: model.RecurDaily,
	})
	svc.now = func() time.Time { return now }

	tasks, err := svc.List(userID, Filters{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected parent + spawned task, got %d", len(tasks))
	}

	var parent, spawned *model.Task
	for i := range tasks {
		if tasks[i].ID == created.ID {
			parent = &tasks[i]
		} else {
			spawned = &tasks[i]
		}
	}
	if parent == nil || spawned == nil {
		t.Fatal("missing parent or spawned task")
	}
	if parent.Status != model.StatusMissed {
		t.Errorf("parent status = %q, want missed", parent.Status)
	}
	if spawned.Status != model.StatusPending {
		t.Errorf("spawned status = %q, want pending", spawned.Status)
	}
	if !spawned.DueAt.Equal(due.AddDate(0, 0, 1)) {
		t.Errorf("spawned due = %v, want %v", spawned.DueAt, due.AddDate(0, 0, 1))
	}
	if spawned.ScoreImpact != 0 {
		t.Errorf("spawned score_impact = %d, want 0", spawned.ScoreImpact)
	}
	if spawned.RescheduleCount != 0 {
		t.Errorf("spawned reschedule_count = %d, want 0", spawned.RescheduleCount)
	}
	if spawned.OriginalDueAt != nil {
		t.Errorf("spawned original due = %v, want nil", spawned.OriginalDueAt)
	}

	// The spawn is a creation event, not a scoring event.
	count, err := ledger.CountAnalyticsByType(userID, model.EventCreated)
	if err != nil {
		t.Fatalf("count analytics: %v", err)
	}
	if count != 2 {
		t.Errorf("created analytics count = %d, want 2", count)
	}
}

func TestMissedAutoRescheduleMovesSameRow(t *testing.T) {
	svc, _, userID := setupServiceTest(t)

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	due := now.Add(-time.Hour)
	svc.now = func() time.Time { return due.Add(-time.Hour) }
	created := createAt(t, svc, userID, due, model.Task{
		AutoReschedule:     true,
		RescheduleInterval: IntervalTwoDays,
	})
	svc.now = func() time.Time { return now }

	tasks, err := svc.List(userID, Filters{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("auto-reschedule must not spawn a new row, got %d tasks", len(tasks))
	}

	got, err := svc.Get(created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != model.StatusPending {
		t.Errorf("status = %q, want pending after auto-reschedule", got.Status)
	}
	if !got.DueAt.Equal(due.AddDate(0, 0, 2)) {
		t.Errorf("due = %v, want %v", got.DueAt, due.AddDate(0, 0, 2))
	}
	if got.RescheduleCount != 1 {
		t.Errorf("reschedule_count = %d, want 1", got.RescheduleCount)
	}
	if got.OriginalDueAt == nil || !got.OriginalDueAt.Equal(due) {
		t.Errorf("original due = %v, want %v", got.OriginalDueAt, due)
	}
	if got.ScoreImpact != 10 {
		t.Errorf("score_impact = %d, want the recorded penalty 10", got.ScoreImpact)
	}
}

func TestDeleteRecordsReason(t *testing.T) {
	svc, _, userID := setupServiceTest(t)

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	created := createAt(t, svc, userID, now.Add(time.Hour), model.Task{})

	if err := svc.Delete(created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	got, err := svc.Get(created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != model.StatusDeleted {
		t.Errorf("status = %q, want deleted", got.Status)
	}
	if got.DeletionReason != "deleted while pending" {
		t.Errorf("reason = %q", got.DeletionReason)
	}
	if got.DeletedAt == nil {
		t.Error("deleted_at not set")
	}
}

func TestDeleteMissing(t *testing.T) {
	svc, _, _ := setupServiceTest(t)

	if err := svc.Delete(424242); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListFilters(t *testing.T) {
	svc, _, userID := setupServiceTest(t)

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	createAt(t, svc, userID, now.Add(time.Hour), model.Task{Title: "work", Category: "Academic"})
	createAt(t, svc, userID, now.Add(2*time.Hour), model.Task{Title: "home", Category: "Personal"})
	completedTask := createAt(t, svc, userID, now.Add(3*time.Hour), model.Task{Title: "done", Category: "Personal"})
	completed := model.StatusCompleted
	if _, err := svc.Update(completedTask.ID, model.TaskPatch{Status: &completed}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	byCategory, err := svc.List(userID, Filters{Category: "Academic"})
	if err != nil {
		t.Fatalf("list by category: %v", err)
	}
	if len(byCategory) != 1 || byCategory[0].Title != "work" {
		t.Fatalf("category filter returned %+v", byCategory)
	}

	byStatus, err := svc.List(userID, Filters{Status: "completed"})
	if err != nil {
		t.Fatalf("list by status: %v", err)
	}
	if len(byStatus) != 1 || byStatus[0].Title != "done" {
		t.Fatalf("status filter returned %+v", byStatus)
	}

	all, err := svc.List(userID, Filters{Status: "all", Category: "all"})
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 tasks with \"all\" filters, got %d", len(all))
	}
	// Due date descending.
	for i := 1; i < len(all); i++ {
		if all[i].DueAt.After(all[i-1].DueAt) {
			t.Fatalf("list not sorted by due date descending")
		}
	}

	from := now.Add(90 * time.Minute)
	inRange, err := svc.List(userID, Filters{From: &from})
	if err != nil {
		t.Fatalf("list by range: %v", err)
	}
	if len(inRange) != 2 {
		t.Fatalf("expected 2 tasks due after %v, got %d", from, len(inRange))
	}
}
