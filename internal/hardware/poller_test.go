package hardware

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"taskbeacon/internal/database"
	"taskbeacon/internal/model"
	"taskbeacon/internal/store"
	"taskbeacon/internal/task"
)

func setupPollerTest(t *testing.T) (*Poller, *task.Service, *store.UserStore, *store.TaskStore, *store.HardwareStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	users := store.NewUserStore(db)
	tasks := store.NewTaskStore(db)
	hw := store.NewHardwareStore(db)
	ledger := store.NewLedgerStore(db)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	lifecycle := task.NewService(tasks, ledger, nil, logger)
	return NewPoller(users, hw, lifecycle, logger), lifecycle, users, tasks, hw
}

func TestDrainAppliesComplete(t *testing.T) {
	poller, lifecycle, users, tasks, hw := setupPollerTest(t)
	user := pairedUser(t, users, "POLL01")
	created := addTask(t, tasks, user.ID, "water plants", model.PriorityLow,
		time.Now().Add(time.Hour).UTC(), model.StatusPending)

	if _, err := hw.SubmitAction("POLL01", model.ActionComplete, created.ID); err != nil {
		t.Fatalf("submit action: %v", err)
	}

	poller.Drain()

	got, err := lifecycle.Get(created.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.Status != model.StatusCompleted {
		t.Errorf("status = %q, want completed", got.Status)
	}

	unhandled, err := hw.ListUnhandled()
	if err != nil {
		t.Fatalf("list unhandled: %v", err)
	}
	if len(unhandled) != 0 {
		t.Fatalf("%d actions left unhandled", len(unhandled))
	}
}

func TestDrainAppliesReschedule(t *testing.T) {
	poller, lifecycle, users, tasks, hw := setupPollerTest(t)
	user := pairedUser(t, users, "POLL02")
	due := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	created := addTask(t, tasks, user.ID, "laundry", model.PriorityMedium, due, model.StatusPending)

	if _, err := hw.SubmitAction("POLL02", model.ActionReschedule, created.ID); err != nil {
		t.Fatalf("submit action: %v", err)
	}

	poller.Drain()

	got, err := lifecycle.Get(created.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if !got.DueAt.Equal(due.AddDate(0, 0, 1)) {
		t.Errorf("due = %v, want %v", got.DueAt, due.AddDate(0, 0, 1))
	}
	if got.Status != model.StatusPending {
		t.Errorf("status = %q, want pending", got.Status)
	}
}

func TestDrainDropsStaleAction(t *testing.T) {
	poller, _, users, _, hw := setupPollerTest(t)
	pairedUser(t, users, "POLL03")

	// Task id that does not exist: the action must still be retired.
	if _, err := hw.SubmitAction("POLL03", model.ActionComplete, 424242); err != nil {
		t.Fatalf("submit action: %v", err)
	}

	poller.Drain()

	unhandled, err := hw.ListUnhandled()
	if err != nil {
		t.Fatalf("list unhandled: %v", err)
	}
	if len(unhandled) != 0 {
		t.Fatalf("stale action left in queue")
	}
}

func TestDrainRejectsCrossUserAction(t *testing.T) {
	poller, lifecycle, users, tasks, hw := setupPollerTest(t)
	pairedUser(t, users, "POLL04")
	victim, err := users.Create("victim", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	created := addTask(t, tasks, victim.ID, "private", model.PriorityHigh,
		time.Now().Add(time.Hour).UTC(), model.StatusPending)

	// Device paired to another user tries to complete the victim's task.
	if _, err := hw.SubmitAction("POLL04", model.ActionComplete, created.ID); err != nil {
		t.Fatalf("submit action: %v", err)
	}

	poller.Drain()

	got, err := lifecycle.Get(created.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.Status != model.StatusPending {
		t.Errorf("cross-user action changed status to %q", got.Status)
	}
	unhandled, _ := hw.ListUnhandled()
	if len(unhandled) != 0 {
		t.Fatal("cross-user action should be retired, not retried")
	}
}
