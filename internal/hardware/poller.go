package hardware

import (
	"log/slog"

	"github.com/robfig/cron/v3"

	"taskbeacon/internal/model"
	"taskbeacon/internal/store"
	"taskbeacon/internal/task"
)

// Poller drains the hardware action queue on a fixed schedule and applies
// each action through the task lifecycle, so device button presses follow the
// same scoring rules as the web UI.
type Poller struct {
	users     *store.UserStore
	hardware  *store.HardwareStore
	lifecycle *task.Service
	logger    *slog.Logger
	cron      *cron.Cron
}

func NewPoller(users *store.UserStore, hardware *store.HardwareStore, lifecycle *task.Service, logger *slog.Logger) *Poller {
	return &Poller{
		users:     users,
		hardware:  hardware,
		lifecycle: lifecycle,
		logger:    logger,
		cron:      cron.New(),
	}
}

// Start schedules the drain every five seconds and begins running it.
func (p *Poller) Start() error {
	if _, err := p.cron.AddFunc("@every 5s", p.Drain); err != nil {
		return err
	}
	p.cron.Start()
	return nil
}

// Stop halts the schedule and waits for an in-flight drain to finish.
func (p *Poller) Stop() {
	<-p.cron.Stop().Done()
}

// Drain applies every unhandled action in submission order. Each action is
// marked handled exactly once, including actions whose task or user no longer
// exists; failures are logged and the action retried on the next pass.
func (p *Poller) Drain() {
	actions, err := p.hardware.ListUnhandled()
	if err != nil {
		p.logger.Error("list hardware actions", "error", err)
		return
	}

	for _, action := range actions {
		if err := p.apply(action); err != nil {
			p.logger.Error("apply hardware action",
				"action_id", action.ID,
				"action", action.Action,
				"task_id", action.TaskID,
				"error", err)
			continue
		}
		if err := p.hardware.MarkHandled(action.ID); err != nil {
			p.logger.Error("mark hardware action handled", "action_id", action.ID, "error", err)
		}
	}
}

func (p *Poller) apply(action model.HardwareAction) error {
	user, err := p.users.GetByPairingCode(action.PairingCode)
	if err != nil {
		return err
	}
	if user == nil {
		p.logger.Warn("hardware action for unknown pairing code", "code", action.PairingCode)
		return nil
	}

	t, err := p.lifecycle.Get(action.TaskID)
	if err != nil {
		return err
	}
	if t == nil || t.UserID != user.ID {
		// Stale or cross-user action: drop it so it stops blocking the queue.
		return nil
	}

	switch action.Action {
	case model.ActionComplete:
		completed := model.StatusCompleted
		_, err = p.lifecycle.Update(t.ID, model.TaskPatch{Status: &completed})
	case model.ActionReschedule:
		due := t.DueAt.AddDate(0, 0, 1)
		pending := model.StatusPending
		_, err = p.lifecycle.Update(t.ID, model.TaskPatch{DueAt: &due, Status: &pending})
	default:
		p.logger.Warn("unknown hardware action", "action", action.Action)
	}
	return err
}
