package hardware

import (
	"fmt"
	"time"

	"taskbeacon/internal/model"
	"taskbeacon/internal/task"
)

// DeviceFeed is the realtime channel's view of the system: it serves task
// snapshots and routes device commands through the task lifecycle.
type DeviceFeed struct {
	svc       *Service
	lifecycle *task.Service
	now       func() time.Time
}

func NewDeviceFeed(svc *Service, lifecycle *task.Service) *DeviceFeed {
	return &DeviceFeed{svc: svc, lifecycle: lifecycle, now: time.Now}
}

// Snapshot returns the user's current device projection.
func (f *DeviceFeed) Snapshot(userID int64) ([]model.HardwareTask, error) {
	return f.svc.Snapshot(userID)
}

// Identify auto-pairs a device that announced itself over the socket. A user
// who already has a hardware id keeps it.
func (f *DeviceFeed) Identify(userID int64, hardwareID string) error {
	user, err := f.svc.users.GetByID(userID)
	if err != nil {
		return err
	}
	if user == nil || user.HardwareID != "" || user.PairingCode == "" {
		return nil
	}
	return f.svc.Pair(userID, user.PairingCode, hardwareID)
}

// Apply executes a socket-originated action on the user's task. Completion
// follows the normal scoring path; reschedule pushes the due date a day out
// from now without touching the status.
func (f *DeviceFeed) Apply(userID int64, action string, taskID int64) error {
	t, err := f.lifecycle.Get(taskID)
	if err != nil {
		return err
	}
	if t == nil || t.UserID != userID {
		return task.ErrNotFound
	}

	switch action {
	case model.ActionComplete:
		completed := model.StatusCompleted
		_, err = f.lifecycle.Update(t.ID, model.TaskPatch{Status: &completed})
	case model.ActionReschedule:
		due := f.now().Add(24 * time.Hour)
		_, err = f.lifecycle.Update(t.ID, model.TaskPatch{DueAt: &due})
	default:
		return fmt.Errorf("unknown action %q", action)
	}
	return err
}
