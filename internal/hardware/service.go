package hardware

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"taskbeacon/internal/model"
	"taskbeacon/internal/store"
)

const (
	projectionWindow = 30 * time.Minute
	dueSoonWindow    = 5 * time.Minute

	codeLength   = 6
	codeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	codeAttempts = 10
)

var (
	// ErrCodeMismatch is returned when a pairing attempt presents a code
	// that does not belong to the user.
	ErrCodeMismatch = errors.New("pairing code does not match")

	// ErrUnknownCode is returned when a device submits an action under a
	// pairing code no user holds.
	ErrUnknownCode = errors.New("unknown pairing code")
)

// Service maintains the device-facing side of the system: the per-code task
// projection, pairing codes, and the action queue devices submit into.
type Service struct {
	users    *store.UserStore
	tasks    *store.TaskStore
	hardware *store.HardwareStore
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(users *store.UserStore, tasks *store.TaskStore, hardware *store.HardwareStore, logger *slog.Logger) *Service {
	return &Service{
		users:    users,
		tasks:    tasks,
		hardware: hardware,
		logger:   logger,
		now:      time.Now,
	}
}

// Project rebuilds the user's device projection: pending tasks due within the
// next thirty minutes, ordered by priority, then due time, then id. Tasks due
// inside five minutes are flagged due-soon. A user without a pairing code has
// no projection to maintain.
func (s *Service) Project(userID int64) error {
	user, err := s.users.GetByID(userID)
	if err != nil {
		return err
	}
	if user == nil || user.PairingCode == "" {
		return nil
	}

	tasks, err := s.tasks.ListByUser(userID)
	if err != nil {
		return err
	}

	now := s.now()
	windowEnd := now.Add(projectionWindow)

	var eligible []model.Task
	for _, t := range tasks {
		if t.Status != model.StatusPending {
			continue
		}
		if t.DueAt.Before(now) || !t.DueAt.Before(windowEnd) {
			continue
		}
		eligible = append(eligible, t)
	}

	sort.Slice(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		if ra, rb := priorityRank(a.Priority), priorityRank(b.Priority); ra != rb {
			return ra < rb
		}
		if !a.DueAt.Equal(b.DueAt) {
			return a.DueAt.Before(b.DueAt)
		}
		return a.ID < b.ID
	})

	projected := make([]model.HardwareTask, 0, len(eligible))
	for _, t := range eligible {
		status := model.HardwareUpcoming
		if t.DueAt.Sub(now) < dueSoonWindow {
			status = model.HardwareDueSoon
		}
		projected = append(projected, model.HardwareTask{
			TaskID:   t.ID,
			Title:    t.Title,
			Priority: t.Priority,
			DueAt:    t.DueAt,
			Status:   status,
		})
	}

	return s.hardware.ReplaceProjection(user.PairingCode, projected)
}

func priorityRank(p model.Priority) int {
	switch p {
	case model.PriorityHigh:
		return 0
	case model.PriorityMedium:
		return 1
	default:
		return 2
	}
}

// Snapshot returns the user's current projection, or an empty list if the
// user is not paired.
func (s *Service) Snapshot(userID int64) ([]model.HardwareTask, error) {
	user, err := s.users.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil || user.PairingCode == "" {
		return []model.HardwareTask{}, nil
	}
	tasks, err := s.hardware.ListProjection(user.PairingCode)
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []model.HardwareTask{}
	}
	return tasks, nil
}

// GeneratePairingCode issues a fresh 6-character code for the user, retiring
// any previous code along with its projection rows.
func (s *Service) GeneratePairingCode(userID int64) (string, error) {
	user, err := s.users.GetByID(userID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", errors.New("user not found")
	}
	if user.PairingCode != "" {
		if err := s.hardware.DeleteProjection(user.PairingCode); err != nil {
			return "", fmt.Errorf("retire old pairing code: %w", err)
		}
	}

	code := ""
	for attempt := 0; attempt < codeAttempts; attempt++ {
		candidate, err := randomCode()
		if err != nil {
			return "", err
		}
		holder, err := s.users.GetByPairingCode(candidate)
		if err != nil {
			return "", err
		}
		if holder == nil {
			code = candidate
			break
		}
	}
	if code == "" {
		return "", errors.New("generate pairing code: no unique code found")
	}

	if err := s.users.SetPairingCode(userID, code); err != nil {
		return "", err
	}
	if err := s.Project(userID); err != nil {
		s.logger.Error("project after code rotation", "user_id", userID, "error", err)
	}
	return code, nil
}

func randomCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate pairing code: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}

// Pair binds a hardware id to the user, provided the presented code is the
// user's current one. The code stays valid after pairing.
func (s *Service) Pair(userID int64, code, hardwareID string) error {
	user, err := s.users.GetByID(userID)
	if err != nil {
		return err
	}
	if user == nil || user.PairingCode == "" || user.PairingCode != code {
		return ErrCodeMismatch
	}
	if err := s.users.SetHardwareID(userID, hardwareID); err != nil {
		return err
	}
	if err := s.Project(userID); err != nil {
		s.logger.Error("project after pairing", "user_id", userID, "error", err)
	}
	return nil
}

// SubmitAction queues a device button press for the poller to apply. The
// pairing code must belong to some user.
func (s *Service) SubmitAction(code, action string, taskID int64) error {
	user, err := s.users.GetByPairingCode(code)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUnknownCode
	}
	_, err = s.hardware.SubmitAction(code, action, taskID)
	return err
}
