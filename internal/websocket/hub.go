package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"

	"taskbeacon/internal/model"
)

// Feed supplies the device task list and applies device-originated commands.
type Feed interface {
	Snapshot(userID int64) ([]model.HardwareTask, error)
	Identify(userID int64, hardwareID string) error
	Apply(userID int64, action string, taskID int64) error
}

type tasksPayload struct {
	Type  string               `json:"type"`
	Tasks []model.HardwareTask `json:"tasks"`
}

// Hub maintains the set of active WebSocket clients and pushes per-user task
// list refreshes to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	feed    Feed
	logger  *slog.Logger
}

// NewHub creates a new Hub backed by the given feed.
func NewHub(feed Feed, logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		feed:    feed,
		logger:  logger,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// RefreshUser pushes the user's current device task list to every connection
// that user holds.
func (h *Hub) RefreshUser(userID int64) {
	data, err := h.snapshotPayload(userID)
	if err != nil {
		h.logger.Error("build task refresh", "user_id", userID, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if c.userID != userID {
			continue
		}
		select {
		case c.send <- data:
		default:
			// Client buffer full — drop message to avoid blocking
		}
	}
}

// snapshotPayload fetches the user's projection and encodes the wire message.
func (h *Hub) snapshotPayload(userID int64) ([]byte, error) {
	tasks, err := h.feed.Snapshot(userID)
	if err != nil {
		return nil, err
	}
	return json.Marshal(tasksPayload{Type: "tasks", Tasks: tasks})
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
