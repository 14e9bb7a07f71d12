package websocket

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	ws "github.com/coder/websocket"

	"taskbeacon/internal/model"
)

const (
	sendBufferSize  = 16
	pingInterval    = 30 * time.Second
	refreshInterval = 60 * time.Second
)

// inbound is a message from a connected device or browser. Devices send the
// task id as a string.
type inbound struct {
	Type       string `json:"type"`
	HardwareID string `json:"hardwareId"`
	Action     string `json:"action"`
	TaskID     string `json:"taskId"`
}

// Client represents a single WebSocket connection bound to one user.
type Client struct {
	hub    *Hub
	conn   *ws.Conn
	userID int64
	send   chan []byte
}

// NewClient creates a Client tied to the given hub and connection.
func NewClient(hub *Hub, conn *ws.Conn, userID int64) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, sendBufferSize),
	}
}

// Run registers the client, pushes the initial task list, starts the write
// pump, and runs the read pump. It blocks until the connection is closed,
// then unregisters.
func (c *Client) Run(ctx context.Context) {
	c.hub.Register(c)
	defer c.hub.Unregister(c)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.enqueueSnapshot()
	go c.writePump(ctx)
	c.readPump(ctx)
}

// readPump handles incoming messages until the connection closes. Malformed
// messages are logged and skipped.
func (c *Client) readPump(ctx context.Context) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}
		c.handleMessage(data)
	}
}

func (c *Client) handleMessage(data []byte) {
	var msg inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		c.hub.logger.Warn("decode client message", "user_id", c.userID, "error", err)
		return
	}

	switch {
	case msg.Type == "identify" && msg.HardwareID != "":
		if err := c.hub.feed.Identify(c.userID, msg.HardwareID); err != nil {
			c.hub.logger.Error("identify hardware", "user_id", c.userID, "error", err)
			return
		}
	case (msg.Action == model.ActionComplete || msg.Action == model.ActionReschedule) && msg.TaskID != "":
		taskID, err := strconv.ParseInt(msg.TaskID, 10, 64)
		if err != nil {
			c.hub.logger.Warn("bad task id in client message", "user_id", c.userID, "task_id", msg.TaskID)
			return
		}
		if err := c.hub.feed.Apply(c.userID, msg.Action, taskID); err != nil {
			c.hub.logger.Error("apply client action",
				"user_id", c.userID,
				"action", msg.Action,
				"task_id", taskID,
				"error", err)
			return
		}
	default:
		return
	}
	c.enqueueSnapshot()
}

// enqueueSnapshot queues a fresh task list for this connection, dropping it
// if the buffer is full.
func (c *Client) enqueueSnapshot() {
	data, err := c.hub.snapshotPayload(c.userID)
	if err != nil {
		c.hub.logger.Error("build task snapshot", "user_id", c.userID, "error", err)
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// writePump drains the send channel and writes messages to the WebSocket.
// It sends periodic pings to detect stale connections and refreshes the task
// list every minute.
func (c *Client) writePump(ctx context.Context) {
	pings := time.NewTicker(pingInterval)
	defer pings.Stop()
	refresh := time.NewTicker(refreshInterval)
	defer refresh.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				// Hub closed the channel — connection is done
				return
			}
			if err := c.conn.Write(ctx, ws.MessageText, msg); err != nil {
				return
			}
		case <-refresh.C:
			data, err := c.hub.snapshotPayload(c.userID)
			if err != nil {
				c.hub.logger.Error("build task refresh", "user_id", c.userID, "error", err)
				continue
			}
			if err := c.conn.Write(ctx, ws.MessageText, data); err != nil {
				return
			}
		case <-pings.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
