package websocket

import (
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"taskbeacon/internal/model"
)

// stubFeed serves canned snapshots and records applied actions.
type stubFeed struct {
	tasks      map[int64][]model.HardwareTask
	identified []string
	applied    []string
	err        error
}

func (f *stubFeed) Snapshot(userID int64) ([]model.HardwareTask, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tasks[userID], nil
}

func (f *stubFeed) Identify(userID int64, hardwareID string) error {
	f.identified = append(f.identified, hardwareID)
	return nil
}

func (f *stubFeed) Apply(userID int64, action string, taskID int64) error {
	f.applied = append(f.applied, action)
	return nil
}

// mockClient creates a Client with a send channel but no real connection.
func mockClient(hub *Hub, userID int64) *Client {
	return &Client{
		hub:    hub,
		conn:   nil,
		userID: userID,
		send:   make(chan []byte, sendBufferSize),
	}
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(&stubFeed{}, slog.Default())

	c1 := mockClient(hub, 1)
	c2 := mockClient(hub, 2)

	hub.Register(c1)
	hub.Register(c2)

	if got := hub.ClientCount(); got != 2 {
		t.Fatalf("expected 2 clients, got %d", got)
	}

	hub.Unregister(c1)

	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("expected 1 client after unregister, got %d", got)
	}

	hub.Unregister(c2)

	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestDoubleUnregister(t *testing.T) {
	hub := NewHub(&stubFeed{}, slog.Default())
	c := mockClient(hub, 1)
	hub.Register(c)
	hub.Unregister(c)
	// Should not panic
	hub.Unregister(c)

	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestRefreshUserTargetsOneUser(t *testing.T) {
	feed := &stubFeed{tasks: map[int64][]model.HardwareTask{
		1: {{TaskID: 42, Title: "water plants", Priority: model.PriorityLow, DueAt: time.Now(), Status: model.HardwareUpcoming}},
	}}
	hub := NewHub(feed, slog.Default())

	mine := mockClient(hub, 1)
	other := mockClient(hub, 2)
	hub.Register(mine)
	hub.Register(other)

	hub.RefreshUser(1)

	select {
	case data := <-mine.send:
		var got tasksPayload
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got.Type != "tasks" {
			t.Errorf("type = %q, want tasks", got.Type)
		}
		if len(got.Tasks) != 1 || got.Tasks[0].TaskID != 42 {
			t.Errorf("tasks = %+v", got.Tasks)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for refresh")
	}

	select {
	case <-other.send:
		t.Fatal("refresh leaked to another user's client")
	default:
	}

	hub.Unregister(mine)
	hub.Unregister(other)
}

func TestRefreshUserSkipsOnFeedError(t *testing.T) {
	hub := NewHub(&stubFeed{err: errors.New("boom")}, slog.Default())
	c := mockClient(hub, 1)
	hub.Register(c)

	hub.RefreshUser(1)

	select {
	case <-c.send:
		t.Fatal("client received payload despite feed error")
	default:
	}
	hub.Unregister(c)
}

func TestHandleMessageAppliesAction(t *testing.T) {
	feed := &stubFeed{tasks: map[int64][]model.HardwareTask{}}
	hub := NewHub(feed, slog.Default())
	c := mockClient(hub, 1)

	c.handleMessage([]byte(`{"action":"complete","taskId":"7"}`))
	if len(feed.applied) != 1 || feed.applied[0] != "complete" {
		t.Fatalf("applied = %v, want one complete", feed.applied)
	}

	// An action pushes a fresh snapshot to the same connection.
	select {
	case <-c.send:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("no snapshot after applied action")
	}
}

func TestHandleMessageIdentify(t *testing.T) {
	feed := &stubFeed{tasks: map[int64][]model.HardwareTask{}}
	hub := NewHub(feed, slog.Default())
	c := mockClient(hub, 1)

	c.handleMessage([]byte(`{"type":"identify","hardwareId":"esp32-01"}`))
	if len(feed.identified) != 1 || feed.identified[0] != "esp32-01" {
		t.Fatalf("identified = %v", feed.identified)
	}
}

func TestHandleMessageIgnoresGarbage(t *testing.T) {
	feed := &stubFeed{}
	hub := NewHub(feed, slog.Default())
	c := mockClient(hub, 1)

	c.handleMessage([]byte(`not json`))
	c.handleMessage([]byte(`{"action":"complete","taskId":"abc"}`))
	c.handleMessage([]byte(`{"action":"explode","taskId":"7"}`))

	if len(feed.applied) != 0 {
		t.Fatalf("garbage messages reached the feed: %v", feed.applied)
	}
	select {
	case <-c.send:
		t.Fatal("garbage message produced a snapshot push")
	default:
	}
}
