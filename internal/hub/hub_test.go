package hub

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/bytedance/sonic"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func recvEvent(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case msg := <-c.Receive():
		var ev Event
		if err := sonic.Unmarshal(msg, &ev); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestBroadcastReachesAllClients(t *testing.T) {
	h := NewHub(testLogger(), 4)
	a := h.Register()
	b := h.Register()

	if h.ClientCount() != 2 {
		t.Fatalf("client count = %d, want 2", h.ClientCount())
	}

	h.Broadcast(EventTaskStarted, map[string]any{"n": 1})

	for _, c := range []*Client{a, b} {
		ev := recvEvent(t, c)
		if ev.Type != EventTaskStarted {
			t.Fatalf("event type = %q, want %q", ev.Type, EventTaskStarted)
		}
	}
}

func TestClosedClientReceivesNothing(t *testing.T) {
	h := NewHub(testLogger(), 4)
	a := h.Register()
	b := h.Register()
	a.Close()

	if h.ClientCount() != 1 {
		t.Fatalf("client count = %d, want 1", h.ClientCount())
	}

	h.Broadcast(EventQueueStatus, map[string]any{})

	select {
	case msg := <-a.Receive():
		t.Fatalf("closed client received %s", msg)
	default:
	}
	recvEvent(t, b)

	// 重复 Close 应当是无害的。
	a.Close()
}

func TestSlowClientDropsWithoutBlocking(t *testing.T) {
	h := NewHub(testLogger(), 2)
	slow := h.Register()
	fast := h.Register()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			h.Broadcast(EventTaskQueued, map[string]any{"i": i})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked on a slow client")
	}

	if got := len(slow.send); got != 2 {
		t.Fatalf("slow client buffered %d messages, want 2", got)
	}
	if h.Dropped() == 0 {
		t.Fatal("expected dropped counter to advance")
	}
	if h.Broadcasts() != 10 {
		t.Fatalf("broadcasts = %d, want 10", h.Broadcasts())
	}

	// 快速消费者仍然拿到缓冲上限内的消息。
	recvEvent(t, fast)
}

func TestDeliverPrivateMessage(t *testing.T) {
	h := NewHub(testLogger(), 1)
	a := h.Register()
	b := h.Register()

	msg, err := Event{Type: EventPong, Data: nil}.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !a.Deliver(msg) {
		t.Fatal("deliver to empty buffer should succeed")
	}
	if a.Deliver(msg) {
		t.Fatal("deliver to full buffer should report false")
	}

	select {
	case <-b.Receive():
		t.Fatal("private delivery leaked to another client")
	default:
	}

	ev := recvEvent(t, a)
	if ev.Type != EventPong {
		t.Fatalf("event type = %q, want %q", ev.Type, EventPong)
	}
}
