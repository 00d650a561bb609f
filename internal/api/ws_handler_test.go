package api

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"jobPilot/internal/hub"
	"jobPilot/internal/queue"
	"jobPilot/internal/tasks"
)

func dialWS(t *testing.T, env *apiEnv) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(env.router)
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial ws: %v", err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) (string, json.RawMessage) {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("set read deadline: %v", err)
	}
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	var ev struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := sonic.Unmarshal(msg, &ev); err != nil {
		t.Fatalf("decode frame %s: %v", msg, err)
	}
	return ev.Type, ev.Data
}

func TestWsDeliversSnapshotOnConnect(t *testing.T) {
	env := newAPIEnv(t)
	conn := dialWS(t, env)

	typ, data := readEvent(t, conn)
	if typ != hub.EventQueueStatus {
		t.Fatalf("first frame type = %q, want %q", typ, hub.EventQueueStatus)
	}
	var snap queue.Snapshot
	if err := sonic.Unmarshal(data, &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.PendingCount != 0 || snap.RunningTask != nil {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestWsPingPong(t *testing.T) {
	env := newAPIEnv(t)
	conn := dialWS(t, env)
	readEvent(t, conn) // 丢弃快照帧

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	typ, _ := readEvent(t, conn)
	if typ != hub.EventPong {
		t.Errorf("frame type = %q, want %q", typ, hub.EventPong)
	}
}

func TestWsChatSubmitsTaskAndAcksSubmitter(t *testing.T) {
	env := newAPIEnv(t)
	conn := dialWS(t, env)
	readEvent(t, conn)

	frame := `{"type":"chat","message":"Which job should I apply to first?"}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		t.Fatalf("write chat: %v", err)
	}

	// 同一连接先收到广播的 task_queued，再收到私发的 task_accepted，
	// 两者指向同一个任务。
	got := map[string]json.RawMessage{}
	for i := 0; i < 2; i++ {
		typ, data := readEvent(t, conn)
		got[typ] = data
	}

	queuedData, ok := got[hub.EventTaskQueued]
	if !ok {
		t.Fatalf("no task_queued frame, got %v", keys(got))
	}
	ackData, ok := got[hub.EventTaskAccepted]
	if !ok {
		t.Fatalf("no task_accepted frame, got %v", keys(got))
	}

	var queued, acked struct {
		Task *tasks.Task `json:"task"`
	}
	if err := sonic.Unmarshal(queuedData, &queued); err != nil {
		t.Fatalf("decode task_queued: %v", err)
	}
	if err := sonic.Unmarshal(ackData, &acked); err != nil {
		t.Fatalf("decode task_accepted: %v", err)
	}
	if queued.Task == nil || acked.Task == nil || queued.Task.ID != acked.Task.ID {
		t.Fatalf("queued and acked ids differ: %+v vs %+v", queued.Task, acked.Task)
	}
	if acked.Task.Type != tasks.TypeChat {
		t.Errorf("task type = %q", acked.Task.Type)
	}

	// 任务确实进了队列。
	if _, ok := env.manager.Get(acked.Task.ID); !ok {
		t.Error("task not found in queue")
	}
}

func TestWsMalformedFrameKeepsConnectionAlive(t *testing.T) {
	env := newAPIEnv(t)
	conn := dialWS(t, env)
	readEvent(t, conn)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json at all")); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)); err != nil {
		t.Fatalf("write ping: %v", err)
	}

	typ, _ := readEvent(t, conn)
	if typ != hub.EventPong {
		t.Errorf("connection should survive malformed frames, got %q", typ)
	}
}

func TestWsChatWithoutMessageIgnored(t *testing.T) {
	env := newAPIEnv(t)
	conn := dialWS(t, env)
	readEvent(t, conn)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"chat","message":"  "}`)); err != nil {
		t.Fatalf("write chat: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)); err != nil {
		t.Fatalf("write ping: %v", err)
	}

	// 空消息不入队，下一帧直接是 pong。
	typ, _ := readEvent(t, conn)
	if typ != hub.EventPong {
		t.Errorf("frame type = %q, want %q", typ, hub.EventPong)
	}
	if got := len(env.manager.Recent(10)); got != 0 {
		t.Errorf("queue should stay empty, has %d tasks", got)
	}
}

func keys(m map[string]json.RawMessage) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
