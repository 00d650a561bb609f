package api

import (
	"net/http"
	"testing"

	"github.com/bytedance/sonic"

	"jobPilot/internal/tasks"
)

func TestQueueStatusSnapshot(t *testing.T) {
	env := newAPIEnv(t)
	env.do(t, http.MethodPost, "/v1/chat", map[string]string{"message": "hello"})
	env.do(t, http.MethodPost, "/v1/chat", map[string]string{"message": "again"})

	w := env.do(t, http.MethodGet, "/v1/queue/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var snap struct {
		RunningTask      *tasks.Task `json:"running_task"`
		PendingCount     int         `json:"pending_count"`
		ConnectedClients int         `json:"connected_clients"`
	}
	if err := sonic.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.RunningTask != nil {
		t.Errorf("no worker is running, running_task = %+v", snap.RunningTask)
	}
	if snap.PendingCount != 2 {
		t.Errorf("pending_count = %d, want 2", snap.PendingCount)
	}
	if snap.ConnectedClients != 0 {
		t.Errorf("connected_clients = %d, want 0", snap.ConnectedClients)
	}
}

func TestListTasksNewestFirst(t *testing.T) {
	env := newAPIEnv(t)
	first := acceptedTask(t, env.do(t, http.MethodPost, "/v1/chat", map[string]string{"message": "one"}))
	second := acceptedTask(t, env.do(t, http.MethodPost, "/v1/chat", map[string]string{"message": "two"}))

	w := env.do(t, http.MethodGet, "/v1/queue/tasks", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp struct {
		Tasks []*tasks.Task `json:"tasks"`
	}
	if err := sonic.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode tasks: %v", err)
	}
	if len(resp.Tasks) != 2 {
		t.Fatalf("len = %d, want 2", len(resp.Tasks))
	}
	if resp.Tasks[0].ID != second.ID || resp.Tasks[1].ID != first.ID {
		t.Errorf("tasks not newest first: %s, %s", resp.Tasks[0].ID, resp.Tasks[1].ID)
	}
}

func TestGetTaskByID(t *testing.T) {
	env := newAPIEnv(t)
	task := acceptedTask(t, env.do(t, http.MethodPost, "/v1/chat", map[string]string{"message": "hi"}))

	w := env.do(t, http.MethodGet, "/v1/queue/tasks/"+task.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	if w := env.do(t, http.MethodGet, "/v1/queue/tasks/no-such-id", nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown id status = %d, want 404", w.Code)
	}
}

func TestCancelQueuedTask(t *testing.T) {
	env := newAPIEnv(t)
	task := acceptedTask(t, env.do(t, http.MethodPost, "/v1/chat", map[string]string{"message": "hi"}))

	w := env.do(t, http.MethodDelete, "/v1/queue/tasks/"+task.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("cancel status = %d, body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		Task *tasks.Task `json:"task"`
	}
	if err := sonic.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Task.Status != tasks.StatusCancelled {
		t.Errorf("task status = %q, want cancelled", resp.Task.Status)
	}

	// 已终态的任务再取消是 409，未知 ID 是 404。
	if w := env.do(t, http.MethodDelete, "/v1/queue/tasks/"+task.ID, nil); w.Code != http.StatusConflict {
		t.Errorf("second cancel status = %d, want 409", w.Code)
	}
	if w := env.do(t, http.MethodDelete, "/v1/queue/tasks/no-such-id", nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown id status = %d, want 404", w.Code)
	}
}
