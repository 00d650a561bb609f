package tasks

import (
	"encoding/json"
	"time"
)

// Status 表示任务在生命周期状态机中的位置。
// 状态只会单向推进：queued → running → {completed | failed}，
// 以及 queued → cancelled（仅允许取消尚未开始的任务）。
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// String 返回状态的原始字符串值。
func (s Status) String() string { return string(s) }

// Terminal 报告状态是否为终态（不再发生任何迁移）。
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Task 是一次异步工作的完整记录。
// 终态任务满足：completed 仅设置 Result，failed 仅设置 Error，
// cancelled 两者皆空；时间戳在对应状态达成时填写。
type Task struct {
	ID         string          `json:"id"`
	Type       Type            `json:"type"`
	Status     Status          `json:"status"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	StartedAt  *time.Time      `json:"started_at"`
	FinishedAt *time.Time      `json:"finished_at"`
}

// Clone 返回任务的深拷贝，用于对外暴露快照，避免调用方
// 与队列内部记录共享可变状态。
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	cp := *t
	if t.StartedAt != nil {
		v := *t.StartedAt
		cp.StartedAt = &v
	}
	if t.FinishedAt != nil {
		v := *t.FinishedAt
		cp.FinishedAt = &v
	}
	if t.Payload != nil {
		cp.Payload = append(json.RawMessage(nil), t.Payload...)
	}
	if t.Result != nil {
		cp.Result = append(json.RawMessage(nil), t.Result...)
	}
	return &cp
}
