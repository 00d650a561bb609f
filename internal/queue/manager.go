package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"jobPilot/internal/hub"
	"jobPilot/internal/tasks"
)

const (
	// DefaultHistorySize 是保留的终态任务条数上限。
	DefaultHistorySize = 100

	defaultRecentLimit = 50
)

// Broadcaster 接收队列生命周期事件并投递给所有观察者。
type Broadcaster interface {
	Broadcast(eventType string, data any)
}

// Snapshot 是队列的即时状态，按需计算、不落盘。
type Snapshot struct {
	RunningTask  *tasks.Task `json:"running_task"`
	PendingCount int         `json:"pending_count"`
}

// Manager 实现单车道顺序任务队列：
// 任意数量的提交方并发入队，唯一的 worker 依次取出执行，
// 同一时刻最多只有一个任务处于 running 状态。
//
// 生命周期事件在持有队列锁时广播，保证同一任务的
// queued → started → finished 顺序对所有观察者一致。
type Manager struct {
	log      *slog.Logger
	registry *tasks.Registry
	events   Broadcaster

	mu      sync.Mutex
	pending []*tasks.Task
	running *tasks.Task
	index   map[string]*tasks.Task
	history *lru.Cache[string, *tasks.Task]

	// wake 容量为 1：空队列时 worker 挂起在它上面，
	// 入队唤醒，多次提交合并为一次信号。
	wake chan struct{}
}

// NewManager 创建队列管理器。historySize 不为正时使用默认值。
func NewManager(log *slog.Logger, registry *tasks.Registry, events Broadcaster, historySize int) (*Manager, error) {
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}
	history, err := lru.New[string, *tasks.Task](historySize)
	if err != nil {
		return nil, fmt.Errorf("init task history: %w", err)
	}
	return &Manager{
		log:      log,
		registry: registry,
		events:   events,
		index:    make(map[string]*tasks.Task),
		history:  history,
		wake:     make(chan struct{}, 1),
	}, nil
}

// Submit 校验任务类型并入队，立即返回权威任务记录。
// 该调用从不等待任务执行，提交方用返回的 ID 关联后续广播事件。
func (m *Manager) Submit(typ tasks.Type, payload json.RawMessage) (*tasks.Task, error) {
	if !m.registry.Handles(typ) {
		return nil, fmt.Errorf("%w: %q", tasks.ErrNoHandler, typ)
	}

	m.mu.Lock()
	id, err := uuid.NewV7()
	if err != nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("assign task id: %w", err)
	}
	t := &tasks.Task{
		ID:        id.String(),
		Type:      typ,
		Status:    tasks.StatusQueued,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
	m.pending = append(m.pending, t)
	m.index[t.ID] = t
	queueSize := len(m.pending)
	out := t.Clone()

	m.events.Broadcast(hub.EventTaskQueued, map[string]any{
		"task":       out,
		"queue_size": queueSize,
	})
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}

	m.log.Info("task queued",
		slog.String("task_id", out.ID),
		slog.String("task_type", typ.String()),
		slog.Int("queue_size", queueSize),
	)
	return out, nil
}

// Cancel 将仍在排队的任务移出队列并标记为 cancelled。
// 正在执行或已结束的任务返回 ErrNotCancellable，未知 ID 返回 ErrTaskNotFound。
func (m *Manager) Cancel(id string) (*tasks.Task, error) {
	m.mu.Lock()

	t, ok := m.index[id]
	if !ok {
		_, done := m.history.Get(id)
		m.mu.Unlock()
		if done {
			return nil, fmt.Errorf("%w: %s", ErrNotCancellable, id)
		}
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	if t.Status != tasks.StatusQueued {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNotCancellable, id)
	}

	for i, p := range m.pending {
		if p.ID == id {
			copy(m.pending[i:], m.pending[i+1:])
			m.pending[len(m.pending)-1] = nil
			m.pending = m.pending[:len(m.pending)-1]
			break
		}
	}
	now := time.Now().UTC()
	t.Status = tasks.StatusCancelled
	t.FinishedAt = &now
	delete(m.index, id)
	m.history.Add(id, t)
	queueSize := len(m.pending)
	out := t.Clone()

	m.events.Broadcast(hub.EventTaskCancelled, map[string]any{
		"task":       out,
		"queue_size": queueSize,
	})
	m.mu.Unlock()

	m.log.Info("task cancelled",
		slog.String("task_id", id),
		slog.String("task_type", out.Type.String()),
		slog.Int("queue_size", queueSize),
	)
	return out, nil
}

// Get 按 ID 查找任务，包含排队中、执行中与保留的终态任务。
func (m *Manager) Get(id string) (*tasks.Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t, ok := m.index[id]; ok {
		return t.Clone(), true
	}
	if t, ok := m.history.Get(id); ok {
		return t.Clone(), true
	}
	return nil, false
}

// Recent 返回最近的任务记录，新任务在前。
// 覆盖排队中、执行中以及仍在保留窗口内的终态任务。
func (m *Manager) Recent(limit int) []*tasks.Task {
	if limit <= 0 {
		limit = defaultRecentLimit
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*tasks.Task, 0, len(m.pending)+1+m.history.Len())
	for _, t := range m.history.Values() {
		out = append(out, t.Clone())
	}
	if m.running != nil {
		out = append(out, m.running.Clone())
	}
	for _, t := range m.pending {
		out = append(out, t.Clone())
	}

	// UUIDv7 按入队时间单调递增，倒序即时间倒序。
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Status 返回当前快照，供轮询接口与新连接的首帧推送使用。
func (m *Manager) Status() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		RunningTask:  m.running.Clone(),
		PendingCount: len(m.pending),
	}
}

// Run 是队列的 worker 循环，阻塞直到 ctx 结束。
// 队列为空时挂起等待唤醒信号，从不轮询。
func (m *Manager) Run(ctx context.Context) {
	m.log.Info("queue worker started")
	for {
		select {
		case <-ctx.Done():
			m.log.Info("queue worker stopped")
			return
		case <-m.wake:
		}

		for {
			if ctx.Err() != nil {
				m.log.Info("queue worker stopped")
				return
			}
			t, fn, ok := m.next()
			if !ok {
				break
			}
			m.execute(ctx, t, fn)
		}
	}
}

// next 取出队首任务并标记为 running，返回供 handler 使用的副本。
// 队列为空时返回 ok=false。
func (m *Manager) next() (*tasks.Task, tasks.HandlerFunc, bool) {
	m.mu.Lock()

	if len(m.pending) == 0 {
		m.mu.Unlock()
		return nil, nil, false
	}
	t := m.pending[0]
	m.pending[0] = nil
	m.pending = m.pending[1:]

	now := time.Now().UTC()
	t.Status = tasks.StatusRunning
	t.StartedAt = &now
	m.running = t
	out := t.Clone()

	m.events.Broadcast(hub.EventTaskStarted, map[string]any{"task": out})
	m.mu.Unlock()

	m.log.Info("task started",
		slog.String("task_id", out.ID),
		slog.String("task_type", out.Type.String()),
	)

	fn, err := m.registry.Resolve(out.Type)
	if err != nil {
		return out, func(context.Context, *tasks.Task) (json.RawMessage, error) {
			return nil, err
		}, true
	}
	return out, fn, true
}

// execute 运行 handler 并将任务推进到终态。
// handler 返回 error 或 panic 都只标记该任务失败，worker 继续下一个任务。
func (m *Manager) execute(ctx context.Context, t *tasks.Task, fn tasks.HandlerFunc) {
	result, err := m.invoke(ctx, t, fn)

	m.mu.Lock()
	done := m.running
	if done == nil || done.ID != t.ID {
		// 不应发生：worker 是唯一的消费者。
		m.mu.Unlock()
		m.log.Error("finished task does not match running slot", slog.String("task_id", t.ID))
		return
	}
	now := time.Now().UTC()
	done.FinishedAt = &now
	data := map[string]any{}
	if err != nil {
		done.Status = tasks.StatusFailed
		done.Error = err.Error()
		data["error"] = done.Error
	} else {
		done.Status = tasks.StatusCompleted
		done.Result = result
		data["result"] = result
	}
	m.running = nil
	delete(m.index, done.ID)
	m.history.Add(done.ID, done)
	out := done.Clone()
	data["task"] = out

	m.events.Broadcast(hub.EventTaskFinished, data)
	m.mu.Unlock()

	elapsed := time.Duration(0)
	if out.StartedAt != nil {
		elapsed = now.Sub(*out.StartedAt)
	}
	if err != nil {
		m.log.Error("task failed",
			slog.String("task_id", out.ID),
			slog.String("task_type", out.Type.String()),
			slog.Duration("elapsed", elapsed),
			slog.Any("error", err),
		)
		return
	}
	m.log.Info("task finished",
		slog.String("task_id", out.ID),
		slog.String("task_type", out.Type.String()),
		slog.Duration("elapsed", elapsed),
	)
}

// invoke 调用 handler 并把 panic 转化为普通错误。
func (m *Manager) invoke(ctx context.Context, t *tasks.Task, fn tasks.HandlerFunc) (result json.RawMessage, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return fn(ctx, t)
}
