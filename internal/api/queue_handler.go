package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"jobPilot/internal/hub"
	"jobPilot/internal/queue"
)

// QueueHandler 暴露任务队列的只读视图与取消操作，
// 是 WebSocket 事件流之外的轮询后备。
type QueueHandler struct {
	queue  *queue.Manager
	events *hub.Hub
}

// NewQueueHandler 返回 QueueHandler 实例。
func NewQueueHandler(manager *queue.Manager, events *hub.Hub) *QueueHandler {
	return &QueueHandler{queue: manager, events: events}
}

// Status 返回队列即时快照与在线连接数。
func (h *QueueHandler) Status(c *gin.Context) {
	snap := h.queue.Status()
	c.JSON(http.StatusOK, struct {
		queue.Snapshot
		ConnectedClients int `json:"connected_clients"`
	}{
		Snapshot:         snap,
		ConnectedClients: h.events.ClientCount(),
	})
}

// ListTasks 按时间倒序返回排队中与最近结束的任务。
func (h *QueueHandler) ListTasks(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		BadRequest(c, "invalid limit")
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": h.queue.Recent(limit)})
}

// GetTask 返回单个任务记录。
func (h *QueueHandler) GetTask(c *gin.Context) {
	t, ok := h.queue.Get(c.Param("id"))
	if !ok {
		NotFound(c, "task not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": t})
}

// CancelTask 取消仍在排队的任务。
// 已开始或已结束的任务返回 409，未知 ID 返回 404。
func (h *QueueHandler) CancelTask(c *gin.Context) {
	t, err := h.queue.Cancel(c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, queue.ErrTaskNotFound):
			NotFound(c, "task not found")
		case errors.Is(err, queue.ErrNotCancellable):
			Conflict(c, "task already started or finished")
		default:
			Internal(c, "failed to cancel task")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": t})
}
