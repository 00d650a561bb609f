package api

import (
	"github.com/gin-gonic/gin"

	"jobPilot/internal/queue"
	"jobPilot/internal/tasks"
)

// ChatHandler 负责对话消息的提交，回复通过任务事件异步送达。
type ChatHandler struct {
	queue *queue.Manager
}

// NewChatHandler 返回 ChatHandler 实例。
func NewChatHandler(manager *queue.Manager) *ChatHandler {
	return &ChatHandler{queue: manager}
}

type chatRequest struct {
	Message string `json:"message" binding:"required"`
	JobID   uint   `json:"job_id"`
	Context string `json:"context"`
}

// PostMessage 将一条对话消息入队。
func (h *ChatHandler) PostMessage(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "message is required")
		return
	}

	typ, payload, err := tasks.NewChatTask(req.Message, req.JobID, req.Context)
	if err != nil {
		Internal(c, "failed to encode task payload")
		return
	}

	task, err := h.queue.Submit(typ, payload)
	if err != nil {
		Internal(c, "failed to queue task")
		return
	}
	Accepted(c, task)
}
