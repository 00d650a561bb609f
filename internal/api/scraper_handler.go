package api

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"jobPilot/internal/queue"
	"jobPilot/internal/tasks"
)

// ScraperHandler 负责抓取任务的提交。
type ScraperHandler struct {
	queue *queue.Manager
}

// NewScraperHandler 返回 ScraperHandler 实例。
func NewScraperHandler(manager *queue.Manager) *ScraperHandler {
	return &ScraperHandler{queue: manager}
}

type scrapeRequest struct {
	Source   string `json:"source"`
	Query    string `json:"query"`
	Location string `json:"location"`
}

// RunScraper 将一次抓取入队。三个字段都可省略，
// 不带 source 时运行全部已配置的抓取器，请求体也可以整个省略。
func (h *ScraperHandler) RunScraper(c *gin.Context) {
	var req scrapeRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		BadRequest(c, "invalid request body")
		return
	}

	typ, payload, err := tasks.NewScrapingTask(req.Source, req.Query, req.Location)
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
