package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"jobPilot/internal/tasks"
)

func Error(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

func BadRequest(c *gin.Context, msg string) { Error(c, http.StatusBadRequest, msg) }
func NotFound(c *gin.Context, msg string)   { Error(c, http.StatusNotFound, msg) }
func Conflict(c *gin.Context, msg string)   { Error(c, http.StatusConflict, msg) }
func Internal(c *gin.Context, msg string)   { Error(c, http.StatusInternalServerError, msg) }

// Accepted 以 202 返回刚入队任务的权威记录。
// 提交方从这里拿到任务 ID，用于关联后续的广播事件。
func Accepted(c *gin.Context, t *tasks.Task) {
	c.JSON(http.StatusAccepted, gin.H{"task": t})
}
