package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"jobPilot/internal/database"
)

// JobHandler 暴露职位库的读取接口与手工状态更新。
type JobHandler struct {
	db  *gorm.DB
	log *slog.Logger
}

// NewJobHandler 返回 JobHandler 实例。
func NewJobHandler(db *gorm.DB, logger *slog.Logger) *JobHandler {
	return &JobHandler{db: db, log: logger}
}

// ListJobs 按条件筛选职位，评分高的在前，未评分的排最后。
func (h *JobHandler) ListJobs(c *gin.Context) {
	q := h.db.WithContext(c.Request.Context()).Model(&database.Job{})

	if v := c.Query("status"); v != "" {
		q = q.Where("status = ?", v)
	}
	if v := c.Query("min_score"); v != "" {
		score, err := strconv.ParseFloat(v, 64)
		if err != nil {
			BadRequest(c, "invalid min_score")
			return
		}
		q = q.Where("match_score >= ?", score)
	}
	if v := c.Query("source"); v != "" {
		q = q.Where("source = ?", v)
	}
	if v := c.Query("query"); v != "" {
		like := "%" + v + "%"
		q = q.Where("title LIKE ? OR company LIKE ?", like, like)
	}
	if v := c.Query("location"); v != "" {
		q = q.Where("location LIKE ?", "%"+v+"%")
	}
	if v := c.Query("job_type"); v != "" {
		q = q.Where("job_type LIKE ?", "%"+v+"%")
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit <= 0 {
		BadRequest(c, "invalid limit")
		return
	}
	if limit > 500 {
		limit = 500
	}

	var jobs []database.Job
	if err := q.Order("match_score DESC NULLS LAST, created_at DESC").
		Limit(limit).
		Find(&jobs).Error; err != nil {
		h.log.Error("list jobs failed", slog.Any("error", err))
		Internal(c, "failed to list jobs")
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs, "count": len(jobs)})
}

func (h *JobHandler) loadJob(c *gin.Context) (*database.Job, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "invalid job id")
		return nil, false
	}

	var job database.Job
	if err := h.db.WithContext(c.Request.Context()).First(&job, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "job not found")
			return nil, false
		}
		Internal(c, "failed to load job")
		return nil, false
	}
	return &job, true
}

// GetJob 返回单个职位记录。
func (h *JobHandler) GetJob(c *gin.Context) {
	job, ok := h.loadJob(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, job)
}

// MarkApplied 手工把职位标记为已投递，用于在站外自行投递之后回填状态。
func (h *JobHandler) MarkApplied(c *gin.Context) {
	job, ok := h.loadJob(c)
	if !ok {
		return
	}

	now := time.Now().UTC()
	err := h.db.WithContext(c.Request.Context()).Model(job).Updates(map[string]any{
		"status":     database.JobStatusApplied,
		"applied_at": &now,
	}).Error
	if err != nil {
		h.log.Error("mark job applied failed",
			slog.Uint64("job_id", uint64(job.ID)),
			slog.Any("error", err),
		)
		Internal(c, "failed to update status")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Job " + strconv.FormatUint(uint64(job.ID), 10) + " marked as applied",
	})
}
