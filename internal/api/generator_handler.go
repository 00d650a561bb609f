package api

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"jobPilot/internal/database"
	"jobPilot/internal/queue"
	"jobPilot/internal/tasks"
)

// GeneratorHandler 负责文档生成、评分与投递任务的提交。
// 针对单个职位的路由都先确认职位存在再入队，不存在返回 404。
type GeneratorHandler struct {
	db    *gorm.DB
	queue *queue.Manager
}

// NewGeneratorHandler 返回 GeneratorHandler 实例。
func NewGeneratorHandler(db *gorm.DB, manager *queue.Manager) *GeneratorHandler {
	return &GeneratorHandler{db: db, queue: manager}
}

func (h *GeneratorHandler) loadJob(c *gin.Context) (*database.Job, bool) {
	id, err := strconv.ParseUint(c.Param("job_id"), 10, 32)
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

func (h *GeneratorHandler) submit(c *gin.Context, typ tasks.Type, payload []byte) {
	task, err := h.queue.Submit(typ, payload)
	if err != nil {
		Internal(c, "failed to queue task")
		return
	}
	Accepted(c, task)
}

func (h *GeneratorHandler) submitGenerate(c *gin.Context, typ tasks.Type) {
	job, ok := h.loadJob(c)
	if !ok {
		return
	}

	typ, payload, err := tasks.NewGenerateTask(typ, job.ID, c.DefaultQuery("format", "md"))
	if err != nil {
		Internal(c, "failed to encode task payload")
		return
	}
	h.submit(c, typ, payload)
}

// GenerateResume 将一次简历生成入队。
func (h *GeneratorHandler) GenerateResume(c *gin.Context) {
	h.submitGenerate(c, tasks.TypeResumeGeneration)
}

// GenerateCoverLetter 将一次求职信生成入队。
func (h *GeneratorHandler) GenerateCoverLetter(c *gin.Context) {
	h.submitGenerate(c, tasks.TypeCoverLetterGeneration)
}

// GenerateDocuments 将简历与求职信的整套生成入队。
func (h *GeneratorHandler) GenerateDocuments(c *gin.Context) {
	h.submitGenerate(c, tasks.TypeDocumentGeneration)
}

// ScoreJob 将单个职位的匹配评分入队。
func (h *GeneratorHandler) ScoreJob(c *gin.Context) {
	job, ok := h.loadJob(c)
	if !ok {
		return
	}

	typ, payload, err := tasks.NewJobTask(tasks.TypeJobScoring, job.ID)
	if err != nil {
		Internal(c, "failed to encode task payload")
		return
	}
	h.submit(c, typ, payload)
}

// ScoreAll 将全部未评分职位的批量评分入队。
func (h *GeneratorHandler) ScoreAll(c *gin.Context) {
	typ, payload, err := tasks.NewBulkScoringTask()
	if err != nil {
		Internal(c, "failed to encode task payload")
		return
	}
	h.submit(c, typ, payload)
}

// ApplyToJob 将自动投递入队。投递需要一份简历：
// 职位自身没有生成过简历、档案里也没有默认简历时直接拒绝。
func (h *GeneratorHandler) ApplyToJob(c *gin.Context) {
	job, ok := h.loadJob(c)
	if !ok {
		return
	}

	if job.ResumePath == "" {
		var prof database.Profile
		err := h.db.WithContext(c.Request.Context()).
			First(&prof, database.DefaultProfileID).Error
		if err != nil || prof.ResumePath == "" {
			BadRequest(c, "resume must be generated before applying")
			return
		}
	}

	typ, payload, err := tasks.NewJobTask(tasks.TypeJobApplication, job.ID)
	if err != nil {
		Internal(c, "failed to encode task payload")
		return
	}
	h.submit(c, typ, payload)
}
