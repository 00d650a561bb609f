// Package worker 实现各任务类型的处理逻辑，并注册到任务注册表。
// 处理器返回的 JSON 即任务结果；业务失败（职位缺失、登录墙等）
// 用 status=failed 的结果表达，只有基础设施错误才让任务本身失败。
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bytedance/sonic"
	"gorm.io/gorm"

	"jobPilot/internal/ai"
	"jobPilot/internal/automation"
	"jobPilot/internal/database"
	"jobPilot/internal/docgen"
	"jobPilot/internal/profile"
	"jobPilot/internal/scoring"
	"jobPilot/internal/scrape"
	"jobPilot/internal/storage"
	"jobPilot/internal/tasks"
)

// Handlers 持有全部处理器的共享依赖。
type Handlers struct {
	db         *gorm.DB
	log        *slog.Logger
	ai         ai.Provider
	scrapers   *scrape.Registry
	docs       *docgen.Renderer
	scorer     *scoring.Scorer
	parser     *profile.Parser
	applicator automation.Applicator
	uploads    *storage.Client
}

// New 创建 Handlers。uploads 指向简历上传目录的存储客户端。
func New(
	db *gorm.DB,
	log *slog.Logger,
	provider ai.Provider,
	scrapers *scrape.Registry,
	docs *docgen.Renderer,
	scorer *scoring.Scorer,
	parser *profile.Parser,
	applicator automation.Applicator,
	uploads *storage.Client,
) *Handlers {
	return &Handlers{
		db:         db,
		log:        log,
		ai:         provider,
		scrapers:   scrapers,
		docs:       docs,
		scorer:     scorer,
		parser:     parser,
		applicator: applicator,
		uploads:    uploads,
	}
}

// Register 把全部任务类型挂到注册表。
func (h *Handlers) Register(reg *tasks.Registry) {
	reg.Register(tasks.TypeScraping, h.HandleScraping)
	reg.Register(tasks.TypeJobScoring, h.HandleJobScoring)
	reg.Register(tasks.TypeBulkScoring, h.HandleBulkScoring)
	reg.Register(tasks.TypeResumeGeneration, h.HandleResumeGeneration)
	reg.Register(tasks.TypeCoverLetterGeneration, h.HandleCoverLetterGeneration)
	reg.Register(tasks.TypeDocumentGeneration, h.HandleDocumentGeneration)
	reg.Register(tasks.TypeJobApplication, h.HandleJobApplication)
	reg.Register(tasks.TypeProfileUpdate, h.HandleProfileUpdate)
	reg.Register(tasks.TypeChat, h.HandleChat)
}

// loadJob 查询职位，未找到时返回 (nil, nil) 交由调用方转为业务失败。
func (h *Handlers) loadJob(ctx context.Context, id uint) (*database.Job, error) {
	var job database.Job
	if err := h.db.WithContext(ctx).First(&job, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query job %d: %w", id, err)
	}
	return &job, nil
}

// loadCandidate 取默认档案并解析 Content。
func (h *Handlers) loadCandidate(ctx context.Context) (docgen.Candidate, error) {
	var prof database.Profile
	if err := h.db.WithContext(ctx).First(&prof, database.DefaultProfileID).Error; err != nil {
		return docgen.Candidate{}, fmt.Errorf("query profile: %w", err)
	}

	var content profile.Content
	if len(prof.Content) > 0 {
		if err := sonic.Unmarshal(prof.Content, &content); err != nil {
			h.log.Warn("profile content is not valid json, treating as empty",
				slog.Any("error", err),
			)
		}
	}
	return docgen.Candidate{Profile: &prof, Content: content}, nil
}

func unmarshalPayload(t *tasks.Task, out any) error {
	if len(t.Payload) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(t.Payload, out); err != nil {
		return fmt.Errorf("unmarshal %s payload: %w", t.Type, err)
	}
	return nil
}
