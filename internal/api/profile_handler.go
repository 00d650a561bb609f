package api

import (
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/dutchcoders/go-clamd"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"jobPilot/internal/database"
	"jobPilot/internal/profile"
	"jobPilot/internal/queue"
	"jobPilot/internal/storage"
	"jobPilot/internal/tasks"
)

// 简历上传的体积上限，与解析器的读取上限一致。
const maxResumeUploadBytes = 1 << 20

// ProfileHandler 负责档案的读取、编辑与简历上传。
type ProfileHandler struct {
	db        *gorm.DB
	queue     *queue.Manager
	uploads   *storage.Client
	clamdAddr string
	log       *slog.Logger
}

// NewProfileHandler 返回 ProfileHandler 实例。
// clamdAddr 为空时跳过上传扫描。
func NewProfileHandler(db *gorm.DB, manager *queue.Manager, uploads *storage.Client, clamdAddr string, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{db: db, queue: manager, uploads: uploads, clamdAddr: clamdAddr, log: logger}
}

// GetProfile 返回当前档案。档案行不存在时返回空档案而不是 404，
// 仪表盘总能拿到一个可渲染的形状。
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	var prof database.Profile
	err := h.db.WithContext(c.Request.Context()).
		First(&prof, database.DefaultProfileID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusOK, database.Profile{})
			return
		}
		h.log.Error("load profile failed", slog.Any("error", err))
		Internal(c, "failed to load profile")
		return
	}
	c.JSON(http.StatusOK, prof)
}

type profileUpdateRequest struct {
	FullName     *string          `json:"full_name"`
	Email        *string          `json:"email"`
	Phone        *string          `json:"phone"`
	Location     *string          `json:"location"`
	LinkedinURL  *string          `json:"linkedin_url"`
	GithubURL    *string          `json:"github_url"`
	PortfolioURL *string          `json:"portfolio_url"`
	AboutMe      *string          `json:"about_me"`
	Content      *profile.Content `json:"content"`
}

// UpdateProfile 手工编辑档案，只更新请求里出现的字段。
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	var req profileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body")
		return
	}

	updates := map[string]any{}
	for column, value := range map[string]*string{
		"full_name":     req.FullName,
		"email":         req.Email,
		"phone":         req.Phone,
		"location":      req.Location,
		"linkedin_url":  req.LinkedinURL,
		"github_url":    req.GithubURL,
		"portfolio_url": req.PortfolioURL,
		"about_me":      req.AboutMe,
	} {
		if value != nil {
			updates[column] = *value
		}
	}
	if req.Content != nil {
		raw, err := sonic.Marshal(req.Content)
		if err != nil {
			BadRequest(c, "invalid content")
			return
		}
		updates["content"] = datatypes.JSON(raw)
	}
	if len(updates) == 0 {
		BadRequest(c, "no fields to update")
		return
	}

	ctx := c.Request.Context()
	var prof database.Profile
	err := h.db.WithContext(ctx).
		FirstOrCreate(&prof, database.Profile{Model: gorm.Model{ID: database.DefaultProfileID}}).Error
	if err != nil {
		h.log.Error("ensure profile row failed", slog.Any("error", err))
		Internal(c, "failed to update profile")
		return
	}
	if err := h.db.WithContext(ctx).Model(&prof).Updates(updates).Error; err != nil {
		h.log.Error("update profile failed", slog.Any("error", err))
		Internal(c, "failed to update profile")
		return
	}

	if err := h.db.WithContext(ctx).First(&prof, database.DefaultProfileID).Error; err != nil {
		Internal(c, "failed to reload profile")
		return
	}
	c.JSON(http.StatusOK, prof)
}

// UploadResume 保存上传的简历文件并入队档案解析任务。
// 解析器只处理纯文本，其他格式在这里就拒绝。
func (h *ProfileHandler) UploadResume(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "missing file")
		return
	}
	if file.Size > maxResumeUploadBytes {
		BadRequest(c, "file too large")
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	switch ext {
	case ".txt", ".md", ".markdown":
	default:
		BadRequest(c, "invalid file type, only plain-text resumes (.txt, .md) are supported")
		return
	}

	if h.clamdAddr != "" {
		clean, err := scanUpload(file, h.clamdAddr)
		if err != nil {
			h.log.Error("scan uploaded file failed", slog.Any("error", err))
			Internal(c, "failed to scan file")
			return
		}
		if !clean {
			BadRequest(c, "malicious file detected")
			return
		}
	}

	src, err := file.Open()
	if err != nil {
		h.log.Error("open uploaded file failed", slog.Any("error", err))
		Internal(c, "failed to read upload")
		return
	}
	defer src.Close()

	key := fmt.Sprintf("resumes/%s%s", uuid.NewString(), ext)
	if _, err := h.uploads.SaveFile(key, src); err != nil {
		h.log.Error("save uploaded resume failed",
			slog.String("key", key),
			slog.Any("error", err),
		)
		Internal(c, "failed to store upload")
		return
	}

	typ, payload, err := tasks.NewProfileUpdateTask(key)
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

// scanUpload 把上传内容送 clamd 扫描，返回文件是否干净。
func scanUpload(file *multipart.FileHeader, addr string) (bool, error) {
	reader, err := file.Open()
	if err != nil {
		return false, fmt.Errorf("open upload: %w", err)
	}
	defer reader.Close()

	abortChan := make(chan bool)
	defer close(abortChan)

	scanChan, err := clamd.NewClamd(addr).ScanStream(reader, abortChan)
	if err != nil {
		return false, fmt.Errorf("scan stream: %w", err)
	}
	for result := range scanChan {
		if result.Status != clamd.RES_OK {
			return false, nil
		}
	}
	return true, nil
}
