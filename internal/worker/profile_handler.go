package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	"gorm.io/datatypes"

	"jobPilot/internal/ai"
	"jobPilot/internal/database"
	"jobPilot/internal/errcode"
	"jobPilot/internal/profile"
	"jobPilot/internal/storage"
	"jobPilot/internal/tasks"
)

// HandleProfileUpdate 解析上传的简历并覆盖默认档案。
func (h *Handlers) HandleProfileUpdate(ctx context.Context, t *tasks.Task) (json.RawMessage, error) {
	var payload tasks.ProfileUpdatePayload
	if err := unmarshalPayload(t, &payload); err != nil {
		return nil, err
	}

	f, err := h.uploads.Open(payload.FilePath)
	if err != nil {
		if storage.IsNotExist(err) {
			return failedResult(errcode.ResourceMissing, "uploaded resume not found")
		}
		return nil, fmt.Errorf("open uploaded resume: %w", err)
	}
	defer f.Close()

	text, err := profile.ExtractText(payload.FilePath, f)
	if err != nil {
		if errors.Is(err, profile.ErrUnsupportedFormat) || errors.Is(err, profile.ErrEmptyResume) {
			return failedResult(errcode.EmptyResult, err.Error())
		}
		return nil, err
	}

	parsed, err := h.parser.Parse(ctx, text)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		if errors.Is(err, ai.ErrNotConfigured) {
			return failedResult(errcode.ProviderError, "ai provider not configured")
		}
		return failedResult(errcode.ProviderError, fmt.Sprintf("resume parsing failed: %v", err))
	}

	contentJSON, err := sonic.Marshal(parsed.Content)
	if err != nil {
		return nil, fmt.Errorf("marshal profile content: %w", err)
	}

	update := map[string]any{
		"full_name":     parsed.FullName,
		"email":         parsed.Email,
		"phone":         parsed.Phone,
		"location":      parsed.Location,
		"linkedin_url":  parsed.LinkedinURL,
		"github_url":    parsed.GithubURL,
		"portfolio_url": parsed.PortfolioURL,
		"about_me":      parsed.Summary,
		"content":       datatypes.JSON(contentJSON),
		"resume_path":   payload.FilePath,
	}
	if err := h.db.WithContext(ctx).
		Model(&database.Profile{}).
		Where("id = ?", database.DefaultProfileID).
		Updates(update).Error; err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	return successResult("Profile updated from resume", map[string]any{
		"full_name": parsed.FullName,
		"skills":    len(parsed.Skills),
	})
}
