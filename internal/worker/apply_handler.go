package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"jobPilot/internal/database"
	"jobPilot/internal/errcode"
	"jobPilot/internal/tasks"
)

// HandleJobApplication 对单个职位执行自动投递。
// 投递未达成（登录墙、入口缺失）按业务失败上报，不让任务失败。
func (h *Handlers) HandleJobApplication(ctx context.Context, t *tasks.Task) (json.RawMessage, error) {
	var payload tasks.JobPayload
	if err := unmarshalPayload(t, &payload); err != nil {
		return nil, err
	}

	job, err := h.loadJob(ctx, payload.JobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return failedResult(errcode.ResourceMissing, "job not found")
	}

	cand, err := h.loadCandidate(ctx)
	if err != nil {
		return nil, err
	}
	if job.ResumePath == "" && cand.Profile.ResumePath == "" {
		return failedResult(errcode.ResourceMissing,
			"no resume found (neither job-specific nor profile default)")
	}

	res, err := h.applicator.Apply(ctx, job, cand.Profile)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return failedResult(errcode.SystemError, fmt.Sprintf("automation error: %v", err))
	}
	if !res.Applied {
		return failedResult(errcode.AutomationBlocked, res.Message)
	}

	now := time.Now().UTC()
	update := map[string]any{
		"status":     database.JobStatusApplied,
		"applied_at": &now,
	}
	if err := h.db.WithContext(ctx).Model(job).Updates(update).Error; err != nil {
		return nil, err
	}

	return successResult(
		fmt.Sprintf("Successfully applied for %s", job.Title),
		map[string]any{
			"job_id": job.ID,
			"detail": res.Message,
		},
	)
}
