package worker

import (
	"context"
	"encoding/json"

	"jobPilot/internal/database"
	"jobPilot/internal/docgen"
	"jobPilot/internal/errcode"
	"jobPilot/internal/tasks"
)

// HandleResumeGeneration 生成职位定制简历并更新职位记录。
func (h *Handlers) HandleResumeGeneration(ctx context.Context, t *tasks.Task) (json.RawMessage, error) {
	job, cand, fail, err := h.loadGenerateTarget(ctx, t)
	if err != nil || fail != nil {
		return fail, err
	}

	key, err := h.docs.Resume(ctx, job, cand)
	if err != nil {
		return nil, err
	}

	update := map[string]any{
		"resume_path": key,
		"status":      database.JobStatusResumeGenerated,
	}
	if err := h.db.WithContext(ctx).Model(job).Updates(update).Error; err != nil {
		return nil, err
	}

	return successResult("Resume generated", map[string]any{
		"job_id":        job.ID,
		"document_type": "resume",
		"resume_path":   key,
		"resume_url":    documentURL(key),
	})
}

// HandleCoverLetterGeneration 生成求职信并更新职位记录。
func (h *Handlers) HandleCoverLetterGeneration(ctx context.Context, t *tasks.Task) (json.RawMessage, error) {
	job, cand, fail, err := h.loadGenerateTarget(ctx, t)
	if err != nil || fail != nil {
		return fail, err
	}

	key, err := h.docs.CoverLetter(ctx, job, cand)
	if err != nil {
		return nil, err
	}

	if err := h.db.WithContext(ctx).Model(job).
		Update("cover_letter_path", key).Error; err != nil {
		return nil, err
	}

	return successResult("Cover letter generated", map[string]any{
		"job_id":            job.ID,
		"document_type":     "cover_letter",
		"cover_letter_path": key,
		"cover_letter_url":  documentURL(key),
	})
}

// HandleDocumentGeneration 依次生成简历与求职信。
func (h *Handlers) HandleDocumentGeneration(ctx context.Context, t *tasks.Task) (json.RawMessage, error) {
	job, cand, fail, err := h.loadGenerateTarget(ctx, t)
	if err != nil || fail != nil {
		return fail, err
	}

	resumeKey, err := h.docs.Resume(ctx, job, cand)
	if err != nil {
		return nil, err
	}
	letterKey, err := h.docs.CoverLetter(ctx, job, cand)
	if err != nil {
		return nil, err
	}

	update := map[string]any{
		"resume_path":       resumeKey,
		"cover_letter_path": letterKey,
		"status":            database.JobStatusResumeGenerated,
	}
	if err := h.db.WithContext(ctx).Model(job).Updates(update).Error; err != nil {
		return nil, err
	}

	return successResult("Documents generated", map[string]any{
		"job_id":            job.ID,
		"resume_path":       resumeKey,
		"resume_url":        documentURL(resumeKey),
		"cover_letter_path": letterKey,
		"cover_letter_url":  documentURL(letterKey),
	})
}

// loadGenerateTarget 解析负载并装载职位与候选人。
// 职位缺失时返回业务失败结果，其余错误原样上抛。
func (h *Handlers) loadGenerateTarget(ctx context.Context, t *tasks.Task) (*database.Job, docgen.Candidate, json.RawMessage, error) {
	var payload tasks.GeneratePayload
	if err := unmarshalPayload(t, &payload); err != nil {
		return nil, docgen.Candidate{}, nil, err
	}

	job, err := h.loadJob(ctx, payload.JobID)
	if err != nil {
		return nil, docgen.Candidate{}, nil, err
	}
	if job == nil {
		fail, err := failedResult(errcode.ResourceMissing, "job not found")
		return nil, docgen.Candidate{}, fail, err
	}

	cand, err := h.loadCandidate(ctx)
	if err != nil {
		return nil, docgen.Candidate{}, nil, err
	}
	return job, cand, nil, nil
}
