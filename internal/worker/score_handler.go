package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"jobPilot/internal/database"
	"jobPilot/internal/errcode"
	"jobPilot/internal/scoring"
	"jobPilot/internal/tasks"
)

// HandleJobScoring 为单个职位打分并落库。
func (h *Handlers) HandleJobScoring(ctx context.Context, t *tasks.Task) (json.RawMessage, error) {
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

	out, err := h.scorer.Score(ctx, job, cand.Profile, cand.Content)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return failedResult(errcode.ProviderError, fmt.Sprintf("scoring failed: %v", err))
	}

	if err := h.persistScore(ctx, job, out); err != nil {
		return nil, err
	}

	return successResult(
		fmt.Sprintf("Job scored %.1f/10", out.Score),
		map[string]any{
			"job_id":         job.ID,
			"score":          out.Score,
			"reasoning":      out.Reasoning,
			"matched_skills": out.MatchedSkills,
		},
	)
}

// HandleBulkScoring 为所有未打分的职位逐个打分。
// 单个职位失败不终止批次，该职位保持未打分状态等待下次重试。
func (h *Handlers) HandleBulkScoring(ctx context.Context, t *tasks.Task) (json.RawMessage, error) {
	cand, err := h.loadCandidate(ctx)
	if err != nil {
		return nil, err
	}

	var jobs []database.Job
	if err := h.db.WithContext(ctx).
		Where("match_score IS NULL").
		Order("id").
		Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("query unscored jobs: %w", err)
	}

	scored, failed := 0, 0
	for i := range jobs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		job := &jobs[i]

		h.log.Info("scoring job",
			slog.Int("index", i+1),
			slog.Int("total", len(jobs)),
			slog.String("title", job.Title),
		)

		out, err := h.scorer.Score(ctx, job, cand.Profile, cand.Content)
		if err != nil {
			h.log.Error("job scoring failed, leaving unscored",
				slog.Uint64("job_id", uint64(job.ID)),
				slog.Any("error", err),
			)
			failed++
			continue
		}
		if err := h.persistScore(ctx, job, out); err != nil {
			return nil, err
		}
		scored++
	}

	return successResult(
		fmt.Sprintf("Bulk scoring complete. Scored %d/%d jobs.", scored, len(jobs)),
		map[string]any{
			"total":  len(jobs),
			"scored": scored,
			"failed": failed,
		},
	)
}

func (h *Handlers) persistScore(ctx context.Context, job *database.Job, out scoring.Outcome) error {
	update := map[string]any{
		"match_score":     out.Score,
		"score_reasoning": out.Reasoning,
		"matched_skills":  out.MatchedSkills,
		"status":          database.JobStatusScored,
	}
	if err := h.db.WithContext(ctx).Model(job).Updates(update).Error; err != nil {
		return fmt.Errorf("update job %d score: %w", job.ID, err)
	}
	return nil
}
