package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"jobPilot/internal/ai"
	"jobPilot/internal/errcode"
	"jobPilot/internal/tasks"
)

const chatSystemPrompt = "You are a helpful career assistant. You help the user with their job search, " +
	"analyzing job descriptions, and providing advice on applications."

// HandleChat 生成对话回复。结果保留 response 与 original_message 两个字段，
// 前端直接读取。
func (h *Handlers) HandleChat(ctx context.Context, t *tasks.Task) (json.RawMessage, error) {
	var payload tasks.ChatPayload
	if err := unmarshalPayload(t, &payload); err != nil {
		return nil, err
	}

	system := chatSystemPrompt
	if payload.JobID != 0 {
		job, err := h.loadJob(ctx, payload.JobID)
		if err != nil {
			return nil, err
		}
		if job != nil {
			system += fmt.Sprintf("\n\nActive Job Context:\nTitle: %s\nCompany: %s\nDescription: %s\n",
				job.Title, job.Company, job.Description)
		}
	}
	if payload.Context != "" {
		system += "\n\nAdditional Context: " + payload.Context
	}

	reply, err := h.ai.Generate(ctx, payload.Message, system)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		switch {
		case errors.Is(err, ai.ErrNotConfigured):
			return failedResult(errcode.ProviderError, "ai provider not configured")
		case errors.Is(err, ai.ErrEmptyResponse):
			return failedResult(errcode.EmptyResult, "model returned an empty reply")
		default:
			return nil, err
		}
	}

	return marshalResult(map[string]string{
		"response":         reply,
		"original_message": payload.Message,
	})
}
