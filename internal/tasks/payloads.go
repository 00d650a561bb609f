package tasks

import (
	"encoding/json"
	"fmt"
)

// ScrapingPayload 描述一次抓取任务的输入，空字段表示不限定。
type ScrapingPayload struct {
	Source   string `json:"source,omitempty"`
	Query    string `json:"query,omitempty"`
	Location string `json:"location,omitempty"`
}

// GeneratePayload 是文档生成类任务（简历、求职信、全套文档）共享的负载。
type GeneratePayload struct {
	JobID  uint   `json:"job_id"`
	Format string `json:"format,omitempty"`
}

// JobPayload 用于只需要定位单个职位的任务（投递、打分）。
type JobPayload struct {
	JobID uint `json:"job_id"`
}

// ChatPayload 描述一条对话消息及其可选上下文。
type ChatPayload struct {
	Message string `json:"message"`
	JobID   uint   `json:"job_id,omitempty"`
	Context string `json:"context,omitempty"`
}

// ProfileUpdatePayload 指向待解析的简历文件。
type ProfileUpdatePayload struct {
	FilePath string `json:"file_path"`
}

// NewScrapingTask 构造抓取任务的类型与负载。
func NewScrapingTask(source, query, location string) (Type, json.RawMessage, error) {
	payload, err := json.Marshal(ScrapingPayload{
		Source:   source,
		Query:    query,
		Location: location,
	})
	if err != nil {
		return "", nil, err
	}
	return TypeScraping, payload, nil
}

// NewGenerateTask 构造文档生成任务，typ 必须是三种生成类型之一。
func NewGenerateTask(typ Type, jobID uint, format string) (Type, json.RawMessage, error) {
	switch typ {
	case TypeResumeGeneration, TypeCoverLetterGeneration, TypeDocumentGeneration:
	default:
		return "", nil, fmt.Errorf("%w: %q is not a generation type", ErrUnknownType, typ)
	}
	payload, err := json.Marshal(GeneratePayload{JobID: jobID, Format: format})
	if err != nil {
		return "", nil, err
	}
	return typ, payload, nil
}

// NewJobTask 构造针对单个职位的任务，typ 必须是投递或打分。
func NewJobTask(typ Type, jobID uint) (Type, json.RawMessage, error) {
	switch typ {
	case TypeJobApplication, TypeJobScoring:
	default:
		return "", nil, fmt.Errorf("%w: %q is not a per-job type", ErrUnknownType, typ)
	}
	payload, err := json.Marshal(JobPayload{JobID: jobID})
	if err != nil {
		return "", nil, err
	}
	return typ, payload, nil
}

// NewBulkScoringTask 构造全量打分任务，该任务没有负载。
func NewBulkScoringTask() (Type, json.RawMessage, error) {
	return TypeBulkScoring, nil, nil
}

// NewChatTask 构造对话任务。
func NewChatTask(message string, jobID uint, context string) (Type, json.RawMessage, error) {
	payload, err := json.Marshal(ChatPayload{
		Message: message,
		JobID:   jobID,
		Context: context,
	})
	if err != nil {
		return "", nil, err
	}
	return TypeChat, payload, nil
}

// NewProfileUpdateTask 构造档案更新任务。
func NewProfileUpdateTask(filePath string) (Type, json.RawMessage, error) {
	payload, err := json.Marshal(ProfileUpdatePayload{FilePath: filePath})
	if err != nil {
		return "", nil, err
	}
	return TypeProfileUpdate, payload, nil
}
