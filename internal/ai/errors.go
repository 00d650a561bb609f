package ai

import "errors"

var (
	// ErrNotConfigured 表示未配置可用的模型凭证。
	ErrNotConfigured = errors.New("ai: provider not configured")
	// ErrEmptyPrompt 表示提示词为空白。
	ErrEmptyPrompt = errors.New("ai: empty prompt")
	// ErrEmptyResponse 表示模型返回了空文本。
	ErrEmptyResponse = errors.New("ai: empty response")
	// ErrBadJSON 表示模型回复无法解析为 JSON。
	ErrBadJSON = errors.New("ai: response is not valid json")
)
