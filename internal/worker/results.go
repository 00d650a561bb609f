package worker

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/bytedance/sonic"
)

// taskResult 是多数任务结果的通用形态。
// Code 使用 errcode 包的错误码，成功时为 0。
type taskResult struct {
	Status  string `json:"status"`
	Code    int    `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func successResult(message string, data any) (json.RawMessage, error) {
	return marshalResult(taskResult{Status: "success", Message: message, Data: data})
}

// failedResult 表达业务失败：任务正常完成，结果标记 failed。
func failedResult(code int, message string) (json.RawMessage, error) {
	return marshalResult(taskResult{Status: "failed", Code: code, Message: message})
}

func marshalResult(v any) (json.RawMessage, error) {
	data, err := sonic.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal task result: %w", err)
	}
	return json.RawMessage(data), nil
}

// documentURL 拼出已生成文档的下载地址。
func documentURL(key string) string {
	if key == "" {
		return ""
	}
	return "/v1/documents?key=" + url.QueryEscape(key)
}
