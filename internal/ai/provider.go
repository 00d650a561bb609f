// Package ai 封装大模型文本生成，向任务处理器屏蔽具体厂商差异。
package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
)

// Provider 是大模型调用的统一入口。
type Provider interface {
	// Generate 生成自由文本回复。systemPrompt 可为空。
	Generate(ctx context.Context, prompt, systemPrompt string) (string, error)
	// GenerateJSON 要求模型仅输出 JSON，并把结果解析到 out。
	GenerateJSON(ctx context.Context, prompt, systemPrompt string, out any) error
}

// jsonInstruction 附加在提示词末尾，约束模型只输出裸 JSON。
const jsonInstruction = "\n\nIMPORTANT: Respond ONLY with valid JSON. " +
	"No markdown, no code fences, no explanation. Just the raw JSON object."

// decodeJSON 解析模型返回的 JSON。模型偶尔无视指令，输出 markdown
// 围栏或在 JSON 前后附带说明文字，这里按原始文本、去围栏、截取首个
// 大括号区间的顺序依次尝试。
func decodeJSON(text string, out any) error {
	text = strings.TrimSpace(text)
	if err := sonic.UnmarshalString(text, out); err == nil {
		return nil
	}
	if stripped := stripFences(text); stripped != text {
		if err := sonic.UnmarshalString(stripped, out); err == nil {
			return nil
		}
		text = stripped
	}
	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start >= 0 && end > start {
		if err := sonic.UnmarshalString(text[start:end+1], out); err == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrBadJSON, snippet(text))
}

// stripFences 去掉包裹整个回复的 markdown 代码围栏。
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) < 2 {
		return s
	}
	lines = lines[1:]
	if strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// snippet 截断过长的模型回复，避免错误信息刷屏。
func snippet(s string) string {
	const max = 200
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
