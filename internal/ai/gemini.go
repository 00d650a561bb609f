package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"jobPilot/internal/config"
)

const (
	defaultMaxRetries = 2
	defaultRetryDelay = 2 * time.Second
)

// Gemini 通过 google.golang.org/genai 调用 Gemini 模型。
type Gemini struct {
	client *genai.Client
	model  string
	log    *slog.Logger

	maxRetries int
	retryDelay time.Duration
}

var _ Provider = (*Gemini)(nil)

// NewGemini 创建 Gemini Provider。凭证缺失时返回 ErrNotConfigured，
// 调用方可降级为 Disabled，让 AI 任务在执行时报错而不是进程退出。
func NewGemini(ctx context.Context, log *slog.Logger, cfg config.AIConfig) (*Gemini, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: missing api key", ErrNotConfigured)
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("%w: missing model name", ErrNotConfigured)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Gemini{
		client:     client,
		model:      cfg.Model,
		log:        log,
		maxRetries: defaultMaxRetries,
		retryDelay: defaultRetryDelay,
	}, nil
}

// Generate 生成自由文本回复。
func (g *Gemini) Generate(ctx context.Context, prompt, systemPrompt string) (string, error) {
	return g.generate(ctx, prompt, systemPrompt, false)
}

// GenerateJSON 以 JSON 输出模式调用模型并解析结果。
func (g *Gemini) GenerateJSON(ctx context.Context, prompt, systemPrompt string, out any) error {
	text, err := g.generate(ctx, prompt+jsonInstruction, systemPrompt, true)
	if err != nil {
		return err
	}
	return decodeJSON(text, out)
}

func (g *Gemini) generate(ctx context.Context, prompt, systemPrompt string, jsonMode bool) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}

	cfg := &genai.GenerateContentConfig{}
	if systemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}
	if jsonMode {
		cfg.ResponseMIMEType = "application/json"
	}

	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			g.log.Warn("retrying gemini call",
				slog.Int("attempt", attempt+1),
				slog.Any("error", lastErr),
			)
			select {
			case <-time.After(time.Duration(attempt) * g.retryDelay):
			case <-ctx.Done():
				return "", fmt.Errorf("generate content: %w", ctx.Err())
			}
		}

		resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
		if err != nil {
			lastErr = fmt.Errorf("generate content: %w", err)
			if retryable(err) {
				continue
			}
			return "", lastErr
		}

		text := strings.TrimSpace(resp.Text())
		if text == "" {
			// 空回复多为安全过滤或瞬时故障，按可重试处理。
			lastErr = ErrEmptyResponse
			continue
		}
		return text, nil
	}
	return "", lastErr
}

// retryable 判断是否为限流或服务端瞬时错误。
func retryable(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}
	return false
}
