package ai

import "context"

// Disabled 是未配置凭证时的占位 Provider，所有调用返回 ErrNotConfigured。
type Disabled struct{}

var _ Provider = Disabled{}

func (Disabled) Generate(context.Context, string, string) (string, error) {
	return "", ErrNotConfigured
}

func (Disabled) GenerateJSON(context.Context, string, string, any) error {
	return ErrNotConfigured
}
