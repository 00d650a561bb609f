// Package automation 执行职位自动投递。
// 提供三种实现：DryRun 只模拟流程，Portal 探测职位页的投递入口，
// Browser 启动无头 Chromium 真正填表提交。
package automation

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"jobPilot/internal/config"
	"jobPilot/internal/database"
	"jobPilot/internal/storage"
)

// Result 是一次投递尝试的结论。
type Result struct {
	Applied bool
	Message string
}

// Applicator 驱动一次投递流程。档案用于填充表单与兜底简历，可为 nil。
// Applied=false 且 err=nil 表示流程走完但没有达成投递。
type Applicator interface {
	Apply(ctx context.Context, job *database.Job, prof *database.Profile) (Result, error)
}

// New 按配置选择投递实现：dry_run 打开时只做模拟，
// browser 打开时走无头浏览器，否则用 HTTP 探测。
func New(cfg *config.Config, uploads, outputs *storage.Client, log *slog.Logger) Applicator {
	if cfg.Automation.DryRun {
		return NewDryRun(log)
	}
	if cfg.Automation.Browser {
		return NewBrowser(cfg.Automation.Headless, uploads, outputs, log)
	}
	client := &http.Client{Timeout: cfg.Scrape.Timeout}
	return NewPortal(client, cfg.Scrape.UserAgent, log)
}

// validJobURL 校验职位链接可用于投递。
func validJobURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
