package automation

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"jobPilot/internal/database"
)

// 登录墙的常见文案与标记。命中任意一个就放弃投递。
var loginMarkers = []string{
	"sign in to apply",
	"join to apply",
	"modal__login-header",
	"welcome back",
}

// 投递入口的常见文案与标记，从具体到宽泛排列。
var applyMarkers = []string{
	"quick apply",
	"easy apply",
	"apply now",
	"apply on company site",
	"apply to this job",
	"indeedapplybutton",
	"apply-button",
	"data-testid=\"apply",
	">apply<",
}

const portalBodyLimit = 512 * 1024

// Portal 拉取职位页面并探测投递入口。
// 没有浏览器会话，找到入口即视为可投递，乐观标记成功。
type Portal struct {
	client    *http.Client
	userAgent string
	log       *slog.Logger
}

func NewPortal(client *http.Client, userAgent string, log *slog.Logger) *Portal {
	return &Portal{client: client, userAgent: userAgent, log: log}
}

func (p *Portal) Apply(ctx context.Context, job *database.Job, _ *database.Profile) (Result, error) {
	if !validJobURL(job.URL) {
		return Result{Message: "job has no usable application url"}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, job.URL, nil)
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("fetch job page: %w", err)
	}
	defer resp.Body.Close()

	// 跟随重定向后落在登录页也视为登录墙。
	if final := resp.Request.URL.String(); strings.Contains(final, "login") || strings.Contains(final, "signin") {
		return Result{Message: "redirected to a login page, cannot proceed without authentication"}, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{Message: fmt.Sprintf("job posting returned status %d", resp.StatusCode)}, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, portalBodyLimit))
	if err != nil {
		return Result{}, fmt.Errorf("read job page: %w", err)
	}
	page := strings.ToLower(string(body))

	for _, marker := range loginMarkers {
		if strings.Contains(page, marker) {
			return Result{Message: "login required to apply"}, nil
		}
	}

	for _, marker := range applyMarkers {
		if strings.Contains(page, marker) {
			p.log.Info("apply entry point found",
				slog.Uint64("job_id", uint64(job.ID)),
				slog.String("marker", marker),
			)
			return Result{
				Applied: true,
				Message: "apply entry point found: " + marker,
			}, nil
		}
	}

	return Result{Message: "no apply entry point found on the job page"}, nil
}
