package automation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"jobPilot/internal/database"
)

const dryRunDelay = 500 * time.Millisecond

// DryRun 模拟投递流程，不与招聘网站产生任何交互。
// 用于无人值守环境下验证整条任务链路。
type DryRun struct {
	log   *slog.Logger
	delay time.Duration
}

func NewDryRun(log *slog.Logger) *DryRun {
	return &DryRun{log: log, delay: dryRunDelay}
}

func (d *DryRun) Apply(ctx context.Context, job *database.Job, _ *database.Profile) (Result, error) {
	if !validJobURL(job.URL) {
		return Result{Message: "job has no usable application url"}, nil
	}

	d.log.Info("dry-run application started",
		slog.Uint64("job_id", uint64(job.ID)),
		slog.String("company", job.Company),
	)

	// 模拟表单操作耗时，保持与真实实现一致的取消语义。
	select {
	case <-time.After(d.delay):
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}

	return Result{
		Applied: true,
		Message: fmt.Sprintf("dry run: would apply to %s at %s", job.Title, job.Company),
	}, nil
}
