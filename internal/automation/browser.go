package automation

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"jobPilot/internal/database"
	"jobPilot/internal/storage"
)

const (
	browserTimeout  = 90 * time.Second
	maxFormSteps    = 5
	stepSettleDelay = 2 * time.Second
)

// Browser 用无头 Chromium 走完整的投递表单流程。
// 招聘站点的表单结构千差万别，只能靠通用启发式：
// 找到投递按钮、填入联系信息、上传简历、逐步推进到提交。
type Browser struct {
	headless bool
	uploads  *storage.Client
	outputs  *storage.Client
	log      *slog.Logger
}

func NewBrowser(headless bool, uploads, outputs *storage.Client, log *slog.Logger) *Browser {
	return &Browser{headless: headless, uploads: uploads, outputs: outputs, log: log}
}

// stepReport 是页面脚本回传的执行摘要。
type stepReport struct {
	Barrier     bool   `json:"barrier"`
	Clicked     string `json:"clicked"`
	ResumeInput bool   `json:"resumeInput"`
	Filled      int    `json:"filled"`
	Advanced    string `json:"advanced"`
	Submitted   bool   `json:"submitted"`
	Success     bool   `json:"success"`
}

// landingScript 检查登录墙并点击投递入口。
// 公司站投递常开新标签，点击前去掉 target 保持单页流程。
const landingScript = `() => {
  const report = { barrier: false, clicked: '' };
  const bodyText = (document.body.innerText || '').toLowerCase();
  for (const marker of ['sign in to apply', 'join to apply']) {
    if (bodyText.includes(marker)) { report.barrier = true; return JSON.stringify(report); }
  }
  if (document.querySelector('.modal__login-header')) {
    report.barrier = true;
    return JSON.stringify(report);
  }

  const textOf = el =>
    (((el.innerText || el.textContent || '') + ' ' + (el.getAttribute('aria-label') || ''))).toLowerCase().trim();
  let target = document.querySelector(
    '#indeedApplyButton, .apply-button, [data-testid="apply-button"], .jobs-apply-button--top-card');
  if (!target) {
    const labels = ['quick apply', 'easy apply', 'apply now', 'apply on company site', 'apply to this job', 'apply'];
    const candidates = Array.from(document.querySelectorAll('button, a[href], [role="button"]'));
    outer:
    for (const label of labels) {
      for (const el of candidates) {
        const text = textOf(el);
        if (text === label || (text.includes(label) && text.length < label.length + 20)) {
          target = el;
          break outer;
        }
      }
    }
  }
  if (target) {
    target.removeAttribute('target');
    report.clicked = (textOf(target) || target.tagName.toLowerCase()).slice(0, 60);
    target.click();
  }
  return JSON.stringify(report);
}`

// probeScript 检查当前表单步骤的登录提示与简历上传框。
const probeScript = `() => {
  const report = { barrier: false, resumeInput: false };
  const bodyText = (document.body.innerText || '').toLowerCase();
  for (const marker of ['sign in to apply', 'join to apply', 'welcome back']) {
    if (bodyText.includes(marker)) { report.barrier = true; return JSON.stringify(report); }
  }
  if (document.querySelector(
      "input[type='file'][name*='resume'], input[type='file'][id*='resume'], input[type='file'][accept*='pdf']")) {
    report.resumeInput = true;
  }
  return JSON.stringify(report);
}`

// advanceScript 把联系信息填进可见的空输入框，然后点下一步或提交。
const advanceScript = `(fields) => {
  fields = fields || {};
  const report = { filled: 0, advanced: '', submitted: false };
  const visible = el => !!(el.offsetWidth || el.offsetHeight || el.getClientRects().length);

  for (const [name, value] of Object.entries(fields)) {
    if (!value) continue;
    const selectors = [
      "input[name*='" + name + "']",
      "input[id*='" + name + "']",
      "input[placeholder*='" + name.replace(/_/g, ' ') + "' i]",
    ];
    for (const sel of selectors) {
      let el;
      try { el = document.querySelector(sel); } catch (e) { continue; }
      if (el && visible(el) && !el.value) {
        el.value = value;
        el.dispatchEvent(new Event('input', { bubbles: true }));
        el.dispatchEvent(new Event('change', { bubbles: true }));
        report.filled += 1;
        break;
      }
    }
  }

  const textOf = el => ((el.innerText || el.textContent || el.value || '') + '').toLowerCase().trim();
  const labels = ['continue', 'next', 'save and continue', 'review', 'submit', 'apply'];
  const buttons = Array.from(document.querySelectorAll("button, input[type='submit'], [role='button']"));
  for (const label of labels) {
    const el = buttons.find(b => visible(b) && textOf(b).includes(label));
    if (el) {
      el.removeAttribute('target');
      report.advanced = textOf(el).slice(0, 60);
      report.submitted = label === 'submit' || label === 'apply';
      el.click();
      return JSON.stringify(report);
    }
  }
  return JSON.stringify(report);
}`

// outcomeScript 在流程结束后探测成功文案。
const outcomeScript = `() => {
  const text = (document.body.innerText || '').toLowerCase();
  const markers = ['application submitted', 'successfully applied', 'thank you for applying', 'application received'];
  return JSON.stringify({ success: markers.some(m => text.includes(m)) });
}`

func (b *Browser) Apply(ctx context.Context, job *database.Job, prof *database.Profile) (Result, error) {
	if !validJobURL(job.URL) {
		return Result{Message: "job has no usable application url"}, nil
	}

	b.log.Info("browser application started",
		slog.Uint64("job_id", uint64(job.ID)),
		slog.String("url", job.URL),
	)

	page, cleanup, err := b.openPage(ctx, job.URL)
	if err != nil {
		return Result{}, err
	}
	defer cleanup()

	landing, err := b.evalReport(page, landingScript)
	if err != nil {
		return Result{}, err
	}
	if landing.Barrier {
		return Result{Message: "login required to apply"}, nil
	}

	actions := 0
	if landing.Clicked == "" {
		b.log.Warn("no apply button found, probing the form directly",
			slog.Uint64("job_id", uint64(job.ID)),
		)
	} else {
		b.log.Info("apply entry clicked", slog.String("label", landing.Clicked))
		actions++
		b.settle(ctx, page)
	}

	if b.onLoginPage(page) {
		return Result{Message: "redirected to a login page, cannot proceed without authentication"}, nil
	}

	submitted := false
	for step := 0; step < maxFormSteps; step++ {
		probe, err := b.evalReport(page, probeScript)
		if err != nil {
			return Result{}, err
		}
		if probe.Barrier {
			return Result{Message: "login prompt encountered during application"}, nil
		}
		if probe.ResumeInput && b.attachResume(page, job, prof) {
			actions++
		}

		advance, err := b.evalReport(page, advanceScript, profileFields(prof))
		if err != nil {
			return Result{}, err
		}
		actions += advance.Filled
		if advance.Advanced == "" {
			break
		}

		actions++
		b.settle(ctx, page)
		if advance.Submitted {
			submitted = true
			break
		}
		if b.onLoginPage(page) {
			return Result{Message: "redirected to a login page, cannot proceed without authentication"}, nil
		}
	}

	if submitted || b.sawSuccessText(page) {
		return Result{
			Applied: true,
			Message: fmt.Sprintf("application submitted for %s", job.Title),
		}, nil
	}
	if actions > 0 {
		// 没有明确的成功文案，但动过表单，按原样乐观标记。
		return Result{
			Applied: true,
			Message: fmt.Sprintf("performed %d form actions, marking as applied", actions),
		}, nil
	}
	return Result{Message: "automation could not complete the application form"}, nil
}

func (b *Browser) openPage(ctx context.Context, targetURL string) (_ *rod.Page, cleanup func(), err error) {
	cleanup = func() {}

	launch := launcher.New().
		Headless(b.headless).
		NoSandbox(true)
	defer func() {
		if err != nil {
			launch.Cleanup()
		}
	}()

	if path, ok := launcher.LookPath(); ok {
		launch = launch.Bin(path)
	}

	browserURL, err := launch.Launch()
	if err != nil {
		return nil, cleanup, fmt.Errorf("launch chromium: %w", err)
	}

	browser := rod.New().ControlURL(browserURL).Timeout(browserTimeout)
	if err := browser.Connect(); err != nil {
		return nil, cleanup, fmt.Errorf("connect browser: %w", err)
	}

	page, err := browser.Context(ctx).Page(proto.TargetCreateTarget{URL: targetURL})
	if err != nil {
		_ = browser.Close()
		launch.Cleanup()
		return nil, cleanup, fmt.Errorf("open job page: %w", err)
	}
	cleanup = func() {
		_ = page.Close()
		_ = browser.Close()
		launch.Cleanup()
	}

	if err := page.Timeout(30 * time.Second).WaitLoad(); err != nil {
		return nil, cleanup, fmt.Errorf("wait job page load: %w", err)
	}
	return page, cleanup, nil
}

func (b *Browser) evalReport(page *rod.Page, js string, args ...any) (stepReport, error) {
	res, err := page.Timeout(10 * time.Second).Eval(js, args...)
	if err != nil {
		return stepReport{}, fmt.Errorf("evaluate page script: %w", err)
	}
	return decodeStepReport(res.Value.Str())
}

func decodeStepReport(raw string) (stepReport, error) {
	var report stepReport
	if err := sonic.Unmarshal([]byte(raw), &report); err != nil {
		return stepReport{}, fmt.Errorf("decode page report %q: %w", raw, err)
	}
	return report, nil
}

// settle 等点击引发的跳转或弹层渲染完。
func (b *Browser) settle(ctx context.Context, page *rod.Page) {
	select {
	case <-time.After(stepSettleDelay):
	case <-ctx.Done():
		return
	}
	_ = page.Timeout(10 * time.Second).WaitLoad()
}

func (b *Browser) onLoginPage(page *rod.Page) bool {
	info, err := page.Info()
	if err != nil {
		return false
	}
	u := strings.ToLower(info.URL)
	return strings.Contains(u, "login") || strings.Contains(u, "signin")
}

func (b *Browser) sawSuccessText(page *rod.Page) bool {
	report, err := b.evalReport(page, outcomeScript)
	if err != nil {
		return false
	}
	return report.Success
}

func (b *Browser) attachResume(page *rod.Page, job *database.Job, prof *database.Profile) bool {
	path := b.resumeFile(job, prof)
	if path == "" {
		return false
	}

	input, err := page.Timeout(5 * time.Second).Element(
		"input[type='file'][name*='resume'], input[type='file'][id*='resume'], input[type='file'][accept*='pdf']")
	if err != nil {
		return false
	}
	if err := input.SetFiles([]string{path}); err != nil {
		b.log.Warn("attach resume failed", slog.Any("error", err))
		return false
	}
	b.log.Info("resume attached", slog.String("path", path))
	return true
}

// resumeFile 找出可上传的简历文件，职位定制简历优先于档案默认简历。
func (b *Browser) resumeFile(job *database.Job, prof *database.Profile) string {
	if job.ResumePath != "" {
		if path, err := b.outputs.Path(job.ResumePath); err == nil {
			if _, statErr := os.Stat(path); statErr == nil {
				return path
			}
		}
	}
	if prof != nil && prof.ResumePath != "" {
		if path, err := b.uploads.Path(prof.ResumePath); err == nil {
			if _, statErr := os.Stat(path); statErr == nil {
				return path
			}
		}
	}
	return ""
}

// profileFields 列出表单自动填充的字段值，键按常见的 input name 命名。
func profileFields(prof *database.Profile) map[string]string {
	if prof == nil {
		return nil
	}
	first, last := splitName(prof.FullName)
	return map[string]string{
		"first_name": first,
		"last_name":  last,
		"full_name":  prof.FullName,
		"email":      prof.Email,
		"phone":      prof.Phone,
		"location":   prof.Location,
		"linkedin":   prof.LinkedinURL,
		"github":     prof.GithubURL,
		"portfolio":  prof.PortfolioURL,
	}
}

func splitName(full string) (first, last string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], parts[len(parts)-1]
	}
}
