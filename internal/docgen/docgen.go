// Package docgen 为职位渲染定制简历与求职信的 Markdown 文档。
package docgen

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"jobPilot/internal/ai"
	"jobPilot/internal/database"
	"jobPilot/internal/profile"
	"jobPilot/internal/storage"
)

const (
	resumePrefix = "resumes/"
	letterPrefix = "cover_letters/"
)

// Candidate 汇总渲染所需的候选人信息。
type Candidate struct {
	Profile *database.Profile
	Content profile.Content
}

// Renderer 组合模型调用与文档落盘。
type Renderer struct {
	ai    ai.Provider
	store *storage.Client
	log   *slog.Logger
	now   func() time.Time
}

// NewRenderer 创建 Renderer，文档写入 store 对应的输出目录。
func NewRenderer(provider ai.Provider, store *storage.Client, log *slog.Logger) *Renderer {
	return &Renderer{ai: provider, store: store, log: log, now: time.Now}
}

// Resume 生成职位定制简历并落盘，返回存储 key。
// 模型不可用时退回候选人原始资料，不中断任务。
func (r *Renderer) Resume(ctx context.Context, job *database.Job, cand Candidate) (string, error) {
	tl, err := r.tailorResume(ctx, job, cand)
	if err != nil {
		r.log.Warn("resume tailoring failed, using raw profile content",
			slog.Uint64("job_id", uint64(job.ID)),
			slog.Any("error", err),
		)
		tl = fallbackTailored(cand)
	}

	data := resumeData{
		Name:           cand.Profile.FullName,
		Email:          cand.Profile.Email,
		Phone:          cand.Profile.Phone,
		Location:       cand.Profile.Location,
		TitleLine:      tl.TitleLine,
		Summary:        tl.Summary,
		Skills:         tl.Skills,
		Experience:     tl.Experience,
		Education:      tl.Education,
		Certifications: cand.Content.Certifications,
		Achievements:   cand.Content.Achievements,
		Languages:      cand.Content.Languages,
	}

	var sb strings.Builder
	if err := resumeTmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render resume: %w", err)
	}

	key := resumePrefix + "resume_" + sanitizeFilename(job.Company) + "_" + sanitizeFilename(job.Title) + ".md"
	if _, err := r.store.SaveFile(key, strings.NewReader(sb.String())); err != nil {
		return "", fmt.Errorf("save resume: %w", err)
	}

	r.log.Info("resume generated",
		slog.Uint64("job_id", uint64(job.ID)),
		slog.String("key", key),
	)
	return key, nil
}

// CoverLetter 生成求职信并落盘，返回存储 key。
func (r *Renderer) CoverLetter(ctx context.Context, job *database.Job, cand Candidate) (string, error) {
	text, err := r.letterText(ctx, job, cand)
	if err != nil {
		r.log.Warn("cover letter generation failed, using fallback letter",
			slog.Uint64("job_id", uint64(job.ID)),
			slog.Any("error", err),
		)
		text = fallbackLetter(job, cand)
	}

	data := letterData{
		Date:       r.now().Format("January 2, 2006"),
		Name:       cand.Profile.FullName,
		Email:      cand.Profile.Email,
		Phone:      cand.Profile.Phone,
		Company:    job.Company,
		Paragraphs: letterParagraphs(text),
	}

	var sb strings.Builder
	if err := letterTmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render cover letter: %w", err)
	}

	key := letterPrefix + "cover_letter_" + sanitizeFilename(job.Company) + "_" + sanitizeFilename(job.Title) + ".md"
	if _, err := r.store.SaveFile(key, strings.NewReader(sb.String())); err != nil {
		return "", fmt.Errorf("save cover letter: %w", err)
	}

	r.log.Info("cover letter generated",
		slog.Uint64("job_id", uint64(job.ID)),
		slog.String("key", key),
	)
	return key, nil
}

// letterParagraphs 拆分正文段落，去掉模型自带的称呼与落款，
// 模板里有固定的称呼和签名。
func letterParagraphs(text string) []string {
	var out []string
	for _, para := range strings.Split(strings.TrimSpace(text), "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		lower := strings.ToLower(para)
		if strings.HasPrefix(lower, "dear") || strings.HasPrefix(lower, "best regard") ||
			strings.HasPrefix(lower, "sincerely") {
			continue
		}
		out = append(out, para)
	}
	return out
}

// sanitizeFilename 只保留字母数字和 "._- "，截断后把空格换成下划线。
func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("._- ", r) {
			b.WriteRune(r)
		}
	}
	s := strings.TrimSpace(b.String())
	if runes := []rune(s); len(runes) > 50 {
		s = string(runes[:50])
	}
	return strings.ReplaceAll(s, " ", "_")
}
