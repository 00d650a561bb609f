// Package scoring 用大模型评估职位与候选人的匹配度。
package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"jobPilot/internal/ai"
	"jobPilot/internal/database"
	"jobPilot/internal/profile"
)

const (
	minScore = 1.0
	maxScore = 10.0
)

// Outcome 是一次评分的结果，分数在 1 到 10 之间。
type Outcome struct {
	Score         float64 `json:"score"`
	Reasoning     string  `json:"reasoning"`
	MatchedSkills string  `json:"matched_skills"`
	Concerns      string  `json:"concerns"`
}

// Scorer 构造评分提示词并解析模型输出。
type Scorer struct {
	ai  ai.Provider
	log *slog.Logger
}

func NewScorer(provider ai.Provider, log *slog.Logger) *Scorer {
	return &Scorer{ai: provider, log: log}
}

// Score 评估单个职位，分数越界时收敛到边界值。
func (s *Scorer) Score(ctx context.Context, job *database.Job, prof *database.Profile, content profile.Content) (Outcome, error) {
	prompt := buildScorePrompt(job, prof, content)

	var out Outcome
	if err := s.ai.GenerateJSON(ctx, prompt, "", &out); err != nil {
		return Outcome{}, fmt.Errorf("score job %d: %w", job.ID, err)
	}

	out.Score = min(maxScore, max(minScore, out.Score))
	s.log.Info("job scored",
		slog.Uint64("job_id", uint64(job.ID)),
		slog.Float64("score", out.Score),
	)
	return out, nil
}

func buildScorePrompt(job *database.Job, prof *database.Profile, content profile.Content) string {
	salary := job.SalaryText
	if strings.TrimSpace(salary) == "" {
		salary = "Not specified"
	}
	description := "Not available"
	if job.Description != "" {
		description = clip(job.Description, 3000)
	}

	return fmt.Sprintf(`You are a job matching expert. Score how well this candidate matches the job.

CANDIDATE PROFILE:
- Name: %s
- Experience: %d+ years
- Skills: %s
- Summary: %s
- Current Location: %s

JOB DETAILS:
- Title: %s
- Company: %s
- Location: %s
- Source: %s
- Salary: %s
- Description: %s

SCORING CRITERIA:
1. Technical skill match (40%%): How well do the candidate's skills match the requirements?
2. Seniority fit (20%%): Is this role appropriate for %d+ years experience?
3. Role type alignment (20%%): Does this match Backend/Full-stack/SDE/Platform/AI roles?
4. Location compatibility (10%%): Is the location suitable (considering remote/relocation)?
5. Growth potential (10%%): Does this role offer career growth?

IMPORTANT:
- Accept broad roles: Backend, SDE, Full-stack, Software Engineer, Platform, DevOps, AI/ML
- Do NOT reject roles just because they're not purely backend
- Score frontend-only or unrelated roles (sales, marketing) low

Return a JSON object:
{
    "score": 7.5,
    "reasoning": "Brief explanation of the score",
    "matched_skills": "skill1, skill2, skill3",
    "concerns": "Any potential issues or mismatches"
}`,
		prof.FullName,
		content.TotalYears,
		content.SkillsText(),
		content.Summary,
		prof.Location,
		job.Title,
		job.Company,
		job.Location,
		job.Source,
		salary,
		description,
		content.TotalYears,
	)
}

// clip 限制提示词里的长文本字段。
func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
