package docgen

import (
	"context"
	"fmt"
	"strings"

	"jobPilot/internal/database"
)

func (r *Renderer) letterText(ctx context.Context, job *database.Job, cand Candidate) (string, error) {
	prompt := buildLetterPrompt(job, cand)
	text, err := r.ai.Generate(ctx, prompt, "")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func buildLetterPrompt(job *database.Job, cand Candidate) string {
	c := cand.Content
	style := letterStyle(job.Location)

	recentRole := "Professional"
	recentCompany := ""
	if len(c.Experience) > 0 {
		if c.Experience[0].Title != "" {
			recentRole = c.Experience[0].Title
		}
		recentCompany = c.Experience[0].Organization
	}

	projects := make([]string, 0, 3)
	for i, p := range c.Projects {
		if i == 3 {
			break
		}
		projects = append(projects, p.Title)
	}
	achievements := c.Achievements
	if len(achievements) > 3 {
		achievements = achievements[:3]
	}

	return fmt.Sprintf(`Write a professional cover letter for this job application.

CANDIDATE:
- Name: %s
- Experience: %d+ years
- Key Skills: %s
- Current Location: %s
- Recent Role: %s at %s
- Notable Projects: %s
- Achievements: %s

JOB:
- Title: %s
- Company: %s
- Location: %s
- Description: %s

STYLE: %s

INSTRUCTIONS:
1. Keep it concise (%s)
2. Open with genuine interest in the role/company
3. Highlight 2-3 most relevant skills matching the job
4. Mention specific technical achievements with metrics
5. Show enthusiasm without being generic
6. %s
7. Close with a confident call to action

Do NOT use overly generic phrases like "I am writing to express my interest..."
Be specific and show you understand the role.

Return ONLY the cover letter text (no JSON, no metadata).`,
		cand.Profile.FullName,
		c.TotalYears,
		orNotAvailable(c.SkillsText()),
		cand.Profile.Location,
		recentRole,
		recentCompany,
		strings.Join(projects, ", "),
		strings.Join(achievements, ", "),
		job.Title,
		job.Company,
		job.Location,
		orNotAvailable(clip(job.Description, 2000)),
		style,
		lengthGuide(style),
		relocationNote(cand.Profile.Location, job.Location),
	)
}

// letterStyle 按职位所在地选择写作风格。
func letterStyle(location string) string {
	loc := strings.ToLower(location)
	switch {
	case containsAny(loc, "germany", "netherlands", "sweden", "eu", "europe"):
		return "European (concise, direct, professional)"
	case containsAny(loc, "uk", "london", "manchester"):
		return "British (professional, slightly formal)"
	case containsAny(loc, "usa", "us", "united states", "remote"):
		return "American (confident, achievement-focused)"
	case containsAny(loc, "india", "mumbai", "bangalore", "hyderabad", "pune"):
		return "Indian (professional, detail-oriented)"
	case containsAny(loc, "singapore", "uae", "dubai"):
		return "International (professional, multicultural-aware)"
	default:
		return "Professional (standard international)"
	}
}

func lengthGuide(style string) string {
	if strings.Contains(style, "European") {
		return "200-300 words max, Europeans prefer brevity"
	}
	return "250-350 words"
}

// relocationNote 两地不同时提示搬迁意愿。
func relocationNote(current, target string) string {
	if current == "" || target == "" {
		return "Skip relocation mentions"
	}
	curr := strings.ToLower(current)
	tgt := strings.ToLower(target)

	if strings.Contains(tgt, "remote") {
		return "Mention comfort with remote work and async collaboration"
	}
	if curr != tgt && !containsAny(tgt, strings.Fields(curr)...) {
		return "Briefly mention readiness to relocate to " + target
	}
	return "No relocation mention needed"
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// fallbackLetter 是模型不可用时的保底正文。
func fallbackLetter(job *database.Job, cand Candidate) string {
	skills := cand.Content.Skills
	if len(skills) > 5 {
		skills = skills[:5]
	}
	return fmt.Sprintf(`I am writing to apply for the %s position at %s.

With %d+ years of experience in software engineering, specializing in %s, I am confident in my ability to contribute meaningfully to your team.

I would welcome the opportunity to discuss how my background aligns with your needs.`,
		job.Title,
		job.Company,
		cand.Content.TotalYears,
		strings.Join(skills, ", "),
	)
}
