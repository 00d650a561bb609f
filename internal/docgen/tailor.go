package docgen

import (
	"context"
	"fmt"
	"strings"

	"jobPilot/internal/database"
	"jobPilot/internal/profile"
)

// tailored 是模型返回的定制化简历内容。
type tailored struct {
	TitleLine  string            `json:"title_line"`
	Summary    string            `json:"summary"`
	Skills     []string          `json:"skills_highlighted"`
	Experience []experienceEntry `json:"experience"`
	Education  []educationEntry  `json:"education"`
}

type experienceEntry struct {
	Title    string   `json:"title"`
	Company  string   `json:"company"`
	Duration string   `json:"duration"`
	Bullets  []string `json:"bullets"`
}

type educationEntry struct {
	Degree      string `json:"degree"`
	Institution string `json:"institution"`
	Year        string `json:"year"`
}

func (r *Renderer) tailorResume(ctx context.Context, job *database.Job, cand Candidate) (tailored, error) {
	prompt := buildTailorPrompt(job, cand)
	var tl tailored
	if err := r.ai.GenerateJSON(ctx, prompt, "", &tl); err != nil {
		return tailored{}, err
	}
	return tl, nil
}

func buildTailorPrompt(job *database.Job, cand Candidate) string {
	c := cand.Content
	return fmt.Sprintf(`You are an expert resume writer. Tailor this candidate's resume for the specific job.

CANDIDATE PROFILE:
- Name: %s
- Email: %s
- Phone: %s
- Location: %s
- Total Experience: %d+ years
- Skills: %s
- Summary: %s

EXPERIENCE:
%s

EDUCATION:
%s

PROJECTS:
%s

ACHIEVEMENTS:
%s

TARGET JOB:
- Title: %s
- Company: %s
- Location: %s
- Description: %s

INSTRUCTIONS:
1. Write a tailored professional summary (3-4 sentences) emphasizing skills relevant to THIS job
2. Reorder and highlight the most relevant skills for this role
3. For each experience entry, write 3-4 bullet points emphasizing relevant achievements
4. Create an appropriate title line (e.g., "Senior Backend Engineer | Cloud & Microservices")

IMPORTANT:
- Keep all information truthful, only reorganize and emphasize, don't fabricate
- Use action verbs and quantify achievements where possible
- Make it ATS-friendly (use keywords from the job description)
- Keep it concise (aim for 1-2 page resume content)

Return a JSON object:
{
    "title_line": "Professional title matching the job",
    "summary": "Tailored professional summary",
    "skills_highlighted": ["most", "relevant", "skills", "first"],
    "experience": [
        {
            "title": "Job Title",
            "company": "Company",
            "duration": "Duration",
            "bullets": ["Achievement 1", "Achievement 2", "Achievement 3"]
        }
    ],
    "education": [
        {
            "degree": "Degree",
            "institution": "Institution",
            "year": "Year"
        }
    ]
}`,
		cand.Profile.FullName,
		cand.Profile.Email,
		cand.Profile.Phone,
		cand.Profile.Location,
		c.TotalYears,
		orNotAvailable(c.SkillsText()),
		orNotAvailable(c.Summary),
		formatEntries(c.Experience),
		formatEntries(c.Education),
		formatEntries(c.Projects),
		orNotAvailable(strings.Join(c.Achievements, ", ")),
		job.Title,
		job.Company,
		job.Location,
		orNotAvailable(clip(job.Description, 2500)),
	)
}

// fallbackTailored 在模型不可用时直接搬运候选人资料。
func fallbackTailored(cand Candidate) tailored {
	c := cand.Content
	tl := tailored{
		TitleLine: cand.Profile.FullName + " | Software Engineer",
		Summary:   c.Summary,
		Skills:    c.Skills,
	}
	for _, e := range c.Experience {
		tl.Experience = append(tl.Experience, experienceEntry{
			Title:    e.Title,
			Company:  e.Organization,
			Duration: entryDuration(e),
			Bullets:  bulletsFrom(e.Description),
		})
	}
	for _, e := range c.Education {
		tl.Education = append(tl.Education, educationEntry{
			Degree:      e.Title,
			Institution: e.Organization,
			Year:        e.End,
		})
	}
	return tl
}

// formatEntries 把履历条目拼成提示词里的列表文本。
func formatEntries(entries []profile.Entry) string {
	if len(entries) == 0 {
		return "Not available"
	}
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, fmt.Sprintf("- %s at %s (%s): %s", e.Title, e.Organization, entryDuration(e), e.Description))
	}
	return strings.Join(parts, "\n")
}

func entryDuration(e profile.Entry) string {
	switch {
	case e.Start != "" && e.End != "":
		return e.Start + " - " + e.End
	case e.Start != "":
		return e.Start + " - Present"
	default:
		return e.End
	}
}

func bulletsFrom(description string) []string {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil
	}
	return []string{description}
}

func orNotAvailable(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Not available"
	}
	return s
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
