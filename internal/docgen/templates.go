package docgen

import "text/template"

type resumeData struct {
	Name      string
	Email     string
	Phone     string
	Location  string
	TitleLine string
	Summary   string

	Skills         []string
	Experience     []experienceEntry
	Education      []educationEntry
	Certifications []string
	Achievements   []string
	Languages      []string
}

type letterData struct {
	Date       string
	Name       string
	Email      string
	Phone      string
	Company    string
	Paragraphs []string
}

// resumeTemplateString 是简历的 Markdown 模板。
// 空段落由模板条件跳过，保证输出没有空标题。
const resumeTemplateString = `# {{.Name}}

{{if .TitleLine}}**{{.TitleLine}}**

{{end}}{{.Email}}{{if .Phone}} | {{.Phone}}{{end}}{{if .Location}} | {{.Location}}{{end}}
{{if .Summary}}
## Summary

{{.Summary}}
{{end}}{{if .Skills}}
## Skills

{{range .Skills}}- {{.}}
{{end}}{{end}}{{if .Experience}}
## Experience
{{range .Experience}}
### {{.Title}}{{if .Company}}, {{.Company}}{{end}}{{if .Duration}} ({{.Duration}}){{end}}

{{range .Bullets}}- {{.}}
{{end}}{{end}}{{end}}{{if .Education}}
## Education
{{range .Education}}
- **{{.Degree}}**{{if .Institution}}, {{.Institution}}{{end}}{{if .Year}} ({{.Year}}){{end}}
{{end}}{{end}}{{if .Certifications}}
## Certifications

{{range .Certifications}}- {{.}}
{{end}}{{end}}{{if .Achievements}}
## Achievements

{{range .Achievements}}- {{.}}
{{end}}{{end}}{{if .Languages}}
## Languages

{{range .Languages}}- {{.}}
{{end}}{{end}}`

// letterTemplateString 是求职信的 Markdown 模板，称呼与落款固定。
const letterTemplateString = `{{.Date}}

Dear Hiring Manager,

{{range .Paragraphs}}{{.}}

{{end}}Sincerely,

{{.Name}}{{if .Email}}
{{.Email}}{{end}}{{if .Phone}}
{{.Phone}}{{end}}
`

var (
	resumeTmpl = template.Must(template.New("resume").Parse(resumeTemplateString))
	letterTmpl = template.Must(template.New("cover_letter").Parse(letterTemplateString))
)
