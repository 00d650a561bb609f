package profile

// Content 表示存储在档案 Content(JSONB) 中的结构化简历数据。
type Content struct {
	Summary        string   `json:"summary,omitempty"`
	TotalYears     int      `json:"total_years,omitempty"`
	Skills         []string `json:"skills,omitempty"`
	Experience     []Entry  `json:"experience,omitempty"`
	Education      []Entry  `json:"education,omitempty"`
	Projects       []Entry  `json:"projects,omitempty"`
	Certifications []string `json:"certifications,omitempty"`
	Achievements   []string `json:"achievements,omitempty"`
	Languages      []string `json:"languages,omitempty"`
}

// Entry 是经历类条目的通用结构（工作、教育、项目共用）。
type Entry struct {
	Title        string `json:"title,omitempty"`
	Organization string `json:"organization,omitempty"`
	Start        string `json:"start,omitempty"`
	End          string `json:"end,omitempty"`
	Description  string `json:"description,omitempty"`
}

// SkillsText 将技能列表拼为一行文本，供打分与生成提示词使用。
func (c Content) SkillsText() string {
	out := ""
	for i, s := range c.Skills {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}
