package database

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// 职位在投递流程中的推进状态，保存在 Job.Status。
// 与任务队列的任务状态无关：这里描述的是一条职位记录本身。
const (
	JobStatusScraped         = "scraped"
	JobStatusScored          = "scored"
	JobStatusResumeGenerated = "resume_generated"
	JobStatusApplied         = "applied"
	JobStatusInterview       = "interview"
	JobStatusOffer           = "offer"
	JobStatusRejected        = "rejected"
)

// Job 表示一条抓取到的职位信息，以及围绕它的评分与投递进度。
// URL 唯一索引用于抓取去重。
type Job struct {
	gorm.Model
	Title       string `gorm:"size:255;index" json:"title"`
	Company     string `gorm:"size:255;index" json:"company"`
	Location    string `gorm:"size:255" json:"location"`
	URL         string `gorm:"size:1024;uniqueIndex" json:"url"`
	Source      string `gorm:"size:64;index" json:"source"`
	Description string `gorm:"type:text" json:"description"`
	SalaryText  string `gorm:"size:255" json:"salary_text"`
	JobType     string `gorm:"size:64" json:"job_type"`
	PostedDate  string `gorm:"size:64" json:"posted_date"`

	MatchScore     *float64 `gorm:"index" json:"match_score"`
	ScoreReasoning string   `gorm:"type:text" json:"score_reasoning"`
	MatchedSkills  string   `gorm:"type:text" json:"matched_skills"`

	Status          string     `gorm:"size:32;index;default:scraped" json:"status"`
	ResumePath      string     `gorm:"size:512" json:"resume_path"`
	CoverLetterPath string     `gorm:"size:512" json:"cover_letter_path"`
	AppliedAt       *time.Time `json:"applied_at"`
	Notes           string     `gorm:"type:text" json:"notes"`
}

// DefaultProfileID 是默认档案的固定主键。系统按单用户设计。
const DefaultProfileID = 1

// Profile 存储求职者档案。联系方式是独立列，
// 结构化的简历内容（技能、经历等）整体放在 Content JSONB 列，
// 其结构见 internal/profile 包。
type Profile struct {
	gorm.Model
	FullName     string         `gorm:"size:255" json:"full_name"`
	Email        string         `gorm:"size:255" json:"email"`
	Phone        string         `gorm:"size:64" json:"phone"`
	Location     string         `gorm:"size:255" json:"location"`
	LinkedinURL  string         `gorm:"size:512" json:"linkedin_url"`
	GithubURL    string         `gorm:"size:512" json:"github_url"`
	PortfolioURL string         `gorm:"size:512" json:"portfolio_url"`
	AboutMe      string         `gorm:"type:text" json:"about_me"`
	Content      datatypes.JSON `gorm:"type:jsonb" json:"content"`
	ResumePath   string         `gorm:"size:512" json:"resume_path"`
}
