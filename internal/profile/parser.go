package profile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"jobPilot/internal/ai"
)

var (
	// ErrEmptyResume 表示简历文本为空。
	ErrEmptyResume = errors.New("profile: empty resume text")
	// ErrUnsupportedFormat 表示上传的简历不是纯文本格式。
	ErrUnsupportedFormat = errors.New("profile: unsupported resume format")
)

const (
	// maxResumeBytes 限制读入的简历体积。
	maxResumeBytes = 1 << 20
	// maxPromptChars 限制进入提示词的简历长度。
	maxPromptChars = 20000
)

// Parsed 是模型从简历文本中抽取的结构化档案。
type Parsed struct {
	FullName     string `json:"full_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Location     string `json:"location"`
	LinkedinURL  string `json:"linkedin_url"`
	GithubURL    string `json:"github_url"`
	PortfolioURL string `json:"portfolio_url"`
	Content
}

// Parser 用大模型把简历文本解析成结构化档案。
type Parser struct {
	ai  ai.Provider
	log *slog.Logger
}

func NewParser(provider ai.Provider, log *slog.Logger) *Parser {
	return &Parser{ai: provider, log: log}
}

// ExtractText 读取上传的简历并返回纯文本。
// 只接受文本类格式，二进制内容直接拒绝。
func ExtractText(name string, r io.Reader) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".txt", ".md", ".markdown", "":
	default:
		return "", fmt.Errorf("%w: %s (plain text only)", ErrUnsupportedFormat, ext)
	}

	data, err := io.ReadAll(io.LimitReader(r, maxResumeBytes))
	if err != nil {
		return "", fmt.Errorf("read resume: %w", err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: binary content", ErrUnsupportedFormat)
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", ErrEmptyResume
	}
	return text, nil
}

// Parse 把简历纯文本交给模型抽取结构化信息。
func (p *Parser) Parse(ctx context.Context, text string) (Parsed, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Parsed{}, ErrEmptyResume
	}
	if runes := []rune(text); len(runes) > maxPromptChars {
		text = string(runes[:maxPromptChars])
	}

	prompt := buildParsePrompt(text)
	var parsed Parsed
	if err := p.ai.GenerateJSON(ctx, prompt, "", &parsed); err != nil {
		return Parsed{}, fmt.Errorf("parse resume: %w", err)
	}

	p.log.Info("resume parsed",
		slog.String("full_name", parsed.FullName),
		slog.Int("skills", len(parsed.Skills)),
	)
	return parsed, nil
}

func buildParsePrompt(text string) string {
	return fmt.Sprintf(`Parse this resume/CV text and extract structured information.

RESUME TEXT:
%s

Return a valid JSON object with these exact fields:
{
    "full_name": "Full Name",
    "email": "email@example.com",
    "phone": "phone number",
    "location": "City, Country",
    "linkedin_url": "URL or empty string",
    "github_url": "URL or empty string",
    "portfolio_url": "URL or empty string",
    "summary": "Professional summary",
    "total_years": 5,
    "skills": ["skill1", "skill2"],
    "experience": [
        {
            "title": "Job Title",
            "organization": "Company Name",
            "start": "Start",
            "end": "End",
            "description": "Responsibilities"
        }
    ],
    "education": [
        {
            "title": "Degree",
            "organization": "University",
            "end": "Year"
        }
    ],
    "projects": [
        {
            "title": "Project Name",
            "description": "Description"
        }
    ],
    "certifications": ["Cert Name"],
    "achievements": ["Achievement 1"],
    "languages": ["Language 1"]
}

Use empty strings or empty arrays for anything the resume does not mention. Do not invent facts.`, text)
}
