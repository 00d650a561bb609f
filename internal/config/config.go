package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config aggregates application settings that may be sourced from files or environment variables.
type Config struct {
	API        APIConfig        `mapstructure:"api"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Queue      QueueConfig      `mapstructure:"queue"`
	Hub        HubConfig        `mapstructure:"hub"`
	AI         AIConfig         `mapstructure:"ai"`
	Scrape     ScrapeConfig     `mapstructure:"scrape"`
	Paths      PathsConfig      `mapstructure:"paths"`
	Automation AutomationConfig `mapstructure:"automation"`
}

// APIConfig contains HTTP server settings.
// ClamdAddr 为空时跳过上传文件的病毒扫描。
type APIConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	ClamdAddr      string   `mapstructure:"clamd_addr"`
}

// DatabaseConfig contains connection options for PostgreSQL.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

// QueueConfig 包含顺序任务队列的运行参数。
type QueueConfig struct {
	HistorySize int `mapstructure:"history_size"`
}

// HubConfig 包含事件集线器的运行参数。
type HubConfig struct {
	SendBuffer int `mapstructure:"send_buffer"`
}

// AIConfig 包含大模型提供方的接入配置。
// APIKey 为空时 AI 相关任务在执行时报错，其余功能不受影响。
type AIConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// ScrapeConfig 包含职位抓取的 HTTP 客户端配置。
type ScrapeConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// PathsConfig 指定上传与生成文件的本地目录。
type PathsConfig struct {
	UploadDir string `mapstructure:"upload_dir"`
	OutputDir string `mapstructure:"output_dir"`
}

// AutomationConfig 包含自动投递的行为开关。
// DryRun 为 true 时只生成投递计划，不向外部站点提交任何表单。
// Browser 为 true 时启动无头 Chromium 真正填写投递表单。
type AutomationConfig struct {
	DryRun   bool `mapstructure:"dry_run"`
	Browser  bool `mapstructure:"browser"`
	Headless bool `mapstructure:"headless"`
}

// DSN builds a lib/pq compatible connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host,
		d.Port,
		d.User,
		d.Password,
		d.Name,
		d.SSLMode,
	)
}

// Load reads configuration solely from environment variables (with optional defaults).
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if err := bindEnv(v); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoad wraps Load and panics on failure.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.allowed_origins", []string{"http://localhost:3000", "http://localhost:5173"})
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "jobpilot")
	v.SetDefault("database.user", "jobpilot")
	v.SetDefault("database.password", "jobpilot")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("queue.history_size", 100)
	v.SetDefault("hub.send_buffer", 32)
	v.SetDefault("ai.model", "gemini-2.0-flash")
	v.SetDefault("scrape.timeout", 30*time.Second)
	v.SetDefault("scrape.user_agent", "jobpilot/1.0 (+https://github.com/jobpilot)")
	v.SetDefault("api.clamd_addr", "")
	v.SetDefault("paths.upload_dir", "data/uploads")
	v.SetDefault("paths.output_dir", "data/output")
	v.SetDefault("automation.dry_run", true)
	v.SetDefault("automation.browser", false)
	v.SetDefault("automation.headless", true)
}

func bindEnv(v *viper.Viper) error {
	mappings := map[string]string{
		"api.port":            "API_PORT",
		"api.allowed_origins": "API_ALLOWED_ORIGINS",
		"database.host":       "DATABASE_HOST",
		"database.port":       "DATABASE_PORT",
		"database.name":       "POSTGRES_DB",
		"database.user":       "POSTGRES_USER",
		"database.password":   "POSTGRES_PASSWORD",
		"database.sslmode":    "DATABASE_SSLMODE",
		"queue.history_size":  "QUEUE_HISTORY_SIZE",
		"hub.send_buffer":     "HUB_SEND_BUFFER",
		"ai.api_key":          "GEMINI_API_KEY",
		"ai.model":            "GEMINI_MODEL",
		"scrape.timeout":      "SCRAPE_TIMEOUT",
		"scrape.user_agent":   "SCRAPE_USER_AGENT",
		"api.clamd_addr":      "CLAMD_ADDR",
		"paths.upload_dir":    "UPLOAD_DIR",
		"paths.output_dir":    "OUTPUT_DIR",
		"automation.dry_run":  "AUTOMATION_DRY_RUN",
		"automation.browser":  "AUTOMATION_BROWSER",
		"automation.headless": "AUTOMATION_HEADLESS",
	}

	for key, env := range mappings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s to %s: %w", key, env, err)
		}
	}

	return nil
}

func validate(cfg Config) error {
	if cfg.API.Port <= 0 {
		return errors.New("api port must be positive")
	}
	if len(cfg.API.AllowedOrigins) == 0 {
		return errors.New("at least one allowed origin is required")
	}
	if cfg.Database.Host == "" {
		return errors.New("database host is required")
	}
	if cfg.Database.Port <= 0 {
		return errors.New("database port must be positive")
	}
	if cfg.Database.Name == "" {
		return errors.New("database name is required")
	}
	if cfg.Database.User == "" {
		return errors.New("database user is required")
	}
	if cfg.Database.Password == "" {
		return errors.New("database password is required")
	}
	if cfg.Database.SSLMode == "" {
		return errors.New("database sslmode is required")
	}
	if cfg.Queue.HistorySize <= 0 {
		return errors.New("queue history size must be positive")
	}
	if cfg.Hub.SendBuffer <= 0 {
		return errors.New("hub send buffer must be positive")
	}
	if cfg.Scrape.Timeout <= 0 {
		return errors.New("scrape timeout must be positive")
	}
	if cfg.Paths.UploadDir == "" {
		return errors.New("upload dir is required")
	}
	if cfg.Paths.OutputDir == "" {
		return errors.New("output dir is required")
	}
	return nil
}
