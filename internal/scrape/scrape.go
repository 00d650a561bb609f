// Package scrape 从公开招聘板拉取职位列表。
// 这里只收录提供公开 JSON API 的数据源，不做浏览器渲染。
package scrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"

	"jobPilot/internal/config"
)

// ErrUnknownSource 表示请求了未注册的数据源。
var ErrUnknownSource = errors.New("scrape: unknown source")

// Listing 是一条抓取到的职位，尚未入库。
type Listing struct {
	Title       string
	Company     string
	Location    string
	URL         string
	Source      string
	Description string
	SalaryText  string
	JobType     string
	PostedDate  string
}

// Source 是单个招聘板的抓取实现。
type Source interface {
	// Name 返回数据源标识，用于任务参数与入库字段。
	Name() string
	// Scrape 按关键词与地点过滤抓取。location 可为空。
	// 多页数据源在后续页失败时返回已拿到的部分结果。
	Scrape(ctx context.Context, query, location string) ([]Listing, error)
}

// Registry 保存可用的数据源，顺序即默认抓取顺序。
type Registry struct {
	sources []Source
}

// New 按配置构造默认数据源集合。
func New(cfg config.ScrapeConfig, log *slog.Logger) *Registry {
	client := &http.Client{Timeout: cfg.Timeout}
	return NewRegistry(
		newArbeitnow(client, cfg.UserAgent, log),
		newRemoteOK(client, cfg.UserAgent, log),
	)
}

// NewRegistry 从给定数据源构造 Registry。
func NewRegistry(sources ...Source) *Registry {
	return &Registry{sources: sources}
}

// Pick 按名称选择数据源，空名表示全部。
func (r *Registry) Pick(name string) ([]Source, error) {
	if strings.TrimSpace(name) == "" {
		return r.sources, nil
	}
	for _, s := range r.sources {
		if s.Name() == name {
			return []Source{s}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownSource, name)
}

// Names 返回全部数据源名称。
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.sources))
	for _, s := range r.sources {
		names = append(names, s.Name())
	}
	return names
}

// getJSON 发起 GET 请求并把响应解析为 JSON。
func getJSON(ctx context.Context, client *http.Client, url, userAgent string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 8*1024))
		return fmt.Errorf("request %s: status %d: %s", url, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response %s: %w", url, err)
	}
	if err := sonic.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response %s: %w", url, err)
	}
	return nil
}

// queryWords 把查询串拆成小写关键词。
func queryWords(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// matchesQuery 判断可检索文本是否命中任一关键词。
// 关键词为空时视为全部命中。
func matchesQuery(searchable string, words []string) bool {
	if len(words) == 0 {
		return true
	}
	searchable = strings.ToLower(searchable)
	for _, w := range words {
		if strings.Contains(searchable, w) {
			return true
		}
	}
	return false
}

// truncate 按 rune 截断，避免切出半个 UTF-8 字符。
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
