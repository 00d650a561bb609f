package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
)

const remoteokAPIURL = "https://remoteok.com/api"

// RemoteOK 抓取 remoteok.com 的公开 JSON API，单次请求返回全量列表。
type RemoteOK struct {
	client    *http.Client
	userAgent string
	log       *slog.Logger
	apiURL    string
}

func newRemoteOK(client *http.Client, userAgent string, log *slog.Logger) *RemoteOK {
	return &RemoteOK{client: client, userAgent: userAgent, log: log, apiURL: remoteokAPIURL}
}

func (r *RemoteOK) Name() string { return "remoteok" }

type remoteokItem struct {
	Position    string          `json:"position"`
	Company     string          `json:"company"`
	Tags        []string        `json:"tags"`
	Description string          `json:"description"`
	SalaryMin   json.RawMessage `json:"salary_min"`
	SalaryMax   json.RawMessage `json:"salary_max"`
	URL         string          `json:"url"`
	Date        string          `json:"date"`
}

// Scrape 拉取全量列表并按关键词过滤。location 参数被忽略，结果全部是远程岗。
func (r *RemoteOK) Scrape(ctx context.Context, query, _ string) ([]Listing, error) {
	var items []remoteokItem
	if err := getJSON(ctx, r.client, r.apiURL, r.userAgent, &items); err != nil {
		return nil, err
	}
	// 首个元素是接口的免责声明，跳过。
	if len(items) > 0 {
		items = items[1:]
	}

	words := queryWords(query)
	var listings []Listing
	for _, item := range items {
		searchable := item.Position + " " + item.Company + " " +
			strings.Join(item.Tags, " ") + " " + item.Description
		if !matchesQuery(searchable, words) {
			continue
		}

		url := item.URL
		if strings.HasPrefix(url, "/") {
			url = "https://remoteok.com" + url
		}

		listings = append(listings, Listing{
			Title:       item.Position,
			Company:     item.Company,
			Location:    "Remote",
			URL:         url,
			Source:      "remoteok",
			Description: truncate(item.Description, 2000),
			SalaryText:  formatSalary(item.SalaryMin, item.SalaryMax),
			JobType:     "remote",
			PostedDate:  item.Date,
		})
	}

	r.log.Info("remoteok scrape finished",
		slog.String("query", query),
		slog.Int("listings", len(listings)),
	)
	return listings, nil
}

// formatSalary 把年薪区间格式化为 "$60,000 - $100,000" 的展示文本。
func formatSalary(min, max json.RawMessage) string {
	lo, hasLo := salaryInt(min)
	hi, hasHi := salaryInt(max)
	switch {
	case hasLo && hasHi:
		return fmt.Sprintf("$%s - $%s", commify(lo), commify(hi))
	case hasLo:
		return fmt.Sprintf("$%s+", commify(lo))
	default:
		return ""
	}
}

// salaryInt 容忍接口把薪资给成数字、字符串或 null。
func salaryInt(raw json.RawMessage) (int64, bool) {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return 0, false
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

// commify 给十进制数字加千位分隔符。
func commify(v int64) string {
	s := fmt.Sprintf("%d", v)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	if neg {
		s = "-" + s
	}
	return s
}
