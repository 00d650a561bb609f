package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	arbeitnowAPIURL = "https://www.arbeitnow.com/api/job-board-api"
	arbeitnowJobURL = "https://www.arbeitnow.com/view/"

	// 免费接口，控制翻页数量与间隔。
	arbeitnowMaxPages  = 3
	arbeitnowPageDelay = 500 * time.Millisecond
)

// Arbeitnow 抓取 arbeitnow.com 的公开 JSON API。
// 以欧洲技术岗、远程岗为主，无需凭证。
type Arbeitnow struct {
	client    *http.Client
	userAgent string
	log       *slog.Logger
	apiURL    string
}

func newArbeitnow(client *http.Client, userAgent string, log *slog.Logger) *Arbeitnow {
	return &Arbeitnow{client: client, userAgent: userAgent, log: log, apiURL: arbeitnowAPIURL}
}

func (a *Arbeitnow) Name() string { return "arbeitnow" }

type arbeitnowItem struct {
	Slug        string   `json:"slug"`
	CompanyName string   `json:"company_name"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Remote      bool     `json:"remote"`
	Tags        []string `json:"tags"`
	Location    string   `json:"location"`
	CreatedAt   int64    `json:"created_at"`
}

type arbeitnowResponse struct {
	Data  []arbeitnowItem `json:"data"`
	Links struct {
		Next string `json:"next"`
	} `json:"links"`
}

// Scrape 翻页拉取并按关键词、地点过滤。
// 首页失败返回错误，后续页失败返回已拿到的部分结果。
func (a *Arbeitnow) Scrape(ctx context.Context, query, location string) ([]Listing, error) {
	words := queryWords(query)
	var listings []Listing

	for page := 1; page <= arbeitnowMaxPages; page++ {
		url := fmt.Sprintf("%s?page=%d", a.apiURL, page)
		a.log.Info("fetching arbeitnow page", slog.Int("page", page))

		var resp arbeitnowResponse
		if err := getJSON(ctx, a.client, url, a.userAgent, &resp); err != nil {
			if page == 1 {
				return nil, err
			}
			a.log.Warn("arbeitnow page fetch failed, keeping partial results",
				slog.Int("page", page),
				slog.Any("error", err),
			)
			break
		}
		if len(resp.Data) == 0 {
			break
		}

		for _, item := range resp.Data {
			searchable := item.Title + " " + item.CompanyName + " " +
				strings.Join(item.Tags, " ") + " " + item.Description
			if !matchesQuery(searchable, words) {
				continue
			}
			if !arbeitnowLocationMatches(location, item.Location, item.Remote) {
				continue
			}
			listings = append(listings, arbeitnowListing(item))
		}

		if resp.Links.Next == "" {
			break
		}
		select {
		case <-time.After(arbeitnowPageDelay):
		case <-ctx.Done():
			return listings, ctx.Err()
		}
	}

	a.log.Info("arbeitnow scrape finished",
		slog.String("query", query),
		slog.Int("listings", len(listings)),
	)
	return listings, nil
}

// arbeitnowLocationMatches 做地点过滤，请求 remote 时不过滤。
func arbeitnowLocationMatches(want, jobLocation string, remote bool) bool {
	want = strings.ToLower(strings.TrimSpace(want))
	if want == "" {
		return true
	}
	searchable := strings.ToLower(jobLocation)
	if remote {
		searchable += " remote"
	}
	return strings.Contains(searchable, want) || want == "remote"
}

func arbeitnowListing(item arbeitnowItem) Listing {
	url := ""
	if item.Slug != "" {
		url = arbeitnowJobURL + item.Slug
	}

	loc := item.Location
	if item.Remote {
		if loc != "" {
			loc += " (Remote)"
		} else {
			loc = "Remote"
		}
	}

	jobType := ""
	if item.Remote {
		jobType = "remote"
	}

	posted := ""
	if item.CreatedAt > 0 {
		posted = strconv.FormatInt(item.CreatedAt, 10)
	}

	return Listing{
		Title:       item.Title,
		Company:     item.CompanyName,
		Location:    loc,
		URL:         url,
		Source:      "arbeitnow",
		Description: truncate(item.Description, 2000),
		JobType:     jobType,
		PostedDate:  posted,
	}
}
