package scrape

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"jobPilot/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func configForTest() config.ScrapeConfig {
	return config.ScrapeConfig{Timeout: 5 * time.Second, UserAgent: "test-agent"}
}

func testClient() *http.Client {
	return &http.Client{Timeout: 5 * time.Second}
}

func TestArbeitnowScrapeFiltersAndPaginates(t *testing.T) {
	var pages []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		pages = append(pages, page)
		w.Header().Set("Content-Type", "application/json")
		switch page {
		case "1":
			fmt.Fprintf(w, `{
				"data": [
					{"slug": "go-dev-berlin", "company_name": "Acme", "title": "Go Developer",
					 "description": "Build backend services", "remote": true, "tags": ["golang"],
					 "location": "Berlin", "created_at": 1700000000},
					{"slug": "florist", "company_name": "Petals", "title": "Florist",
					 "description": "Arrange flowers", "remote": false, "tags": [], "location": "Munich"}
				],
				"links": {"next": "%s?page=2"}
			}`, r.Host)
		default:
			fmt.Fprint(w, `{
				"data": [
					{"slug": "go-sre", "company_name": "Beta", "title": "SRE",
					 "description": "Go and Kubernetes", "remote": false, "tags": ["go"], "location": "Hamburg"}
				],
				"links": {"next": ""}
			}`)
		}
	}))
	defer srv.Close()

	src := newArbeitnow(testClient(), "test-agent", testLogger())
	src.apiURL = srv.URL

	listings, err := src.Scrape(context.Background(), "go", "")
	if err != nil {
		t.Fatalf("Scrape error: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("pages fetched = %v, want 2 pages", pages)
	}
	if len(listings) != 2 {
		t.Fatalf("listings = %d, want 2 (florist filtered out)", len(listings))
	}

	first := listings[0]
	if first.URL != "https://www.arbeitnow.com/view/go-dev-berlin" {
		t.Errorf("URL = %q", first.URL)
	}
	if first.Location != "Berlin (Remote)" {
		t.Errorf("Location = %q, want remote suffix", first.Location)
	}
	if first.JobType != "remote" {
		t.Errorf("JobType = %q", first.JobType)
	}
	if first.PostedDate != "1700000000" {
		t.Errorf("PostedDate = %q", first.PostedDate)
	}
	if first.Source != "arbeitnow" {
		t.Errorf("Source = %q", first.Source)
	}
}

func TestArbeitnowLocationFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"data": [
				{"slug": "a", "company_name": "A", "title": "Go Developer", "description": "go", "remote": false, "location": "Berlin"},
				{"slug": "b", "company_name": "B", "title": "Go Developer", "description": "go", "remote": true, "location": ""}
			],
			"links": {"next": ""}
		}`)
	}))
	defer srv.Close()

	src := newArbeitnow(testClient(), "test-agent", testLogger())
	src.apiURL = srv.URL

	listings, err := src.Scrape(context.Background(), "go", "berlin")
	if err != nil {
		t.Fatalf("Scrape error: %v", err)
	}
	if len(listings) != 1 || listings[0].URL != "https://www.arbeitnow.com/view/a" {
		t.Fatalf("listings = %+v, want only the Berlin job", listings)
	}

	// location=remote 命中远程岗。
	listings, err = src.Scrape(context.Background(), "go", "remote")
	if err != nil {
		t.Fatalf("Scrape error: %v", err)
	}
	if len(listings) != 2 {
		t.Fatalf("listings = %d, want 2 for location=remote", len(listings))
	}
}

func TestArbeitnowFirstPageFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broken", http.StatusBadGateway)
	}))
	defer srv.Close()

	src := newArbeitnow(testClient(), "test-agent", testLogger())
	src.apiURL = srv.URL

	if _, err := src.Scrape(context.Background(), "go", ""); err == nil {
		t.Fatal("expected error on first page failure")
	}
}

func TestArbeitnowKeepsPartialResultsOnLaterPageFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "1" {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		fmt.Fprintf(w, `{
			"data": [{"slug": "a", "company_name": "A", "title": "Go Developer", "description": "go", "location": "Berlin"}],
			"links": {"next": "%s?page=2"}
		}`, r.Host)
	}))
	defer srv.Close()

	src := newArbeitnow(testClient(), "test-agent", testLogger())
	src.apiURL = srv.URL

	listings, err := src.Scrape(context.Background(), "go", "")
	if err != nil {
		t.Fatalf("Scrape error: %v, want partial results without error", err)
	}
	if len(listings) != 1 {
		t.Fatalf("listings = %d, want 1 from the successful page", len(listings))
	}
}

func TestRemoteOKScrape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "test-agent" {
			t.Errorf("User-Agent = %q", got)
		}
		fmt.Fprint(w, `[
			{"legal": "API terms of service"},
			{"position": "Go Engineer", "company": "Acme", "tags": ["golang", "backend"],
			 "description": "Write Go services", "salary_min": 60000, "salary_max": 100000,
			 "url": "/remote-jobs/123", "date": "2024-01-02"},
			{"position": "Chef", "company": "Bistro", "tags": [], "description": "Cook meals",
			 "salary_min": "", "salary_max": "", "url": "https://example.com/chef", "date": ""}
		]`)
	}))
	defer srv.Close()

	src := newRemoteOK(testClient(), "test-agent", testLogger())
	src.apiURL = srv.URL

	listings, err := src.Scrape(context.Background(), "go backend", "")
	if err != nil {
		t.Fatalf("Scrape error: %v", err)
	}
	if len(listings) != 1 {
		t.Fatalf("listings = %d, want 1", len(listings))
	}

	got := listings[0]
	if got.URL != "https://remoteok.com/remote-jobs/123" {
		t.Errorf("URL = %q, want absolute", got.URL)
	}
	if got.SalaryText != "$60,000 - $100,000" {
		t.Errorf("SalaryText = %q", got.SalaryText)
	}
	if got.Location != "Remote" || got.JobType != "remote" {
		t.Errorf("Location/JobType = %q/%q", got.Location, got.JobType)
	}
}

func TestRegistryPick(t *testing.T) {
	reg := New(configForTest(), testLogger())

	all, err := reg.Pick("")
	if err != nil {
		t.Fatalf("Pick all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("default sources = %d, want 2", len(all))
	}

	one, err := reg.Pick("remoteok")
	if err != nil {
		t.Fatalf("Pick remoteok: %v", err)
	}
	if len(one) != 1 || one[0].Name() != "remoteok" {
		t.Fatalf("Pick remoteok = %v", one)
	}

	if _, err := reg.Pick("monster"); !errors.Is(err, ErrUnknownSource) {
		t.Fatalf("err = %v, want ErrUnknownSource", err)
	}

	names := reg.Names()
	if len(names) != 2 || names[0] != "arbeitnow" {
		t.Fatalf("Names = %v", names)
	}
}

func TestFormatSalary(t *testing.T) {
	cases := []struct {
		min, max string
		want     string
	}{
		{`60000`, `100000`, "$60,000 - $100,000"},
		{`60000`, `null`, "$60,000+"},
		{`"75000"`, `""`, "$75,000+"},
		{`""`, `""`, ""},
		{`0`, `0`, ""},
	}
	for _, tc := range cases {
		got := formatSalary(json.RawMessage(tc.min), json.RawMessage(tc.max))
		if got != tc.want {
			t.Errorf("formatSalary(%s, %s) = %q, want %q", tc.min, tc.max, got, tc.want)
		}
	}
}

func TestTruncateIsRuneSafe(t *testing.T) {
	long := strings.Repeat("测", 30)
	got := truncate(long, 10)
	if got != strings.Repeat("测", 10) {
		t.Errorf("truncate = %q", got)
	}
	if truncate("short", 2000) != "short" {
		t.Error("short string should be unchanged")
	}
}
