package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"jobPilot/internal/ai"
	"jobPilot/internal/automation"
	"jobPilot/internal/database"
	"jobPilot/internal/docgen"
	"jobPilot/internal/errcode"
	"jobPilot/internal/profile"
	"jobPilot/internal/scoring"
	"jobPilot/internal/scrape"
	"jobPilot/internal/storage"
	"jobPilot/internal/tasks"
)

type fakeProvider struct {
	generate     func(prompt, system string) (string, error)
	generateJSON func(prompt, system string, out any) error
}

func (f *fakeProvider) Generate(_ context.Context, prompt, system string) (string, error) {
	if f.generate == nil {
		return "ok", nil
	}
	return f.generate(prompt, system)
}

func (f *fakeProvider) GenerateJSON(_ context.Context, prompt, system string, out any) error {
	if f.generateJSON == nil {
		return errors.New("unexpected GenerateJSON call")
	}
	return f.generateJSON(prompt, system, out)
}

type fakeApplicator struct {
	res automation.Result
	err error
}

func (f *fakeApplicator) Apply(context.Context, *database.Job, *database.Profile) (automation.Result, error) {
	return f.res, f.err
}

type stubSource struct {
	name     string
	listings []scrape.Listing
	err      error
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Scrape(context.Context, string, string) ([]scrape.Listing, error) {
	return s.listings, s.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	content, err := sonic.Marshal(profile.Content{
		Summary:    "Backend engineer.",
		TotalYears: 6,
		Skills:     []string{"Go", "PostgreSQL"},
	})
	if err != nil {
		t.Fatalf("marshal content: %v", err)
	}
	prof := database.Profile{
		Model:    gorm.Model{ID: database.DefaultProfileID},
		FullName: "Jane Doe",
		Email:    "jane@example.com",
		Location: "Berlin",
		Content:  content,
	}
	if err := db.Create(&prof).Error; err != nil {
		t.Fatalf("seed profile: %v", err)
	}
	return db
}

type testEnv struct {
	h       *Handlers
	db      *gorm.DB
	uploads *storage.Client
	outputs *storage.Client
}

func newTestEnv(t *testing.T, provider ai.Provider, applicator automation.Applicator, sources ...scrape.Source) *testEnv {
	t.Helper()
	db := newTestDB(t)
	log := testLogger()

	uploads, err := storage.NewClient(t.TempDir())
	if err != nil {
		t.Fatalf("uploads client: %v", err)
	}
	outputs, err := storage.NewClient(t.TempDir())
	if err != nil {
		t.Fatalf("outputs client: %v", err)
	}

	h := New(
		db,
		log,
		provider,
		scrape.NewRegistry(sources...),
		docgen.NewRenderer(provider, outputs, log),
		scoring.NewScorer(provider, log),
		profile.NewParser(provider, log),
		applicator,
		uploads,
	)
	return &testEnv{h: h, db: db, uploads: uploads, outputs: outputs}
}

func mkTask(t *testing.T, typ tasks.Type, payload any) *tasks.Task {
	t.Helper()
	task := &tasks.Task{ID: "t-" + string(typ), Type: typ, Status: tasks.StatusRunning}
	if payload != nil {
		data, err := sonic.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		task.Payload = data
	}
	return task
}

func decodeResult(t *testing.T, raw json.RawMessage) taskResult {
	t.Helper()
	var res taskResult
	if err := sonic.Unmarshal(raw, &res); err != nil {
		t.Fatalf("decode result %s: %v", raw, err)
	}
	return res
}

func seedJob(t *testing.T, db *gorm.DB, job database.Job) *database.Job {
	t.Helper()
	if job.Status == "" {
		job.Status = database.JobStatusScraped
	}
	if err := db.Create(&job).Error; err != nil {
		t.Fatalf("seed job: %v", err)
	}
	return &job
}

func TestHandleScrapingStoresAndDedupes(t *testing.T) {
	src := &stubSource{
		name: "stub",
		listings: []scrape.Listing{
			{Title: "Go Developer", Company: "Acme", URL: "https://example.com/jobs/1", Source: "stub"},
			{Title: "SRE", Company: "Beta", URL: "https://example.com/jobs/2", Source: "stub"},
		},
	}
	env := newTestEnv(t, &fakeProvider{}, &fakeApplicator{}, src)

	raw, err := env.h.HandleScraping(context.Background(), mkTask(t, tasks.TypeScraping, tasks.ScrapingPayload{Source: "stub", Query: "go"}))
	if err != nil {
		t.Fatalf("HandleScraping: %v", err)
	}
	res := decodeResult(t, raw)
	if res.Status != "success" {
		t.Fatalf("status = %q: %s", res.Status, raw)
	}
	if !strings.Contains(res.Message, "Added 2 jobs") {
		t.Errorf("message = %q", res.Message)
	}

	var count int64
	env.db.Model(&database.Job{}).Count(&count)
	if count != 2 {
		t.Fatalf("job count = %d, want 2", count)
	}

	// 二次抓取全部命中唯一索引，只计 skipped。
	raw, err = env.h.HandleScraping(context.Background(), mkTask(t, tasks.TypeScraping, tasks.ScrapingPayload{Source: "stub"}))
	if err != nil {
		t.Fatalf("HandleScraping again: %v", err)
	}
	if res := decodeResult(t, raw); !strings.Contains(res.Message, "Added 0 jobs") {
		t.Errorf("second run message = %q", res.Message)
	}
	env.db.Model(&database.Job{}).Count(&count)
	if count != 2 {
		t.Fatalf("job count after rerun = %d, want 2", count)
	}
}

func TestHandleScrapingReportsFailedSourceAndContinues(t *testing.T) {
	broken := &stubSource{name: "broken", err: errors.New("upstream down")}
	healthy := &stubSource{
		name:     "healthy",
		listings: []scrape.Listing{{Title: "Go Dev", Company: "Acme", URL: "https://example.com/jobs/3", Source: "healthy"}},
	}
	env := newTestEnv(t, &fakeProvider{}, &fakeApplicator{}, broken, healthy)

	raw, err := env.h.HandleScraping(context.Background(), mkTask(t, tasks.TypeScraping, nil))
	if err != nil {
		t.Fatalf("HandleScraping: %v", err)
	}
	if !strings.Contains(string(raw), "upstream down") {
		t.Errorf("result should carry the source error: %s", raw)
	}

	var count int64
	env.db.Model(&database.Job{}).Count(&count)
	if count != 1 {
		t.Errorf("healthy source should still store jobs, count = %d", count)
	}
}

func TestHandleScrapingUnknownSource(t *testing.T) {
	env := newTestEnv(t, &fakeProvider{}, &fakeApplicator{}, &stubSource{name: "stub"})

	raw, err := env.h.HandleScraping(context.Background(), mkTask(t, tasks.TypeScraping, tasks.ScrapingPayload{Source: "monster"}))
	if err != nil {
		t.Fatalf("HandleScraping: %v", err)
	}
	res := decodeResult(t, raw)
	if res.Status != "failed" || res.Code != errcode.ResourceMissing {
		t.Errorf("res = %+v", res)
	}
}

func TestHandleJobScoringPersistsScore(t *testing.T) {
	provider := &fakeProvider{
		generateJSON: func(_, _ string, out any) error {
			return sonic.Unmarshal([]byte(`{"score": 8.5, "reasoning": "solid", "matched_skills": "Go"}`), out)
		},
	}
	env := newTestEnv(t, provider, &fakeApplicator{})
	job := seedJob(t, env.db, database.Job{Title: "Go Dev", Company: "Acme", URL: "https://example.com/jobs/10"})

	raw, err := env.h.HandleJobScoring(context.Background(), mkTask(t, tasks.TypeJobScoring, tasks.JobPayload{JobID: job.ID}))
	if err != nil {
		t.Fatalf("HandleJobScoring: %v", err)
	}
	if res := decodeResult(t, raw); res.Status != "success" {
		t.Fatalf("res = %+v", res)
	}

	var got database.Job
	if err := env.db.First(&got, job.ID).Error; err != nil {
		t.Fatalf("reload job: %v", err)
	}
	if got.MatchScore == nil || *got.MatchScore != 8.5 {
		t.Errorf("MatchScore = %v", got.MatchScore)
	}
	if got.Status != database.JobStatusScored {
		t.Errorf("Status = %q", got.Status)
	}
	if got.MatchedSkills != "Go" {
		t.Errorf("MatchedSkills = %q", got.MatchedSkills)
	}
}

func TestHandleJobScoringMissingJob(t *testing.T) {
	env := newTestEnv(t, &fakeProvider{}, &fakeApplicator{})

	raw, err := env.h.HandleJobScoring(context.Background(), mkTask(t, tasks.TypeJobScoring, tasks.JobPayload{JobID: 999}))
	if err != nil {
		t.Fatalf("HandleJobScoring: %v", err)
	}
	res := decodeResult(t, raw)
	if res.Status != "failed" || res.Code != errcode.ResourceMissing {
		t.Errorf("res = %+v", res)
	}
}

func TestHandleBulkScoringLeavesFailedJobsUnscored(t *testing.T) {
	provider := &fakeProvider{
		generateJSON: func(prompt, _ string, out any) error {
			if strings.Contains(prompt, "Flaky Corp") {
				return errors.New("model offline")
			}
			return sonic.Unmarshal([]byte(`{"score": 7, "reasoning": "ok", "matched_skills": "Go"}`), out)
		},
	}
	env := newTestEnv(t, provider, &fakeApplicator{})
	seedJob(t, env.db, database.Job{Title: "Job A", Company: "Acme", URL: "https://example.com/jobs/20"})
	flaky := seedJob(t, env.db, database.Job{Title: "Job B", Company: "Flaky Corp", URL: "https://example.com/jobs/21"})
	seedJob(t, env.db, database.Job{Title: "Job C", Company: "Beta", URL: "https://example.com/jobs/22"})

	raw, err := env.h.HandleBulkScoring(context.Background(), mkTask(t, tasks.TypeBulkScoring, nil))
	if err != nil {
		t.Fatalf("HandleBulkScoring: %v", err)
	}
	res := decodeResult(t, raw)
	if res.Status != "success" || !strings.Contains(res.Message, "Scored 2/3") {
		t.Fatalf("res = %+v", res)
	}

	var got database.Job
	env.db.First(&got, flaky.ID)
	if got.MatchScore != nil {
		t.Errorf("failed job should stay unscored, MatchScore = %v", *got.MatchScore)
	}

	var unscored int64
	env.db.Model(&database.Job{}).Where("match_score IS NULL").Count(&unscored)
	if unscored != 1 {
		t.Errorf("unscored count = %d, want 1", unscored)
	}
}

func TestHandleResumeGenerationWritesDocument(t *testing.T) {
	provider := &fakeProvider{
		generateJSON: func(_, _ string, out any) error {
			return sonic.Unmarshal([]byte(`{"title_line": "Go Engineer", "summary": "Tailored summary.", "skills_highlighted": ["Go"]}`), out)
		},
	}
	env := newTestEnv(t, provider, &fakeApplicator{})
	job := seedJob(t, env.db, database.Job{Title: "Go Dev", Company: "Acme", URL: "https://example.com/jobs/30"})

	raw, err := env.h.HandleResumeGeneration(context.Background(), mkTask(t, tasks.TypeResumeGeneration, tasks.GeneratePayload{JobID: job.ID}))
	if err != nil {
		t.Fatalf("HandleResumeGeneration: %v", err)
	}
	if res := decodeResult(t, raw); res.Status != "success" {
		t.Fatalf("res = %+v", res)
	}

	var got database.Job
	env.db.First(&got, job.ID)
	if got.ResumePath == "" {
		t.Fatal("ResumePath not set")
	}
	if got.Status != database.JobStatusResumeGenerated {
		t.Errorf("Status = %q", got.Status)
	}
	if _, err := env.outputs.Stat(got.ResumePath); err != nil {
		t.Errorf("generated file missing: %v", err)
	}
}

func TestHandleDocumentGenerationWritesBoth(t *testing.T) {
	provider := &fakeProvider{
		generate: func(_, _ string) (string, error) {
			return "I am a great fit for this role.", nil
		},
		generateJSON: func(_, _ string, out any) error {
			return sonic.Unmarshal([]byte(`{"title_line": "Go Engineer", "summary": "Tailored."}`), out)
		},
	}
	env := newTestEnv(t, provider, &fakeApplicator{})
	job := seedJob(t, env.db, database.Job{Title: "Go Dev", Company: "Acme", URL: "https://example.com/jobs/31"})

	raw, err := env.h.HandleDocumentGeneration(context.Background(), mkTask(t, tasks.TypeDocumentGeneration, tasks.GeneratePayload{JobID: job.ID}))
	if err != nil {
		t.Fatalf("HandleDocumentGeneration: %v", err)
	}
	if res := decodeResult(t, raw); res.Status != "success" {
		t.Fatalf("res = %+v", res)
	}

	var got database.Job
	env.db.First(&got, job.ID)
	if got.ResumePath == "" || got.CoverLetterPath == "" {
		t.Errorf("paths = %q / %q", got.ResumePath, got.CoverLetterPath)
	}
}

func TestHandleJobApplicationSuccess(t *testing.T) {
	applicator := &fakeApplicator{res: automation.Result{Applied: true, Message: "done"}}
	env := newTestEnv(t, &fakeProvider{}, applicator)
	job := seedJob(t, env.db, database.Job{
		Title: "Go Dev", Company: "Acme",
		URL: "https://example.com/jobs/40", ResumePath: "resumes/resume_Acme_Go_Dev.md",
	})

	raw, err := env.h.HandleJobApplication(context.Background(), mkTask(t, tasks.TypeJobApplication, tasks.JobPayload{JobID: job.ID}))
	if err != nil {
		t.Fatalf("HandleJobApplication: %v", err)
	}
	if res := decodeResult(t, raw); res.Status != "success" {
		t.Fatalf("res = %+v", res)
	}

	var got database.Job
	env.db.First(&got, job.ID)
	if got.Status != database.JobStatusApplied {
		t.Errorf("Status = %q", got.Status)
	}
	if got.AppliedAt == nil {
		t.Error("AppliedAt not set")
	}
}

func TestHandleJobApplicationRequiresResume(t *testing.T) {
	env := newTestEnv(t, &fakeProvider{}, &fakeApplicator{res: automation.Result{Applied: true}})
	job := seedJob(t, env.db, database.Job{Title: "Go Dev", Company: "Acme", URL: "https://example.com/jobs/41"})

	raw, err := env.h.HandleJobApplication(context.Background(), mkTask(t, tasks.TypeJobApplication, tasks.JobPayload{JobID: job.ID}))
	if err != nil {
		t.Fatalf("HandleJobApplication: %v", err)
	}
	res := decodeResult(t, raw)
	if res.Status != "failed" || res.Code != errcode.ResourceMissing {
		t.Errorf("res = %+v", res)
	}
}

func TestHandleJobApplicationBlocked(t *testing.T) {
	applicator := &fakeApplicator{res: automation.Result{Message: "login required to apply"}}
	env := newTestEnv(t, &fakeProvider{}, applicator)
	job := seedJob(t, env.db, database.Job{
		Title: "Go Dev", Company: "Acme",
		URL: "https://example.com/jobs/42", ResumePath: "resumes/x.md",
	})

	raw, err := env.h.HandleJobApplication(context.Background(), mkTask(t, tasks.TypeJobApplication, tasks.JobPayload{JobID: job.ID}))
	if err != nil {
		t.Fatalf("HandleJobApplication: %v", err)
	}
	res := decodeResult(t, raw)
	if res.Status != "failed" || res.Code != errcode.AutomationBlocked {
		t.Errorf("res = %+v", res)
	}

	var got database.Job
	env.db.First(&got, job.ID)
	if got.Status == database.JobStatusApplied {
		t.Error("blocked application must not mark the job applied")
	}
}

func TestHandleProfileUpdateParsesResume(t *testing.T) {
	provider := &fakeProvider{
		generateJSON: func(prompt, _ string, out any) error {
			if !strings.Contains(prompt, "Jane Doe resume text") {
				t.Errorf("prompt missing resume text")
			}
			return sonic.Unmarshal([]byte(`{
				"full_name": "Jane Doe",
				"email": "jane@new.example.com",
				"summary": "Updated summary.",
				"total_years": 7,
				"skills": ["Go", "Kubernetes", "PostgreSQL"]
			}`), out)
		},
	}
	env := newTestEnv(t, provider, &fakeApplicator{})

	const key = "resumes/upload_1.txt"
	if _, err := env.uploads.SaveFile(key, strings.NewReader("Jane Doe resume text")); err != nil {
		t.Fatalf("save upload: %v", err)
	}

	raw, err := env.h.HandleProfileUpdate(context.Background(), mkTask(t, tasks.TypeProfileUpdate, tasks.ProfileUpdatePayload{FilePath: key}))
	if err != nil {
		t.Fatalf("HandleProfileUpdate: %v", err)
	}
	if res := decodeResult(t, raw); res.Status != "success" {
		t.Fatalf("res = %+v", res)
	}

	var prof database.Profile
	if err := env.db.First(&prof, database.DefaultProfileID).Error; err != nil {
		t.Fatalf("reload profile: %v", err)
	}
	if prof.Email != "jane@new.example.com" {
		t.Errorf("Email = %q", prof.Email)
	}
	if prof.ResumePath != key {
		t.Errorf("ResumePath = %q", prof.ResumePath)
	}

	var content profile.Content
	if err := sonic.Unmarshal(prof.Content, &content); err != nil {
		t.Fatalf("decode content: %v", err)
	}
	if content.TotalYears != 7 || len(content.Skills) != 3 {
		t.Errorf("content = %+v", content)
	}
}

func TestHandleProfileUpdateMissingUpload(t *testing.T) {
	env := newTestEnv(t, &fakeProvider{}, &fakeApplicator{})

	raw, err := env.h.HandleProfileUpdate(context.Background(), mkTask(t, tasks.TypeProfileUpdate, tasks.ProfileUpdatePayload{FilePath: "resumes/missing.txt"}))
	if err != nil {
		t.Fatalf("HandleProfileUpdate: %v", err)
	}
	res := decodeResult(t, raw)
	if res.Status != "failed" || res.Code != errcode.ResourceMissing {
		t.Errorf("res = %+v", res)
	}
}

func TestHandleChatUsesJobContext(t *testing.T) {
	var gotSystem string
	provider := &fakeProvider{
		generate: func(_, system string) (string, error) {
			gotSystem = system
			return "Here is my advice.", nil
		},
	}
	env := newTestEnv(t, provider, &fakeApplicator{})
	job := seedJob(t, env.db, database.Job{Title: "Go Dev", Company: "Acme", URL: "https://example.com/jobs/50", Description: "Payments in Go"})

	raw, err := env.h.HandleChat(context.Background(), mkTask(t, tasks.TypeChat, tasks.ChatPayload{Message: "Should I apply?", JobID: job.ID}))
	if err != nil {
		t.Fatalf("HandleChat: %v", err)
	}

	if !strings.Contains(gotSystem, "Active Job Context") || !strings.Contains(gotSystem, "Go Dev") {
		t.Errorf("system prompt missing job context: %q", gotSystem)
	}

	var res map[string]string
	if err := sonic.Unmarshal(raw, &res); err != nil {
		t.Fatalf("decode chat result: %v", err)
	}
	if res["response"] != "Here is my advice." || res["original_message"] != "Should I apply?" {
		t.Errorf("res = %v", res)
	}
}

func TestHandleChatWithoutProvider(t *testing.T) {
	env := newTestEnv(t, ai.Disabled{}, &fakeApplicator{})

	raw, err := env.h.HandleChat(context.Background(), mkTask(t, tasks.TypeChat, tasks.ChatPayload{Message: "hi"}))
	if err != nil {
		t.Fatalf("HandleChat: %v", err)
	}
	res := decodeResult(t, raw)
	if res.Status != "failed" || res.Code != errcode.ProviderError {
		t.Errorf("res = %+v", res)
	}
}

func TestRegisterCoversAllTaskTypes(t *testing.T) {
	env := newTestEnv(t, &fakeProvider{}, &fakeApplicator{})
	reg := tasks.NewRegistry()
	env.h.Register(reg)

	for _, typ := range tasks.AllTypes {
		if !reg.Handles(typ) {
			t.Errorf("no handler registered for %s", typ)
		}
	}
}
