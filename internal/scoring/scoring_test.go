package scoring

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/bytedance/sonic"

	"jobPilot/internal/database"
	"jobPilot/internal/profile"
)

type fakeProvider struct {
	response string
	err      error
	prompt   string
}

func (f *fakeProvider) Generate(_ context.Context, prompt, _ string) (string, error) {
	f.prompt = prompt
	return f.response, f.err
}

func (f *fakeProvider) GenerateJSON(_ context.Context, prompt, _ string, out any) error {
	f.prompt = prompt
	if f.err != nil {
		return f.err
	}
	return sonic.Unmarshal([]byte(f.response), out)
}

func testScorer(provider *fakeProvider) *Scorer {
	return NewScorer(provider, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testJob() *database.Job {
	return &database.Job{
		Title:       "Go Developer",
		Company:     "Acme",
		Location:    "Berlin",
		Source:      "arbeitnow",
		Description: "Backend role building payment APIs in Go.",
	}
}

func testProfile() (*database.Profile, profile.Content) {
	return &database.Profile{FullName: "Jane Doe", Location: "Berlin"},
		profile.Content{
			TotalYears: 6,
			Skills:     []string{"Go", "PostgreSQL"},
			Summary:    "Backend engineer.",
		}
}

func TestScoreParsesModelOutput(t *testing.T) {
	provider := &fakeProvider{
		response: `{"score": 8.5, "reasoning": "strong match", "matched_skills": "Go, PostgreSQL", "concerns": "none"}`,
	}
	s := testScorer(provider)
	prof, content := testProfile()

	out, err := s.Score(context.Background(), testJob(), prof, content)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if out.Score != 8.5 {
		t.Errorf("Score = %v", out.Score)
	}
	if out.MatchedSkills != "Go, PostgreSQL" {
		t.Errorf("MatchedSkills = %q", out.MatchedSkills)
	}

	for _, want := range []string{"Jane Doe", "Go Developer", "Acme", "6+ years", "Not specified"} {
		if !strings.Contains(provider.prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestScoreClampsOutOfRangeValues(t *testing.T) {
	cases := []struct {
		response string
		want     float64
	}{
		{`{"score": 15}`, 10},
		{`{"score": -3}`, 1},
		{`{"score": 0}`, 1},
	}
	for _, tc := range cases {
		s := testScorer(&fakeProvider{response: tc.response})
		prof, content := testProfile()
		out, err := s.Score(context.Background(), testJob(), prof, content)
		if err != nil {
			t.Fatalf("Score(%s): %v", tc.response, err)
		}
		if out.Score != tc.want {
			t.Errorf("Score for %s = %v, want %v", tc.response, out.Score, tc.want)
		}
	}
}

func TestScoreSurfacesProviderError(t *testing.T) {
	provider := &fakeProvider{err: errors.New("model offline")}
	s := testScorer(provider)
	prof, content := testProfile()

	if _, err := s.Score(context.Background(), testJob(), prof, content); err == nil {
		t.Fatal("expected error")
	}
}
