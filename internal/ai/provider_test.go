package ai

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"google.golang.org/genai"
)

func TestDecodeJSON(t *testing.T) {
	type scoreOut struct {
		Score     float64  `json:"score"`
		Reasoning string   `json:"reasoning"`
		Skills    []string `json:"matched_skills"`
	}

	cases := []struct {
		name  string
		text  string
		score float64
	}{
		{"raw object", `{"score": 8.5, "reasoning": "solid match", "matched_skills": ["go"]}`, 8.5},
		{"fenced", "```json\n{\"score\": 7, \"reasoning\": \"ok\"}\n```", 7},
		{"fence without language", "```\n{\"score\": 6}\n```", 6},
		{"prose around object", "Sure! Here is the result:\n{\"score\": 9}\nHope that helps.", 9},
		{"leading whitespace", "\n\n  {\"score\": 5}", 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out scoreOut
			if err := decodeJSON(tc.text, &out); err != nil {
				t.Fatalf("decodeJSON(%q) error: %v", tc.text, err)
			}
			if out.Score != tc.score {
				t.Errorf("score = %v, want %v", out.Score, tc.score)
			}
		})
	}
}

func TestDecodeJSONRejectsGarbage(t *testing.T) {
	var out map[string]any
	err := decodeJSON("I cannot answer that question.", &out)
	if !errors.Is(err, ErrBadJSON) {
		t.Fatalf("err = %v, want ErrBadJSON", err)
	}
}

func TestStripFences(t *testing.T) {
	if got := stripFences("no fences here"); got != "no fences here" {
		t.Errorf("unfenced text changed: %q", got)
	}
	if got := stripFences("```json\n{\"a\":1}\n```"); got != `{"a":1}` {
		t.Errorf("stripFences = %q", got)
	}
	// 缺少闭合围栏时只去掉首行。
	if got := stripFences("```json\n{\"a\":1}"); got != `{"a":1}` {
		t.Errorf("stripFences without closing = %q", got)
	}
}

func TestDisabledProvider(t *testing.T) {
	var p Provider = Disabled{}

	if _, err := p.Generate(context.Background(), "hello", ""); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Generate err = %v, want ErrNotConfigured", err)
	}
	var out map[string]any
	if err := p.GenerateJSON(context.Background(), "hello", "", &out); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("GenerateJSON err = %v, want ErrNotConfigured", err)
	}
}

func TestRetryableClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limited", genai.APIError{Code: 429, Message: "quota exceeded"}, true},
		{"server error", genai.APIError{Code: 503, Message: "overloaded"}, true},
		{"bad request", genai.APIError{Code: 400, Message: "invalid argument"}, false},
		{"wrapped rate limit", fmt.Errorf("call failed: %w", genai.APIError{Code: 429}), true},
		{"plain error", errors.New("dial tcp: connection refused"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := retryable(tc.err); got != tc.want {
				t.Errorf("retryable(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
