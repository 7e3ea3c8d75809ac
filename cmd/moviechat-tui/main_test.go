package main

import (
	"strings"
	"testing"

	"moviechat/internal/phase"
	"moviechat/internal/ragclient"
)

func TestWrapTextRespectsWidth(t *testing.T) {
	out := wrapText("the quick brown fox jumps over the lazy dog", 12)
	for _, line := range strings.Split(out, "\n") {
		if len(line) > 12 {
			t.Fatalf("line %q exceeds width 12", line)
		}
	}
	if strings.Join(strings.Fields(out), " ") != "the quick brown fox jumps over the lazy dog" {
		t.Fatalf("wrapping lost words: %q", out)
	}
}

func TestWrapTextPreservesBlankLines(t *testing.T) {
	out := wrapText("first\n\nsecond", 40)
	if out != "first\n\nsecond" {
		t.Fatalf("got %q", out)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("hello", 10); got != "hello" {
		t.Fatalf("short string changed: %q", got)
	}
	if got := truncate("hello world", 8); got != "hello..." {
		t.Fatalf("got %q", got)
	}
	if got := truncate("abc", 2); got != "ab" {
		t.Fatalf("tiny limit: %q", got)
	}
	if got := truncate("abc", 0); got != "" {
		t.Fatalf("zero limit: %q", got)
	}
}

func TestCompactSingleLine(t *testing.T) {
	got := compactSingleLine("  a\n\tb   c ", 80)
	if got != "a b c" {
		t.Fatalf("got %q", got)
	}
}

func TestGroupDigits(t *testing.T) {
	cases := map[int]string{
		0:        "0",
		999:      "999",
		1000:     "1,000",
		1234567:  "1,234,567",
		-4500:    "-4,500",
		-999:     "-999",
		10000000: "10,000,000",
	}
	for in, want := range cases {
		if got := groupDigits(in); got != want {
			t.Fatalf("groupDigits(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestClampInt(t *testing.T) {
	if got := clampInt(2, 5, 300); got != 5 {
		t.Fatalf("got %d", got)
	}
	if got := clampInt(999, 5, 300); got != 300 {
		t.Fatalf("got %d", got)
	}
	if got := clampInt(60, 5, 300); got != 60 {
		t.Fatalf("got %d", got)
	}
}

func TestEnvOrHelpers(t *testing.T) {
	t.Setenv("MOVIECHAT_TEST_STR", "  value  ")
	if got := envOr("MOVIECHAT_TEST_STR", "fallback"); got != "value" {
		t.Fatalf("got %q", got)
	}
	if got := envOr("MOVIECHAT_TEST_MISSING", "fallback"); got != "fallback" {
		t.Fatalf("got %q", got)
	}

	t.Setenv("MOVIECHAT_TEST_INT", "42")
	if got := envOrInt("MOVIECHAT_TEST_INT", 7); got != 42 {
		t.Fatalf("got %d", got)
	}
	t.Setenv("MOVIECHAT_TEST_INT", "not-a-number")
	if got := envOrInt("MOVIECHAT_TEST_INT", 7); got != 7 {
		t.Fatalf("got %d", got)
	}

	t.Setenv("MOVIECHAT_TEST_BOOL", "Yes")
	if !envOrBool("MOVIECHAT_TEST_BOOL", false) {
		t.Fatalf("expected true for Yes")
	}
	t.Setenv("MOVIECHAT_TEST_BOOL", "off")
	if envOrBool("MOVIECHAT_TEST_BOOL", true) {
		t.Fatalf("expected false for off")
	}
	t.Setenv("MOVIECHAT_TEST_BOOL", "maybe")
	if !envOrBool("MOVIECHAT_TEST_BOOL", true) {
		t.Fatalf("expected fallback for garbage")
	}
}

func TestPipelineStepsOrder(t *testing.T) {
	steps := pipelineSteps()
	want := []phase.Phase{phase.Analyzing, phase.VectorSearch, phase.SQLSearch, phase.Generating}
	if len(steps) != len(want) {
		t.Fatalf("got %d steps", len(steps))
	}
	for i, step := range steps {
		if step.phase != want[i] {
			t.Fatalf("step %d is %v, want %v", i, step.phase, want[i])
		}
	}
}

func TestStepResultWithResponse(t *testing.T) {
	resp := &ragclient.ChatResponse{
		Intent: "recommendation",
		Sources: ragclient.SourceSummary{
			VectorMatches: 5,
			SQLMatches:    3,
		},
	}
	if got := stepResult(phase.Analyzing, resp); got != "Intent: recommendation" {
		t.Fatalf("analyzing: %q", got)
	}
	if got := stepResult(phase.VectorSearch, resp); got != "5 semantic matches" {
		t.Fatalf("vector: %q", got)
	}
	if got := stepResult(phase.SQLSearch, resp); got != "3 database matches" {
		t.Fatalf("sql: %q", got)
	}
	if got := stepResult(phase.Generating, resp); got != "Response generated" {
		t.Fatalf("generating: %q", got)
	}
}

func TestStepResultWithoutResponse(t *testing.T) {
	if got := stepResult(phase.Analyzing, nil); got != "Query analyzed" {
		t.Fatalf("analyzing: %q", got)
	}
	if got := stepResult(phase.VectorSearch, nil); got != "Completed" {
		t.Fatalf("vector: %q", got)
	}
}

func TestTokenCostEstimate(t *testing.T) {
	usage := ragclient.QueryTokenUsage{
		Total: ragclient.TokenUsage{
			PromptTokens:     1000,
			CompletionTokens: 1000,
			TotalTokens:      2000,
		},
	}
	// 1000*0.00015/1000 + 1000*0.0006/1000 = 0.00075
	if got := tokenCostEstimate(usage); got != "~$0.00075" {
		t.Fatalf("got %q", got)
	}
}

func TestUserFacingError(t *testing.T) {
	if got := userFacingError(phase.ErrOffline); got != "API is offline. Please start the backend server." {
		t.Fatalf("got %q", got)
	}
}

func TestSuggestedQueriesCount(t *testing.T) {
	if len(suggestedQueries) != 6 {
		t.Fatalf("expected 6 suggestions, got %d", len(suggestedQueries))
	}
}
