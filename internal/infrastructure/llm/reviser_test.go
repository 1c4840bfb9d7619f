package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Masoud-kamali/Literature-Agent/internal/domain"
	"github.com/Masoud-kamali/Literature-Agent/internal/generation"
	"github.com/Masoud-kamali/Literature-Agent/internal/ports"
)

func sampleCritique() domain.Critique {
	return domain.Critique{
		LinkedInPostIssues: []string{"reads like an advert"},
		RevisionActions:    []string{"rework the post opening"},
		OverallScore:       6,
	}
}

func TestReviserAppliesFullRevision(t *testing.T) {
	t.Parallel()

	var got completionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		writeCompletion(w, `{
  "abstract_rewrite": "better rewrite",
  "problem_solved": "better problem",
  "linkedin_post": "better post"
}`)
	}))
	defer srv.Close()

	reviser := NewReviser(testClient(srv), testLogger())
	revised, err := reviser.Revise(context.Background(), samplePaper(), sampleDraft(), sampleCritique())
	if err != nil {
		t.Fatalf("Revise: %v", err)
	}

	want := domain.Draft{
		AbstractRewrite: "better rewrite",
		ProblemSolved:   "better problem",
		LinkedInPost:    "better post",
	}
	if revised != want {
		t.Fatalf("revised = %+v", revised)
	}

	if got.Temperature != 0.3 || got.MaxTokens != reviserMaxTokens {
		t.Errorf("sampling = (%v, %d), want (0.3, %d)", got.Temperature, got.MaxTokens, reviserMaxTokens)
	}
	if len(got.Messages) != 2 || got.Messages[0].Content != generation.SystemPrompt {
		t.Error("request did not carry the generation system prompt")
	}
	if !strings.Contains(got.Messages[1].Content, "rework the post opening") {
		t.Error("user prompt missing the revision actions")
	}
	if !strings.Contains(got.Messages[1].Content, `"overall_score": 6`) {
		t.Error("user prompt missing the critique JSON")
	}
}

func TestReviserKeepsMissingFields(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeCompletion(w, `{"linkedin_post": "only the post changed"}`)
	}))
	defer srv.Close()

	reviser := NewReviser(testClient(srv), testLogger())
	revised, err := reviser.Revise(context.Background(), samplePaper(), sampleDraft(), sampleCritique())
	if err != nil {
		t.Fatalf("Revise: %v", err)
	}

	draft := sampleDraft()
	if revised.AbstractRewrite != draft.AbstractRewrite || revised.ProblemSolved != draft.ProblemSolved {
		t.Errorf("untouched fields changed: %+v", revised)
	}
	if revised.LinkedInPost != "only the post changed" {
		t.Errorf("post = %q", revised.LinkedInPost)
	}
}

func TestReviserUnparsableReply(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeCompletion(w, "Here are my thoughts on the revision.")
	}))
	defer srv.Close()

	reviser := NewReviser(testClient(srv), testLogger())
	_, err := reviser.Revise(context.Background(), samplePaper(), sampleDraft(), sampleCritique())
	if !errors.Is(err, ports.ErrUnparsableResponse) {
		t.Fatalf("err = %v, want ErrUnparsableResponse", err)
	}
}
