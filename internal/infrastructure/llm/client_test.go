package llm

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/Masoud-kamali/Literature-Agent/internal/config"
	"github.com/Masoud-kamali/Literature-Agent/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testClient(srv *httptest.Server) *Client {
	return NewClient(config.LLMConfig{
		BaseURL:        srv.URL,
		APIKey:         "secret",
		Model:          "test-model",
		Temperature:    0.3,
		MaxTokens:      64,
		TimeoutSeconds: 5,
	}, testLogger())
}

type completionRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

func writeCompletion(w http.ResponseWriter, content string) {
	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"content": content}},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func samplePaper() domain.Paper {
	return domain.Paper{
		CanonicalID: "2511.01234v1",
		Source:      domain.SourceArxiv,
		NativeID:    "2511.01234v1",
		Title:       "Compact Gaussian Splatting",
		Authors:     []string{"Alice Nguyen", "Bob Chen"},
		Venue:       "arXiv",
		Year:        2025,
		URL:         "http://arxiv.org/pdf/2511.01234v1.pdf",
		Abstract:    "We compress 3D Gaussian scenes without visible quality loss.",
	}
}

func sampleDraft() domain.Draft {
	return domain.Draft{
		AbstractRewrite: "A readable rewrite of the abstract.",
		ProblemSolved:   "Gaussian scenes are too large to stream.",
		LinkedInPost:    "New work on compact splatting is out.",
	}
}

func TestClientComplete(t *testing.T) {
	t.Parallel()

	var got completionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q, want /chat/completions", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer secret" {
			t.Errorf("Authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		writeCompletion(w, "  generated text\n")
	}))
	defer srv.Close()

	text, err := testClient(srv).Complete(context.Background(), "system says", "user asks")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if text != "generated text" {
		t.Fatalf("text = %q, want trimmed reply", text)
	}
	if got.Model != "test-model" {
		t.Errorf("model = %q", got.Model)
	}
	if got.Temperature != 0.3 || got.MaxTokens != 64 {
		t.Errorf("sampling = (%v, %d), want (0.3, 64)", got.Temperature, got.MaxTokens)
	}
	if len(got.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(got.Messages))
	}
	if got.Messages[0].Role != "system" || got.Messages[0].Content != "system says" {
		t.Errorf("system message = %+v", got.Messages[0])
	}
	if got.Messages[1].Role != "user" || got.Messages[1].Content != "user asks" {
		t.Errorf("user message = %+v", got.Messages[1])
	}
}

func TestClientRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeCompletion(w, "recovered")
	}))
	defer srv.Close()

	text, err := testClient(srv).Complete(context.Background(), "s", "u")
	if err != nil {
		t.Fatalf("Complete after retry: %v", err)
	}
	if text != "recovered" {
		t.Fatalf("text = %q", text)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2", calls.Load())
	}
}

func TestClientBadRequestIsPermanent(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "model not found", http.StatusBadRequest)
	}))
	defer srv.Close()

	if _, err := testClient(srv).Complete(context.Background(), "s", "u"); err == nil {
		t.Fatal("expected error for 400")
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want a single attempt for 400", calls.Load())
	}
}

func TestClientNoChoices(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	if _, err := testClient(srv).Complete(context.Background(), "s", "u"); err == nil {
		t.Fatal("expected error when reply has no choices")
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, empty choices should not retry", calls.Load())
	}
}

func TestClientModelName(t *testing.T) {
	t.Parallel()

	c := NewClient(config.LLMConfig{Model: "meta-llama/Llama-3.1-8B-Instruct"}, testLogger())
	if c.ModelName() != "meta-llama/Llama-3.1-8B-Instruct" {
		t.Fatalf("ModelName = %q", c.ModelName())
	}
}
