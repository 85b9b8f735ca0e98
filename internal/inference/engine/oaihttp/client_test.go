package oaihttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/learnloop-backend/internal/config"
	"github.com/yungbote/learnloop-backend/internal/inference/engine"
)

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func testConfig() config.LLMConfig {
	return config.LLMConfig{
		Provider:            "openai",
		BaseURL:             "http://upstream",
		APIKey:              "sk-test",
		Model:               "upstream-model",
		ChatCompletionsPath: "/v1/chat/completions",
		Timeout:             config.Duration{Duration: 2 * time.Second},
	}
}

func jsonResponse(status int, v any) *http.Response {
	b, _ := json.Marshal(v)
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader(b)),
	}
}

func TestGenerateSendsHistoryAndParsesUsage(t *testing.T) {
	client := &http.Client{
		Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if req.URL.Path != "/v1/chat/completions" {
				t.Fatalf("unexpected path: %s", req.URL.Path)
			}
			if got := req.Header.Get("Authorization"); got != "Bearer sk-test" {
				t.Fatalf("authorization=%q", got)
			}
			var in chatCompletionRequest
			if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
				t.Fatalf("decode req: %v", err)
			}
			if in.Model != "upstream-model" || in.MaxTokens != 4096 {
				t.Fatalf("model=%q max_tokens=%d", in.Model, in.MaxTokens)
			}
			if len(in.Messages) != 3 || in.Messages[2].Role != "user" {
				t.Fatalf("messages=%+v", in.Messages)
			}
			return jsonResponse(http.StatusOK, map[string]any{
				"choices": []any{map[string]any{"message": map[string]any{"content": "hello"}}},
				"usage":   map[string]any{"prompt_tokens": 11, "completion_tokens": 3},
			}), nil
		}),
	}

	e, err := NewWithHTTPClient(testConfig(), client)
	if err != nil {
		t.Fatalf("NewWithHTTPClient: %v", err)
	}
	out, err := e.Generate(context.Background(), []engine.Message{
		{Role: engine.RoleSystem, Content: "sys"},
		{Role: engine.RoleAssistant, Content: "earlier"},
		{Role: engine.RoleUser, Content: "now"},
	}, engine.GenerateOptions{MaxTokens: 4096})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out.Text != "hello" {
		t.Fatalf("text=%q", out.Text)
	}
	if out.Usage.InputTokens != 11 || out.Usage.OutputTokens != 3 {
		t.Fatalf("usage=%+v", out.Usage)
	}
}

func TestGenerateUpstreamError(t *testing.T) {
	client := &http.Client{
		Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusTooManyRequests,
				Body:       io.NopCloser(strings.NewReader(`{"error":"slow down"}`)),
			}, nil
		}),
	}
	e, err := NewWithHTTPClient(testConfig(), client)
	if err != nil {
		t.Fatalf("NewWithHTTPClient: %v", err)
	}
	_, err = e.Generate(context.Background(), []engine.Message{{Role: "user", Content: "x"}}, engine.GenerateOptions{})
	var he *HTTPError
	if !errors.As(err, &he) || he.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected HTTPError 429, got %v", err)
	}
}

func TestGenerateRejectsEmptyMessages(t *testing.T) {
	e, err := New(testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := e.Generate(context.Background(), []engine.Message{{Role: "user", Content: "  "}}, engine.GenerateOptions{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestStreamCollectsDeltas(t *testing.T) {
	body := strings.Join([]string{
		`data: {"choices":[{"delta":{"content":"Hel"}}]}`,
		``,
		`: keepalive`,
		`data: {"choices":[{"delta":{"content":"lo"}}]}`,
		``,
		`data: {"choices":[],"usage":{"prompt_tokens":5,"completion_tokens":2}}`,
		``,
		`data: [DONE]`,
		``,
	}, "\n")
	client := &http.Client{
		Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			var in chatCompletionRequest
			if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
				t.Fatalf("decode req: %v", err)
			}
			if !in.Stream || in.StreamOptions == nil || !in.StreamOptions.IncludeUsage {
				t.Fatalf("expected streaming request with usage, got %+v", in)
			}
			return &http.Response{
				StatusCode: http.StatusOK,
				Header:     http.Header{"Content-Type": []string{"text/event-stream"}},
				Body:       io.NopCloser(strings.NewReader(body)),
			}, nil
		}),
	}
	e, err := NewWithHTTPClient(testConfig(), client)
	if err != nil {
		t.Fatalf("NewWithHTTPClient: %v", err)
	}
	var deltas []string
	out, err := e.Stream(context.Background(), []engine.Message{{Role: "user", Content: "hi"}}, engine.GenerateOptions{}, func(d string) {
		deltas = append(deltas, d)
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if out.Text != "Hello" || len(deltas) != 2 {
		t.Fatalf("text=%q deltas=%v", out.Text, deltas)
	}
	if out.Usage.InputTokens != 5 || out.Usage.OutputTokens != 2 {
		t.Fatalf("usage=%+v", out.Usage)
	}
}

func TestNewRequiresBaseURLAndModel(t *testing.T) {
	cfg := testConfig()
	cfg.BaseURL = ""
	if _, err := New(cfg); err == nil {
		t.Fatalf("expected base_url error")
	}
	cfg = testConfig()
	cfg.Model = ""
	if _, err := New(cfg); err == nil {
		t.Fatalf("expected model error")
	}
}
