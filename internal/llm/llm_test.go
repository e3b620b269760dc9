package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"miku/internal/fault"
)

func completionServer(t *testing.T, content string, gotPrompt *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.Unmarshal(body, &req); err == nil && len(req.Messages) > 0 {
			*gotPrompt = req.Messages[0].Content
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 0,
			"model":   "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		})
	}))
}

func TestOpenAIGenerateTrims(t *testing.T) {
	var prompt string
	srv := completionServer(t, "  Hello there!\n", &prompt)
	defer srv.Close()

	gen := NewOpenAI(Config{APIKey: "k", Model: "test-model", BaseURL: srv.URL}, srv.Client())
	got, err := gen.Generate(context.Background(), "You: hi\nAssistant:")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != "Hello there!" {
		t.Errorf("Generate() = %q", got)
	}
	if prompt != "You: hi\nAssistant:" {
		t.Errorf("server saw prompt %q", prompt)
	}
}

func TestOpenAIGenerateEmpty(t *testing.T) {
	var prompt string
	srv := completionServer(t, "   ", &prompt)
	defer srv.Close()

	gen := NewOpenAI(Config{APIKey: "k", BaseURL: srv.URL}, srv.Client())
	_, err := gen.Generate(context.Background(), "x")
	if !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("Generate() error = %v, want ErrEmptyResponse", err)
	}
	if !fault.Is(err, fault.Service) {
		t.Errorf("KindOf() = %v, want %v", fault.KindOf(err), fault.Service)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	if _, err := New(context.Background(), Config{Provider: "openai"}, nil); err == nil {
		t.Error("New() without key = nil error")
	}
	if _, err := New(context.Background(), Config{Provider: "llama", APIKey: "k"}, nil); err == nil {
		t.Error("New() with unknown provider = nil error")
	}
	if g, err := New(context.Background(), Config{Provider: "openai", APIKey: "k"}, nil); err != nil || g == nil {
		t.Errorf("New(openai) = %v, %v", g, err)
	}
}

func TestOpenAIGenerateFailureKinds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":{"message":"bad model","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	gen := NewOpenAI(Config{APIKey: "k", BaseURL: srv.URL}, srv.Client())

	_, err := gen.Generate(context.Background(), "x")
	if got := fault.KindOf(err); got != fault.Service {
		t.Errorf("KindOf(bad request) = %v, want %v (err = %v)", got, fault.Service, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = gen.Generate(ctx, "x")
	if got := fault.KindOf(err); got != fault.Cancelled {
		t.Errorf("KindOf(cancelled) = %v, want %v (err = %v)", got, fault.Cancelled, err)
	}
}
