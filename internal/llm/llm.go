// Package llm wraps the generative-language services the assistant can
// reply with. Clients are built once at startup and passed to their users.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrEmptyResponse is returned when the service answered without text.
var ErrEmptyResponse = errors.New("empty response")

// Generator produces a reply for a fully assembled prompt. The reply is
// whitespace-trimmed.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config is the subset of provider settings the clients need.
type Config struct {
	Provider string // gemini | openai
	APIKey   string
	Model    string
	BaseURL  string
}

// New builds the Generator for cfg.Provider. httpClient may be nil.
func New(ctx context.Context, cfg Config, httpClient *http.Client) (Generator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("llm: empty api key")
	}
	switch cfg.Provider {
	case "", "gemini":
		return NewGemini(ctx, cfg, httpClient)
	case "openai":
		return NewOpenAI(cfg, httpClient), nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}
