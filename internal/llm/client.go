package llm

import (
	"context"
	"errors"
	"fmt"
)

var ErrMissingAPIKey = errors.New("llm api key is not set")

// Request is a single chat turn: one system message and one user message.
type Request struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
}

type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
	Name() string
}

// New builds the client for provider. huggingface and openai both speak the
// chat completions protocol and differ only in base URL.
func New(provider, model, baseURL, apiKey string) (Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%s: %w", provider, ErrMissingAPIKey)
	}
	switch provider {
	case "huggingface":
		return NewOpenAIClient("huggingface", apiKey, model, baseURL), nil
	case "openai":
		return NewOpenAIClient("openai", apiKey, model, ""), nil
	case "gemini":
		return NewGeminiClient(apiKey, model), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", provider)
	}
}
