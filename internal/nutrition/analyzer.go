// Package nutrition produces a personalised dietary assessment of a product
// from a health profile, a guideline text and a chat model.
package nutrition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"nutriscan/internal/llm"
	"nutriscan/internal/product"
)

const (
	MaxTokens   = 400
	Temperature = 0.2
	MaxRetries  = 2
)

// KnowledgeSource supplies the dietary principles text.
type KnowledgeSource interface {
	Text() string
}

type Analyzer struct {
	client    llm.Client
	knowledge KnowledgeSource
	// backoff returns the wait after failed attempt n (0-based).
	backoff func(attempt int) time.Duration
}

func NewAnalyzer(client llm.Client, knowledge KnowledgeSource) *Analyzer {
	return &Analyzer{
		client:    client,
		knowledge: knowledge,
		backoff: func(attempt int) time.Duration {
			return time.Second + time.Duration(attempt)*2*time.Second
		},
	}
}

// Analyze calls the model up to MaxRetries+1 times. A reply that is not JSON
// is kept in Assessment.Raw rather than treated as a failure.
func (a *Analyzer) Analyze(ctx context.Context, p Profile, prod *product.Product) (*Assessment, error) {
	if prod == nil {
		return nil, errors.New("invalid product info")
	}

	dietKnowledge := ""
	if a.knowledge != nil {
		dietKnowledge = a.knowledge.Text()
	}
	system, user := BuildPrompt(p, prod, dietKnowledge)

	req := llm.Request{
		System:      system,
		User:        user,
		MaxTokens:   MaxTokens,
		Temperature: Temperature,
	}

	var lastErr error
	for attempt := 0; attempt <= MaxRetries; attempt++ {
		reply, err := a.client.Complete(ctx, req)
		if err == nil {
			return interpret(reply), nil
		}

		lastErr = err
		slog.Warn("llm call failed",
			"provider", a.client.Name(),
			"attempt", attempt+1,
			"of", MaxRetries+1,
			"error", err,
		)
		if attempt == MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("LLM call failed: %w", ctx.Err())
		case <-time.After(a.backoff(attempt)):
		}
	}
	return nil, fmt.Errorf("LLM call failed: %w", lastErr)
}

func interpret(reply string) *Assessment {
	parsed, err := llm.ParseJSONObject(reply)
	if err != nil {
		a := Normalize(nil)
		a.Raw = reply
		return &a
	}
	a := Normalize(parsed)
	return &a
}
