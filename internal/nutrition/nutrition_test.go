package nutrition

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"nutriscan/internal/llm"
	"nutriscan/internal/product"
)

type fakeLLM struct {
	replies []string
	errs    []error
	calls   int
	lastReq llm.Request
}

func (f *fakeLLM) Name() string { return "fake" }

func (f *fakeLLM) Complete(ctx context.Context, req llm.Request) (string, error) {
	i := f.calls
	f.calls++
	f.lastReq = req
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.replies) {
		return f.replies[i], nil
	}
	return f.replies[len(f.replies)-1], nil
}

type staticKnowledge string

func (s staticKnowledge) Text() string { return string(s) }

func newTestAnalyzer(client llm.Client, k KnowledgeSource) *Analyzer {
	a := NewAnalyzer(client, k)
	a.backoff = func(int) time.Duration { return 0 }
	return a
}

var testProduct = &product.Product{
	ProductName: "Oat Bar",
	Nutriments:  map[string]any{"sugars_100g": 25.0, "fiber_100g": 8.0},
}

var testProfile = Profile{Age: 30, WeightKg: 70, HeightCm: 175, BMI: 22.86, Goal: "Weight loss"}

func TestAnalyzeParsesJSON(t *testing.T) {
	client := &fakeLLM{replies: []string{`{"advisability":"Yes","pros":["High fiber"],"cons":"Sugary","summary":"Fine in moderation."}`}}
	a := newTestAnalyzer(client, staticKnowledge("Eat whole grains."))

	got, err := a.Analyze(context.Background(), testProfile, testProduct)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got.Advisability != "Yes" || len(got.Pros) != 1 || len(got.Cons) != 1 || got.Cons[0] != "Sugary" {
		t.Fatalf("assessment = %+v", got)
	}
	if client.lastReq.MaxTokens != 400 || client.lastReq.Temperature != 0.2 {
		t.Errorf("request params = %+v", client.lastReq)
	}
	if !strings.Contains(client.lastReq.User, "Eat whole grains.") {
		t.Error("knowledge missing from prompt")
	}
}

func TestAnalyzeRetriesThenSucceeds(t *testing.T) {
	client := &fakeLLM{
		errs:    []error{errors.New("503"), errors.New("timeout")},
		replies: []string{"", "", `{"recommendation":"No","benefits":[],"drawbacks":["salt"],"explanation":"Too salty"}`},
	}
	a := newTestAnalyzer(client, nil)

	got, err := a.Analyze(context.Background(), testProfile, testProduct)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if client.calls != 3 {
		t.Fatalf("calls = %d, want 3", client.calls)
	}
	if got.Advisability != "No" || got.Summary != "Too salty" || len(got.Pros) != 0 || got.Cons[0] != "salt" {
		t.Fatalf("aliases not normalised: %+v", got)
	}
}

func TestAnalyzeFailsAfterRetries(t *testing.T) {
	boom := errors.New("upstream down")
	client := &fakeLLM{errs: []error{boom, boom, boom, boom}, replies: []string{""}}
	a := newTestAnalyzer(client, nil)

	_, err := a.Analyze(context.Background(), testProfile, testProduct)
	if !errors.Is(err, boom) || !strings.HasPrefix(err.Error(), "LLM call failed: ") {
		t.Fatalf("err = %v", err)
	}
	if client.calls != MaxRetries+1 {
		t.Fatalf("calls = %d, want %d", client.calls, MaxRetries+1)
	}
}

func TestAnalyzeKeepsRawReply(t *testing.T) {
	client := &fakeLLM{replies: []string{"I think it is fine."}}
	got, err := newTestAnalyzer(client, nil).Analyze(context.Background(), testProfile, testProduct)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got.Raw != "I think it is fine." || got.Advisability != UnknownAdvisability || got.Summary != NoSummary {
		t.Fatalf("assessment = %+v", got)
	}
	if got.Pros == nil || got.Cons == nil {
		t.Fatal("pros/cons must be empty lists, not nil")
	}
}

func TestBuildPrompt(t *testing.T) {
	long := strings.Repeat("word ", KnowledgeWordLimit+50)
	system, user := BuildPrompt(Profile{}, testProduct, long)

	if !strings.Contains(system, "---EXAMPLE---") || !strings.Contains(system, `"advisability": "With Caution"`) {
		t.Error("system message lacks the worked example")
	}
	for _, want := range []string{
		"- Age: Not provided",
		"- Health Conditions: None",
		"- Goal: General health",
		"- Name: Oat Bar",
		"- Fiber 100g: 8",
		"- Sugars 100g: 25",
	} {
		if !strings.Contains(user, want) {
			t.Errorf("user prompt missing %q", want)
		}
	}
	if n := strings.Count(user, "word"); n != KnowledgeWordLimit {
		t.Errorf("knowledge words = %d, want %d", n, KnowledgeWordLimit)
	}
}
