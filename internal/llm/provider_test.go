package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func questionRequest(topic string) Request {
	return Request{
		System:    "You write aptitude test questions.",
		Messages:  []Message{{Role: RoleUser, Content: "Topic: " + topic + "\nNumber of questions: 1"}},
		Schema:    mcqBatch(),
		MaxTokens: 4096,
	}
}

func TestMockReplaysBatchesInOrder(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(validBatch), Usage: Usage{InputTokens: 180, OutputTokens: 95, TotalTokens: 275}},
		MockResponse{Content: json.RawMessage(`{"questions":[]}`)},
	)
	ctx := WithPurpose(context.Background(), PurposeQuestions)

	first, err := mock.Generate(ctx, questionRequest("Percentages"))
	if err != nil {
		t.Fatalf("first batch: %v", err)
	}
	if string(first.Content) != validBatch {
		t.Fatalf("first batch = %s", first.Content)
	}
	if first.Usage.TotalTokens != 275 || first.StopReason != "end" || first.Model != "mock" {
		t.Errorf("first response = %+v", first)
	}

	second, err := mock.Generate(ctx, questionRequest("Ratios"))
	if err != nil {
		t.Fatalf("second batch: %v", err)
	}
	if string(second.Content) != `{"questions":[]}` {
		t.Errorf("second batch = %s", second.Content)
	}
}

func TestMockKeepsRequests(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: json.RawMessage(validBatch)})
	_, _ = mock.Generate(context.Background(), questionRequest("Time and Work"))
	_, _ = mock.Generate(context.Background(), questionRequest("Averages"))

	if mock.CallCount() != 2 {
		t.Fatalf("calls = %d, want 2", mock.CallCount())
	}
	if got := mock.Calls[1].Messages[0].Content; got != "Topic: Averages\nNumber of questions: 1" {
		t.Errorf("second request message = %q", got)
	}
	if mock.Calls[0].Schema == nil || mock.Calls[0].Schema.Name != "test-mcq-batch" {
		t.Error("request schema should be recorded")
	}
}

func TestMockExhaustedIsUnavailable(t *testing.T) {
	mock := NewMockProvider()
	_, err := mock.Generate(context.Background(), questionRequest("Percentages"))
	var unavail *ErrProviderUnavailable
	if !errors.As(err, &unavail) {
		t.Fatalf("err = %v, want ErrProviderUnavailable", err)
	}
	if mock.ModelID() != "mock" {
		t.Errorf("ModelID = %q", mock.ModelID())
	}
}

func TestMockReturnsQueuedError(t *testing.T) {
	mock := NewMockProvider(MockResponse{Err: &ErrMaxTokensExceeded{Content: json.RawMessage(`{"questions":[{"quest`)}})
	_, err := mock.Generate(context.Background(), questionRequest("Percentages"))
	var mt *ErrMaxTokensExceeded
	if !errors.As(err, &mt) {
		t.Fatalf("err = %v, want ErrMaxTokensExceeded", err)
	}
}

func TestPurposeLabels(t *testing.T) {
	if p := PurposeFrom(context.Background()); p != purposeUnlabeled {
		t.Errorf("bare context purpose = %q, want %q", p, purposeUnlabeled)
	}
	if p := PurposeFrom(WithPurpose(context.Background(), "")); p != purposeUnlabeled {
		t.Errorf("empty purpose = %q, want %q", p, purposeUnlabeled)
	}

	ctx := WithPurpose(context.Background(), PurposeQuestions)
	if p := PurposeFrom(ctx); p != "questions" {
		t.Errorf("purpose = %q, want questions", p)
	}
	if p := PurposeFrom(WithPurpose(ctx, PurposeHealthCheck)); p != "health-check" {
		t.Errorf("inner label should win, got %q", p)
	}
}

func TestLookupCostDefaults(t *testing.T) {
	// Every friendly default must resolve to a priced model.
	for _, m := range []struct {
		name   string
		models map[string]string
	}{
		{"claude-haiku", anthropicModels},
		{"claude-sonnet", anthropicModels},
		{"gpt-4o-mini", openaiModels},
		{"gemini-flash", geminiModels},
	} {
		id := resolveModel(m.name, m.models)
		if LookupCost(id) == nil {
			t.Errorf("%s resolves to %s, which has no price", m.name, id)
		}
	}
	if LookupCost("meta-llama/llama-3-8b") != nil {
		t.Error("unpriced model should return nil")
	}
}

func TestModelCost(t *testing.T) {
	c := LookupCost("claude-haiku-4-5-20251001")
	// 20 questions is roughly 2k tokens in and 4k out.
	if got := c.Cost(2000, 4000); got != 0.022 {
		t.Errorf("cost = %v, want 0.022", got)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"anthropic without key", Config{Provider: "anthropic"}, true},
		{"anthropic with key", Config{Provider: "anthropic", Anthropic: AnthropicConfig{APIKey: "sk-ant"}}, false},
		{"openai without key", Config{Provider: "openai"}, true},
		{"openai with key", Config{Provider: "openai", OpenAI: OpenAIConfig{APIKey: "sk-oai"}}, false},
		{"gemini without key", Config{Provider: "gemini"}, true},
		{"gemini with key", Config{Provider: "gemini", Gemini: GeminiConfig{APIKey: "gm"}}, false},
		{"openrouter without key", Config{Provider: "openrouter"}, true},
		{"mock needs no key", Config{Provider: "mock"}, false},
		{"empty provider", Config{}, true},
		{"unknown provider", Config{Provider: "carrier-pigeon"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDiscoverConfigOrder(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "sk-oai")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("OPENROUTER_API_KEY", "")

	cfg, ok := DiscoverConfig()
	if !ok || cfg.Provider != "openai" || cfg.OpenAI.APIKey != "sk-oai" {
		t.Fatalf("discovered %+v, %v; want openai", cfg.Provider, ok)
	}

	t.Setenv("GEMINI_API_KEY", "gm")
	if cfg, _ := DiscoverConfig(); cfg.Provider != "gemini" {
		t.Errorf("gemini key should take priority, got %s", cfg.Provider)
	}
}
