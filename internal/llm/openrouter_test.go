package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenRouterSendsAppTitle(t *testing.T) {
	var title, model string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		title = r.Header.Get("X-Title")
		var body struct {
			Model string `json:"model"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		model = body.Model
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "gen-test",
			"object":  "chat.completion",
			"model":   body.Model,
			"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": validBatch}, "finish_reason": "stop"}},
		})
	}))
	t.Cleanup(server.Close)

	p, err := NewOpenRouterProvider(OpenRouterConfig{APIKey: "sk-or-test", Model: "openai/gpt-4o-mini", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	if _, err := p.Generate(context.Background(), questionRequest("Percentages")); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if title != "prepquiz" {
		t.Errorf("X-Title = %q, want prepquiz", title)
	}
	if model != "openai/gpt-4o-mini" {
		t.Errorf("model = %q, want the route unchanged", model)
	}
}

func TestNewOpenRouterProvider(t *testing.T) {
	t.Run("default model", func(t *testing.T) {
		p, err := NewOpenRouterProvider(OpenRouterConfig{
			APIKey: "sk-or-test",
			Model:  DefaultConfig().OpenRouter.Model,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.ModelID() != "google/gemini-2.0-flash-exp" {
			t.Errorf("model = %q", p.ModelID())
		}
	})

	t.Run("model ids pass through", func(t *testing.T) {
		// OpenRouter routes are vendor/model; the OpenAI friendly names do not apply.
		p, err := NewOpenRouterProvider(OpenRouterConfig{APIKey: "sk-or-test", Model: "anthropic/claude-3-haiku"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.ModelID() != "anthropic/claude-3-haiku" {
			t.Errorf("model = %q", p.ModelID())
		}
	})

	t.Run("custom base URL", func(t *testing.T) {
		p, err := NewOpenRouterProvider(OpenRouterConfig{
			APIKey:  "sk-or-test",
			Model:   "meta-llama/llama-3-8b",
			BaseURL: "https://router.internal.example/v1",
		})
		if err != nil || p == nil {
			t.Fatalf("provider = %v, err = %v", p, err)
		}
	})

	t.Run("missing key", func(t *testing.T) {
		if _, err := NewOpenRouterProvider(OpenRouterConfig{Model: "meta-llama/llama-3-8b"}); err == nil {
			t.Fatal("expected error for empty API key")
		}
	})

	t.Run("unpriced in stats", func(t *testing.T) {
		if LookupCost("google/gemini-2.0-flash-exp") != nil {
			t.Error("OpenRouter routes are not in the price table")
		}
	})
}
