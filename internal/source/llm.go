package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/abhisek/prepquiz/internal/llm"
	"github.com/abhisek/prepquiz/internal/quiz"
)

// ErrGenerationFailed is returned when no batch produced a usable question.
var ErrGenerationFailed = errors.New("question generation failed")

// LLMConfig controls the behavior of the LLM source.
type LLMConfig struct {
	// BatchSize is how many questions one LLM call asks for.
	BatchSize int

	// MaxTokens is the token budget for one batch response.
	MaxTokens int

	// Temperature controls LLM output randomness (0.0-1.0).
	Temperature float64

	// MaxPriorQuestions caps the prompts listed for deduplication.
	MaxPriorQuestions int

	// ExtraCalls is how many calls beyond the minimum may be spent
	// replacing dropped or duplicate questions.
	ExtraCalls int
}

// DefaultLLMConfig returns recommended defaults.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		BatchSize:         10,
		MaxTokens:         4096,
		Temperature:       0.7,
		MaxPriorQuestions: 30,
		ExtraCalls:        2,
	}
}

// LLM generates questions with an LLM provider.
type LLM struct {
	provider llm.Provider
	config   LLMConfig
	logger   *slog.Logger
}

// NewLLM creates an LLM source.
func NewLLM(provider llm.Provider, cfg LLMConfig, logger *slog.Logger) *LLM {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultLLMConfig().BatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LLM{provider: provider, config: cfg, logger: logger}
}

type batchOutput struct {
	Questions []quiz.Question `json:"questions"`
}

// Questions asks the provider for batches until req.Count valid, distinct
// questions are collected or the call budget runs out. A short result is
// returned without error; an empty one is an error.
func (g *LLM) Questions(ctx context.Context, req quiz.Request) ([]quiz.Question, error) {
	ctx = llm.WithPurpose(ctx, llm.PurposeQuestions)

	want := req.Count
	if want <= 0 {
		want = req.Mode.QuestionCount()
	}
	batch := min(g.config.BatchSize, want)
	calls := (want+batch-1)/batch + g.config.ExtraCalls

	var (
		out     []quiz.Question
		prompts []string
		seen    = make(map[string]bool)
		lastErr error
	)

	for i := 0; i < calls && len(out) < want; i++ {
		n := min(batch, want-len(out))
		items, err := g.generateBatch(ctx, req, n, prompts)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			var mt *llm.ErrMaxTokensExceeded
			if errors.As(err, &mt) && batch > 1 {
				batch = max(1, batch/2)
				g.logger.Debug("batch truncated, shrinking", "batch", batch)
			}
			lastErr = err
			g.logger.Warn("question batch failed", "topic", req.Topic, "error", err)
			continue
		}

		kept, dropped := quiz.Sanitize(items, 0)
		if dropped > 0 {
			g.logger.Info("dropped invalid generated questions", "dropped", dropped)
		}
		for _, q := range kept {
			key := strings.ToLower(strings.TrimSpace(q.Prompt))
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, q)
			prompts = append(prompts, q.Prompt)
		}
	}

	if len(out) == 0 {
		if lastErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, lastErr)
		}
		return nil, ErrGenerationFailed
	}
	if len(out) > want {
		out = out[:want]
	}
	return out, nil
}

func (g *LLM) generateBatch(ctx context.Context, req quiz.Request, n int, prior []string) ([]quiz.Question, error) {
	resp, err := g.provider.Generate(ctx, llm.Request{
		System: systemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildUserMessage(req, n, prior, g.config.MaxPriorQuestions)},
		},
		Schema:      BatchSchema,
		MaxTokens:   g.config.MaxTokens,
		Temperature: g.config.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM generation failed: %w", err)
	}

	var raw batchOutput
	if err := json.Unmarshal(resp.Content, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse LLM response: %w", err)
	}
	return raw.Questions, nil
}
