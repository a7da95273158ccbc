// Package source provides the question sources a test session loads from:
// the backend, an LLM, or the backend with an LLM fallback.
package source

import (
	"context"
	"log/slog"

	"github.com/abhisek/prepquiz/internal/api"
	"github.com/abhisek/prepquiz/internal/quiz"
)

// Source returns the questions for one test.
type Source interface {
	Questions(ctx context.Context, req quiz.Request) ([]quiz.Question, error)
}

// Fallback asks Primary first and Secondary only when Primary could not
// be reached at all. Backend-reported and malformed-response errors are
// returned as is.
type Fallback struct {
	Primary   Source
	Secondary Source
	Logger    *slog.Logger
}

func (f *Fallback) Questions(ctx context.Context, req quiz.Request) ([]quiz.Question, error) {
	qs, err := f.Primary.Questions(ctx, req)
	if err == nil || f.Secondary == nil || !api.IsTransport(err) || ctx.Err() != nil {
		return qs, err
	}
	logger := f.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("backend unreachable, generating questions locally", "topic", req.Topic, "mode", req.Mode, "error", err)
	return f.Secondary.Questions(ctx, req)
}
