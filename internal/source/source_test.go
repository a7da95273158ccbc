package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/abhisek/prepquiz/internal/api"
	"github.com/abhisek/prepquiz/internal/llm"
	"github.com/abhisek/prepquiz/internal/quiz"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func batchJSON(start, n int) json.RawMessage {
	var items []string
	for i := start; i < start+n; i++ {
		items = append(items, fmt.Sprintf(
			`{"question":"What is %d%% of 200?","options":["%d","%d","%d","%d"],"answer":"%d","explanation":"%d/100 * 200"}`,
			i, i*2, i*2+1, i*2+2, i*2+3, i*2, i))
	}
	return json.RawMessage(`{"questions":[` + strings.Join(items, ",") + `]}`)
}

func TestLLMSingleBatch(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: batchJSON(1, 5)})
	src := NewLLM(mock, DefaultLLMConfig(), quietLogger())

	qs, err := src.Questions(context.Background(), quiz.Request{Topic: "Percentages", Mode: quiz.ModeEasy, Count: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(qs) != 5 {
		t.Fatalf("got %d questions, want 5", len(qs))
	}
	if qs[0].Prompt != "What is 1% of 200?" || qs[0].Answer != "2" {
		t.Errorf("first question = %+v", qs[0])
	}
	if mock.CallCount() != 1 {
		t.Errorf("expected 1 call, got %d", mock.CallCount())
	}

	call := mock.Calls[0]
	if call.Schema != BatchSchema {
		t.Error("expected batch schema on request")
	}
	msg := call.Messages[0].Content
	if !strings.Contains(msg, "Topic: Percentages") || !strings.Contains(msg, "Number of questions: 5") {
		t.Errorf("unexpected user message:\n%s", msg)
	}
}

func TestLLMMultipleBatchesDedup(t *testing.T) {
	cfg := DefaultLLMConfig()
	cfg.BatchSize = 4
	mock := llm.NewMockProvider(
		llm.MockResponse{Content: batchJSON(1, 4)},
		// Two repeats and two new ones.
		llm.MockResponse{Content: batchJSON(3, 4)},
		llm.MockResponse{Content: batchJSON(7, 4)},
	)
	src := NewLLM(mock, cfg, quietLogger())

	qs, err := src.Questions(context.Background(), quiz.Request{Topic: "Percentages", Mode: quiz.ModeEasy, Count: 8})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(qs) != 8 {
		t.Fatalf("got %d questions, want 8", len(qs))
	}
	seen := map[string]bool{}
	for _, q := range qs {
		if seen[q.Prompt] {
			t.Errorf("duplicate prompt %q", q.Prompt)
		}
		seen[q.Prompt] = true
	}
	if mock.CallCount() != 3 {
		t.Errorf("expected 3 calls, got %d", mock.CallCount())
	}
	// Later batches list what was already asked.
	if !strings.Contains(mock.Calls[1].Messages[0].Content, "1. What is 1% of 200?") {
		t.Errorf("second prompt missing dedup list:\n%s", mock.Calls[1].Messages[0].Content)
	}
}

func TestLLMDropsInvalidItems(t *testing.T) {
	content := json.RawMessage(`{"questions":[
		{"question":"Good?","options":["a","b"],"answer":"a","explanation":""},
		{"question":"Bad answer","options":["a","b"],"answer":"c","explanation":""}
	]}`)
	mock := llm.NewMockProvider(llm.MockResponse{Content: content})
	cfg := DefaultLLMConfig()
	cfg.ExtraCalls = 0
	src := NewLLM(mock, cfg, quietLogger())

	qs, err := src.Questions(context.Background(), quiz.Request{Topic: "T", Mode: quiz.ModeEasy, Count: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(qs) != 1 || qs[0].Prompt != "Good?" {
		t.Errorf("got %+v, want only the valid question", qs)
	}
}

func TestLLMAllFail(t *testing.T) {
	boom := errors.New("boom")
	mock := llm.NewMockProvider(llm.MockResponse{Err: boom})
	cfg := DefaultLLMConfig()
	cfg.ExtraCalls = 0
	src := NewLLM(mock, cfg, quietLogger())

	_, err := src.Questions(context.Background(), quiz.Request{Topic: "T", Mode: quiz.ModeEasy, Count: 3})
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("expected cause to be wrapped, got %v", err)
	}
}

func TestLLMShrinksBatchOnTruncation(t *testing.T) {
	cfg := DefaultLLMConfig()
	cfg.BatchSize = 4
	mock := llm.NewMockProvider(
		llm.MockResponse{Err: &llm.ErrMaxTokensExceeded{}},
		llm.MockResponse{Content: batchJSON(1, 2)},
		llm.MockResponse{Content: batchJSON(3, 2)},
	)
	src := NewLLM(mock, cfg, quietLogger())

	qs, err := src.Questions(context.Background(), quiz.Request{Topic: "T", Mode: quiz.ModeEasy, Count: 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(qs) != 4 {
		t.Fatalf("got %d questions, want 4", len(qs))
	}
	if !strings.Contains(mock.Calls[1].Messages[0].Content, "Number of questions: 2") {
		t.Errorf("batch did not shrink:\n%s", mock.Calls[1].Messages[0].Content)
	}
}

type stubSource struct {
	qs    []quiz.Question
	err   error
	calls int
}

func (s *stubSource) Questions(context.Context, quiz.Request) ([]quiz.Question, error) {
	s.calls++
	return s.qs, s.err
}

func TestFallback(t *testing.T) {
	local := []quiz.Question{{Prompt: "p", Options: []string{"a", "b"}, Answer: "a"}}

	tests := []struct {
		name          string
		primaryErr    error
		wantSecondary bool
	}{
		{"primary ok", nil, false},
		{"transport error falls back", &api.TransportError{Op: "questions", Err: errors.New("refused")}, true},
		{"backend error is returned", &api.BackendError{Op: "questions", Status: 404, Detail: "no such topic"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			primary := &stubSource{err: tt.primaryErr}
			secondary := &stubSource{qs: local}
			f := &Fallback{Primary: primary, Secondary: secondary, Logger: quietLogger()}

			qs, err := f.Questions(context.Background(), quiz.Request{Topic: "T"})
			if tt.wantSecondary {
				if err != nil || len(qs) != 1 || secondary.calls != 1 {
					t.Errorf("expected fallback result, got %v, %v (calls %d)", qs, err, secondary.calls)
				}
				return
			}
			if secondary.calls != 0 {
				t.Error("secondary should not be called")
			}
			if !errors.Is(err, tt.primaryErr) && err != tt.primaryErr {
				t.Errorf("err = %v, want %v", err, tt.primaryErr)
			}
		})
	}
}
