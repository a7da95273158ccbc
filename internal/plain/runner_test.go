package plain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/prepquiz/internal/auth"
	"github.com/abhisek/prepquiz/internal/practice"
	"github.com/abhisek/prepquiz/internal/quiz"
	"github.com/abhisek/prepquiz/internal/session"
)

type stubSource struct {
	err error
}

func (s *stubSource) Questions(_ context.Context, req quiz.Request) ([]quiz.Question, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]quiz.Question, req.Count)
	for i := range out {
		out[i] = quiz.Question{
			Prompt:      fmt.Sprintf("What is %d + 1?", i),
			Options:     []string{"A", "B", "C", "D"},
			Answer:      "B",
			Explanation: "Always B.",
		}
	}
	return out, nil
}

type stubPoster struct {
	mu    sync.Mutex
	err   error
	posts []quiz.Result
}

func (p *stubPoster) SubmitResult(_ context.Context, r quiz.Result) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.posts = append(p.posts, r)
	return p.err
}

func (p *stubPoster) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.posts)
}

var learner = auth.New("u1", "Asha")

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newService(src *stubSource, p *stubPoster) *practice.Service {
	d := practice.Deps{Source: src, Logger: quiet()}
	if p != nil {
		d.Poster = p
	}
	return practice.NewService(d)
}

func TestRunManualSubmit(t *testing.T) {
	p := &stubPoster{}
	svc := newService(&stubSource{}, p)

	var script strings.Builder
	for i := 0; i < 20; i++ {
		if i < 12 {
			script.WriteString("b\n")
		} else {
			script.WriteString("1\n")
		}
	}
	script.WriteString("s\n")

	var out bytes.Buffer
	r := New(svc, strings.NewReader(script.String()), &out, WithLogger(quiet()))
	res, err := r.Run(context.Background(), learner, "Percentages", quiz.ModeEasy)
	require.NoError(t, err)

	assert.Equal(t, 12, res.Score)
	assert.Equal(t, 20, res.Total)
	assert.False(t, res.Auto)
	assert.Equal(t, 1, p.count())
	assert.Contains(t, out.String(), "Score: 12/20 (60%)")
	assert.Contains(t, out.String(), "correct:     B")
	assert.NotContains(t, out.String(), AutoSubmitNotice)
}

func TestRunTimerExpiryAutoSubmits(t *testing.T) {
	p := &stubPoster{}
	svc := newService(&stubSource{}, p)

	in, w := io.Pipe()
	defer w.Close()

	ticks := make(chan time.Time)
	done := make(chan struct{})
	go func() {
		budget := int(quiz.ModeEasy.TimeBudget() / time.Second)
		for i := 0; i < budget; i++ {
			select {
			case ticks <- time.Now():
			case <-done:
				return
			}
		}
	}()

	var out bytes.Buffer
	r := New(svc, in, &out, WithTicks(ticks), WithLogger(quiet()))
	res, err := r.Run(context.Background(), learner, "Percentages", quiz.ModeEasy)
	close(done)
	require.NoError(t, err)

	assert.True(t, res.Auto)
	assert.Equal(t, 0, res.Score)
	assert.Equal(t, 1, p.count())
	assert.Contains(t, out.String(), AutoSubmitNotice)
	assert.Contains(t, out.String(), "(not answered)")
}

func TestRunEndOfInputSubmits(t *testing.T) {
	p := &stubPoster{}
	svc := newService(&stubSource{}, p)

	var out bytes.Buffer
	r := New(svc, strings.NewReader("2\n2\n"), &out, WithLogger(quiet()))
	res, err := r.Run(context.Background(), learner, "Percentages", quiz.ModeEasy)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Score)
	assert.False(t, res.Auto)
}

func TestRunQuit(t *testing.T) {
	p := &stubPoster{}
	svc := newService(&stubSource{}, p)

	var out bytes.Buffer
	r := New(svc, strings.NewReader("1\nq\n"), &out, WithLogger(quiet()))
	res, err := r.Run(context.Background(), learner, "Percentages", quiz.ModeEasy)

	assert.ErrorIs(t, err, ErrQuit)
	assert.Nil(t, res)
	assert.Equal(t, 0, p.count())
}

func TestRunLoadFailure(t *testing.T) {
	svc := newService(&stubSource{err: errors.New("backend down")}, &stubPoster{})

	var out bytes.Buffer
	r := New(svc, strings.NewReader(""), &out, WithLogger(quiet()))
	_, err := r.Run(context.Background(), learner, "Percentages", quiz.ModeEasy)

	require.Error(t, err)
	assert.Contains(t, out.String(), "backend down")
}

func TestRunDeliveryFailureKeepsScore(t *testing.T) {
	p := &stubPoster{err: errors.New("connection reset")}
	svc := newService(&stubSource{}, p)

	var out bytes.Buffer
	r := New(svc, strings.NewReader("b\ns\n"), &out, WithLogger(quiet()))
	res, err := r.Run(context.Background(), learner, "Percentages", quiz.ModeEasy)

	require.NotNil(t, res)
	assert.True(t, session.IsDeliveryError(err))
	assert.Equal(t, 1, res.Score)
	assert.Contains(t, out.String(), "Result not delivered: connection reset")
}

func TestRunNavigation(t *testing.T) {
	svc := newService(&stubSource{}, nil)

	// Answer Q1 with B, move back to it and change to A, jump to Q5.
	var out bytes.Buffer
	r := New(svc, strings.NewReader("b\np\na\ng 5\nb\ng 99\nzz\ns\n"), &out, WithLogger(quiet()))
	res, err := r.Run(context.Background(), learner, "Percentages", quiz.ModeEasy)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Score)
	assert.Contains(t, out.String(), "Question 5/20")
	assert.Contains(t, out.String(), `No question "99"`)
	assert.Contains(t, out.String(), `Unknown command "zz"`)
	assert.Contains(t, out.String(), "Result saved locally.")
}

func TestParseChoice(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want int
		ok   bool
	}{
		{"1", 4, 0, true},
		{"4", 4, 3, true},
		{"5", 4, 0, false},
		{"a", 4, 0, true},
		{"d", 4, 3, true},
		{"e", 4, 0, false},
		{"10", 12, 9, true},
		{"0", 4, 0, false},
		{"x1", 4, 0, false},
	}
	for _, tt := range tests {
		got, ok := parseChoice(tt.in, tt.n)
		assert.Equal(t, tt.ok, ok, "parseChoice(%q, %d)", tt.in, tt.n)
		if tt.ok {
			assert.Equal(t, tt.want, got, "parseChoice(%q, %d)", tt.in, tt.n)
		}
	}
}
