package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/prepquiz/internal/quiz"
	"github.com/abhisek/prepquiz/internal/store"
)

type fakeRecorder struct {
	mu     sync.Mutex
	events []store.APIRequestEventData
}

func (f *fakeRecorder) AppendAPIRequest(_ context.Context, data store.APIRequestEventData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, data)
	return nil
}

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *fakeRecorder) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	rec := &fakeRecorder{}
	return NewClient(srv.URL+"/api", WithRecorder(rec)), rec
}

func TestQuestions(t *testing.T) {
	var got questionsRequest
	c, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/mcqs/test", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`[
			{"question":"10% of 50?","options":["5","10","15","20"],"answer":"5","explanation":"50/10"},
			{"question":"25% of 80?","options":["20","25","30","40"],"answer":"20","explanation":"80/4"}
		]`))
	})

	qs, err := c.Questions(context.Background(), quiz.Request{Topic: "Percentages", Mode: quiz.ModeEasy, Count: 2})
	require.NoError(t, err)
	require.Len(t, qs, 2)
	assert.Equal(t, "10% of 50?", qs[0].Prompt)
	assert.Equal(t, []string{"5", "10", "15", "20"}, qs[0].Options)
	assert.Equal(t, "5", qs[0].Answer)
	assert.Equal(t, "80/4", qs[1].Explanation)

	assert.Equal(t, questionsRequest{Topic: "Percentages", Count: 2, Difficulty: "easy"}, got)

	require.Len(t, rec.events, 1)
	assert.Equal(t, PathQuestions, rec.events[0].Endpoint)
	assert.Equal(t, http.StatusOK, rec.events[0].Status)
	assert.True(t, rec.events[0].Success)
}

func TestQuestionsPayloadShapes(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantLen   int
		wantErrAs string
	}{
		{"object without detail", 200, `{"questions":"soon"}`, 0, ""},
		{"null", 200, `null`, 0, ""},
		{"string", 200, `"nope"`, 0, ""},
		{"empty list", 200, `[]`, 0, ""},
		{"undecodable item kept as zero", 200, `[{"question":1},{"question":"ok","options":["a","b"],"answer":"a"}]`, 2, ""},
		{"detail on 2xx", 200, `{"detail":"topic not found"}`, 0, "backend"},
		{"detail on 404", 404, `{"detail":"topic not found"}`, 0, "backend"},
		{"plain 500", 500, `boom`, 0, "backend"},
		{"invalid json", 200, `[{"question":`, 0, "malformed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			qs, err := c.Questions(context.Background(), quiz.Request{Topic: "x", Mode: quiz.ModeEasy, Count: 20})
			switch tt.wantErrAs {
			case "backend":
				require.Error(t, err)
				assert.True(t, IsBackend(err), "want BackendError, got %T", err)
				assert.Empty(t, qs)
			case "malformed":
				require.Error(t, err)
				assert.True(t, IsMalformed(err), "want MalformedError, got %T", err)
				assert.Empty(t, qs)
			default:
				require.NoError(t, err)
				assert.Len(t, qs, tt.wantLen)
			}
		})
	}
}

func TestBackendErrorDetail(t *testing.T) {
	c, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":[{"msg":"field required"},{"msg":"count must be positive"}]}`))
	})

	_, err := c.Questions(context.Background(), quiz.Request{Topic: "x", Mode: quiz.ModeEasy})
	var be *BackendError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, http.StatusUnprocessableEntity, be.Status)
	assert.Equal(t, "field required; count must be positive", be.Detail)
	assert.Equal(t, "field required; count must be positive", Describe(err))

	require.Len(t, rec.events, 1)
	assert.False(t, rec.events[0].Success)
	assert.NotEmpty(t, rec.events[0].ErrorMessage)
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	rec := &fakeRecorder{}
	c := NewClient(url, WithRecorder(rec), WithTimeout(time.Second))
	_, err := c.Questions(context.Background(), quiz.Request{Topic: "x", Mode: quiz.ModeEasy})
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	assert.Contains(t, Describe(err), "Could not reach")
	require.Len(t, rec.events, 1)
	assert.Equal(t, 0, rec.events[0].Status)
}

func TestQuestionsCancelled(t *testing.T) {
	release := make(chan struct{})
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := c.Questions(ctx, quiz.Request{Topic: "x", Mode: quiz.ModeEasy})
		errc <- err
	}()
	cancel()

	select {
	case err := <-errc:
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("request was not cancelled")
	}
}

func TestSubmitResult(t *testing.T) {
	var got map[string]any
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/test/submit", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"message":"ok"}`))
	})

	err := c.SubmitResult(context.Background(), quiz.Result{
		UserID: "u1", Topic: "Percentages", Mode: quiz.ModeEasy,
		Score: 14, Total: 20, ElapsedSecs: 321,
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"user_id":    "u1",
		"topic":      "Percentages",
		"mode":       "easy",
		"score":      float64(14),
		"total":      float64(20),
		"time_taken": float64(321),
	}, got)
}

func TestModeStatusAndBestScore(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req modeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "u1", req.UserID)
		switch r.URL.Path {
		case "/api/test/mode-status":
			_, _ = w.Write([]byte(`{"unlocked": ` + map[bool]string{true: "true", false: "false"}[req.Mode == "moderate"] + `}`))
		case "/api/test/best-score":
			if req.Mode == "easy" {
				_, _ = w.Write([]byte(`{"best_score": 17}`))
				return
			}
			_, _ = w.Write([]byte(`{"best_score": null}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	unlocked, err := c.ModeStatus(ctx, "u1", "Percentages", quiz.ModeModerate)
	require.NoError(t, err)
	assert.True(t, unlocked)

	unlocked, err = c.ModeStatus(ctx, "u1", "Percentages", quiz.ModeHard)
	require.NoError(t, err)
	assert.False(t, unlocked)

	best, ok, err := c.BestScore(ctx, "u1", "Percentages", quiz.ModeEasy)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 17, best)

	_, ok, err = c.BestScore(ctx, "u1", "Percentages", quiz.ModeHard)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestModeStatusMissingField(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	_, err := c.ModeStatus(context.Background(), "u1", "x", quiz.ModeHard)
	assert.True(t, IsMalformed(err))
}

func TestDefaultBaseURL(t *testing.T) {
	assert.Equal(t, DefaultBaseURL, NewClient("").BaseURL())
	assert.Equal(t, "http://example.com/api", NewClient("http://example.com/api/").BaseURL())
}
