package mockbackend

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/prepquiz/internal/api"
	"github.com/abhisek/prepquiz/internal/auth"
	"github.com/abhisek/prepquiz/internal/gating"
	"github.com/abhisek/prepquiz/internal/quiz"
	"github.com/abhisek/prepquiz/internal/session"
)

func newTestServer(t *testing.T) (*Server, *api.Client) {
	t.Helper()
	bank, err := DefaultBank()
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := NewServer(bank, logger)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	return srv, api.NewClient(ts.URL+"/api", api.WithLogger(logger))
}

func TestDefaultBankParses(t *testing.T) {
	bank, err := DefaultBank()
	require.NoError(t, err)
	assert.Contains(t, bank.Topics(), "Percentages")
	assert.True(t, bank.Has("percentages"))
}

func TestParseBankRejectsBadAnswer(t *testing.T) {
	_, err := ParseBank([]byte(`
topics:
  - name: T
    easy:
      - question: Q
        options: ["a", "b"]
        answer: "c"
        explanation: ""
`))
	assert.Error(t, err)
}

func TestPickCycles(t *testing.T) {
	bank, err := DefaultBank()
	require.NoError(t, err)

	qs := bank.Pick("Percentages", quiz.ModeEasy, 20, 0)
	require.Len(t, qs, 20)
	assert.Equal(t, qs[0].Prompt, qs[6].Prompt, "six easy questions repeat every six")

	// Topics without a pool for the mode fall back to everything.
	assert.Len(t, bank.Pick("Blood Relations", quiz.ModeHard, 5, 0), 5)
	assert.Nil(t, bank.Pick("Astrology", quiz.ModeEasy, 5, 0))
}

func TestQuestionsEndpoint(t *testing.T) {
	_, client := newTestServer(t)

	qs, err := client.Questions(context.Background(), quiz.Request{Topic: "Percentages", Mode: quiz.ModeEasy, Count: 20})
	require.NoError(t, err)
	assert.Len(t, qs, 20)
	for _, q := range qs {
		assert.NoError(t, q.Validate())
	}
}

func TestQuestionsUnknownTopic(t *testing.T) {
	_, client := newTestServer(t)

	_, err := client.Questions(context.Background(), quiz.Request{Topic: "Astrology", Mode: quiz.ModeEasy, Count: 20})
	require.Error(t, err)
	assert.True(t, api.IsBackend(err))
	assert.Contains(t, err.Error(), "No questions found")
}

func TestSubmitAndGating(t *testing.T) {
	srv, client := newTestServer(t)
	ctx := context.Background()

	unlocked, err := client.ModeStatus(ctx, "u1", "Percentages", quiz.ModeModerate)
	require.NoError(t, err)
	assert.False(t, unlocked)

	_, ok, err := client.BestScore(ctx, "u1", "Percentages", quiz.ModeEasy)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, client.SubmitResult(ctx, quiz.Result{UserID: "u1", Topic: "Percentages", Mode: quiz.ModeEasy, Score: 16, Total: 20, ElapsedSecs: 300}))

	best, ok, err := client.BestScore(ctx, "u1", "Percentages", quiz.ModeEasy)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 16, best)

	unlocked, err = client.ModeStatus(ctx, "u1", "Percentages", quiz.ModeModerate)
	require.NoError(t, err)
	assert.True(t, unlocked)

	require.Len(t, srv.Submissions(), 1)
	assert.Equal(t, 300, srv.Submissions()[0].TimeTaken)

	checker := gating.NewChecker(client, nil, nil)
	levels, err := checker.Levels(ctx, "u1", "Percentages")
	require.NoError(t, err)
	assert.Equal(t, gating.SourceRemote, levels[0].Source)
	assert.True(t, levels[1].Unlocked)
	assert.False(t, levels[2].Unlocked)
}

func TestSubmitValidation(t *testing.T) {
	_, client := newTestServer(t)

	err := client.SubmitResult(context.Background(), quiz.Result{UserID: "u1", Topic: "Percentages", Mode: quiz.ModeEasy, Score: 25, Total: 20})
	require.Error(t, err)
	assert.True(t, api.IsBackend(err))
}

func TestHealth(t *testing.T) {
	_, client := newTestServer(t)
	assert.NoError(t, client.Health(context.Background()))
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/mcqs/test", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMalformedBody(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/mcqs/test", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "detail")
}

// A full test against the mock backend: fetch, answer, submit.
func TestSessionEndToEnd(t *testing.T) {
	srv, client := newTestServer(t)
	ctx := context.Background()

	sess, err := session.New(session.Params{User: auth.New("u1", ""), Topic: "Percentages", Mode: quiz.ModeEasy})
	require.NoError(t, err)
	defer sess.Close()

	require.NoError(t, sess.Load(ctx, client))
	qs := sess.Questions()
	require.Len(t, qs, 20)
	for i := 0; i < 10; i++ {
		require.NoError(t, sess.Select(i, qs[i].Answer))
	}

	res, err := sess.Submit(ctx, client, false)
	require.NoError(t, err)
	assert.Equal(t, 10, res.Score)
	assert.True(t, res.Delivered)

	subs := srv.Submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, 10, subs[0].Score)
	assert.Equal(t, 20, subs[0].Total)
}
