package practice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/prepquiz/internal/auth"
	"github.com/abhisek/prepquiz/internal/gating"
	"github.com/abhisek/prepquiz/internal/quiz"
	"github.com/abhisek/prepquiz/internal/session"
	"github.com/abhisek/prepquiz/internal/store"
)

type bankSource struct {
	err error
}

func (b *bankSource) Questions(_ context.Context, req quiz.Request) ([]quiz.Question, error) {
	if b.err != nil {
		return nil, b.err
	}
	out := make([]quiz.Question, req.Count)
	for i := range out {
		out[i] = quiz.Question{
			Prompt:  fmt.Sprintf("Q%d", i),
			Options: []string{"A", "B", "C", "D"},
			Answer:  "B",
		}
	}
	return out, nil
}

type poster struct {
	mu    sync.Mutex
	err   error
	posts []quiz.Result
}

func (p *poster) SubmitResult(_ context.Context, r quiz.Result) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.posts = append(p.posts, r)
	return p.err
}

func (p *poster) setErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "practice.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newService(t *testing.T, st *store.Store, src session.QuestionSource, p session.ResultPoster) *Service {
	t.Helper()
	attempts := st.AttemptRepo()
	return NewService(Deps{
		Source:   src,
		Poster:   p,
		Gate:     gating.NewChecker(nil, attempts, quietLogger()),
		Attempts: attempts,
		Events:   st.EventRepo(),
		Logger:   quietLogger(),
	})
}

var learner = auth.New("u1", "Asha")

func actions(t *testing.T, st *store.Store, sessionID string) []string {
	t.Helper()
	evs, err := st.EventRepo().QuerySessionEvents(context.Background(), sessionID)
	require.NoError(t, err)
	var out []string
	for _, e := range evs {
		out = append(out, e.Action)
	}
	return out
}

func TestStartLoadFinish(t *testing.T) {
	st := openStore(t)
	p := &poster{}
	svc := newService(t, st, &bankSource{}, p)
	ctx := context.Background()

	sess, err := svc.Start(ctx, learner, "Percentages", quiz.ModeEasy)
	require.NoError(t, err)
	require.NoError(t, svc.Load(ctx, sess))
	require.Len(t, sess.Questions(), 20)

	for i := 0; i < 16; i++ {
		require.NoError(t, sess.Select(i, "B"))
	}
	res, err := svc.Finish(ctx, sess, false)
	require.NoError(t, err)
	assert.Equal(t, 16, res.Score)
	assert.True(t, res.Delivered)
	assert.Len(t, p.posts, 1)

	recs, err := st.AttemptRepo().QueryAttempts(ctx, store.AttemptFilter{UserID: "u1"}, store.QueryOpts{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 16, recs[0].Result.Score)
	assert.True(t, recs[0].Result.Delivered)

	assert.Equal(t, []string{ActionStart, ActionLoaded, ActionSubmitted}, actions(t, st, sess.ID))

	// Passing easy opens moderate.
	_, err = svc.Start(ctx, learner, "Percentages", quiz.ModeModerate)
	assert.NoError(t, err)
}

func TestStartLockedMode(t *testing.T) {
	st := openStore(t)
	svc := newService(t, st, &bankSource{}, nil)

	_, err := svc.Start(context.Background(), learner, "Percentages", quiz.ModeHard)
	assert.ErrorIs(t, err, gating.ErrLocked)
}

func TestStartWithoutUser(t *testing.T) {
	st := openStore(t)
	svc := newService(t, st, &bankSource{}, nil)

	_, err := svc.Start(context.Background(), auth.User{}, "Percentages", quiz.ModeEasy)
	assert.ErrorIs(t, err, auth.ErrNoUser)
}

func TestLoadFailureRecorded(t *testing.T) {
	st := openStore(t)
	src := &bankSource{err: errors.New("backend down")}
	svc := newService(t, st, src, nil)
	ctx := context.Background()

	sess, err := svc.Start(ctx, learner, "Percentages", quiz.ModeEasy)
	require.NoError(t, err)
	require.Error(t, svc.Load(ctx, sess))
	assert.Equal(t, session.StatusLoading, sess.Status())

	// Retry on the same session.
	src.err = nil
	require.NoError(t, svc.Load(ctx, sess))
	assert.Equal(t, []string{ActionStart, ActionLoadFailed, ActionLoaded}, actions(t, st, sess.ID))
}

// hangingSource answers only when the request context ends.
type hangingSource struct{}

func (hangingSource) Questions(ctx context.Context, _ quiz.Request) ([]quiz.Question, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestLoadTimeoutRecorded(t *testing.T) {
	st := openStore(t)
	svc := newService(t, st, hangingSource{}, nil)

	sess, err := svc.Start(context.Background(), learner, "Percentages", quiz.ModeEasy)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = svc.Load(ctx, sess)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, session.ErrStale)
	assert.Equal(t, session.StatusLoading, sess.Status())
	assert.Equal(t, []string{ActionStart, ActionLoadFailed}, actions(t, st, sess.ID))
}

func TestLoadAfterCloseNotRecorded(t *testing.T) {
	st := openStore(t)
	svc := newService(t, st, hangingSource{}, nil)
	ctx := context.Background()

	sess, err := svc.Start(ctx, learner, "Percentages", quiz.ModeEasy)
	require.NoError(t, err)

	errc := make(chan error, 1)
	go func() { errc <- svc.Load(ctx, sess) }()
	time.Sleep(10 * time.Millisecond)
	sess.Close()

	require.ErrorIs(t, <-errc, session.ErrStale)
	assert.Equal(t, []string{ActionStart}, actions(t, st, sess.ID))
}

func TestDeliveryFailureStoredAndResent(t *testing.T) {
	st := openStore(t)
	p := &poster{err: errors.New("connection refused")}
	svc := newService(t, st, &bankSource{}, p)
	ctx := context.Background()

	sess, err := svc.Start(ctx, learner, "Percentages", quiz.ModeEasy)
	require.NoError(t, err)
	require.NoError(t, svc.Load(ctx, sess))
	require.NoError(t, sess.Select(0, "B"))

	res, err := svc.Finish(ctx, sess, true)
	require.True(t, session.IsDeliveryError(err))
	require.NotNil(t, res)
	assert.Equal(t, 1, res.Score)
	assert.Equal(t, session.StatusCompleted, sess.Status())

	pending, err := st.AttemptRepo().QueryAttempts(ctx, store.AttemptFilter{UndeliveredOnly: true}, store.QueryOpts{})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.True(t, pending[0].Result.Auto)

	// Still failing: counted, left pending.
	rep, err := svc.Resend(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, ResendReport{Failed: 1, Errors: rep.Errors}, rep)

	p.setErr(nil)
	rep, err = svc.Resend(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Sent)

	pending, err = st.AttemptRepo().QueryAttempts(ctx, store.AttemptFilter{UndeliveredOnly: true}, store.QueryOpts{})
	require.NoError(t, err)
	assert.Empty(t, pending)

	// The resent result is the one computed at submit time.
	require.Len(t, p.posts, 3)
	assert.Equal(t, p.posts[0].Score, p.posts[2].Score)
	assert.Equal(t, p.posts[0].ElapsedSecs, p.posts[2].ElapsedSecs)

	assert.Equal(t, []string{ActionStart, ActionLoaded, ActionAutoSubmit, ActionUndelivered, ActionResent}, actions(t, st, sess.ID))
}

func TestResubmitFromSession(t *testing.T) {
	st := openStore(t)
	p := &poster{err: errors.New("timeout")}
	svc := newService(t, st, &bankSource{}, p)
	ctx := context.Background()

	sess, err := svc.Start(ctx, learner, "Percentages", quiz.ModeEasy)
	require.NoError(t, err)

	_, err = svc.Resubmit(ctx, sess)
	assert.ErrorIs(t, err, session.ErrNotInProgress)

	require.NoError(t, svc.Load(ctx, sess))
	require.NoError(t, sess.Select(1, "B"))
	first, err := svc.Finish(ctx, sess, false)
	require.True(t, session.IsDeliveryError(err))

	p.setErr(nil)
	again, err := svc.Resubmit(ctx, sess)
	require.NoError(t, err)
	assert.True(t, again.Delivered)
	assert.Equal(t, first.Score, again.Score)

	// Delivered for good: the lock stays engaged.
	_, err = svc.Resubmit(ctx, sess)
	assert.ErrorIs(t, err, session.ErrAlreadySubmitting)

	pending, err := st.AttemptRepo().QueryAttempts(ctx, store.AttemptFilter{UndeliveredOnly: true}, store.QueryOpts{})
	require.NoError(t, err)
	assert.Empty(t, pending)
	assert.Equal(t, []string{ActionStart, ActionLoaded, ActionSubmitted, ActionUndelivered, ActionResent}, actions(t, st, sess.ID))
}

func TestResendWithoutBackend(t *testing.T) {
	st := openStore(t)
	svc := newService(t, st, &bankSource{}, nil)

	_, err := svc.Resend(context.Background(), "u1")
	assert.Error(t, err)
	assert.False(t, svc.Delivers())
}

func TestLocalOnlyFinish(t *testing.T) {
	st := openStore(t)
	svc := newService(t, st, &bankSource{}, nil)
	ctx := context.Background()

	sess, err := svc.Start(ctx, learner, "Averages", quiz.ModeEasy)
	require.NoError(t, err)
	require.NoError(t, svc.Load(ctx, sess))

	res, err := svc.Finish(ctx, sess, false)
	require.NoError(t, err)
	assert.False(t, res.Delivered)
	assert.Equal(t, 0, res.Score)

	// A second Finish is rejected while the lock is held.
	_, err = svc.Finish(ctx, sess, false)
	assert.ErrorIs(t, err, session.ErrAlreadySubmitting)
}

func TestAbandon(t *testing.T) {
	st := openStore(t)
	svc := newService(t, st, &bankSource{}, nil)
	ctx := context.Background()

	sess, err := svc.Start(ctx, learner, "Averages", quiz.ModeEasy)
	require.NoError(t, err)
	require.NoError(t, svc.Load(ctx, sess))
	svc.Abandon(ctx, sess)

	assert.Equal(t, []string{ActionStart, ActionLoaded, ActionAbandoned}, actions(t, st, sess.ID))
	assert.ErrorIs(t, sess.Select(0, "A"), session.ErrNotInProgress)
}
