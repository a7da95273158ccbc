// Package session runs one timed test: load questions, collect answers,
// count down, submit once, and produce a read-only review.
package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/prepquiz/internal/auth"
	"github.com/abhisek/prepquiz/internal/quiz"
)

// Status is the session's phase. It only moves forward.
type Status int

const (
	StatusLoading    Status = iota // Waiting for questions
	StatusInProgress               // Accepting answers, timer running
	StatusSubmitting               // Scored, result being posted
	StatusCompleted                // Read-only review
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusInProgress:
		return "in-progress"
	case StatusSubmitting:
		return "submitting"
	case StatusCompleted:
		return "completed"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// QuestionSource supplies the questions of one test.
type QuestionSource interface {
	Questions(ctx context.Context, req quiz.Request) ([]quiz.Question, error)
}

// ResultPoster delivers a scored result.
type ResultPoster interface {
	SubmitResult(ctx context.Context, r quiz.Result) error
}

// Params configures a new Session. Zero Count and Budget select the
// mode's defaults.
type Params struct {
	User   auth.User
	Topic  string
	Mode   quiz.Mode
	Count  int
	Budget time.Duration
	Grader quiz.Grader

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Session is one attempt at a (topic, mode) test. Changing either
// parameter means creating a new Session.
type Session struct {
	ID    string
	User  auth.User
	Topic string
	Mode  quiz.Mode
	Count int

	grade quiz.Grader
	now   func() time.Time

	// ctx lives as long as the session; Close cancels it.
	ctx    context.Context
	cancel context.CancelFunc

	loading    atomic.Bool
	submitting atomic.Bool

	mu        sync.Mutex
	status    Status
	questions []quiz.Question
	answers   *AnswerStore
	timer     *Timer
	startedAt time.Time
	dropped   int
	result    *quiz.Result
	review    []ReviewItem
}

// New creates a loading session. It fails with ErrNoUser when p.User is
// empty.
func New(p Params) (*Session, error) {
	if err := p.User.Require(); err != nil {
		return nil, err
	}
	count := p.Count
	if count <= 0 {
		count = p.Mode.QuestionCount()
	}
	budget := p.Budget
	if budget <= 0 {
		budget = p.Mode.TimeBudget()
	}
	grade := p.Grader
	if grade == nil {
		grade = quiz.ExactMatch
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		ID:     uuid.New().String(),
		User:   p.User,
		Topic:  p.Topic,
		Mode:   p.Mode,
		Count:  count,
		grade:  grade,
		now:    now,
		ctx:    ctx,
		cancel: cancel,
		status: StatusLoading,
		timer:  NewTimer(budget),
	}, nil
}

// Request returns the question request this session issues.
func (s *Session) Request() quiz.Request {
	return quiz.Request{Topic: s.Topic, Mode: s.Mode, Count: s.Count}
}

// Load fetches questions from src and starts the test.
//
// Closing the session cancels the request and Load returns ErrStale with
// no state change. A ctx deadline or cancellation is an ordinary failure
// wrapping ctx.Err(). Any failure leaves the session loading so Load may
// be called again.
func (s *Session) Load(ctx context.Context, src QuestionSource) error {
	if !s.loading.CompareAndSwap(false, true) {
		return ErrLoadInFlight
	}
	defer s.loading.Store(false)

	if s.Status() != StatusLoading {
		return ErrAlreadyLoaded
	}

	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	items, err := src.Questions(reqCtx, s.Request())
	if s.ctx.Err() != nil {
		return ErrStale
	}
	if ctx.Err() != nil {
		return fmt.Errorf("load questions: %w", ctx.Err())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Closed while we were waiting on the lock.
	if s.ctx.Err() != nil {
		return ErrStale
	}
	if err != nil {
		return fmt.Errorf("load questions: %w", err)
	}

	questions, dropped := quiz.Sanitize(items, s.Count)
	s.dropped = dropped
	if len(questions) == 0 {
		return ErrNoQuestions
	}

	s.questions = questions
	s.answers = NewAnswerStore(len(questions))
	s.startedAt = s.now()
	s.status = StatusInProgress
	s.timer.Start()
	return nil
}

// Select records opt as the answer to question i.
func (s *Session) Select(i int, opt string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusInProgress || s.ctx.Err() != nil {
		return ErrNotInProgress
	}
	if i < 0 || i >= len(s.questions) {
		return fmt.Errorf("%w: question %d of %d", ErrInvalidSelection, i, len(s.questions))
	}
	if !s.questions[i].HasOption(opt) {
		return fmt.Errorf("%w: %q is not an option of question %d", ErrInvalidSelection, opt, i)
	}
	return s.answers.Select(i, opt)
}

// SelectIndex records the option at position opt for question i.
func (s *Session) SelectIndex(i, opt int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusInProgress || s.ctx.Err() != nil {
		return ErrNotInProgress
	}
	if i < 0 || i >= len(s.questions) || opt < 0 || opt >= len(s.questions[i].Options) {
		return fmt.Errorf("%w: option %d of question %d", ErrInvalidSelection, opt, i)
	}
	return s.answers.Select(i, s.questions[i].Options[opt])
}

// Tick advances the countdown by one second. It reports true exactly
// once, when the time budget is used up; the caller then submits with
// auto set.
func (s *Session) Tick() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusInProgress {
		return false
	}
	return s.timer.Tick()
}

// Submit scores the answers and posts the result through poster.
//
// Only one Submit runs at a time; others return ErrAlreadySubmitting.
// The answers are graded from a snapshot taken before the post, so late
// selections cannot change the score. A failed post still completes the
// session and returns the result with a *DeliveryError; the lock is then
// released so a later Submit re-posts the same result without regrading.
// After a successful post the lock stays engaged for good. A nil poster
// completes the session without delivery.
func (s *Session) Submit(ctx context.Context, poster ResultPoster, auto bool) (*quiz.Result, error) {
	if !s.submitting.CompareAndSwap(false, true) {
		return nil, ErrAlreadySubmitting
	}

	s.mu.Lock()
	switch s.status {
	case StatusLoading:
		s.mu.Unlock()
		s.submitting.Store(false)
		return nil, ErrNotInProgress
	case StatusInProgress:
		s.status = StatusSubmitting
		s.timer.Stop()
		s.result = s.scoreLocked(auto)
	case StatusCompleted:
		// Resend of an undelivered result.
	}
	res := *s.result
	s.mu.Unlock()

	var postErr error
	if poster != nil {
		postErr = poster.SubmitResult(ctx, res)
	}

	s.mu.Lock()
	s.status = StatusCompleted
	switch {
	case postErr != nil:
		s.result.DeliveryError = postErr.Error()
	case poster != nil:
		s.result.Delivered = true
		s.result.DeliveryError = ""
	}
	out := *s.result
	s.mu.Unlock()

	if postErr != nil {
		s.submitting.Store(false)
		return &out, &DeliveryError{Err: postErr}
	}
	return &out, nil
}

// scoreLocked grades a snapshot of the answers, builds the review, and
// drops the live answer store. Callers hold s.mu.
func (s *Session) scoreLocked(auto bool) *quiz.Result {
	now := s.now()
	snapshot := s.answers.Snapshot()
	score := quiz.Score(s.questions, snapshot, s.grade)

	elapsed := int(now.Sub(s.startedAt) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}

	s.review = buildReview(s.questions, snapshot, s.grade)
	s.answers = nil

	return &quiz.Result{
		SessionID:   s.ID,
		UserID:      s.User.ID,
		Topic:       s.Topic,
		Mode:        s.Mode,
		Score:       score,
		Total:       len(s.questions),
		ElapsedSecs: elapsed,
		Auto:        auto,
		SubmittedAt: now,
	}
}

// Close ends the session's lifetime: an in-flight load is cancelled and
// the timer stops. Close is safe to call more than once.
func (s *Session) Close() {
	s.cancel()
	s.mu.Lock()
	s.timer.Stop()
	s.mu.Unlock()
}

// Done is closed when the session is closed.
func (s *Session) Done() <-chan struct{} {
	return s.ctx.Done()
}

// Status returns the current phase.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Questions returns the loaded questions.
func (s *Session) Questions() []quiz.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.questions
}

// Dropped returns how many fetched items failed validation on the last load.
func (s *Session) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Answer returns the current choice for question i while in progress.
func (s *Session) Answer(i int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.answers == nil {
		return "", false
	}
	return s.answers.Get(i)
}

// Answered returns the number of answered questions while in progress.
func (s *Session) Answered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.answers == nil {
		return 0
	}
	return s.answers.Answered()
}

// Remaining returns the time left on the countdown.
func (s *Session) Remaining() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer.Remaining()
}

// TimerState returns the countdown's phase.
func (s *Session) TimerState() TimerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer.State()
}

// Result returns a copy of the scored result, or nil before submission.
func (s *Session) Result() *quiz.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return nil
	}
	r := *s.result
	return &r
}
