package session

import (
	"context"
	"errors"
	"sync"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/prepquiz/internal/api"
	"github.com/abhisek/prepquiz/internal/quiz"
	"github.com/abhisek/prepquiz/internal/router"
	"github.com/abhisek/prepquiz/internal/screen"
	"github.com/abhisek/prepquiz/internal/screens"
	"github.com/abhisek/prepquiz/internal/screens/review"
	sess "github.com/abhisek/prepquiz/internal/session"
	"github.com/abhisek/prepquiz/internal/ui/components"
	"github.com/abhisek/prepquiz/internal/ui/layout"
)

// startTimeout bounds the level check done before a session is created.
const startTimeout = 15 * time.Second

type confirmKind int

const (
	confirmNone confirmKind = iota
	confirmSubmit
	confirmQuit
)

// SessionScreen runs one timed test for a (topic, mode).
type SessionScreen struct {
	deps  screens.Deps
	topic string
	mode  quiz.Mode

	state      *sess.Session
	questions  []quiz.Question
	current    int
	choice     components.MultiChoice
	loading    bool
	submitting bool
	timeUp     bool
	confirm    confirmKind
	confirmYes bool
	startErr   string
	loadErr    string

	// startMu guards started and closed, which the Start command touches
	// from outside the update loop.
	startMu sync.Mutex
	started *sess.Session
	closed  bool
}

var _ screen.Screen = (*SessionScreen)(nil)
var _ screen.KeyHintProvider = (*SessionScreen)(nil)
var _ screen.Closer = (*SessionScreen)(nil)
var _ screen.BackHandler = (*SessionScreen)(nil)

// New creates a SessionScreen. The session itself is created in Init,
// after the level check.
func New(deps screens.Deps, topic string, mode quiz.Mode) *SessionScreen {
	return &SessionScreen{
		deps:    deps,
		topic:   topic,
		mode:    mode,
		loading: true,
	}
}

func (s *SessionScreen) Init() tea.Cmd {
	svc := s.deps.Practice
	user := s.deps.User
	topic, mode := s.topic, s.mode
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
		defer cancel()
		st, err := svc.Start(ctx, user, topic, mode)
		if err == nil && !s.adopt(st) {
			// Esc popped the screen while Start was running.
			svc.Abandon(ctx, st)
			return nil
		}
		return sessionStartedMsg{Session: st, Err: err}
	}
}

// adopt records st as this screen's session unless the screen has closed.
func (s *SessionScreen) adopt(st *sess.Session) bool {
	s.startMu.Lock()
	defer s.startMu.Unlock()
	if s.closed {
		return false
	}
	s.started = st
	return true
}

func (s *SessionScreen) Title() string {
	return s.topic + " · " + s.mode.DisplayName()
}

// HandlesBack keeps Esc inside the screen so leaving can be confirmed.
func (s *SessionScreen) HandlesBack() bool {
	return true
}

// Close abandons the session when the screen leaves the stack. A session
// still being started is abandoned by the Start command once it returns.
func (s *SessionScreen) Close() {
	s.startMu.Lock()
	s.closed = true
	st := s.started
	s.startMu.Unlock()
	if st != nil {
		s.deps.Practice.Abandon(context.Background(), st)
	}
}

func (s *SessionScreen) KeyHints() []layout.KeyHint {
	switch {
	case s.confirm != confirmNone:
		return []layout.KeyHint{
			{Key: "Y", Description: "Yes"},
			{Key: "N", Description: "No"},
			{Key: "←→", Description: "Choose"},
		}
	case s.startErr != "":
		return []layout.KeyHint{{Key: "any key", Description: "Back"}}
	case s.loadErr != "":
		return []layout.KeyHint{
			{Key: "R", Description: "Retry"},
			{Key: "Esc", Description: "Back"},
		}
	case s.submitting, s.loading:
		return nil
	}
	return []layout.KeyHint{
		{Key: "↑↓/1-4", Description: "Answer"},
		{Key: "←→", Description: "Question"},
		{Key: "S", Description: "Submit"},
		{Key: "Esc", Description: "Quit"},
	}
}

func (s *SessionScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case sessionStartedMsg:
		return s.handleStarted(msg)

	case questionsLoadedMsg:
		return s.handleLoaded(msg)

	case timerTickMsg:
		return s.handleTick(msg)

	case submittedMsg:
		return s.handleSubmitted(msg)

	case tea.KeyMsg:
		return s.handleKey(msg)
	}
	return s, nil
}

func (s *SessionScreen) owns(id string) bool {
	return s.state != nil && s.state.ID == id
}

func (s *SessionScreen) handleStarted(msg sessionStartedMsg) (screen.Screen, tea.Cmd) {
	if msg.Err != nil {
		s.loading = false
		s.startErr = api.Describe(msg.Err)
		return s, nil
	}
	s.state = msg.Session
	return s, s.loadQuestions()
}

func (s *SessionScreen) handleLoaded(msg questionsLoadedMsg) (screen.Screen, tea.Cmd) {
	if !s.owns(msg.SessionID) || errors.Is(msg.Err, sess.ErrStale) || errors.Is(msg.Err, sess.ErrLoadInFlight) {
		return s, nil
	}
	s.loading = false
	if msg.Err != nil {
		s.loadErr = api.Describe(msg.Err)
		return s, nil
	}

	s.loadErr = ""
	s.questions = s.state.Questions()
	s.showQuestion(0)
	return s, tickCmd(s.state.ID)
}

func (s *SessionScreen) handleTick(msg timerTickMsg) (screen.Screen, tea.Cmd) {
	if !s.owns(msg.SessionID) || s.state.Status() != sess.StatusInProgress {
		return s, nil
	}
	if s.state.Tick() {
		s.timeUp = true
		s.confirm = confirmNone
		return s, s.submit(true)
	}
	return s, tickCmd(s.state.ID)
}

func (s *SessionScreen) handleSubmitted(msg submittedMsg) (screen.Screen, tea.Cmd) {
	if !s.owns(msg.SessionID) {
		return s, nil
	}
	if msg.Result == nil {
		// Another submission holds the lock and will report.
		if errors.Is(msg.Err, sess.ErrAlreadySubmitting) {
			return s, nil
		}
		s.submitting = false
		s.loadErr = api.Describe(msg.Err)
		return s, nil
	}

	next := review.New(s.deps, s.state, *msg.Result, msg.Err)
	return s, func() tea.Msg { return router.ReplaceScreenMsg{Screen: next} }
}

func (s *SessionScreen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	key := msg.String()

	if s.startErr != "" {
		return s, func() tea.Msg { return router.PopScreenMsg{} }
	}

	if s.confirm != confirmNone {
		return s.handleConfirmKey(key)
	}

	if s.loadErr != "" {
		switch key {
		case "r", "R":
			if s.state == nil || s.state.Status() != sess.StatusLoading {
				return s, nil
			}
			s.loadErr = ""
			s.loading = true
			return s, s.loadQuestions()
		case "esc":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		}
		return s, nil
	}

	// Nothing is on screen to lose while starting or loading.
	if s.loading {
		if key == "esc" {
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		}
		return s, nil
	}

	if s.state == nil || s.submitting {
		return s, nil
	}

	if s.state.Status() != sess.StatusInProgress {
		return s, nil
	}

	switch key {
	case "esc":
		s.confirm = confirmQuit
		s.confirmYes = false
		return s, nil
	case "s", "S":
		s.confirm = confirmSubmit
		s.confirmYes = s.state.Answered() == len(s.questions)
		return s, nil
	case "right", "l", "n", "pgdown":
		s.showQuestion(s.current + 1)
		return s, nil
	case "left", "h", "p", "pgup":
		s.showQuestion(s.current - 1)
		return s, nil
	case "home":
		s.showQuestion(0)
		return s, nil
	case "end":
		s.showQuestion(len(s.questions) - 1)
		return s, nil
	}

	if opt, ok := optionKey(key, len(s.questions[s.current].Options)); ok {
		return s.pick(opt)
	}

	var picked bool
	s.choice, picked = s.choice.Update(msg)
	if picked {
		return s.pick(s.choice.Cursor)
	}
	return s, nil
}

func (s *SessionScreen) handleConfirmKey(key string) (screen.Screen, tea.Cmd) {
	kind := s.confirm
	yes := false
	switch key {
	case "y", "Y":
		yes = true
	case "n", "N", "esc":
	case "left", "right", "tab", "h", "l":
		s.confirmYes = !s.confirmYes
		return s, nil
	case "enter":
		yes = s.confirmYes
	default:
		return s, nil
	}

	s.confirm = confirmNone
	if !yes {
		return s, nil
	}
	if kind == confirmQuit {
		return s, func() tea.Msg { return router.PopScreenMsg{} }
	}
	return s, s.submit(false)
}

// pick records option opt for the current question and moves on.
func (s *SessionScreen) pick(opt int) (screen.Screen, tea.Cmd) {
	if err := s.state.SelectIndex(s.current, opt); err != nil {
		s.deps.Log().Debug("selection rejected", "session", s.state.ID, "error", err)
		return s, nil
	}
	if s.current < len(s.questions)-1 {
		s.showQuestion(s.current + 1)
	} else {
		s.showQuestion(s.current)
	}
	return s, nil
}

// showQuestion moves to question i, clamped to the test.
func (s *SessionScreen) showQuestion(i int) {
	if len(s.questions) == 0 {
		return
	}
	i = max(0, min(i, len(s.questions)-1))
	s.current = i

	chosen := -1
	if opt, ok := s.state.Answer(i); ok {
		chosen = s.questions[i].OptionIndex(opt)
	}
	s.choice = components.NewMultiChoice(s.questions[i].Options, chosen)
}

func (s *SessionScreen) loadQuestions() tea.Cmd {
	svc := s.deps.Practice
	st := s.state
	return func() tea.Msg {
		// The session's own lifetime cancels the request on Close.
		err := svc.Load(context.Background(), st)
		return questionsLoadedMsg{SessionID: st.ID, Err: err}
	}
}

func (s *SessionScreen) submit(auto bool) tea.Cmd {
	s.submitting = true
	svc := s.deps.Practice
	st := s.state
	return func() tea.Msg {
		res, err := svc.Finish(context.Background(), st, auto)
		return submittedMsg{SessionID: st.ID, Result: res, Err: err}
	}
}

// optionKey maps "1".."9" and "a".."i" to an option index below n.
func optionKey(key string, n int) (int, bool) {
	if len(key) != 1 {
		return 0, false
	}
	c := key[0]
	var i int
	switch {
	case c >= '1' && c <= '9':
		i = int(c - '1')
	case c >= 'a' && c <= 'i' && c != 'h':
		i = int(c - 'a')
	default:
		return 0, false
	}
	return i, i < n
}

// tickCmd returns a 1-second tick command for session id.
func tickCmd(id string) tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return timerTickMsg{SessionID: id}
	})
}
