package session

import (
	"github.com/abhisek/prepquiz/internal/quiz"
	sess "github.com/abhisek/prepquiz/internal/session"
)

// Every message after start carries the session ID; the screen drops
// messages that belong to a session it no longer owns.

// sessionStartedMsg is sent when the gate check passed and a session exists.
type sessionStartedMsg struct {
	Session *sess.Session
	Err     error
}

// questionsLoadedMsg is sent when a load attempt finishes.
type questionsLoadedMsg struct {
	SessionID string
	Err       error
}

// timerTickMsg is sent every second while the test runs.
type timerTickMsg struct {
	SessionID string
}

// submittedMsg is sent when a submission finishes, delivered or not.
type submittedMsg struct {
	SessionID string
	Result    *quiz.Result
	Err       error
}
