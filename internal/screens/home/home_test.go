package home

import (
	"context"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/prepquiz/internal/auth"
	"github.com/abhisek/prepquiz/internal/quiz"
	"github.com/abhisek/prepquiz/internal/router"
	"github.com/abhisek/prepquiz/internal/screens"
	"github.com/abhisek/prepquiz/internal/screens/topics"
	"github.com/abhisek/prepquiz/internal/store"
)

type fakeAttempts struct {
	records []store.AttemptRecord
}

func (f *fakeAttempts) AppendAttempt(context.Context, quiz.Result) error { return nil }
func (f *fakeAttempts) MarkDelivered(context.Context, string) error      { return nil }
func (f *fakeAttempts) BestScore(context.Context, string, string, quiz.Mode) (int, bool, error) {
	return 0, false, nil
}
func (f *fakeAttempts) QueryAttempts(context.Context, store.AttemptFilter, store.QueryOpts) ([]store.AttemptRecord, error) {
	return f.records, nil
}

func keyPress(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

func testHome(repo store.AttemptRepo) *HomeScreen {
	return New(screens.Deps{Attempts: repo, User: auth.New("u1", "Asha")})
}

func TestHomeShowsSummary(t *testing.T) {
	repo := &fakeAttempts{records: []store.AttemptRecord{
		{Sequence: 1, Result: quiz.Result{Topic: "Percentages", Mode: quiz.ModeEasy, Score: 10, Total: 20}},
	}}
	h := testHome(repo)
	h.Update(h.Init()())

	view := h.View(100, 30)
	for _, want := range []string{"Welcome, Asha", "1 tests taken", "1 result(s) not sent yet", "[t] Start a test"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestStartKeyOpensTopics(t *testing.T) {
	h := testHome(&fakeAttempts{})

	_, cmd := h.Update(keyPress('t'))
	if cmd == nil {
		t.Fatal("expected a command")
	}
	push, ok := cmd().(router.PushScreenMsg)
	if !ok {
		t.Fatal("expected PushScreenMsg")
	}
	if _, ok := push.Screen.(*topics.TopicsScreen); !ok {
		t.Errorf("pushed %T, want topics screen", push.Screen)
	}
}

func TestSwitchUserLogsOut(t *testing.T) {
	h := testHome(&fakeAttempts{})

	_, cmd := h.Update(keyPress('u'))
	if cmd == nil {
		t.Fatal("expected a command")
	}
	if _, ok := cmd().(screens.LogoutMsg); !ok {
		t.Error("expected LogoutMsg")
	}
}

func TestHistoryDisabledWithoutStore(t *testing.T) {
	h := testHome(nil)

	if _, cmd := h.Update(keyPress('h')); cmd != nil {
		t.Error("history should be disabled without an attempt store")
	}
	if !strings.Contains(h.View(100, 30), "History is off") {
		t.Error("expected the no-history note")
	}
}

func TestQuitKey(t *testing.T) {
	h := testHome(nil)

	_, cmd := h.Update(keyPress('q'))
	if cmd == nil {
		t.Fatal("expected a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}
