package topics

import (
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/prepquiz/internal/quiz"
	"github.com/abhisek/prepquiz/internal/router"
	"github.com/abhisek/prepquiz/internal/screens"
)

func keyPress(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

func specialKey(code rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: code}
}

func TestTopicsListsEverySection(t *testing.T) {
	s := New(screens.Deps{})
	if len(s.topics) != len(quiz.AllTopics()) {
		t.Errorf("listed %d topics, want %d", len(s.topics), len(quiz.AllTopics()))
	}
	if s.Selected().Name != "Percentages" {
		t.Errorf("first topic = %q", s.Selected().Name)
	}
}

func TestTopicsNavigation(t *testing.T) {
	s := New(screens.Deps{})

	s.Update(keyPress('j'))
	s.Update(specialKey(tea.KeyDown))
	if s.selected != 2 {
		t.Errorf("selected = %d, want 2", s.selected)
	}

	s.Update(keyPress('k'))
	if s.selected != 1 {
		t.Errorf("selected = %d, want 1", s.selected)
	}

	// Up at the top stays put.
	s.Update(keyPress('k'))
	s.Update(keyPress('k'))
	if s.selected != 0 {
		t.Errorf("selected = %d, want 0", s.selected)
	}
}

func TestTopicsTabJumpsSection(t *testing.T) {
	s := New(screens.Deps{})

	s.Update(specialKey(tea.KeyTab))
	if s.Selected().Section != quiz.SectionLogical {
		t.Errorf("section after tab = %s, want logical", s.Selected().Section)
	}
	s.Update(specialKey(tea.KeyTab))
	s.Update(specialKey(tea.KeyTab))
	if s.selected != 0 {
		t.Errorf("tab should wrap to the first topic, got %d", s.selected)
	}
}

func TestTopicsEnterPushesLevels(t *testing.T) {
	s := New(screens.Deps{})

	_, cmd := s.Update(specialKey(tea.KeyEnter))
	if cmd == nil {
		t.Fatal("expected a command on Enter")
	}
	push, ok := cmd().(router.PushScreenMsg)
	if !ok {
		t.Fatalf("expected PushScreenMsg, got %T", cmd())
	}
	if push.Screen.Title() != "Percentages" {
		t.Errorf("pushed screen title = %q", push.Screen.Title())
	}
}

func TestTopicsView(t *testing.T) {
	s := New(screens.Deps{})
	view := s.View(100, 30)
	if view == "" {
		t.Error("expected non-empty view")
	}
}
