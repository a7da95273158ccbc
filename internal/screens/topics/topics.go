package topics

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/prepquiz/internal/quiz"
	"github.com/abhisek/prepquiz/internal/router"
	"github.com/abhisek/prepquiz/internal/screen"
	"github.com/abhisek/prepquiz/internal/screens"
	"github.com/abhisek/prepquiz/internal/screens/levels"
	"github.com/abhisek/prepquiz/internal/ui/layout"
	"github.com/abhisek/prepquiz/internal/ui/theme"
)

// TopicsScreen lists the practice topics grouped by section.
type TopicsScreen struct {
	deps     screens.Deps
	topics   []quiz.Topic
	selected int
}

var _ screen.Screen = (*TopicsScreen)(nil)
var _ screen.KeyHintProvider = (*TopicsScreen)(nil)

// New creates a TopicsScreen.
func New(deps screens.Deps) *TopicsScreen {
	var all []quiz.Topic
	for _, sec := range quiz.AllSections() {
		all = append(all, quiz.BySection(sec)...)
	}
	return &TopicsScreen{deps: deps, topics: all}
}

func (s *TopicsScreen) Init() tea.Cmd {
	return nil
}

func (s *TopicsScreen) Title() string {
	return "Choose a topic"
}

func (s *TopicsScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Tab", Description: "Next section"},
		{Key: "Enter", Description: "Levels"},
		{Key: "Esc", Description: "Back"},
	}
}

// Selected returns the highlighted topic.
func (s *TopicsScreen) Selected() quiz.Topic {
	return s.topics[s.selected]
}

func (s *TopicsScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return s, nil
	}

	switch kmsg.String() {
	case "up", "k":
		if s.selected > 0 {
			s.selected--
		}
	case "down", "j":
		if s.selected < len(s.topics)-1 {
			s.selected++
		}
	case "tab":
		s.selected = s.nextSection()
	case "home", "g":
		s.selected = 0
	case "end", "G":
		s.selected = len(s.topics) - 1
	case "enter":
		next := levels.New(s.deps, s.Selected().Name)
		return s, func() tea.Msg { return router.PushScreenMsg{Screen: next} }
	case "esc":
		return s, func() tea.Msg { return router.PopScreenMsg{} }
	}
	return s, nil
}

// nextSection returns the index of the first topic of the following
// section, wrapping around.
func (s *TopicsScreen) nextSection() int {
	cur := s.topics[s.selected].Section
	for i := s.selected + 1; i < len(s.topics); i++ {
		if s.topics[i].Section != cur {
			return i
		}
	}
	return 0
}

func (s *TopicsScreen) View(width, height int) string {
	var b strings.Builder
	b.WriteString("\n")

	var section quiz.Section
	for i, t := range s.topics {
		if t.Section != section {
			section = t.Section
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(lipgloss.NewStyle().
				Foreground(theme.Secondary).
				Bold(true).
				Render("  " + quiz.SectionDisplayName(section)))
			b.WriteString("\n")
		}

		line := fmt.Sprintf("    %s", t.Name)
		style := theme.Unselected
		if i == s.selected {
			line = fmt.Sprintf("  ▸ %s", t.Name)
			style = theme.Selected
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}

	return lipgloss.PlaceHorizontal(width, lipgloss.Center, b.String())
}
