package levels

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/prepquiz/internal/gating"
	"github.com/abhisek/prepquiz/internal/quiz"
	"github.com/abhisek/prepquiz/internal/router"
	"github.com/abhisek/prepquiz/internal/screen"
	"github.com/abhisek/prepquiz/internal/screens"
	sessionscreen "github.com/abhisek/prepquiz/internal/screens/session"
	"github.com/abhisek/prepquiz/internal/ui/layout"
	"github.com/abhisek/prepquiz/internal/ui/theme"
)

const loadTimeout = 15 * time.Second

type levelsLoadedMsg struct {
	Gen    int
	Levels []gating.LevelStatus
	Err    error
}

// LevelsScreen shows which modes of a topic are unlocked and starts tests.
type LevelsScreen struct {
	deps     screens.Deps
	topic    string
	levels   []gating.LevelStatus
	selected int
	gen      int
	loaded   bool
	errMsg   string
	notice   string
}

var _ screen.Screen = (*LevelsScreen)(nil)
var _ screen.KeyHintProvider = (*LevelsScreen)(nil)
var _ screen.Resumer = (*LevelsScreen)(nil)

// New creates a LevelsScreen for topic.
func New(deps screens.Deps, topic string) *LevelsScreen {
	return &LevelsScreen{deps: deps, topic: topic}
}

func (s *LevelsScreen) Init() tea.Cmd {
	return s.load()
}

// Resume reloads the table, since a finished test may unlock a mode.
func (s *LevelsScreen) Resume() tea.Cmd {
	return s.load()
}

func (s *LevelsScreen) Title() string {
	return s.topic
}

func (s *LevelsScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Enter", Description: "Start test"},
		{Key: "R", Description: "Refresh"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *LevelsScreen) load() tea.Cmd {
	s.gen++
	gen := s.gen
	var gate *gating.Checker
	if s.deps.Practice != nil {
		gate = s.deps.Practice.Gate()
	}
	user := s.deps.User
	topic := s.topic
	return func() tea.Msg {
		if gate == nil {
			return levelsLoadedMsg{Gen: gen, Levels: openLevels()}
		}
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		levels, err := gate.Levels(ctx, user.ID, topic)
		return levelsLoadedMsg{Gen: gen, Levels: levels, Err: err}
	}
}

// openLevels is the table shown when gating is turned off.
func openLevels() []gating.LevelStatus {
	out := make([]gating.LevelStatus, len(quiz.Modes))
	for i, m := range quiz.Modes {
		out[i] = gating.LevelStatus{Mode: m, Unlocked: true}
	}
	return out
}

func (s *LevelsScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case levelsLoadedMsg:
		if msg.Gen != s.gen {
			return s, nil
		}
		s.loaded = true
		if msg.Err != nil {
			s.errMsg = msg.Err.Error()
			return s, nil
		}
		s.errMsg = ""
		s.levels = msg.Levels
		if s.selected >= len(s.levels) {
			s.selected = 0
		}
		return s, nil

	case tea.KeyMsg:
		s.notice = ""
		switch msg.String() {
		case "esc":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		case "up", "k":
			if s.selected > 0 {
				s.selected--
			}
		case "down", "j":
			if s.selected < len(s.levels)-1 {
				s.selected++
			}
		case "r", "R":
			return s, s.load()
		case "enter":
			return s.start()
		}
	}
	return s, nil
}

func (s *LevelsScreen) start() (screen.Screen, tea.Cmd) {
	if !s.loaded || s.selected >= len(s.levels) {
		return s, nil
	}
	l := s.levels[s.selected]
	if !l.Unlocked {
		prev, _ := l.Mode.Previous()
		s.notice = fmt.Sprintf("Score %d/%d on %s to unlock %s.",
			l.Required, prev.QuestionCount(), prev.DisplayName(), l.Mode.DisplayName())
		return s, nil
	}
	next := sessionscreen.New(s.deps, s.topic, l.Mode)
	return s, func() tea.Msg { return router.PushScreenMsg{Screen: next} }
}

func (s *LevelsScreen) View(width, height int) string {
	if !s.loaded {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).
			Render("\n\n  Checking your levels...")
	}
	if s.errMsg != "" {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.Error).
			Render(fmt.Sprintf("\n\n  Could not load levels: %s\n\n  Press R to retry.", s.errMsg))
	}

	var b strings.Builder
	b.WriteString("\n")
	for i, l := range s.levels {
		b.WriteString(s.renderRow(i, l))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if len(s.levels) > 0 && s.levels[0].Source == gating.SourceLocal {
		b.WriteString(theme.Hint.Render("  Server unavailable: unlocks are based on tests taken on this device."))
		b.WriteString("\n")
	}
	if s.notice != "" {
		b.WriteString(theme.Warning.Render("  " + s.notice))
		b.WriteString("\n")
	}

	return lipgloss.PlaceHorizontal(width, lipgloss.Center, b.String())
}

func (s *LevelsScreen) renderRow(i int, l gating.LevelStatus) string {
	prefix := "  "
	if i == s.selected {
		prefix = "▸ "
	}

	best := "—"
	if l.HasBest {
		best = fmt.Sprintf("%d/%d", l.Best, l.Mode.QuestionCount())
	}

	status := "open"
	if !l.Unlocked {
		status = "locked"
	}

	line := fmt.Sprintf("%s%-11s %2d questions  %3d min   best %-6s %s",
		prefix, l.Mode.DisplayName(), l.Mode.QuestionCount(),
		int(l.Mode.TimeBudget().Minutes()), best, status)

	switch {
	case !l.Unlocked:
		return theme.Locked.Render(line)
	case i == s.selected:
		return theme.Selected.Render(line)
	}
	return theme.Unselected.Render(line)
}
