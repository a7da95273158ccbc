// Package dashboard shows a learner's progress across topics and modes.
package dashboard

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/prepquiz/internal/gating"
	"github.com/abhisek/prepquiz/internal/router"
	"github.com/abhisek/prepquiz/internal/screen"
	"github.com/abhisek/prepquiz/internal/screens"
	"github.com/abhisek/prepquiz/internal/stats"
	"github.com/abhisek/prepquiz/internal/store"
	"github.com/abhisek/prepquiz/internal/ui/components"
	"github.com/abhisek/prepquiz/internal/ui/layout"
	"github.com/abhisek/prepquiz/internal/ui/theme"
)

const sparkBlocks = "▁▂▃▄▅▆▇█"

type dashboardLoadedMsg struct {
	Dashboard stats.Dashboard
	Err       error
}

// DashboardScreen renders aggregated attempt history.
type DashboardScreen struct {
	deps   screens.Deps
	data   stats.Dashboard
	loaded bool
	errMsg string
	offset int
}

var _ screen.Screen = (*DashboardScreen)(nil)
var _ screen.KeyHintProvider = (*DashboardScreen)(nil)

// New creates a DashboardScreen.
func New(deps screens.Deps) *DashboardScreen {
	return &DashboardScreen{deps: deps}
}

func (s *DashboardScreen) Init() tea.Cmd {
	repo := s.deps.Attempts
	userID := s.deps.User.ID
	return func() tea.Msg {
		if repo == nil {
			return dashboardLoadedMsg{}
		}
		records, err := repo.QueryAttempts(context.Background(), store.AttemptFilter{UserID: userID}, store.QueryOpts{})
		if err != nil {
			return dashboardLoadedMsg{Err: err}
		}
		return dashboardLoadedMsg{Dashboard: stats.Aggregate(records, stats.DefaultTrendLen)}
	}
}

func (s *DashboardScreen) Title() string {
	return "Dashboard"
}

func (s *DashboardScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Scroll"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *DashboardScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case dashboardLoadedMsg:
		s.loaded = true
		if msg.Err != nil {
			s.errMsg = msg.Err.Error()
			return s, nil
		}
		s.data = msg.Dashboard
		return s, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "q":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		case "up", "k":
			if s.offset > 0 {
				s.offset--
			}
		case "down", "j":
			s.offset++
		case "home", "g":
			s.offset = 0
		}
	}
	return s, nil
}

func (s *DashboardScreen) View(width, height int) string {
	if s.errMsg != "" {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.Error).
			Render(fmt.Sprintf("\n\nError: %s", s.errMsg))
	}
	if !s.loaded {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).
			Render("\n\n  Loading your progress...")
	}
	if s.data.Attempts == 0 {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).Italic(true).
			Render("\n\n  No tests yet. Your progress shows up here after your first test.")
	}

	cw := components.ContentWidth(width)
	lines := s.render(cw)

	// Keep the summary pinned and scroll the rest.
	if height > 0 && len(lines) > height {
		maxOffset := len(lines) - height
		if s.offset > maxOffset {
			s.offset = maxOffset
		}
		lines = lines[s.offset : s.offset+height]
	} else {
		s.offset = 0
	}
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, strings.Join(lines, "\n"))
}

func (s *DashboardScreen) render(cw int) []string {
	d := s.data
	lines := []string{
		"",
		theme.Title.Render(fmt.Sprintf("%d tests · %d topics · %.0f%% average", d.Attempts, d.Topics, d.AveragePct*100)),
	}
	if d.Undelivered > 0 {
		lines = append(lines, theme.Warning.Render(fmt.Sprintf("%d result(s) waiting to be sent. Open History to resend.", d.Undelivered)))
	}

	trends := make(map[string]stats.Trend, len(d.Trends))
	for _, t := range d.Trends {
		trends[t.Topic] = t
	}

	topic := ""
	for _, row := range d.Rows {
		if row.Topic != topic {
			topic = row.Topic
			lines = append(lines, "", topicLine(topic, trends[topic], cw))
		}
		pass := 0
		if row.Total == row.Mode.QuestionCount() {
			pass = gating.PassScore
		}
		bar := components.ScoreBar(row.Mode.DisplayName(), row.Best, row.Total, pass, cw-20)
		bar.LabelWidth = 10
		detail := fmt.Sprintf(" best %d/%d · %d×", row.Best, row.Total, row.Attempts)
		lines = append(lines, bar.View()+theme.Hint.Render(detail))
	}
	return lines
}

func topicLine(topic string, t stats.Trend, cw int) string {
	name := lipgloss.NewStyle().Foreground(theme.Secondary).Bold(true).Render(topic)
	spark := lipgloss.NewStyle().Foreground(theme.TextDim).Render(Sparkline(t.Percent))
	pad := cw - lipgloss.Width(name) - lipgloss.Width(spark)
	if pad < 1 {
		pad = 1
	}
	return name + strings.Repeat(" ", pad) + spark
}

// Sparkline renders fractions in [0, 1] as block characters.
func Sparkline(pcts []float64) string {
	blocks := []rune(sparkBlocks)
	var b strings.Builder
	for _, p := range pcts {
		p = min(max(p, 0), 1)
		b.WriteRune(blocks[int(p*float64(len(blocks)-1)+0.5)])
	}
	return b.String()
}
