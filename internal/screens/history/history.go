package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/prepquiz/internal/api"
	"github.com/abhisek/prepquiz/internal/router"
	"github.com/abhisek/prepquiz/internal/screen"
	"github.com/abhisek/prepquiz/internal/screens"
	"github.com/abhisek/prepquiz/internal/session"
	"github.com/abhisek/prepquiz/internal/store"
	"github.com/abhisek/prepquiz/internal/ui/layout"
	"github.com/abhisek/prepquiz/internal/ui/theme"
)

const (
	pageSize      = 50
	resendTimeout = 60 * time.Second
)

type historyLoadedMsg struct {
	Attempts []store.AttemptRecord
	Err      error
}

type resendDoneMsg struct {
	Sent   int
	Failed int
	Err    error
}

// HistoryScreen lists past attempts, newest first.
type HistoryScreen struct {
	deps      screens.Deps
	attempts  []store.AttemptRecord
	selected  int
	expanded  map[int]bool
	loaded    bool
	resending bool
	errMsg    string
	notice    string
}

var _ screen.Screen = (*HistoryScreen)(nil)
var _ screen.KeyHintProvider = (*HistoryScreen)(nil)

// New creates a new HistoryScreen.
func New(deps screens.Deps) *HistoryScreen {
	return &HistoryScreen{
		deps:     deps,
		expanded: make(map[int]bool),
	}
}

func (s *HistoryScreen) Init() tea.Cmd {
	return s.load()
}

func (s *HistoryScreen) load() tea.Cmd {
	repo := s.deps.Attempts
	userID := s.deps.User.ID
	return func() tea.Msg {
		if repo == nil {
			return historyLoadedMsg{}
		}
		attempts, err := repo.QueryAttempts(context.Background(),
			store.AttemptFilter{UserID: userID}, store.QueryOpts{Limit: pageSize})
		return historyLoadedMsg{Attempts: attempts, Err: err}
	}
}

func (s *HistoryScreen) Title() string {
	return "History"
}

func (s *HistoryScreen) KeyHints() []layout.KeyHint {
	hints := []layout.KeyHint{
		{Key: "Enter", Description: "Details"},
		{Key: "↑↓", Description: "Navigate"},
	}
	if s.pending() > 0 && s.canResend() {
		hints = append(hints, layout.KeyHint{Key: "R", Description: "Resend pending"})
	}
	return append(hints, layout.KeyHint{Key: "Esc", Description: "Back"})
}

func (s *HistoryScreen) canResend() bool {
	return s.deps.Practice != nil && s.deps.Practice.Delivers() && !s.resending
}

// pending counts listed attempts the backend never acknowledged.
func (s *HistoryScreen) pending() int {
	n := 0
	for _, a := range s.attempts {
		if !a.Result.Delivered {
			n++
		}
	}
	return n
}

func (s *HistoryScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case historyLoadedMsg:
		if msg.Err != nil {
			s.errMsg = msg.Err.Error()
		} else {
			s.errMsg = ""
			s.attempts = msg.Attempts
			if s.selected >= len(s.attempts) {
				s.selected = 0
			}
		}
		s.loaded = true
		return s, nil

	case resendDoneMsg:
		s.resending = false
		switch {
		case msg.Err != nil:
			s.notice = "Resend failed: " + api.Describe(msg.Err)
		case msg.Failed > 0:
			s.notice = fmt.Sprintf("Sent %d, %d still pending.", msg.Sent, msg.Failed)
		default:
			s.notice = fmt.Sprintf("Sent %d pending result(s).", msg.Sent)
		}
		return s, s.load()

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		case "up", "k":
			if s.selected > 0 {
				s.selected--
			}
			return s, nil
		case "down", "j":
			if s.selected < len(s.attempts)-1 {
				s.selected++
			}
			return s, nil
		case "enter":
			s.expanded[s.selected] = !s.expanded[s.selected]
			return s, nil
		case "r", "R":
			if s.pending() == 0 || !s.canResend() {
				return s, nil
			}
			return s, s.resend()
		}
	}
	return s, nil
}

func (s *HistoryScreen) resend() tea.Cmd {
	s.resending = true
	s.notice = ""
	svc := s.deps.Practice
	userID := s.deps.User.ID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), resendTimeout)
		defer cancel()
		rep, err := svc.Resend(ctx, userID)
		return resendDoneMsg{Sent: rep.Sent, Failed: rep.Failed, Err: err}
	}
}

func (s *HistoryScreen) View(width, height int) string {
	if s.errMsg != "" {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.Error).
			Render(fmt.Sprintf("\n\nError: %s", s.errMsg))
	}
	if !s.loaded {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).
			Render("\n\n  Loading history...")
	}
	if len(s.attempts) == 0 {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).Italic(true).
			Render("\n\n  No tests yet. Start one from the home screen!")
	}

	var b strings.Builder
	b.WriteString("\n")

	for i, a := range s.attempts {
		r := a.Result
		dateStr := a.Timestamp.Local().Format("Jan 02 15:04")
		durationStr := session.FormatClock(time.Duration(r.ElapsedSecs) * time.Second)

		mark := lipgloss.NewStyle().Foreground(theme.Success).Render("✓")
		if !r.Delivered {
			mark = theme.Warning.Render("!")
		}

		prefix := "  "
		if i == s.selected {
			prefix = "▸ "
		}
		auto := ""
		if r.Auto {
			auto = "  timed out"
		}

		line := fmt.Sprintf("%s%s  %-22s %-9s %2d/%-2d  %s%s",
			prefix, dateStr, truncate(r.Topic, 22), r.Mode.DisplayName(), r.Score, r.Total, durationStr, auto)

		style := lipgloss.NewStyle().Foreground(theme.Text)
		if i == s.selected {
			style = style.Foreground(theme.Primary).Bold(true)
		}
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center,
			style.Render(line)+" "+mark))
		b.WriteString("\n")

		if s.expanded[i] {
			for _, detail := range details(r.SessionID, r.Delivered, r.DeliveryError) {
				b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center,
					lipgloss.NewStyle().Foreground(theme.TextDim).Italic(true).Render(detail)))
				b.WriteString("\n")
			}
		}
	}

	b.WriteString("\n")
	if n := s.pending(); n > 0 {
		msg := fmt.Sprintf("%d result(s) not delivered yet.", n)
		if s.canResend() {
			msg += " Press R to resend."
		}
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, theme.Warning.Render(msg)))
		b.WriteString("\n")
	}
	switch {
	case s.resending:
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, theme.Hint.Render("Sending...")))
	case s.notice != "":
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, theme.Hint.Render(s.notice)))
	}

	return b.String()
}

func details(sessionID string, delivered bool, deliveryErr string) []string {
	out := []string{"    Session " + sessionID}
	switch {
	case delivered:
		out = append(out, "    Delivered to the server")
	case deliveryErr != "":
		out = append(out, "    Not delivered: "+deliveryErr)
	default:
		out = append(out, "    Saved on this device only")
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
