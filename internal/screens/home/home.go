package home

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/prepquiz/internal/router"
	"github.com/abhisek/prepquiz/internal/screen"
	"github.com/abhisek/prepquiz/internal/screens"
	"github.com/abhisek/prepquiz/internal/screens/dashboard"
	"github.com/abhisek/prepquiz/internal/screens/history"
	"github.com/abhisek/prepquiz/internal/screens/topics"
	"github.com/abhisek/prepquiz/internal/stats"
	"github.com/abhisek/prepquiz/internal/store"
	"github.com/abhisek/prepquiz/internal/ui/components"
	"github.com/abhisek/prepquiz/internal/ui/layout"
	"github.com/abhisek/prepquiz/internal/ui/theme"
)

type summaryLoadedMsg struct {
	Summary stats.Dashboard
	Err     error
}

// HomeScreen is the main menu after sign-in.
type HomeScreen struct {
	deps    screens.Deps
	menu    components.Menu
	summary stats.Dashboard
	loaded  bool
}

var _ screen.Screen = (*HomeScreen)(nil)
var _ screen.KeyHintProvider = (*HomeScreen)(nil)
var _ screen.Resumer = (*HomeScreen)(nil)

// New creates a new HomeScreen.
func New(deps screens.Deps) *HomeScreen {
	push := func(build func() screen.Screen) func() tea.Cmd {
		return func() tea.Cmd {
			next := build()
			return func() tea.Msg { return router.PushScreenMsg{Screen: next} }
		}
	}
	noHistory := deps.Attempts == nil

	items := []components.MenuItem{
		{Label: "Start a test", Key: "t", Action: push(func() screen.Screen { return topics.New(deps) })},
		{Label: "Dashboard", Key: "d", Disabled: noHistory, Action: push(func() screen.Screen { return dashboard.New(deps) })},
		{Label: "History", Key: "h", Disabled: noHistory, Action: push(func() screen.Screen { return history.New(deps) })},
		{Label: "Switch user", Key: "u", Action: func() tea.Cmd {
			return func() tea.Msg { return screens.LogoutMsg{} }
		}},
		{Label: "Quit", Key: "q", Action: func() tea.Cmd { return tea.Quit }},
	}

	return &HomeScreen{
		deps: deps,
		menu: components.NewMenu(items),
	}
}

func (h *HomeScreen) Init() tea.Cmd {
	return h.loadSummary()
}

// Resume refreshes the summary after a test or a resend.
func (h *HomeScreen) Resume() tea.Cmd {
	return h.loadSummary()
}

func (h *HomeScreen) loadSummary() tea.Cmd {
	repo := h.deps.Attempts
	userID := h.deps.User.ID
	if repo == nil {
		return nil
	}
	return func() tea.Msg {
		records, err := repo.QueryAttempts(context.Background(), store.AttemptFilter{UserID: userID}, store.QueryOpts{})
		if err != nil {
			return summaryLoadedMsg{Err: err}
		}
		return summaryLoadedMsg{Summary: stats.Aggregate(records, 1)}
	}
}

func (h *HomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if msg, ok := msg.(summaryLoadedMsg); ok {
		if msg.Err != nil {
			h.deps.Log().Warn("failed to load attempt summary", "error", msg.Err)
			return h, nil
		}
		h.summary = msg.Summary
		h.loaded = true
		return h, nil
	}

	var cmd tea.Cmd
	h.menu, cmd = h.menu.Update(msg)
	return h, cmd
}

func (h *HomeScreen) View(width, height int) string {
	cw := components.ContentWidth(width)

	var b strings.Builder
	name := h.deps.User.DisplayName()
	b.WriteString(theme.Title.Render("Welcome, " + name))
	b.WriteString("\n")
	b.WriteString(theme.Subtitle.Render(h.summaryLine()))
	if h.summary.Undelivered > 0 {
		b.WriteString("\n")
		b.WriteString(theme.Warning.Render(fmt.Sprintf("%d result(s) not sent yet. Open History to resend.", h.summary.Undelivered)))
	}
	b.WriteString("\n\n")
	b.WriteString(h.menu.View())

	return components.Center(components.Card(b.String(), cw), width, height)
}

func (h *HomeScreen) summaryLine() string {
	switch {
	case h.deps.Attempts == nil:
		return "History is off for this run."
	case !h.loaded:
		return "Loading your progress..."
	case h.summary.Attempts == 0:
		return "Pick a topic to take your first test."
	}
	return fmt.Sprintf("%d tests taken · %.0f%% average", h.summary.Attempts, h.summary.AveragePct*100)
}

func (h *HomeScreen) Title() string {
	return "Home"
}

func (h *HomeScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Enter", Description: "Select"},
		{Key: "Q", Description: "Quit"},
	}
}
