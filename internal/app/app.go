package app

import (
	"fmt"
	"os"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/prepquiz/internal/auth"
	"github.com/abhisek/prepquiz/internal/quiz"
	"github.com/abhisek/prepquiz/internal/router"
	"github.com/abhisek/prepquiz/internal/screen"
	"github.com/abhisek/prepquiz/internal/screens"
	"github.com/abhisek/prepquiz/internal/screens/home"
	"github.com/abhisek/prepquiz/internal/screens/login"
	sessionscreen "github.com/abhisek/prepquiz/internal/screens/session"
	"github.com/abhisek/prepquiz/internal/screens/welcome"
	"github.com/abhisek/prepquiz/internal/ui/layout"
)

// Options configures the TUI.
type Options struct {
	Deps screens.Deps

	// LastUser prefills the login screen. When Deps.User is set the
	// login screen is skipped.
	LastUser auth.User

	// OnLogin is called after a learner signs in, to remember them.
	OnLogin func(auth.User) error

	// Splash shows the welcome screen first.
	Splash bool

	// Topic and Mode open a test straight away. They are ignored while
	// nobody is signed in.
	Topic string
	Mode  quiz.Mode
}

// AppModel is the root Bubble Tea model.
type AppModel struct {
	router  *router.Router
	deps    screens.Deps
	last    auth.User
	onLogin func(auth.User) error
	pending screen.Screen
	width   int
	height  int
}

// newAppModel creates an AppModel starting at home, or at login while
// nobody is signed in.
func newAppModel(opts Options) AppModel {
	m := AppModel{
		deps:    opts.Deps,
		last:    opts.LastUser,
		onLogin: opts.OnLogin,
	}

	first := m.entryScreen()
	if opts.Topic != "" && !m.deps.User.IsZero() {
		m.pending = sessionscreen.New(m.deps, opts.Topic, opts.Mode)
	} else if opts.Splash {
		next := first
		first = welcome.New(func() screen.Screen { return next })
	}
	m.router = router.New(first)
	return m
}

func (m AppModel) entryScreen() screen.Screen {
	if m.deps.User.IsZero() {
		return login.New(m.last)
	}
	return home.New(m.deps)
}

func (m AppModel) Init() tea.Cmd {
	var cmds []tea.Cmd
	if active := m.router.Active(); active != nil {
		cmds = append(cmds, active.Init())
	}
	if m.pending != nil {
		cmds = append(cmds, m.router.Push(m.pending))
	}
	return tea.Batch(cmds...)
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case screens.LoginMsg:
		return m.signIn(msg.User)

	case screens.LogoutMsg:
		m.last = m.deps.User
		m.deps.User = auth.User{}
		m.router.PopToRoot()
		return m, m.router.Replace(login.New(m.last))

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			if bh, ok := m.router.Active().(screen.BackHandler); ok && bh.HandlesBack() {
				break
			}
			if m.router.Depth() > 1 {
				return m, func() tea.Msg { return router.PopScreenMsg{} }
			}
			return m, nil
		}
	}

	cmd := m.router.Update(msg)
	return m, cmd
}

func (m AppModel) signIn(user auth.User) (tea.Model, tea.Cmd) {
	m.deps.User = user
	m.last = user
	if m.onLogin != nil {
		if err := m.onLogin(user); err != nil {
			m.deps.Log().Warn("failed to remember user", "user", user.ID, "error", err)
		}
	}
	m.deps.Log().Info("signed in", "user", user.ID)
	m.router.PopToRoot()
	return m, m.router.Replace(home.New(m.deps))
}

func (m AppModel) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true

	if m.width == 0 || m.height == 0 {
		return v
	}

	if layout.IsTooSmall(m.width, m.height) {
		v.SetContent(layout.RenderMinSizeMessage(m.width, m.height))
		return v
	}

	active := m.router.Active()
	title := ""
	if active != nil {
		title = active.Title()
	}

	header := layout.RenderHeader(title, m.deps.User.DisplayName(), m.width)

	footer := layout.RenderFooter(m.footerHints(active), m.width)

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := m.height - headerHeight - footerHeight
	if contentHeight < 0 {
		contentHeight = 0
	}

	content := m.router.View(m.width, contentHeight)
	frame := layout.RenderFrame(header, content, footer, m.width, m.height)

	v.SetContent(frame)
	return v
}

func (m AppModel) footerHints(active screen.Screen) []layout.KeyHint {
	quit := layout.KeyHint{Key: "Ctrl+C", Description: "Quit"}
	if p, ok := active.(screen.KeyHintProvider); ok {
		return append(p.KeyHints(), quit)
	}
	if m.router.Depth() > 1 {
		return []layout.KeyHint{{Key: "Esc", Description: "Back"}, quit}
	}
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Enter", Description: "Select"},
		quit,
	}
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := newAppModel(opts)
	defer m.router.Close()

	p := tea.NewProgram(m)
	_, err := p.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error running program:", err)
		return err
	}
	return nil
}
