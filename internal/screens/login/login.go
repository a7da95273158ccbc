package login

import (
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/prepquiz/internal/auth"
	"github.com/abhisek/prepquiz/internal/screen"
	"github.com/abhisek/prepquiz/internal/screens"
	"github.com/abhisek/prepquiz/internal/ui/components"
	"github.com/abhisek/prepquiz/internal/ui/layout"
	"github.com/abhisek/prepquiz/internal/ui/theme"
)

const (
	fieldID = iota
	fieldName
)

// LoginScreen asks for the learner's id. A test cannot start without one.
type LoginScreen struct {
	id     components.TextInput
	name   components.TextInput
	focus  int
	errMsg string
}

var _ screen.Screen = (*LoginScreen)(nil)
var _ screen.KeyHintProvider = (*LoginScreen)(nil)

// New creates a LoginScreen prefilled with last, usually the previous user.
func New(last auth.User) *LoginScreen {
	id := components.NewTextInput("User ID", "e.g. 21CS1042", 64)
	id.SetValue(last.ID)
	name := components.NewTextInput("Name (optional)", "Your name", 64)
	name.SetValue(last.Name)
	name.Blur()
	return &LoginScreen{id: id, name: name}
}

func (s *LoginScreen) Init() tea.Cmd {
	return s.id.Init()
}

func (s *LoginScreen) Title() string {
	return "Sign in"
}

func (s *LoginScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Tab", Description: "Next field"},
		{Key: "Enter", Description: "Sign in"},
		{Key: "Ctrl+C", Description: "Quit"},
	}
}

func (s *LoginScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if kmsg, ok := msg.(tea.KeyMsg); ok {
		switch kmsg.String() {
		case "tab", "shift+tab", "up", "down":
			return s, s.toggleFocus()
		case "enter":
			if s.focus == fieldID && s.name.Value() == "" && s.id.Value() != "" {
				return s, s.toggleFocus()
			}
			return s.submit()
		}
	}

	var cmd tea.Cmd
	if s.focus == fieldID {
		s.id, cmd = s.id.Update(msg)
	} else {
		s.name, cmd = s.name.Update(msg)
	}
	s.errMsg = ""
	return s, cmd
}

func (s *LoginScreen) toggleFocus() tea.Cmd {
	if s.focus == fieldID {
		s.focus = fieldName
		s.id.Blur()
		return s.name.Focus()
	}
	s.focus = fieldID
	s.name.Blur()
	return s.id.Focus()
}

func (s *LoginScreen) submit() (screen.Screen, tea.Cmd) {
	user := auth.New(s.id.Value(), s.name.Value())
	if err := user.Require(); err != nil {
		s.errMsg = "Enter your user ID to continue."
		if s.focus != fieldID {
			return s, s.toggleFocus()
		}
		return s, nil
	}
	if strings.ContainsAny(user.ID, " \t") {
		s.errMsg = "User IDs cannot contain spaces."
		return s, nil
	}
	return s, func() tea.Msg { return screens.LoginMsg{User: user} }
}

func (s *LoginScreen) View(width, height int) string {
	cw := components.ContentWidth(width)

	var b strings.Builder
	b.WriteString(theme.Title.Width(cw - 6).Render("Welcome to prepquiz"))
	b.WriteString("\n")
	b.WriteString(theme.Subtitle.Width(cw - 6).Render("Timed aptitude tests for placement prep"))
	b.WriteString("\n\n")
	b.WriteString(s.id.View())
	b.WriteString("\n\n")
	b.WriteString(s.name.View())
	if s.errMsg != "" {
		b.WriteString("\n\n")
		b.WriteString(lipgloss.NewStyle().Foreground(theme.Error).Render(s.errMsg))
	}

	return components.Center(components.Card(b.String(), cw), width, height)
}
