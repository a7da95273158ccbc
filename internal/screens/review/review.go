// Package review shows a submitted test: the score, whether the result
// reached the backend, and every question with the correct answer.
package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/prepquiz/internal/api"
	"github.com/abhisek/prepquiz/internal/gating"
	"github.com/abhisek/prepquiz/internal/quiz"
	"github.com/abhisek/prepquiz/internal/router"
	"github.com/abhisek/prepquiz/internal/screen"
	"github.com/abhisek/prepquiz/internal/screens"
	sess "github.com/abhisek/prepquiz/internal/session"
	"github.com/abhisek/prepquiz/internal/ui/components"
	"github.com/abhisek/prepquiz/internal/ui/layout"
	"github.com/abhisek/prepquiz/internal/ui/theme"
)

const resendTimeout = 30 * time.Second

type resentMsg struct {
	Result *quiz.Result
	Err    error
}

// ReviewScreen is the read-only view of a completed session.
type ReviewScreen struct {
	deps        screens.Deps
	state       *sess.Session
	result      quiz.Result
	items       []sess.ReviewItem
	current     int
	deliveryErr string
	resending   bool
}

var _ screen.Screen = (*ReviewScreen)(nil)
var _ screen.KeyHintProvider = (*ReviewScreen)(nil)

// New creates a ReviewScreen for a completed session. deliveryErr is the
// error Finish returned alongside res, if any.
func New(deps screens.Deps, st *sess.Session, res quiz.Result, deliveryErr error) *ReviewScreen {
	s := &ReviewScreen{
		deps:   deps,
		state:  st,
		result: res,
		items:  st.Review(),
	}
	if deliveryErr != nil {
		s.deliveryErr = describe(deliveryErr)
	}
	return s
}

func (s *ReviewScreen) Init() tea.Cmd {
	return nil
}

func (s *ReviewScreen) Title() string {
	return "Results"
}

func (s *ReviewScreen) KeyHints() []layout.KeyHint {
	hints := []layout.KeyHint{{Key: "←→", Description: "Question"}}
	if s.canResend() {
		hints = append(hints, layout.KeyHint{Key: "R", Description: "Resend"})
	}
	return append(hints, layout.KeyHint{Key: "Enter", Description: "Done"})
}

func (s *ReviewScreen) canResend() bool {
	return s.deliveryErr != "" && !s.resending && s.deps.Practice != nil && s.deps.Practice.Delivers()
}

func (s *ReviewScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case resentMsg:
		s.resending = false
		if msg.Result != nil {
			s.result = *msg.Result
		}
		switch {
		case msg.Err == nil:
			s.deliveryErr = ""
		case errors.Is(msg.Err, sess.ErrAlreadySubmitting):
		default:
			s.deliveryErr = describe(msg.Err)
		}
		return s, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "enter", "esc", "q":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		case "right", "l", "n", "down", "j":
			if s.current < len(s.items)-1 {
				s.current++
			}
		case "left", "h", "p", "up", "k":
			if s.current > 0 {
				s.current--
			}
		case "home":
			s.current = 0
		case "end":
			s.current = max(0, len(s.items)-1)
		case "r", "R":
			if s.canResend() {
				return s, s.resend()
			}
		}
	}
	return s, nil
}

func (s *ReviewScreen) resend() tea.Cmd {
	s.resending = true
	svc := s.deps.Practice
	st := s.state
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), resendTimeout)
		defer cancel()
		res, err := svc.Resubmit(ctx, st)
		return resentMsg{Result: res, Err: err}
	}
}

// describe strips the delivery wrapper so the learner sees the cause.
func describe(err error) string {
	var de *sess.DeliveryError
	if errors.As(err, &de) {
		return api.Describe(de.Err)
	}
	return api.Describe(err)
}

func (s *ReviewScreen) View(width, height int) string {
	cw := components.ContentWidth(width)
	res := s.result

	var b strings.Builder
	b.WriteString("\n")
	if res.Auto {
		b.WriteString(center(width, theme.Warning.Render(sess.AutoSubmitNotice)))
		b.WriteString("\n\n")
	}

	scoreStyle := theme.Incorrect
	if res.Score >= gating.PassScore {
		scoreStyle = theme.Correct
	}
	b.WriteString(center(width, scoreStyle.Render(fmt.Sprintf("Score %d/%d", res.Score, res.Total))))
	b.WriteString("\n")
	b.WriteString(center(width, theme.Subtitle.Render(fmt.Sprintf("%.0f%% in %s · %s %s",
		res.Percent()*100, sess.FormatClock(time.Duration(res.ElapsedSecs)*time.Second),
		res.Topic, res.Mode.DisplayName()))))
	b.WriteString("\n")
	b.WriteString(center(width, s.renderDelivery()))
	b.WriteString("\n")
	if note := unlockNote(res); note != "" {
		b.WriteString(center(width, theme.Warning.Render(note)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if len(s.items) == 0 {
		return b.String()
	}
	b.WriteString(center(width, s.renderStrip(cw)))
	b.WriteString("\n\n")
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, components.Card(s.renderItem(cw-6), cw)))
	return b.String()
}

func (s *ReviewScreen) renderDelivery() string {
	switch {
	case s.resending:
		return theme.Hint.Render("Sending your result...")
	case s.deliveryErr != "":
		msg := "Result not delivered: " + s.deliveryErr
		if s.canResend() {
			msg += ". Press R to resend."
		}
		return theme.Incorrect.Render(msg)
	case s.result.Delivered:
		return lipgloss.NewStyle().Foreground(theme.Success).Render("✓ Result delivered")
	}
	return theme.Hint.Render("Result saved on this device")
}

// renderStrip marks each question right or wrong, underlining the current one.
func (s *ReviewScreen) renderStrip(cw int) string {
	var cells []string
	for i, it := range s.items {
		mark, style := "✗", theme.Incorrect
		if it.Correct {
			mark, style = "✓", theme.Correct
		}
		if !it.Answered {
			mark, style = "·", theme.Locked
		}
		if i == s.current {
			style = style.Underline(true)
		}
		cells = append(cells, style.Render(mark))
	}
	return lipgloss.NewStyle().MaxWidth(cw).Render(strings.Join(cells, " "))
}

func (s *ReviewScreen) renderItem(w int) string {
	it := s.items[s.current]

	var b strings.Builder
	b.WriteString(theme.Hint.Render(fmt.Sprintf("Question %d of %d", it.Index+1, len(s.items))))
	b.WriteString("\n\n")
	b.WriteString(lipgloss.NewStyle().Width(w).Foreground(theme.Text).Bold(true).Render(it.Prompt))
	b.WriteString("\n\n")

	chosen := -1
	correct := -1
	for i, opt := range it.Options {
		if it.Answered && opt == it.Chosen {
			chosen = i
		}
		if opt == it.Answer {
			correct = i
		}
	}
	b.WriteString(components.NewReviewChoice(it.Options, chosen, correct).View())

	if !it.Answered {
		b.WriteString("\n")
		b.WriteString(theme.Locked.Render("Not answered"))
		b.WriteString("\n")
	}
	if it.Explanation != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Width(w).Foreground(theme.TextDim).Render(it.Explanation))
	}
	return b.String()
}

// unlockNote names the mode a passing score opens, if any.
func unlockNote(res quiz.Result) string {
	if res.Score < gating.PassScore {
		return ""
	}
	for i, m := range quiz.Modes {
		if m == res.Mode && i+1 < len(quiz.Modes) {
			return fmt.Sprintf("%s is now unlocked for %s.", quiz.Modes[i+1].DisplayName(), res.Topic)
		}
	}
	return ""
}

func center(width int, s string) string {
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, s)
}
