package session

import (
	"fmt"
	"strings"
	"time"

	"charm.land/lipgloss/v2"

	sess "github.com/abhisek/prepquiz/internal/session"
	"github.com/abhisek/prepquiz/internal/ui/components"
	"github.com/abhisek/prepquiz/internal/ui/theme"
)

func (s *SessionScreen) View(width, height int) string {
	switch {
	case s.startErr != "":
		return s.renderError(width, "Could not start this test", s.startErr, "Press any key to go back.")
	case s.loadErr != "":
		hint := "Press R to retry or Esc to go back."
		if s.state != nil && s.state.Status() != sess.StatusLoading {
			hint = "Press Esc to go back."
		}
		return s.renderError(width, "Something went wrong", s.loadErr, hint)
	case s.loading:
		return dimCentered(width, "\n\n  Preparing your questions...")
	case s.submitting:
		return s.renderSubmitting(width)
	}

	switch s.confirm {
	case confirmSubmit:
		detail := ""
		left := len(s.questions) - s.state.Answered()
		if left > 0 {
			detail = fmt.Sprintf("%d of %d questions are not answered yet.", left, len(s.questions))
		}
		return components.Confirm(width, "Submit your test?", detail, "Submit", "Keep going", s.confirmYes)
	case confirmQuit:
		return components.Confirm(width, "Leave this test?", "Your answers will not be scored.", "Leave", "Stay", s.confirmYes)
	}

	return s.renderQuestion(width)
}

func (s *SessionScreen) renderQuestion(width int) string {
	cw := components.ContentWidth(width)
	q := s.questions[s.current]

	var b strings.Builder
	b.WriteString(s.renderInfoLine(cw))
	b.WriteString("\n")

	bar := components.NewProgressBar("", float64(s.state.Answered())/float64(len(s.questions)), false, cw)
	b.WriteString(bar.View())
	b.WriteString("\n\n")

	b.WriteString(lipgloss.NewStyle().
		Width(cw).
		Foreground(theme.Text).
		Bold(true).
		Render(q.Prompt))
	b.WriteString("\n\n")
	b.WriteString(s.choice.View())
	b.WriteString("\n")
	b.WriteString(s.renderStrip(cw))

	return lipgloss.PlaceHorizontal(width, lipgloss.Center, b.String())
}

// renderInfoLine shows position, answered count and the clock.
func (s *SessionScreen) renderInfoLine(cw int) string {
	left := lipgloss.NewStyle().
		Foreground(theme.Secondary).
		Bold(true).
		Render(fmt.Sprintf("Question %d/%d", s.current+1, len(s.questions)))

	remaining := s.state.Remaining()
	clock := lipgloss.NewStyle().Foreground(theme.TextDim)
	switch {
	case remaining < time.Minute:
		clock = clock.Foreground(theme.Error).Bold(true)
	case remaining < 5*time.Minute:
		clock = clock.Foreground(theme.Accent)
	}
	right := lipgloss.NewStyle().Foreground(theme.TextDim).
		Render(fmt.Sprintf("Answered %d/%d  ", s.state.Answered(), len(s.questions))) +
		clock.Render(sess.FormatClock(remaining))

	pad := cw - lipgloss.Width(left) - lipgloss.Width(right)
	if pad < 1 {
		pad = 1
	}
	return left + strings.Repeat(" ", pad) + right
}

// renderStrip shows every question number, marking answered ones.
func (s *SessionScreen) renderStrip(cw int) string {
	var cells []string
	for i := range s.questions {
		label := fmt.Sprintf("%d", i+1)
		style := lipgloss.NewStyle().Foreground(theme.TextDim)
		if _, ok := s.state.Answer(i); ok {
			style = style.Foreground(theme.Secondary)
		}
		if i == s.current {
			style = theme.Selected.Underline(true)
		}
		cells = append(cells, style.Render(label))
	}
	return lipgloss.NewStyle().Width(cw).Render(strings.Join(cells, " "))
}

func (s *SessionScreen) renderSubmitting(width int) string {
	var b strings.Builder
	b.WriteString("\n\n")
	if s.timeUp {
		b.WriteString(lipgloss.NewStyle().
			Width(width).
			Align(lipgloss.Center).
			Inherit(theme.Warning).
			Render(sess.AutoSubmitNotice))
		b.WriteString("\n\n")
	}
	b.WriteString(dimCentered(width, "Submitting your answers..."))
	return b.String()
}

func (s *SessionScreen) renderError(width int, title, detail, hint string) string {
	cw := components.ContentWidth(width)
	var b strings.Builder
	b.WriteString(theme.Incorrect.Render(title))
	b.WriteString("\n\n")
	b.WriteString(lipgloss.NewStyle().Foreground(theme.Text).Width(cw - 6).Render(detail))
	b.WriteString("\n\n")
	b.WriteString(theme.Hint.Render(hint))
	return "\n" + lipgloss.PlaceHorizontal(width, lipgloss.Center, components.Card(b.String(), cw))
}

func dimCentered(width int, text string) string {
	return lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.TextDim).
		Render(text)
}
