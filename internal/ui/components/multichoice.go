package components

import (
	"fmt"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/prepquiz/internal/ui/theme"
)

// MultiChoice renders the options of one question with a movable cursor.
// Chosen is the learner's recorded pick, or -1. Once Reviewed is set the
// correct and chosen options are colored and the cursor is hidden.
type MultiChoice struct {
	Options      []string
	Cursor       int
	Chosen       int
	Reviewed     bool
	CorrectIndex int
}

// NewMultiChoice creates a selector over options with nothing chosen.
func NewMultiChoice(options []string, chosen int) MultiChoice {
	cursor := 0
	if chosen >= 0 && chosen < len(options) {
		cursor = chosen
	}
	return MultiChoice{
		Options:      options,
		Cursor:       cursor,
		Chosen:       chosen,
		CorrectIndex: -1,
	}
}

// NewReviewChoice creates a read-only selector showing the chosen and
// correct options.
func NewReviewChoice(options []string, chosen, correct int) MultiChoice {
	return MultiChoice{
		Options:      options,
		Cursor:       -1,
		Chosen:       chosen,
		Reviewed:     true,
		CorrectIndex: correct,
	}
}

// OptionLabel returns the letter shown before option i.
func OptionLabel(i int) string {
	if i < 0 || i >= 26 {
		return "?"
	}
	return string(rune('A' + i))
}

// Update moves the cursor. Enter reports the cursor position through
// Picked; the caller records the answer.
func (m MultiChoice) Update(msg tea.Msg) (MultiChoice, bool) {
	if m.Reviewed {
		return m, false
	}

	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, false
	}

	switch kmsg.String() {
	case "up", "k":
		if m.Cursor > 0 {
			m.Cursor--
		}
	case "down", "j":
		if m.Cursor < len(m.Options)-1 {
			m.Cursor++
		}
	case "enter", "space":
		return m, true
	}
	return m, false
}

// View renders the options, one per line.
func (m MultiChoice) View() string {
	var s string
	for i, opt := range m.Options {
		prefix := "  "
		if i == m.Cursor && !m.Reviewed {
			prefix = "▸ "
		}
		mark := "  "
		if i == m.Chosen {
			mark = "● "
		}
		line := fmt.Sprintf("%s%s%s)  %s", prefix, mark, OptionLabel(i), opt)

		style := lipgloss.NewStyle().Foreground(theme.Text)
		switch {
		case m.Reviewed && i == m.CorrectIndex:
			style = theme.Correct
		case m.Reviewed && i == m.Chosen:
			style = theme.Incorrect
		case m.Reviewed:
			style = style.Foreground(theme.TextDim)
		case i == m.Cursor:
			style = theme.Selected
		case i == m.Chosen:
			style = style.Foreground(theme.Secondary)
		}
		s += style.Render(line) + "\n"
	}
	return s
}
