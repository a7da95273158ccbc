package quiz

import (
	"fmt"
	"strings"
	"time"
)

// Mode is the difficulty level of a test.
type Mode string

const (
	ModeEasy     Mode = "easy"
	ModeModerate Mode = "moderate"
	ModeHard     Mode = "hard"

	// ModeFinal is the long-form test unlocked after hard.
	ModeFinal Mode = "final"
)

// Modes lists every mode in unlock order.
var Modes = []Mode{ModeEasy, ModeModerate, ModeHard, ModeFinal}

const (
	// StandardQuestionCount is the size of an easy, moderate, or hard test.
	StandardQuestionCount = 20

	// FinalQuestionCount is the size of a final test.
	FinalQuestionCount = 50

	// StandardBudget is the time allowed for a standard test.
	StandardBudget = 1800 * time.Second

	// FinalBudget is the time allowed for a final test.
	FinalBudget = 3600 * time.Second
)

// ParseMode parses a mode name, case-insensitively.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Modes {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown mode %q (want easy, moderate, hard, or final)", s)
}

// QuestionCount returns how many questions a test in this mode asks.
func (m Mode) QuestionCount() int {
	if m == ModeFinal {
		return FinalQuestionCount
	}
	return StandardQuestionCount
}

// TimeBudget returns the countdown length for a test in this mode.
func (m Mode) TimeBudget() time.Duration {
	if m == ModeFinal {
		return FinalBudget
	}
	return StandardBudget
}

// Previous returns the mode that must be passed to unlock m.
// The second result is false for easy, which is always open.
func (m Mode) Previous() (Mode, bool) {
	for i, known := range Modes {
		if known == m && i > 0 {
			return Modes[i-1], true
		}
	}
	return "", false
}

// DisplayName returns the label shown in menus.
func (m Mode) DisplayName() string {
	switch m {
	case ModeEasy:
		return "Easy"
	case ModeModerate:
		return "Moderate"
	case ModeHard:
		return "Hard"
	case ModeFinal:
		return "Final Test"
	}
	return string(m)
}
