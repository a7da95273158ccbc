package quiz

import (
	"errors"
	"fmt"
	"strings"
)

// Question is a single multiple-choice question as served by the backend.
// Questions are immutable once fetched.
type Question struct {
	// Prompt is the question text shown to the learner.
	Prompt string `json:"question" yaml:"question"`

	// Options is the ordered list of choices, typically four.
	Options []string `json:"options" yaml:"options"`

	// Answer is the canonical answer. It matches one entry of Options.
	Answer string `json:"answer" yaml:"answer"`

	// Explanation is the worked solution shown during review.
	Explanation string `json:"explanation" yaml:"explanation"`
}

// MinOptions is the fewest options a question may carry.
const MinOptions = 2

// HasOption reports whether opt is one of the question's options.
func (q Question) HasOption(opt string) bool {
	return q.OptionIndex(opt) >= 0
}

// OptionIndex returns the index of opt in Options, or -1.
func (q Question) OptionIndex(opt string) int {
	for i, o := range q.Options {
		if o == opt {
			return i
		}
	}
	return -1
}

// AnswerIndex returns the index of the canonical answer in Options, or -1.
func (q Question) AnswerIndex() int {
	return q.OptionIndex(q.Answer)
}

// ErrInvalidQuestion is returned by Validate for questions that cannot be
// presented or graded.
var ErrInvalidQuestion = errors.New("invalid question")

// Validate checks that the question has a prompt, enough distinct options,
// and a canonical answer among them.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Prompt) == "" {
		return fmt.Errorf("%w: empty prompt", ErrInvalidQuestion)
	}
	if len(q.Options) < MinOptions {
		return fmt.Errorf("%w: %d options, need at least %d", ErrInvalidQuestion, len(q.Options), MinOptions)
	}
	seen := make(map[string]bool, len(q.Options))
	for _, o := range q.Options {
		if seen[o] {
			return fmt.Errorf("%w: duplicate option %q", ErrInvalidQuestion, o)
		}
		seen[o] = true
	}
	if !seen[q.Answer] {
		return fmt.Errorf("%w: answer %q is not one of the options", ErrInvalidQuestion, q.Answer)
	}
	return nil
}

// Sanitize drops questions that fail Validate and truncates the list to
// want entries when want > 0. It returns the kept questions and the
// number dropped as invalid.
func Sanitize(items []Question, want int) ([]Question, int) {
	kept := make([]Question, 0, len(items))
	dropped := 0
	for _, q := range items {
		if q.Validate() != nil {
			dropped++
			continue
		}
		kept = append(kept, q)
	}
	if want > 0 && len(kept) > want {
		kept = kept[:want]
	}
	return kept, dropped
}
