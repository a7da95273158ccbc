package quiz

import (
	"fmt"
	"strings"
)

// Grader decides whether a chosen option matches the canonical answer.
type Grader func(chosen, canonical string) bool

// ExactMatch compares option text byte for byte. It is the default.
func ExactMatch(chosen, canonical string) bool {
	return chosen == canonical
}

// Normalized compares option text after trimming surrounding whitespace
// and folding case.
func Normalized(chosen, canonical string) bool {
	return strings.EqualFold(strings.TrimSpace(chosen), strings.TrimSpace(canonical))
}

// GraderFor returns the grader registered under name.
// An empty name selects ExactMatch.
func GraderFor(name string) (Grader, error) {
	switch name {
	case "", "exact":
		return ExactMatch, nil
	case "normalized":
		return Normalized, nil
	}
	return nil, fmt.Errorf("unknown grading mode %q (want exact or normalized)", name)
}

// Score counts the indices i in [0, len(questions)) where answers[i]
// grades as correct against questions[i].Answer. Unanswered questions
// never count. A nil grader means ExactMatch.
func Score(questions []Question, answers map[int]string, grade Grader) int {
	if grade == nil {
		grade = ExactMatch
	}
	correct := 0
	for i, q := range questions {
		chosen, ok := answers[i]
		if !ok {
			continue
		}
		if grade(chosen, q.Answer) {
			correct++
		}
	}
	return correct
}
