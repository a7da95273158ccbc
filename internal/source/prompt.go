package source

import (
	"fmt"
	"strings"

	"github.com/abhisek/prepquiz/internal/quiz"
)

const systemPrompt = `You write aptitude test questions for students preparing for campus placement tests.

Rules:
- Generate exactly the requested number of multiple-choice questions on the given topic and difficulty.
- Every question has exactly 4 options and exactly one correct option.
- The answer field must be copied character for character from one of the options.
- Distractors should reflect common mistakes, not random values.
- Use plain text. No LaTeX, no Markdown.
- Keep each explanation to a few short steps.
- Do not repeat any question from the "already asked" list.`

// difficultyHint describes each mode for the prompt.
func difficultyHint(m quiz.Mode) string {
	switch m {
	case quiz.ModeEasy:
		return "easy: single-step problems a beginner can solve in under a minute"
	case quiz.ModeModerate:
		return "moderate: two or three steps, typical of placement screening tests"
	case quiz.ModeHard:
		return "hard: multi-step problems with tempting distractors"
	case quiz.ModeFinal:
		return "mixed: a spread of easy, moderate and hard questions"
	}
	return string(m)
}

// buildUserMessage constructs the user message for one batch.
func buildUserMessage(req quiz.Request, n int, prior []string, maxPrior int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Topic: %s\n", req.Topic)
	fmt.Fprintf(&b, "Difficulty: %s\n", difficultyHint(req.Mode))
	fmt.Fprintf(&b, "Number of questions: %d\n", n)

	b.WriteString("\nAlready asked in this test:\n")
	b.WriteString(buildDedup(prior, maxPrior))

	return b.String()
}

// buildDedup formats prior prompts, keeping only the most recent max.
func buildDedup(prior []string, max int) string {
	if len(prior) == 0 {
		return "None"
	}
	if max > 0 && len(prior) > max {
		prior = prior[len(prior)-max:]
	}

	var b strings.Builder
	for i, q := range prior {
		fmt.Fprintf(&b, "%d. %s\n", i+1, q)
	}
	return strings.TrimRight(b.String(), "\n")
}
