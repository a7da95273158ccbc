package session

import "github.com/abhisek/prepquiz/internal/quiz"

// ReviewItem is one graded question shown after submission.
type ReviewItem struct {
	Index       int
	Prompt      string
	Options     []string
	Chosen      string
	Answered    bool
	Answer      string
	Correct     bool
	Explanation string
}

func buildReview(questions []quiz.Question, answers map[int]string, grade quiz.Grader) []ReviewItem {
	items := make([]ReviewItem, len(questions))
	for i, q := range questions {
		chosen, ok := answers[i]
		items[i] = ReviewItem{
			Index:       i,
			Prompt:      q.Prompt,
			Options:     q.Options,
			Chosen:      chosen,
			Answered:    ok,
			Answer:      q.Answer,
			Correct:     ok && grade(chosen, q.Answer),
			Explanation: q.Explanation,
		}
	}
	return items
}

// Review returns the graded questions once the session has been scored.
// It is nil before submission.
func (s *Session) Review() []ReviewItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.review
}
