package session

import "maps"

// AnswerStore maps question index to the selected option text. Absent
// entries are unanswered. It is not safe for concurrent use; Session
// guards it.
type AnswerStore struct {
	size  int
	picks map[int]string
}

// NewAnswerStore creates an empty store for size questions.
func NewAnswerStore(size int) *AnswerStore {
	return &AnswerStore{size: size, picks: make(map[int]string, size)}
}

// Select records opt for question i, replacing any earlier choice.
func (a *AnswerStore) Select(i int, opt string) error {
	if i < 0 || i >= a.size {
		return ErrInvalidSelection
	}
	a.picks[i] = opt
	return nil
}

// Get returns the choice for question i.
func (a *AnswerStore) Get(i int) (string, bool) {
	opt, ok := a.picks[i]
	return opt, ok
}

// Answered returns how many questions have a choice.
func (a *AnswerStore) Answered() int { return len(a.picks) }

// Size returns the number of questions the store covers.
func (a *AnswerStore) Size() int { return a.size }

// Snapshot returns a copy of the current choices.
func (a *AnswerStore) Snapshot() map[int]string {
	return maps.Clone(a.picks)
}
