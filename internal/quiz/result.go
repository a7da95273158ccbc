package quiz

import "time"

// Request asks a question source for the questions of one test.
type Request struct {
	Topic string
	Mode  Mode
	Count int
}

// Result is the scored outcome of one test session.
type Result struct {
	SessionID   string
	UserID      string
	Topic       string
	Mode        Mode
	Score       int
	Total       int
	ElapsedSecs int

	// Auto is true when the timer submitted the test.
	Auto bool

	SubmittedAt time.Time

	// Delivered is true once the backend acknowledged the result.
	Delivered bool

	// DeliveryError holds the last delivery failure message, if any.
	DeliveryError string
}

// Percent returns the score as a fraction of the total in [0, 1].
func (r Result) Percent() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Score) / float64(r.Total)
}
