package store

import (
	"context"
	"time"

	"github.com/abhisek/prepquiz/internal/quiz"
)

// QueryOpts configures queries with filtering and pagination.
type QueryOpts struct {
	Limit  int       // max results (0 = unlimited)
	After  int64     // sequence > After
	Before int64     // sequence < Before
	From   time.Time // timestamp >= From
	To     time.Time // timestamp <= To
}

// AttemptFilter narrows attempt queries. Empty fields match everything.
type AttemptFilter struct {
	UserID          string
	Topic           string
	Mode            quiz.Mode
	UndeliveredOnly bool
}

// AttemptRecord is a stored test result.
type AttemptRecord struct {
	ID        int64
	Sequence  int64
	Timestamp time.Time
	Result    quiz.Result
}

// AttemptRepo stores scored test results.
type AttemptRepo interface {
	// AppendAttempt records a result. Recording the same session twice
	// updates the delivery fields of the existing row.
	AppendAttempt(ctx context.Context, r quiz.Result) error

	// MarkDelivered flags a stored result as acknowledged by the backend.
	MarkDelivered(ctx context.Context, sessionID string) error

	// QueryAttempts returns matching attempts, newest first.
	QueryAttempts(ctx context.Context, f AttemptFilter, opts QueryOpts) ([]AttemptRecord, error)

	// BestScore returns the highest score for (user, topic, mode).
	// The bool is false when no attempt exists.
	BestScore(ctx context.Context, userID, topic string, mode quiz.Mode) (int, bool, error)
}

// SessionEventData captures a session lifecycle event.
type SessionEventData struct {
	SessionID string
	Action    string // start, loaded, load_failed, submitted, auto_submitted, delivery_failed, resent, abandoned
	UserID    string
	Topic     string
	Mode      string
	Questions int
	Detail    string
}

// SessionEventRecord is a stored session event.
type SessionEventRecord struct {
	Sequence  int64
	Timestamp time.Time
	SessionEventData
}

// APIRequestEventData captures a single backend request.
type APIRequestEventData struct {
	Endpoint     string
	Status       int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// EventRepo provides append access to operational events.
type EventRepo interface {
	// AppendSessionEvent records a session lifecycle event.
	AppendSessionEvent(ctx context.Context, data SessionEventData) error

	// AppendAPIRequest records a backend API call.
	AppendAPIRequest(ctx context.Context, data APIRequestEventData) error

	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QuerySessionEvents returns events for one session in sequence order.
	QuerySessionEvents(ctx context.Context, sessionID string) ([]SessionEventRecord, error)

	// LLMUsage sums recorded LLM calls per provider and model.
	LLMUsage(ctx context.Context) ([]LLMUsage, error)
}

// LLMUsage is the token total of one provider and model.
type LLMUsage struct {
	Provider     string
	Model        string
	Requests     int
	Failures     int
	InputTokens  int
	OutputTokens int
}
