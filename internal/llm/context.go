package llm

import "context"

// Purpose values recorded with LLM request events.
const (
	PurposeQuestions   = "questions"
	PurposeHealthCheck = "health-check"
	purposeUnlabeled   = "unlabeled"
)

type purposeKey struct{}

// WithPurpose labels calls made with ctx. The label is stored on the
// llm_request event and grouped by `prepquiz stats`.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey{}, purpose)
}

// PurposeFrom returns the label set by WithPurpose, or "unlabeled".
func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(purposeKey{}).(string); ok && v != "" {
		return v
	}
	return purposeUnlabeled
}
