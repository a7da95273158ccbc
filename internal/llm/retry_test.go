package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func fastRetry() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		InitialWait: time.Millisecond,
		MaxWait:     10 * time.Millisecond,
		Multiplier:  2,
	}
}

func down() MockResponse {
	return MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("502 bad gateway")}}
}

func batch() MockResponse {
	return MockResponse{Content: json.RawMessage(validBatch)}
}

func TestRetryFirstAttempt(t *testing.T) {
	mock := NewMockProvider(batch())
	resp, err := WithRetry(mock, fastRetry()).Generate(context.Background(), questionRequest("Percentages"))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if string(resp.Content) != validBatch {
		t.Errorf("content = %s", resp.Content)
	}
	if mock.CallCount() != 1 {
		t.Errorf("calls = %d, want 1", mock.CallCount())
	}
}

func TestRetryUnavailableThenBatch(t *testing.T) {
	mock := NewMockProvider(down(), batch())
	if _, err := WithRetry(mock, fastRetry()).Generate(context.Background(), questionRequest("Percentages")); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if mock.CallCount() != 2 {
		t.Errorf("calls = %d, want 2", mock.CallCount())
	}
}

func TestRetryGivesUpAfterMaxAttempts(t *testing.T) {
	mock := NewMockProvider(down(), down(), down(), batch())
	_, err := WithRetry(mock, fastRetry()).Generate(context.Background(), questionRequest("Percentages"))
	var unavail *ErrProviderUnavailable
	if !errors.As(err, &unavail) {
		t.Fatalf("err = %v, want the last ErrProviderUnavailable", err)
	}
	if mock.CallCount() != 3 {
		t.Errorf("calls = %d, want 3", mock.CallCount())
	}
}

func TestRetrySkipsTruncatedBatch(t *testing.T) {
	// The source shrinks its batch on truncation, so retrying the same size is wasted.
	mock := NewMockProvider(MockResponse{Err: &ErrMaxTokensExceeded{}}, batch())
	_, err := WithRetry(mock, fastRetry()).Generate(context.Background(), questionRequest("Percentages"))
	var mt *ErrMaxTokensExceeded
	if !errors.As(err, &mt) {
		t.Fatalf("err = %v, want ErrMaxTokensExceeded", err)
	}
	if mock.CallCount() != 1 {
		t.Errorf("calls = %d, want 1", mock.CallCount())
	}
}

func TestRetryInvalidBatchOnce(t *testing.T) {
	bad := MockResponse{Err: &ErrInvalidResponse{
		Content: json.RawMessage(`{"questions":[{"question":"q"}]}`),
		Err:     errors.New("missing properties: options, answer, explanation"),
	}}
	mock := NewMockProvider(bad, bad, batch())
	_, err := WithRetry(mock, fastRetry()).Generate(context.Background(), questionRequest("Percentages"))
	var inv *ErrInvalidResponse
	if !errors.As(err, &inv) {
		t.Fatalf("err = %v, want ErrInvalidResponse", err)
	}
	if mock.CallCount() != 2 {
		t.Errorf("calls = %d, want 2", mock.CallCount())
	}
}

func TestRetryInvalidThenUnavailableStillRetries(t *testing.T) {
	bad := MockResponse{Err: &ErrInvalidResponse{Err: errors.New("schema")}}
	mock := NewMockProvider(bad, down(), batch())
	if _, err := WithRetry(mock, fastRetry()).Generate(context.Background(), questionRequest("Percentages")); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if mock.CallCount() != 3 {
		t.Errorf("calls = %d, want 3", mock.CallCount())
	}
}

func TestRetryStopsOnCancel(t *testing.T) {
	mock := NewMockProvider(down(), down(), batch())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := fastRetry()
	cfg.InitialWait = time.Second
	_, err := WithRetry(mock, cfg).Generate(ctx, questionRequest("Percentages"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if mock.CallCount() != 1 {
		t.Errorf("calls = %d, want 1", mock.CallCount())
	}
}

func TestRetryHonorsRetryAfter(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Err: &ErrRateLimit{RetryAfter: time.Millisecond, Err: errors.New("429")}},
		batch(),
	)
	cfg := fastRetry()
	cfg.InitialWait = time.Hour
	cfg.MaxWait = time.Hour

	start := time.Now()
	if _, err := WithRetry(mock, cfg).Generate(context.Background(), questionRequest("Percentages")); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("RetryAfter should replace the exponential backoff")
	}
}

func TestRetryBackoffCapped(t *testing.T) {
	r := &RetryProvider{config: RetryConfig{InitialWait: 100 * time.Millisecond, MaxWait: 300 * time.Millisecond, Multiplier: 2}}
	for attempt := range 6 {
		// MaxWait plus 20% jitter.
		if w := r.backoff(attempt, errors.New("x")); w > 360*time.Millisecond {
			t.Errorf("attempt %d waited %s", attempt, w)
		}
	}
}

func TestRetryModelID(t *testing.T) {
	if id := WithRetry(NewMockProvider(), fastRetry()).ModelID(); id != "mock" {
		t.Errorf("ModelID = %q, want mock", id)
	}
}
