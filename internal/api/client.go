// Package api is the REST client for the placement-training backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/abhisek/prepquiz/internal/quiz"
	"github.com/abhisek/prepquiz/internal/store"
)

// DefaultBaseURL is the backend used when none is configured.
const DefaultBaseURL = "http://localhost:8000/api"

// Endpoint paths relative to the base URL.
const (
	PathQuestions  = "/mcqs/test"
	PathSubmit     = "/test/submit"
	PathModeStatus = "/test/mode-status"
	PathBestScore  = "/test/best-score"
)

// maxErrorBody caps how much of a bad body is kept on errors.
const maxErrorBody = 512

// Recorder receives one event per backend call.
type Recorder interface {
	AppendAPIRequest(ctx context.Context, data store.APIRequestEventData) error
}

// Client talks to the backend over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	recorder   Recorder
	logger     *slog.Logger
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithRecorder records every request into the event log.
func WithRecorder(r Recorder) Option {
	return func(c *Client) {
		c.recorder = r
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a client for baseURL. An empty baseURL selects
// DefaultBaseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type questionsRequest struct {
	Topic      string `json:"topic"`
	Count      int    `json:"count"`
	Difficulty string `json:"difficulty"`
}

// Questions fetches req.Count questions for a topic and difficulty.
//
// A 2xx body that is valid JSON but not a list yields zero questions and
// no error, except an object with a detail field which is a BackendError.
// Items that do not decode come back as zero Questions so the caller's
// validation drops them.
func (c *Client) Questions(ctx context.Context, req quiz.Request) ([]quiz.Question, error) {
	const op = "fetch questions"

	body, err := c.post(ctx, op, PathQuestions, questionsRequest{
		Topic:      req.Topic,
		Count:      req.Count,
		Difficulty: string(req.Mode),
	})
	if err != nil {
		return nil, err
	}

	var raw json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &MalformedError{Op: op, Body: string(truncate(body)), Err: err}
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		if detail, ok := detailOf(trimmed); ok {
			return nil, &BackendError{Op: op, Status: http.StatusOK, Detail: detail}
		}
		c.logger.Warn("questions payload is not a list", "topic", req.Topic, "mode", req.Mode)
		return []quiz.Question{}, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, &MalformedError{Op: op, Body: string(truncate(body)), Err: err}
	}

	questions := make([]quiz.Question, len(items))
	for i, item := range items {
		var q quiz.Question
		if err := json.Unmarshal(item, &q); err != nil {
			continue
		}
		questions[i] = q
	}
	return questions, nil
}

type submitRequest struct {
	UserID    string `json:"user_id"`
	Topic     string `json:"topic"`
	Mode      string `json:"mode"`
	Score     int    `json:"score"`
	Total     int    `json:"total"`
	TimeTaken int    `json:"time_taken"`
}

// SubmitResult posts a scored result. The acknowledgement body is ignored.
func (c *Client) SubmitResult(ctx context.Context, r quiz.Result) error {
	_, err := c.post(ctx, "submit result", PathSubmit, submitRequest{
		UserID:    r.UserID,
		Topic:     r.Topic,
		Mode:      string(r.Mode),
		Score:     r.Score,
		Total:     r.Total,
		TimeTaken: r.ElapsedSecs,
	})
	return err
}

type modeRequest struct {
	UserID string `json:"userId"`
	Topic  string `json:"topic"`
	Mode   string `json:"mode"`
}

// ModeStatus asks the backend whether mode is unlocked for the user.
func (c *Client) ModeStatus(ctx context.Context, userID, topic string, mode quiz.Mode) (bool, error) {
	const op = "mode status"

	body, err := c.post(ctx, op, PathModeStatus, modeRequest{UserID: userID, Topic: topic, Mode: string(mode)})
	if err != nil {
		return false, err
	}

	var resp struct {
		Unlocked *bool `json:"unlocked"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return false, &MalformedError{Op: op, Body: string(truncate(body)), Err: err}
	}
	if resp.Unlocked == nil {
		return false, &MalformedError{Op: op, Body: string(truncate(body)), Err: fmt.Errorf("missing unlocked field")}
	}
	return *resp.Unlocked, nil
}

// BestScore returns the backend's best score for (user, topic, mode).
// The bool is false when the backend reports null.
func (c *Client) BestScore(ctx context.Context, userID, topic string, mode quiz.Mode) (int, bool, error) {
	const op = "best score"

	body, err := c.post(ctx, op, PathBestScore, modeRequest{UserID: userID, Topic: topic, Mode: string(mode)})
	if err != nil {
		return 0, false, err
	}

	var resp struct {
		BestScore *float64 `json:"best_score"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, false, &MalformedError{Op: op, Body: string(truncate(body)), Err: err}
	}
	if resp.BestScore == nil {
		return 0, false, nil
	}
	return int(*resp.BestScore), true, nil
}

// Health checks that the backend is reachable.
func (c *Client) Health(ctx context.Context) error {
	root := strings.TrimSuffix(c.baseURL, "/api")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, root+"/health", nil)
	if err != nil {
		return &TransportError{Op: "health", Err: err}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: "health", Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode/100 != 2 {
		return &BackendError{Op: "health", Status: resp.StatusCode}
	}
	return nil
}

// post sends payload as JSON and returns the body of a 2xx response.
// Every call is recorded, successful or not.
func (c *Client) post(ctx context.Context, op, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: marshal request: %w", op, err)
	}

	start := time.Now()
	body, status, err := c.doRequest(ctx, path, data)
	if err != nil {
		err = &TransportError{Op: op, Err: err}
	} else if status/100 != 2 {
		err = decodeHTTPError(op, status, body)
	}
	c.record(ctx, path, status, time.Since(start), err)

	if err != nil {
		c.logger.Debug("backend request failed", "op", op, "status", status, "error", err)
		return nil, err
	}
	return body, nil
}

func (c *Client) doRequest(ctx context.Context, path string, payload []byte) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

func (c *Client) record(ctx context.Context, path string, status int, latency time.Duration, reqErr error) {
	if c.recorder == nil {
		return
	}
	data := store.APIRequestEventData{
		Endpoint:  path,
		Status:    status,
		LatencyMs: latency.Milliseconds(),
		Success:   reqErr == nil,
	}
	if reqErr != nil {
		data.ErrorMessage = reqErr.Error()
	}
	// Recording must survive a cancelled request context.
	if err := c.recorder.AppendAPIRequest(context.WithoutCancel(ctx), data); err != nil {
		c.logger.Warn("failed to record API request", "endpoint", path, "error", err)
	}
}

func decodeHTTPError(op string, status int, body []byte) error {
	if detail, ok := detailOf(bytes.TrimSpace(body)); ok {
		return &BackendError{Op: op, Status: status, Detail: detail}
	}
	return &BackendError{Op: op, Status: status, Detail: strings.TrimSpace(string(truncate(body)))}
}

// detailOf extracts the detail field from an error object. FastAPI-style
// validation errors carry a list there; those are flattened to their msg
// fields.
func detailOf(body []byte) (string, bool) {
	if len(body) == 0 || body[0] != '{' {
		return "", false
	}
	var obj struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &obj); err != nil || len(obj.Detail) == 0 {
		return "", false
	}

	var s string
	if err := json.Unmarshal(obj.Detail, &s); err == nil {
		return s, true
	}

	var list []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(obj.Detail, &list); err == nil {
		msgs := make([]string, 0, len(list))
		for _, item := range list {
			if item.Msg != "" {
				msgs = append(msgs, item.Msg)
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; "), true
		}
	}
	return string(obj.Detail), true
}

func truncate(body []byte) []byte {
	if len(body) > maxErrorBody {
		return body[:maxErrorBody]
	}
	return body
}
