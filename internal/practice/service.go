// Package practice ties a test session to its collaborators: level
// gating before start, the question source, result delivery, and the
// local attempt and event store.
package practice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/abhisek/prepquiz/internal/auth"
	"github.com/abhisek/prepquiz/internal/gating"
	"github.com/abhisek/prepquiz/internal/quiz"
	"github.com/abhisek/prepquiz/internal/session"
	"github.com/abhisek/prepquiz/internal/store"
)

// Session event actions.
const (
	ActionStart       = "start"
	ActionLoaded      = "loaded"
	ActionLoadFailed  = "load_failed"
	ActionSubmitted   = "submitted"
	ActionAutoSubmit  = "auto_submitted"
	ActionUndelivered = "delivery_failed"
	ActionResent      = "resent"
	ActionAbandoned   = "abandoned"
)

// Deps are the collaborators of a Service. Only Source is required.
type Deps struct {
	Source session.QuestionSource

	// Poster delivers results. Nil keeps results local.
	Poster session.ResultPoster

	// Gate refuses locked modes. Nil allows every mode.
	Gate *gating.Checker

	Attempts store.AttemptRepo
	Events   store.EventRepo
	Grader   quiz.Grader
	Logger   *slog.Logger
}

// Service runs test sessions.
type Service struct {
	deps   Deps
	logger *slog.Logger
}

// NewService creates a Service.
func NewService(d Deps) *Service {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{deps: d, logger: logger}
}

// Delivers reports whether results are posted anywhere.
func (s *Service) Delivers() bool {
	return s.deps.Poster != nil
}

// Gate returns the level checker, or nil.
func (s *Service) Gate() *gating.Checker {
	return s.deps.Gate
}

// Start checks that mode is unlocked and creates a loading session. The
// caller loads it with Load.
func (s *Service) Start(ctx context.Context, user auth.User, topic string, mode quiz.Mode) (*session.Session, error) {
	if err := user.Require(); err != nil {
		return nil, err
	}
	if s.deps.Gate != nil {
		if err := s.deps.Gate.Require(ctx, user.ID, topic, mode); err != nil {
			return nil, err
		}
	}

	sess, err := session.New(session.Params{
		User:   user,
		Topic:  topic,
		Mode:   mode,
		Grader: s.deps.Grader,
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, sess, ActionStart, 0, "")
	s.logger.Info("test started", "session", sess.ID, "topic", topic, "mode", mode)
	return sess, nil
}

// Load fetches the session's questions. A failed load leaves the session
// loading so Load can be called again.
func (s *Service) Load(ctx context.Context, sess *session.Session) error {
	err := sess.Load(ctx, s.deps.Source)
	switch {
	case err == nil:
		s.record(ctx, sess, ActionLoaded, len(sess.Questions()), "")
		if d := sess.Dropped(); d > 0 {
			s.logger.Warn("dropped malformed questions", "session", sess.ID, "dropped", d)
		}
	case errors.Is(err, session.ErrStale), errors.Is(err, session.ErrLoadInFlight):
		// Nobody is waiting for this load.
	default:
		s.record(ctx, sess, ActionLoadFailed, 0, err.Error())
		s.logger.Warn("question load failed", "session", sess.ID, "error", err)
	}
	return err
}

// Finish submits the session, stores the result locally, and records the
// outcome. A *session.DeliveryError is returned alongside the result when
// the post failed; the result is still stored.
func (s *Service) Finish(ctx context.Context, sess *session.Session, auto bool) (*quiz.Result, error) {
	res, err := sess.Submit(ctx, s.deps.Poster, auto)
	if res == nil {
		return nil, err
	}

	if s.deps.Attempts != nil {
		if serr := s.deps.Attempts.AppendAttempt(context.WithoutCancel(ctx), *res); serr != nil {
			s.logger.Warn("failed to save attempt", "session", sess.ID, "error", serr)
		}
	}

	action := ActionSubmitted
	if res.Auto {
		action = ActionAutoSubmit
	}
	s.record(ctx, sess, action, res.Total, fmt.Sprintf("score %d/%d in %ds", res.Score, res.Total, res.ElapsedSecs))
	if err != nil {
		s.record(ctx, sess, ActionUndelivered, res.Total, err.Error())
		s.logger.Warn("result not delivered", "session", sess.ID, "error", err)
	}
	return res, err
}

// Resubmit re-posts the result of a completed session whose delivery
// failed. The score is never recomputed.
func (s *Service) Resubmit(ctx context.Context, sess *session.Session) (*quiz.Result, error) {
	if sess.Status() != session.StatusCompleted {
		return nil, session.ErrNotInProgress
	}
	res, err := sess.Submit(ctx, s.deps.Poster, false)
	if res == nil {
		return nil, err
	}

	if s.deps.Attempts != nil {
		if serr := s.deps.Attempts.AppendAttempt(context.WithoutCancel(ctx), *res); serr != nil {
			s.logger.Warn("failed to update attempt", "session", sess.ID, "error", serr)
		}
	}
	if err != nil {
		s.record(ctx, sess, ActionUndelivered, res.Total, err.Error())
		return res, err
	}
	if res.Delivered {
		s.record(ctx, sess, ActionResent, res.Total, "")
	}
	return res, nil
}

// Abandon closes a session the learner walked away from.
func (s *Service) Abandon(ctx context.Context, sess *session.Session) {
	if sess == nil {
		return
	}
	st := sess.Status()
	sess.Close()
	if st != session.StatusCompleted {
		s.record(ctx, sess, ActionAbandoned, len(sess.Questions()), st.String())
	}
}

// ResendReport summarizes a Resend pass.
type ResendReport struct {
	Sent   int
	Failed int
	Errors []string
}

// Resend posts every stored result of userID that was never delivered.
// An empty userID resends for every user.
func (s *Service) Resend(ctx context.Context, userID string) (ResendReport, error) {
	var rep ResendReport
	if s.deps.Poster == nil {
		return rep, fmt.Errorf("resend: no backend configured")
	}
	if s.deps.Attempts == nil {
		return rep, fmt.Errorf("resend: no attempt store")
	}

	pending, err := s.deps.Attempts.QueryAttempts(ctx, store.AttemptFilter{UserID: userID, UndeliveredOnly: true}, store.QueryOpts{})
	if err != nil {
		return rep, fmt.Errorf("resend: %w", err)
	}

	// Oldest first, so the backend sees attempts in the order they were taken.
	for i := len(pending) - 1; i >= 0; i-- {
		if ctx.Err() != nil {
			return rep, ctx.Err()
		}
		r := pending[i].Result
		if perr := s.deps.Poster.SubmitResult(ctx, r); perr != nil {
			rep.Failed++
			rep.Errors = append(rep.Errors, fmt.Sprintf("%s: %v", r.SessionID, perr))
			r.DeliveryError = perr.Error()
			if serr := s.deps.Attempts.AppendAttempt(ctx, r); serr != nil {
				s.logger.Warn("failed to update attempt", "session", r.SessionID, "error", serr)
			}
			continue
		}
		if err := s.deps.Attempts.MarkDelivered(ctx, r.SessionID); err != nil {
			return rep, fmt.Errorf("resend: %w", err)
		}
		rep.Sent++
		s.recordEvent(ctx, store.SessionEventData{
			SessionID: r.SessionID,
			Action:    ActionResent,
			UserID:    r.UserID,
			Topic:     r.Topic,
			Mode:      string(r.Mode),
			Questions: r.Total,
		})
	}
	return rep, nil
}

func (s *Service) record(ctx context.Context, sess *session.Session, action string, questions int, detail string) {
	s.recordEvent(ctx, store.SessionEventData{
		SessionID: sess.ID,
		Action:    action,
		UserID:    sess.User.ID,
		Topic:     sess.Topic,
		Mode:      string(sess.Mode),
		Questions: questions,
		Detail:    strings.TrimSpace(detail),
	})
}

// recordEvent writes a session event. A failed write never fails the
// operation.
func (s *Service) recordEvent(ctx context.Context, data store.SessionEventData) {
	if s.deps.Events == nil {
		return
	}
	if err := s.deps.Events.AppendSessionEvent(context.WithoutCancel(ctx), data); err != nil {
		s.logger.Warn("failed to record session event", "action", data.Action, "error", err)
	}
}
