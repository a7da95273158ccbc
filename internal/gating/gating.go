// Package gating decides which difficulty levels a learner may attempt.
//
// Easy is always open. Each later mode opens once the best score on the
// mode before it reaches PassScore. The backend is asked first; when it
// cannot be reached the same rule runs against local attempt history.
package gating

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/abhisek/prepquiz/internal/auth"
	"github.com/abhisek/prepquiz/internal/quiz"
)

// PassScore is the best score on a mode that unlocks the next one.
const PassScore = 15

// ErrLocked is returned when a test is started for a locked mode.
var ErrLocked = errors.New("level is locked")

// Source says where a LevelStatus came from.
type Source string

const (
	SourceRemote Source = "remote"
	SourceLocal  Source = "local"
)

// LevelStatus is the unlock state of one mode for a topic.
type LevelStatus struct {
	Mode     quiz.Mode
	Unlocked bool

	// Best is the best score on this mode; HasBest is false when the
	// learner has no attempt.
	Best    int
	HasBest bool

	// Required is the best score needed on the previous mode, 0 for easy.
	Required int
	Source   Source
}

// Unlocked applies the rule to the best score of the previous mode.
func Unlocked(mode quiz.Mode, prevBest int, hasPrev bool) bool {
	if _, ok := mode.Previous(); !ok {
		return true
	}
	return hasPrev && prevBest >= PassScore
}

// Remote is the backend half of the checker.
type Remote interface {
	ModeStatus(ctx context.Context, userID, topic string, mode quiz.Mode) (bool, error)
	BestScore(ctx context.Context, userID, topic string, mode quiz.Mode) (int, bool, error)
}

// History is the local half of the checker.
type History interface {
	BestScore(ctx context.Context, userID, topic string, mode quiz.Mode) (int, bool, error)
}

// Checker resolves level status for a user and topic.
type Checker struct {
	remote  Remote
	history History
	logger  *slog.Logger
}

// NewChecker creates a checker. Either half may be nil; with both nil
// only easy is unlocked.
func NewChecker(remote Remote, history History, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{remote: remote, history: history, logger: logger}
}

// Levels returns the status of every mode, in order. A remote failure on
// any call switches the whole table to local history.
func (c *Checker) Levels(ctx context.Context, userID, topic string) ([]LevelStatus, error) {
	if userID == "" {
		return nil, fmt.Errorf("levels: %w", auth.ErrNoUser)
	}

	if c.remote != nil {
		levels, err := c.remoteLevels(ctx, userID, topic)
		if err == nil {
			return levels, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Warn("remote level status unavailable, using local history",
			"topic", topic, "error", err)
	}
	return c.localLevels(ctx, userID, topic)
}

// Level returns the status of one mode.
func (c *Checker) Level(ctx context.Context, userID, topic string, mode quiz.Mode) (LevelStatus, error) {
	levels, err := c.Levels(ctx, userID, topic)
	if err != nil {
		return LevelStatus{}, err
	}
	for _, l := range levels {
		if l.Mode == mode {
			return l, nil
		}
	}
	return LevelStatus{}, fmt.Errorf("unknown mode %q", mode)
}

// Require returns ErrLocked unless mode is unlocked.
func (c *Checker) Require(ctx context.Context, userID, topic string, mode quiz.Mode) error {
	l, err := c.Level(ctx, userID, topic, mode)
	if err != nil {
		return err
	}
	if !l.Unlocked {
		prev, _ := mode.Previous()
		return fmt.Errorf("%w: %s needs a best score of %d on %s", ErrLocked,
			mode.DisplayName(), PassScore, prev.DisplayName())
	}
	return nil
}

func (c *Checker) remoteLevels(ctx context.Context, userID, topic string) ([]LevelStatus, error) {
	levels := make([]LevelStatus, 0, len(quiz.Modes))
	for _, m := range quiz.Modes {
		best, hasBest, err := c.remote.BestScore(ctx, userID, topic, m)
		if err != nil {
			return nil, err
		}
		unlocked := true
		if _, ok := m.Previous(); ok {
			unlocked, err = c.remote.ModeStatus(ctx, userID, topic, m)
			if err != nil {
				return nil, err
			}
		}
		levels = append(levels, LevelStatus{
			Mode:     m,
			Unlocked: unlocked,
			Best:     best,
			HasBest:  hasBest,
			Required: required(m),
			Source:   SourceRemote,
		})
	}
	return levels, nil
}

func (c *Checker) localLevels(ctx context.Context, userID, topic string) ([]LevelStatus, error) {
	levels := make([]LevelStatus, 0, len(quiz.Modes))
	var prevBest int
	var hasPrev bool
	for _, m := range quiz.Modes {
		var (
			best    int
			hasBest bool
			err     error
		)
		if c.history != nil {
			best, hasBest, err = c.history.BestScore(ctx, userID, topic, m)
			if err != nil {
				return nil, fmt.Errorf("local best score: %w", err)
			}
		}
		levels = append(levels, LevelStatus{
			Mode:     m,
			Unlocked: Unlocked(m, prevBest, hasPrev),
			Best:     best,
			HasBest:  hasBest,
			Required: required(m),
			Source:   SourceLocal,
		})
		prevBest, hasPrev = best, hasBest
	}
	return levels, nil
}

func required(m quiz.Mode) int {
	if _, ok := m.Previous(); ok {
		return PassScore
	}
	return 0
}
