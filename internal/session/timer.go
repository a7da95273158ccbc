package session

import (
	"fmt"
	"time"
)

// TimerState is the countdown's phase.
type TimerState int

const (
	TimerIdle    TimerState = iota // Not started
	TimerRunning                   // Counting down
	TimerStopped                   // Stopped before reaching zero
	TimerExpired                   // Reached zero
)

func (s TimerState) String() string {
	switch s {
	case TimerIdle:
		return "idle"
	case TimerRunning:
		return "running"
	case TimerStopped:
		return "stopped"
	case TimerExpired:
		return "expired"
	}
	return fmt.Sprintf("TimerState(%d)", int(s))
}

// Timer is a whole-second countdown. It has no clock of its own; a driver
// calls Tick once per second. There is no pause or resume.
type Timer struct {
	budget    int
	remaining int
	state     TimerState
}

// NewTimer creates an idle timer for budget, rounded down to whole seconds.
func NewTimer(budget time.Duration) *Timer {
	secs := int(budget / time.Second)
	if secs < 0 {
		secs = 0
	}
	return &Timer{budget: secs, remaining: secs}
}

// Start moves an idle timer to running. It reports whether it did.
func (t *Timer) Start() bool {
	if t.state != TimerIdle {
		return false
	}
	t.state = TimerRunning
	return true
}

// Tick advances a running timer by one second. It returns true exactly
// once, on the tick that brings remaining time to zero.
func (t *Timer) Tick() bool {
	if t.state != TimerRunning {
		return false
	}
	if t.remaining > 0 {
		t.remaining--
	}
	if t.remaining == 0 {
		t.state = TimerExpired
		return true
	}
	return false
}

// Stop halts a running timer. Stopped and expired timers never tick again.
func (t *Timer) Stop() {
	if t.state == TimerRunning || t.state == TimerIdle {
		t.state = TimerStopped
	}
}

// State returns the timer's phase.
func (t *Timer) State() TimerState { return t.state }

// RemainingSeconds returns the seconds left. It is never negative.
func (t *Timer) RemainingSeconds() int { return t.remaining }

// Remaining returns the time left.
func (t *Timer) Remaining() time.Duration {
	return time.Duration(t.remaining) * time.Second
}

// Budget returns the full countdown length.
func (t *Timer) Budget() time.Duration {
	return time.Duration(t.budget) * time.Second
}

// FormatClock renders d as MM:SS, or H:MM:SS past an hour.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
