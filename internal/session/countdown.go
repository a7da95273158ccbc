package session

import (
	"context"
	"time"
)

// Countdown ticks s once per value received on ticks until the timer
// expires, the session leaves in-progress, the session is closed, or ctx
// is done. onExpire runs once, on the goroutine calling Countdown, when
// the budget is used up.
func Countdown(ctx context.Context, s *Session, ticks <-chan time.Time, onExpire func()) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.Done():
			return
		case _, ok := <-ticks:
			if !ok {
				return
			}
			if s.Tick() {
				if onExpire != nil {
					onExpire()
				}
				return
			}
			if s.Status() != StatusInProgress {
				return
			}
		}
	}
}

// RunCountdown drives Countdown from a ticker firing every interval.
func RunCountdown(ctx context.Context, s *Session, interval time.Duration, onExpire func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	Countdown(ctx, s, ticker.C, onExpire)
}
