// Package plain runs a test session on a line-oriented terminal, for
// scripts and terminals where the full-screen TUI is not wanted.
package plain

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/abhisek/prepquiz/internal/api"
	"github.com/abhisek/prepquiz/internal/auth"
	"github.com/abhisek/prepquiz/internal/practice"
	"github.com/abhisek/prepquiz/internal/quiz"
	"github.com/abhisek/prepquiz/internal/session"
)

// ErrQuit is returned when the learner leaves the test without submitting.
var ErrQuit = errors.New("test abandoned")

// AutoSubmitNotice is printed when the timer submits the test.
const AutoSubmitNotice = session.AutoSubmitNotice

const help = "Commands: 1-9 or a, b, c... pick an option, n next, p previous, g N go to question, t time left, s submit, q quit"

// Runner drives one test per Run call.
type Runner struct {
	svc    *practice.Service
	in     io.Reader
	out    io.Writer
	ticks  <-chan time.Time
	logger *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithTicks replaces the one-second ticker driving the countdown.
func WithTicks(ticks <-chan time.Time) Option {
	return func(r *Runner) {
		r.ticks = ticks
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

// New creates a Runner reading commands from in and writing to out.
func New(svc *practice.Service, in io.Reader, out io.Writer, opts ...Option) *Runner {
	r := &Runner{svc: svc, in: in, out: out, logger: slog.Default()}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run starts, loads, and runs a test until it is submitted by the
// learner, by the timer, or by the end of input. The result is returned
// even when delivery fails; the error is then a *session.DeliveryError.
func (r *Runner) Run(ctx context.Context, user auth.User, topic string, mode quiz.Mode) (*quiz.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sess, err := r.svc.Start(ctx, user, topic, mode)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	fmt.Fprintf(r.out, "Loading %s (%s)...\n", topic, mode.DisplayName())
	if err := r.svc.Load(ctx, sess); err != nil {
		fmt.Fprintln(r.out, api.Describe(err))
		r.svc.Abandon(ctx, sess)
		return nil, err
	}

	questions := sess.Questions()
	fmt.Fprintf(r.out, "%s · %s · %d questions · %s\n", topic, mode.DisplayName(), len(questions), session.FormatClock(sess.Remaining()))
	fmt.Fprintln(r.out, help)

	expired := make(chan struct{}, 1)
	go r.countdown(ctx, sess, func() { expired <- struct{}{} })

	lines := make(chan string)
	go readLines(ctx, r.in, lines)

	cur := 0
	r.show(sess, questions, cur)
	for {
		select {
		case <-ctx.Done():
			r.svc.Abandon(ctx, sess)
			return nil, ctx.Err()

		case <-expired:
			fmt.Fprintln(r.out)
			fmt.Fprintln(r.out, AutoSubmitNotice)
			return r.finish(ctx, sess, true)

		case line, ok := <-lines:
			if !ok {
				// End of input submits what has been answered.
				return r.finish(ctx, sess, false)
			}
			next, done, quit := r.handle(sess, questions, cur, strings.TrimSpace(line))
			if quit {
				r.svc.Abandon(ctx, sess)
				return nil, ErrQuit
			}
			if done {
				return r.finish(ctx, sess, false)
			}
			cur = next
			r.show(sess, questions, cur)
		}
	}
}

func (r *Runner) countdown(ctx context.Context, sess *session.Session, onExpire func()) {
	if r.ticks != nil {
		session.Countdown(ctx, sess, r.ticks, onExpire)
		return
	}
	session.RunCountdown(ctx, sess, time.Second, onExpire)
}

// handle applies one command and returns the question to show next.
func (r *Runner) handle(sess *session.Session, questions []quiz.Question, cur int, line string) (next int, submit, quit bool) {
	cmd, arg, _ := strings.Cut(strings.ToLower(line), " ")
	switch cmd {
	case "", "n":
		if cur < len(questions)-1 {
			return cur + 1, false, false
		}
		return cur, false, false
	case "p":
		if cur > 0 {
			return cur - 1, false, false
		}
		return cur, false, false
	case "g":
		n, err := strconv.Atoi(strings.TrimSpace(arg))
		if err != nil || n < 1 || n > len(questions) {
			fmt.Fprintf(r.out, "No question %q (1-%d)\n", arg, len(questions))
			return cur, false, false
		}
		return n - 1, false, false
	case "t":
		fmt.Fprintf(r.out, "%s left\n", session.FormatClock(sess.Remaining()))
		return cur, false, false
	case "s":
		return cur, true, false
	case "q":
		return cur, false, true
	case "?", "h", "help":
		fmt.Fprintln(r.out, help)
		return cur, false, false
	}

	opt, ok := parseChoice(cmd, len(questions[cur].Options))
	if !ok {
		fmt.Fprintf(r.out, "Unknown command %q\n", line)
		return cur, false, false
	}
	if err := sess.SelectIndex(cur, opt); err != nil {
		fmt.Fprintf(r.out, "Cannot select: %v\n", err)
		return cur, false, false
	}
	if cur < len(questions)-1 {
		return cur + 1, false, false
	}
	return cur, false, false
}

func (r *Runner) finish(ctx context.Context, sess *session.Session, auto bool) (*quiz.Result, error) {
	res, err := r.svc.Finish(ctx, sess, auto)
	if res == nil {
		return nil, err
	}
	r.logger.Debug("plain test finished", "session", sess.ID, "score", res.Score, "total", res.Total, "auto", auto)

	fmt.Fprintln(r.out)
	fmt.Fprintf(r.out, "Score: %d/%d (%.0f%%) in %s\n", res.Score, res.Total, res.Percent()*100,
		session.FormatClock(time.Duration(res.ElapsedSecs)*time.Second))
	switch {
	case err != nil:
		fmt.Fprintf(r.out, "Result not delivered: %s\n", api.Describe(errors.Unwrap(err)))
		fmt.Fprintln(r.out, "It is saved locally; run `prepquiz history --resend` to retry.")
	case !r.svc.Delivers():
		fmt.Fprintln(r.out, "Result saved locally.")
	}

	fmt.Fprintln(r.out)
	for _, item := range sess.Review() {
		mark := "✗"
		if item.Correct {
			mark = "✓"
		}
		chosen := item.Chosen
		if !item.Answered {
			chosen = "(not answered)"
		}
		fmt.Fprintf(r.out, "%s Q%d. %s\n", mark, item.Index+1, item.Prompt)
		fmt.Fprintf(r.out, "    your answer: %s\n", chosen)
		if !item.Correct {
			fmt.Fprintf(r.out, "    correct:     %s\n", item.Answer)
		}
		if item.Explanation != "" {
			fmt.Fprintf(r.out, "    %s\n", item.Explanation)
		}
	}
	return res, err
}

func (r *Runner) show(sess *session.Session, questions []quiz.Question, cur int) {
	q := questions[cur]
	chosen, _ := sess.Answer(cur)

	fmt.Fprintln(r.out)
	fmt.Fprintf(r.out, "Question %d/%d · answered %d · %s left\n", cur+1, len(questions), sess.Answered(),
		session.FormatClock(sess.Remaining()))
	fmt.Fprintln(r.out, q.Prompt)
	for i, opt := range q.Options {
		marker := " "
		if opt == chosen {
			marker = "*"
		}
		fmt.Fprintf(r.out, " %s %d) %s\n", marker, i+1, opt)
	}
	fmt.Fprint(r.out, "> ")
}

// parseChoice maps "1".."9" or "a".."z" to an option index below n.
func parseChoice(s string, n int) (int, bool) {
	if len(s) != 1 {
		if i, err := strconv.Atoi(s); err == nil && i >= 1 && i <= n {
			return i - 1, true
		}
		return 0, false
	}
	c := s[0]
	var i int
	switch {
	case c >= '1' && c <= '9':
		i = int(c - '1')
	case c >= 'a' && c <= 'z':
		i = int(c - 'a')
	default:
		return 0, false
	}
	return i, i < n
}

// readLines sends each input line to out and closes it at end of input.
func readLines(ctx context.Context, in io.Reader, out chan<- string) {
	defer close(out)
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		select {
		case out <- sc.Text():
		case <-ctx.Done():
			return
		}
	}
}
