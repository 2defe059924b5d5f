package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/mentor/internal/logging"
	"github.com/aretw0/mentor/pkg/domain"
)

// Session is the part of mentor.Session the runner drives.
type Session interface {
	View() domain.View
	LoadTeaching(ctx context.Context) (*domain.TeachingContent, error)
	FinishTeaching(ctx context.Context) error
	SubmitAnswer(ctx context.Context, selected int, timeTaken time.Duration) (*domain.AnswerResult, error)
	RequestHint(ctx context.Context) (string, error)
	Continue(ctx context.Context) (domain.Directive, error)
	Choose(ctx context.Context, choice domain.Choice) error
	Stop(ctx context.Context)
	Summary() domain.Summary
}

// Runner drives one session from the terminal (or any IOHandler) until it
// reaches a terminal phase.
type Runner struct {
	handler IOHandler
	logger  *slog.Logger
	clock   func() time.Time
}

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithInputHandler configures a custom IOHandler.
func WithInputHandler(handler IOHandler) Option {
	return func(r *Runner) {
		r.handler = handler
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithClock overrides the time source used to measure answer times.
func WithClock(clock func() time.Time) Option {
	return func(r *Runner) {
		r.clock = clock
	}
}

// NewRunner creates a Runner. Without a handler it uses a TextHandler on Stdin/Stdout.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{}
	for _, opt := range opts {
		opt(r)
	}
	if r.handler == nil {
		r.handler = NewTextHandler(nil, nil)
	}
	if r.logger == nil {
		r.logger = logging.NewNop()
	}
	if r.clock == nil {
		r.clock = time.Now
	}
	return r
}

// Run loops over render, read and act until the session ends.
// Exhausted input stops the session. Service failures are reported to the
// learner and the step can be retried.
func (r *Runner) Run(ctx context.Context, sess Session) (domain.Summary, error) {
	for {
		if err := ctx.Err(); err != nil {
			sess.Stop(context.Background())
			return sess.Summary(), err
		}

		view := sess.View()
		if view.Phase == domain.PhaseTeaching && view.Teaching == nil {
			if _, err := sess.LoadTeaching(ctx); err != nil {
				r.report(ctx, err)
			}
			view = sess.View()
		}

		if err := r.handler.Output(ctx, view); err != nil {
			return sess.Summary(), fmt.Errorf("output error: %w", err)
		}
		if view.Phase.Terminal() {
			r.logger.Info("session finished", "session_id", view.SessionID, "phase", view.Phase)
			return sess.Summary(), nil
		}

		shown := r.clock()
		input, err := r.handler.Input(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				sess.Stop(ctx)
				_ = r.handler.Output(ctx, sess.View())
				return sess.Summary(), nil
			}
			if ctx.Err() != nil {
				continue
			}
			return sess.Summary(), fmt.Errorf("input error: %w", err)
		}

		if err := r.step(ctx, sess, view, input, r.clock().Sub(shown)); err != nil {
			r.report(ctx, err)
		}
	}
}

// step applies one learner command to the session.
func (r *Runner) step(ctx context.Context, sess Session, view domain.View, input string, elapsed time.Duration) error {
	cmd := strings.ToLower(strings.TrimSpace(input))
	if cmd == "q" || cmd == "quit" {
		sess.Stop(ctx)
		return nil
	}

	switch view.Phase {
	case domain.PhaseTeaching:
		return sess.FinishTeaching(ctx)

	case domain.PhaseQuestions:
		if !view.CanSubmit {
			d, err := sess.Continue(ctx)
			if err != nil {
				return err
			}
			r.announce(ctx, d)
			return nil
		}
		if cmd == "h" || cmd == "hint" {
			_, err := sess.RequestHint(ctx)
			return err
		}
		n, err := strconv.Atoi(cmd)
		if err != nil || n < 1 {
			return fmt.Errorf("%w: enter an option number", domain.ErrInvalidAnswer)
		}
		_, err = sess.SubmitAnswer(ctx, n-1, elapsed)
		return err

	case domain.PhaseAwaitingChoice:
		choice, err := parseChoice(cmd, view.Choices)
		if err != nil {
			return err
		}
		return sess.Choose(ctx, choice)
	}
	return nil
}

// parseChoice accepts a choice name or its 1-based position in the list.
func parseChoice(cmd string, choices []domain.Choice) (domain.Choice, error) {
	if n, err := strconv.Atoi(cmd); err == nil {
		if n < 1 || n > len(choices) {
			return "", fmt.Errorf("choice %d is not listed", n)
		}
		return choices[n-1], nil
	}
	return domain.ParseChoice(cmd)
}

func (r *Runner) announce(ctx context.Context, d domain.Directive) {
	var msg string
	switch d.Kind {
	case domain.DirectiveForceReview:
		msg = "Let's review this atom once more."
		if d.Target != nil {
			msg = fmt.Sprintf("Let's review %q once more.", d.Target.Name)
		}
	case domain.DirectiveAutoAdvance:
		if d.Target != nil {
			msg = fmt.Sprintf("Next up: %s", d.Target.Name)
		}
	}
	if msg != "" {
		_ = r.handler.SystemOutput(ctx, msg)
	}
}

// report turns a recoverable error into a message for the learner.
func (r *Runner) report(ctx context.Context, err error) {
	var rf *domain.RequestFailure
	var msg string
	switch {
	case errors.Is(err, domain.ErrBusy), errors.Is(err, domain.ErrStaleResponse):
		r.logger.Debug("ignored action", "err", err)
		return
	case errors.Is(err, domain.ErrInvalidAnswer):
		msg = "That option does not exist. " + err.Error()
	case errors.As(err, &rf):
		r.logger.Warn("learning service request failed", "op", rf.Op, "status", rf.StatusCode, "err", rf.Err)
		msg = fmt.Sprintf("The learning service could not %s. Please try again.", rf.Op)
	default:
		msg = err.Error()
	}
	_ = r.handler.SystemOutput(ctx, msg)
}
