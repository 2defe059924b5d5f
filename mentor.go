package mentor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aretw0/mentor/internal/logging"
	"github.com/aretw0/mentor/internal/orchestrator"
	"github.com/aretw0/mentor/pkg/domain"
	"github.com/aretw0/mentor/pkg/ports"
)

// Tutor is the high-level entry point for the Mentor library.
// It binds a learning service to the orchestrator options shared by every
// session it starts.
type Tutor struct {
	svc      ports.LearningService
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	clock    func() time.Time
	messages map[domain.PacingBand]string
}

// Option defines a functional option for configuring the Tutor.
type Option func(*Tutor)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(t *Tutor) {
		t.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the tutor.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tutor) {
		t.logger = logger
	}
}

// WithClock overrides the time source used to stamp pacing records.
func WithClock(clock func() time.Time) Option {
	return func(t *Tutor) {
		t.clock = clock
	}
}

// WithMessages overrides the closing recommendation shown per pacing band.
func WithMessages(messages map[domain.PacingBand]string) Option {
	return func(t *Tutor) {
		t.messages = messages
	}
}

// New initializes a Tutor backed by the given learning service.
func New(svc ports.LearningService, opts ...Option) (*Tutor, error) {
	if svc == nil {
		return nil, errors.New("learning service is required")
	}
	t := &Tutor{svc: svc}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = logging.NewNop()
	}
	return t, nil
}

// Service returns the underlying learning service.
func (t *Tutor) Service() ports.LearningService {
	return t.svc
}

func (t *Tutor) options() []orchestrator.Option {
	return []orchestrator.Option{
		orchestrator.WithLogger(t.logger),
		orchestrator.WithLifecycleHooks(t.hooks),
		orchestrator.WithClock(t.clock),
		orchestrator.WithMessages(t.messages),
	}
}

// Start opens a session on a concept and enters the teaching phase of its
// first atom. It fails with domain.ErrNoContent when the concept has no atoms.
func (t *Tutor) Start(ctx context.Context, conceptID string, level domain.KnowledgeLevel) (*Session, error) {
	ctrl, err := orchestrator.Start(ctx, t.svc, ports.StartSessionRequest{
		ConceptID:      conceptID,
		KnowledgeLevel: level,
	}, t.options()...)
	if err != nil {
		return nil, err
	}
	return &Session{ctrl: ctrl}, nil
}

// Resume rebuilds a session from a snapshot taken with Session.Snapshot.
func (t *Tutor) Resume(snap domain.Snapshot) (*Session, error) {
	ctrl, err := orchestrator.Resume(t.svc, snap, t.options()...)
	if err != nil {
		return nil, err
	}
	return &Session{ctrl: ctrl}, nil
}

// Summarize derives the closing report from a pacing history.
// The result depends on the records alone.
func Summarize(records []domain.PacingRecord, totalAtoms int) domain.Summary {
	return orchestrator.Summarize(records, totalAtoms, nil)
}

// Session is one learner's walk through the atoms of a concept.
// It is safe for concurrent use; a second trigger of an action whose request
// is still in flight returns domain.ErrBusy without reaching the service.
type Session struct {
	ctrl *orchestrator.Controller
}

// ID returns the server-issued session identifier.
func (s *Session) ID() string { return s.ctrl.SessionID() }

// Phase returns the current session phase.
func (s *Session) Phase() domain.Phase { return s.ctrl.Phase() }

// View returns the read model of the current state.
func (s *Session) View() domain.View { return s.ctrl.View() }

// LoadTeaching fetches the teaching content of the active atom.
func (s *Session) LoadTeaching(ctx context.Context) (*domain.TeachingContent, error) {
	return s.ctrl.LoadTeaching(ctx)
}

// FinishTeaching moves from teaching to the question set of the active atom.
func (s *Session) FinishTeaching(ctx context.Context) error {
	return s.ctrl.FinishTeaching(ctx)
}

// SubmitAnswer submits the selected option for the current question.
func (s *Session) SubmitAnswer(ctx context.Context, selected int, timeTaken time.Duration) (*domain.AnswerResult, error) {
	return s.ctrl.SubmitAnswer(ctx, selected, timeTaken)
}

// RequestHint returns the single hint available for the current question.
func (s *Session) RequestHint(ctx context.Context) (string, error) {
	return s.ctrl.RequestHint(ctx)
}

// Continue moves past an answered question, completing the atom after the last one.
// The returned directive is zero unless an atom was completed.
func (s *Session) Continue(ctx context.Context) (domain.Directive, error) {
	return s.ctrl.Continue(ctx)
}

// Choose resolves a pending prompt.
func (s *Session) Choose(ctx context.Context, choice domain.Choice) error {
	return s.ctrl.Choose(ctx, choice)
}

// Stop leaves the session.
func (s *Session) Stop(ctx context.Context) { s.ctrl.Stop(ctx) }

// Records returns the pacing history.
func (s *Session) Records() []domain.PacingRecord { return s.ctrl.Records() }

// Summary derives the closing report from the pacing history.
func (s *Session) Summary() domain.Summary { return s.ctrl.Summary() }

// Snapshot returns a serialisable copy of the session state.
func (s *Session) Snapshot() domain.Snapshot { return s.ctrl.Snapshot() }
