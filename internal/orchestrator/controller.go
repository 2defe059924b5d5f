package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/mentor/internal/logging"
	"github.com/aretw0/mentor/pkg/domain"
	"github.com/aretw0/mentor/pkg/ports"
	"golang.org/x/sync/singleflight"
)

// Controller drives one concept session through its atoms.
// All methods are safe for concurrent use. The internal lock is never held
// across a service call, so a second trigger of an in-flight slot returns
// domain.ErrBusy instead of queueing.
type Controller struct {
	svc      ports.LearningService
	logger   *slog.Logger
	hooks    domain.LifecycleHooks
	clock    func() time.Time
	messages map[domain.PacingBand]string

	mu            sync.Mutex
	session       domain.Session
	cursor        int
	phase         domain.Phase
	epoch         uint64
	teaching      *domain.TeachingContent
	flow          questionFlow
	pending       *domain.Directive
	pacing        *Aggregator
	currentPacing domain.PacingBand
	haltReason    string

	inflight map[domain.Slot]bool
	hintCall singleflight.Group
	events   []func(context.Context)
}

// Option configures the Controller.
type Option func(*Controller)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(c *Controller) {
		c.hooks = hooks
	}
}

// WithClock overrides the time source used to stamp pacing records.
func WithClock(clock func() time.Time) Option {
	return func(c *Controller) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithMessages overrides the closing recommendation per pacing band.
func WithMessages(messages map[domain.PacingBand]string) Option {
	return func(c *Controller) {
		c.messages = messages
	}
}

func newController(svc ports.LearningService, opts ...Option) *Controller {
	c := &Controller{
		svc:      svc,
		logger:   logging.NewNop(),
		clock:    time.Now,
		pacing:   NewAggregator(),
		inflight: make(map[domain.Slot]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start opens a session on the learning service and enters the teaching phase
// of the first atom. An empty atom list fails with domain.ErrNoContent and no
// phase is entered.
func Start(ctx context.Context, svc ports.LearningService, req ports.StartSessionRequest, opts ...Option) (*Controller, error) {
	c := newController(svc, opts...)

	resp, err := svc.StartSession(ctx, req)
	if err != nil {
		var rf *domain.RequestFailure
		if errors.As(err, &rf) {
			return nil, err
		}
		return nil, &domain.RequestFailure{Op: "start session", Err: err}
	}
	if len(resp.Atoms) == 0 {
		c.logger.Warn("session started without atoms", "concept_id", req.ConceptID)
		return nil, fmt.Errorf("concept %q: %w", req.ConceptID, domain.ErrNoContent)
	}

	atoms := make([]domain.Atom, len(resp.Atoms))
	for i, a := range resp.Atoms {
		a.Phase = domain.AtomNotStarted
		atoms[i] = a
	}
	atoms[0].Phase = domain.AtomTeaching

	c.session = domain.Session{
		SessionID:      resp.SessionID,
		ConceptID:      req.ConceptID,
		ConceptName:    resp.ConceptName,
		KnowledgeLevel: req.KnowledgeLevel,
		InitialPacing:  resp.InitialPacing,
		Atoms:          atoms,
	}
	c.currentPacing = resp.InitialPacing
	c.logger = c.logger.With("session_id", resp.SessionID)

	defer c.emitPending(ctx)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setPhaseLocked(domain.PhaseTeaching)
	c.logger.Info("session started", "concept", resp.ConceptName, "atoms", len(atoms))
	return c, nil
}

// Resume rebuilds a controller from a snapshot. In-flight requests are not part
// of a snapshot, so every slot starts free.
func Resume(svc ports.LearningService, snap domain.Snapshot, opts ...Option) (*Controller, error) {
	if snap.Sealed != "" {
		return nil, fmt.Errorf("resume %q: snapshot is still sealed", snap.Session.SessionID)
	}
	if len(snap.Session.Atoms) == 0 {
		return nil, fmt.Errorf("resume %q: %w", snap.Session.SessionID, domain.ErrNoContent)
	}
	if !snap.Phase.Terminal() && (snap.Cursor < 0 || snap.Cursor >= len(snap.Session.Atoms)) {
		return nil, fmt.Errorf("resume %q: cursor %d out of range", snap.Session.SessionID, snap.Cursor)
	}

	snap = snap.Clone()
	c := newController(svc, opts...)
	c.session = snap.Session
	c.cursor = snap.Cursor
	c.phase = snap.Phase
	c.epoch = snap.Epoch
	c.teaching = snap.Teaching
	c.flow = questionFlow{
		questions:   snap.Questions,
		index:       snap.QuestionIndex,
		result:      snap.LastResult,
		attempts:    snap.Attempts,
		hints:       snap.Hints,
		hintPending: snap.HintPending,
	}
	c.pending = snap.Pending
	c.pacing = NewAggregator(snap.Records...)
	c.currentPacing = snap.CurrentPacing
	c.haltReason = snap.HaltReason
	c.logger = c.logger.With("session_id", snap.Session.SessionID)
	return c, nil
}

// SessionID returns the server-issued session identifier.
func (c *Controller) SessionID() string {
	return c.session.SessionID
}

// Phase returns the current session phase.
func (c *Controller) Phase() domain.Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Records returns a copy of the pacing history.
func (c *Controller) Records() []domain.PacingRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pacing.Records()
}

// Summary derives the closing report from the pacing history.
func (c *Controller) Summary() domain.Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Summarize(c.pacing.records, len(c.session.Atoms), c.messages)
}

// Snapshot returns a deep copy of the session state.
func (c *Controller) Snapshot() domain.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() domain.Snapshot {
	snap := domain.Snapshot{
		Session:       c.session,
		Cursor:        c.cursor,
		Phase:         c.phase,
		Epoch:         c.epoch,
		Teaching:      c.teaching,
		Questions:     c.flow.questions,
		QuestionIndex: c.flow.index,
		LastResult:    c.flow.result,
		Attempts:      c.flow.attempts,
		Hints:         c.flow.hints,
		HintPending:   c.flow.hintPending,
		Pending:       c.pending,
		Records:       c.pacing.records,
		CurrentPacing: c.currentPacing,
		HaltReason:    c.haltReason,
	}
	return snap.Clone()
}

// View returns the read model of the current state.
func (c *Controller) View() domain.View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := domain.View{
		SessionID:     c.session.SessionID,
		ConceptName:   c.session.ConceptName,
		Phase:         c.phase,
		AtomIndex:     c.cursor,
		TotalAtoms:    len(c.session.Atoms),
		CurrentPacing: c.currentPacing,
	}
	if atom := c.activeAtomLocked(); atom != nil {
		a := *atom
		v.Atom = &a
	}

	switch c.phase {
	case domain.PhaseTeaching:
		if c.teaching != nil {
			t := *c.teaching
			v.Teaching = &t
		}
	case domain.PhaseQuestions:
		v.QuestionIndex = c.flow.index
		v.QuestionCount = len(c.flow.questions)
		if q, ok := c.flow.current(); ok {
			v.Question = &q
			v.Hint, _ = c.flow.hint(q.ID)
		}
		if c.flow.result != nil {
			r := *c.flow.result
			v.LastResult = &r
		}
		v.CanSubmit = !c.flow.answered() && !c.inflight[domain.SlotSubmit]
		v.CanContinue = c.flow.answered() && !c.inflight[domain.SlotComplete]
	case domain.PhaseAwaitingChoice:
		if c.pending != nil {
			v.Choices = append([]domain.Choice(nil), c.pending.Options...)
			v.Reason = c.pending.Reason
			v.Metrics = c.pending.Metrics
		}
	case domain.PhaseSessionComplete:
		sum := Summarize(c.pacing.records, len(c.session.Atoms), c.messages)
		v.Summary = &sum
		v.Message = sum.Recommendation
	case domain.PhaseHalted:
		v.Message = c.haltReason
	}
	return v
}

// LoadTeaching fetches the teaching content of the active atom. The content is
// cached for the visit, so repeated calls do not reach the service.
func (c *Controller) LoadTeaching(ctx context.Context) (*domain.TeachingContent, error) {
	defer c.emitPending(ctx)

	c.mu.Lock()
	if c.phase != domain.PhaseTeaching {
		c.mu.Unlock()
		return nil, domain.InvalidTransition("load teaching", c.phase)
	}
	if c.teaching != nil {
		t := *c.teaching
		c.mu.Unlock()
		return &t, nil
	}
	if err := c.acquireLocked(domain.SlotTeaching); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	tag := c.tagLocked()
	req := c.atomRequestLocked()
	c.mu.Unlock()

	resp, err := c.svc.TeachingContent(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseLocked(domain.SlotTeaching)
	if c.tagLocked() != tag {
		return nil, c.staleLocked(domain.SlotTeaching, tag)
	}
	if err != nil {
		return nil, c.failLocked(domain.SlotTeaching, "get teaching content", err)
	}

	content := resp.Content
	c.teaching = &content
	if resp.CurrentPacing != "" {
		c.currentPacing = resp.CurrentPacing
	}
	t := content
	return &t, nil
}

// FinishTeaching moves the active atom from teaching to questions by fetching
// a question set. On failure the session stays in teaching.
func (c *Controller) FinishTeaching(ctx context.Context) error {
	defer c.emitPending(ctx)

	c.mu.Lock()
	if c.phase != domain.PhaseTeaching {
		c.mu.Unlock()
		return domain.InvalidTransition("finish teaching", c.phase)
	}
	return c.fetchQuestionsLocked(ctx, "finish teaching")
}

// fetchQuestionsLocked is entered with c.mu held and returns with it released.
func (c *Controller) fetchQuestionsLocked(ctx context.Context, action string) error {
	if err := c.acquireLocked(domain.SlotQuestions); err != nil {
		c.mu.Unlock()
		return err
	}
	tag := c.tagLocked()
	req := c.atomRequestLocked()
	c.mu.Unlock()

	questions, err := c.svc.GenerateQuestions(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseLocked(domain.SlotQuestions)
	if c.tagLocked() != tag {
		return c.staleLocked(domain.SlotQuestions, tag)
	}
	if err == nil && len(questions) == 0 {
		err = domain.ErrNoContent
	}
	if err != nil {
		return c.failLocked(domain.SlotQuestions, "generate questions", err)
	}

	c.flow.reset(questions)
	c.pending = nil
	c.activeAtomLocked().Phase = domain.AtomQuestions
	c.setPhaseLocked(domain.PhaseQuestions)
	c.logger.Debug("question set ready", "action", action, "atom_id", req.AtomID, "questions", len(questions))
	return nil
}

// Question returns the current question and its index.
func (c *Controller) Question() (domain.Question, int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != domain.PhaseQuestions {
		return domain.Question{}, 0, false
	}
	q, ok := c.flow.current()
	return q, c.flow.index, ok
}

// RequestHint returns the hint for the current question. Only one hint per
// question is obtainable: later calls return the same hint without a new
// request, and concurrent calls share a single request.
func (c *Controller) RequestHint(ctx context.Context) (string, error) {
	defer c.emitPending(ctx)

	c.mu.Lock()
	if c.phase != domain.PhaseQuestions {
		c.mu.Unlock()
		return "", domain.InvalidTransition("request hint", c.phase)
	}
	q, ok := c.flow.current()
	if !ok || c.flow.answered() {
		c.mu.Unlock()
		return "", domain.InvalidTransition("request hint after answering", c.phase)
	}
	if h, ok := c.flow.hint(q.ID); ok {
		c.flow.hintPending = true
		c.mu.Unlock()
		return h, nil
	}
	tag := c.tagLocked()
	req := ports.HintRequest{QuestionID: q.ID, ErrorCount: c.flow.errorCount()}
	c.mu.Unlock()

	v, err, shared := c.hintCall.Do(q.ID, func() (any, error) {
		c.mu.Lock()
		if h, ok := c.flow.hint(q.ID); ok {
			c.mu.Unlock()
			return h, nil
		}
		c.inflight[domain.SlotHint] = true
		c.mu.Unlock()

		hint, err := c.svc.RequestHint(ctx, req)

		c.mu.Lock()
		defer c.mu.Unlock()
		c.releaseLocked(domain.SlotHint)
		if err == nil && c.tagLocked() == tag && !c.flow.answered() {
			c.flow.grantHint(q.ID, hint)
		}
		return hint, err
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	// A hint landing after the answer was submitted is stale: the submission
	// already went out without it.
	if c.tagLocked() != tag || c.flow.answered() {
		return "", c.staleLocked(domain.SlotHint, tag)
	}
	if err != nil {
		return "", c.failLocked(domain.SlotHint, "request hint", err)
	}
	hint := c.flow.grantHint(q.ID, v.(string))
	c.logger.Debug("hint granted", "question_id", q.ID, "shared", shared)
	return hint, nil
}

// SubmitAnswer submits the selected option for the current question.
// On failure the attempt is not recorded and the same question stays active.
func (c *Controller) SubmitAnswer(ctx context.Context, selected int, timeTaken time.Duration) (*domain.AnswerResult, error) {
	defer c.emitPending(ctx)

	c.mu.Lock()
	if c.phase != domain.PhaseQuestions {
		c.mu.Unlock()
		return nil, domain.InvalidTransition("submit answer", c.phase)
	}
	q, ok := c.flow.current()
	if !ok || c.flow.answered() {
		c.mu.Unlock()
		return nil, domain.InvalidTransition("submit answer twice", c.phase)
	}
	if selected < 0 || selected >= len(q.Options) {
		c.mu.Unlock()
		return nil, fmt.Errorf("option %d out of range [0,%d): %w", selected, len(q.Options), domain.ErrInvalidAnswer)
	}
	if err := c.acquireLocked(domain.SlotSubmit); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	tag := c.tagLocked()
	req := ports.SubmitAnswerRequest{
		SessionID:     c.session.SessionID,
		AtomID:        c.activeAtomLocked().ID,
		QuestionIndex: c.flow.index,
		Selected:      selected,
		TimeTaken:     timeTaken.Seconds(),
		HintUsed:      c.flow.hintPending,
	}
	c.mu.Unlock()

	result, err := c.svc.SubmitAnswer(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseLocked(domain.SlotSubmit)
	if c.tagLocked() != tag {
		return nil, c.staleLocked(domain.SlotSubmit, tag)
	}
	if err != nil {
		return nil, c.failLocked(domain.SlotSubmit, "submit atom answer", err)
	}

	c.flow.record(domain.QuestionAttempt{
		QuestionIndex:    req.QuestionIndex,
		SelectedOption:   selected,
		TimeTakenSeconds: req.TimeTaken,
		Correct:          result.Correct,
		MasteryAfter:     result.MasteryAfter,
		HintUsed:         req.HintUsed,
	}, *result)
	c.activeAtomLocked().MasteryScore = result.MasteryAfter
	if result.Pacing != "" {
		c.currentPacing = result.Pacing
	}
	out := *result
	return &out, nil
}

// Continue moves past an answered question. Past the last question it
// completes the atom and applies the resolved directive.
func (c *Controller) Continue(ctx context.Context) (domain.Directive, error) {
	defer c.emitPending(ctx)

	c.mu.Lock()
	if c.phase != domain.PhaseQuestions {
		c.mu.Unlock()
		return domain.Directive{}, domain.InvalidTransition("continue", c.phase)
	}
	if !c.flow.answered() {
		c.mu.Unlock()
		return domain.Directive{}, domain.InvalidTransition("continue before the answer is known", c.phase)
	}
	if c.flow.hasNext() {
		c.flow.advance()
		c.epoch++
		c.mu.Unlock()
		return domain.Directive{}, nil
	}

	if err := c.acquireLocked(domain.SlotComplete); err != nil {
		c.mu.Unlock()
		return domain.Directive{}, err
	}
	tag := c.tagLocked()
	req := c.atomRequestLocked()
	c.mu.Unlock()

	resp, err := c.svc.CompleteAtom(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseLocked(domain.SlotComplete)
	if c.tagLocked() != tag {
		return domain.Directive{}, c.staleLocked(domain.SlotComplete, tag)
	}
	if err != nil {
		return domain.Directive{}, c.failLocked(domain.SlotComplete, "complete atom", err)
	}
	return c.applyCompletionLocked(resp), nil
}

func (c *Controller) applyCompletionLocked(resp *ports.CompleteAtomResponse) domain.Directive {
	atom := c.activeAtomLocked()
	atom.MasteryScore = resp.Metrics.FinalMastery
	atom.Phase = domain.AtomComplete
	if resp.Pacing != "" {
		c.currentPacing = resp.Pacing
	}

	record := domain.PacingRecord{
		AtomID:         atom.ID,
		AtomName:       atom.Name,
		Pacing:         resp.Pacing,
		Accuracy:       resp.Metrics.Accuracy,
		Mastery:        resp.Metrics.FinalMastery,
		AbilityDelta:   resp.Metrics.ThetaChange,
		TimeRatio:      resp.Metrics.TimeRatio,
		Recommendation: resp.Recommendation,
		NextAction:     resp.NextAction.Code,
		CompletedAt:    c.clock(),
	}
	c.pacing.Append(record)
	c.flow.discard()
	c.queueCompletion(record)

	next := c.nextAtomLocked()
	if next != nil && resp.NextAction.NextAtomID != "" && resp.NextAction.NextAtomID != next.ID {
		c.logger.Warn("server next_atom disagrees with session order; keeping order",
			"next_atom", resp.NextAction.NextAtomID, "expected", next.ID)
	}

	directive := Resolve(Input{
		Action:       resp.NextAction,
		Completed:    *atom,
		Next:         next,
		Metrics:      resp.Metrics,
		AllCompleted: resp.AllCompleted,
	})
	c.queueDirective(resp.NextAction, directive)
	c.applyDirectiveLocked(directive)
	return directive
}

func (c *Controller) applyDirectiveLocked(d domain.Directive) {
	switch d.Kind {
	case domain.DirectiveFinish:
		c.pending = nil
		c.teaching = nil
		c.setPhaseLocked(domain.PhaseSessionComplete)
		c.logger.Info("session complete", "records", c.pacing.Len())

	case domain.DirectiveAutoAdvance:
		c.pending = nil
		c.cursor++
		c.activeAtomLocked().Phase = domain.AtomTeaching
		c.teaching = nil
		c.setPhaseLocked(domain.PhaseTeaching)

	case domain.DirectiveForceReview:
		c.pending = nil
		c.activeAtomLocked().Phase = domain.AtomReview
		c.teaching = nil
		c.setPhaseLocked(domain.PhaseTeaching)

	case domain.DirectivePromptChoice:
		pending := d
		c.pending = &pending
		c.setPhaseLocked(domain.PhaseAwaitingChoice)

	case domain.DirectiveHalt:
		c.pending = nil
		c.haltReason = d.Reason
		c.setPhaseLocked(domain.PhaseHalted)
		c.logger.Warn("session halted", "reason", d.Reason)
	}
}

// Choose resolves a pending prompt with the learner's choice.
// Only the options offered by the prompt are accepted.
func (c *Controller) Choose(ctx context.Context, choice domain.Choice) error {
	defer c.emitPending(ctx)

	c.mu.Lock()
	if c.phase != domain.PhaseAwaitingChoice || c.pending == nil {
		c.mu.Unlock()
		return domain.InvalidTransition("choose "+string(choice), c.phase)
	}
	if !c.pending.Allows(choice) {
		c.mu.Unlock()
		return fmt.Errorf("%w: %q is not offered (options %v)", domain.ErrInvalidTransition, choice, c.pending.Options)
	}

	if choice == domain.ChoicePractice {
		return c.fetchQuestionsLocked(ctx, "practice")
	}
	defer c.mu.Unlock()

	switch choice {
	case domain.ChoiceReview:
		c.pending = nil
		c.activeAtomLocked().Phase = domain.AtomReview
		c.teaching = nil
		c.setPhaseLocked(domain.PhaseTeaching)
	case domain.ChoiceContinue:
		c.applyDirectiveLocked(advance(c.nextAtomLocked(), domain.NextAction{Code: domain.ActionAutoAdvance}))
	case domain.ChoiceStop:
		c.pending = nil
		c.setPhaseLocked(domain.PhaseExited)
		c.logger.Info("learner stopped the session")
	}
	return nil
}

// Stop leaves the session. Responses to requests still in flight are discarded.
func (c *Controller) Stop(ctx context.Context) {
	defer c.emitPending(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase.Terminal() {
		return
	}
	c.pending = nil
	c.setPhaseLocked(domain.PhaseExited)
}

// --- internal helpers (c.mu held) ---

func (c *Controller) activeAtomLocked() *domain.Atom {
	if c.cursor < 0 || c.cursor >= len(c.session.Atoms) {
		return nil
	}
	return &c.session.Atoms[c.cursor]
}

func (c *Controller) nextAtomLocked() *domain.Atom {
	if c.cursor+1 >= len(c.session.Atoms) {
		return nil
	}
	next := c.session.Atoms[c.cursor+1]
	return &next
}

func (c *Controller) atomRequestLocked() ports.AtomRequest {
	return ports.AtomRequest{
		SessionID: c.session.SessionID,
		AtomID:    c.activeAtomLocked().ID,
	}
}

func (c *Controller) tagLocked() domain.RequestTag {
	return domain.RequestTag{Epoch: c.epoch, AtomIndex: c.cursor, Phase: c.phase}
}

func (c *Controller) acquireLocked(slot domain.Slot) error {
	if c.inflight[slot] {
		c.logger.Debug("slot busy, trigger ignored", "slot", slot)
		return fmt.Errorf("%s: %w", slot, domain.ErrBusy)
	}
	c.inflight[slot] = true
	return nil
}

func (c *Controller) releaseLocked(slot domain.Slot) {
	delete(c.inflight, slot)
}

func (c *Controller) setPhaseLocked(to domain.Phase) {
	from := c.phase
	c.phase = to
	c.epoch++

	evt := &domain.PhaseEvent{
		EventBase: c.eventBase(),
		From:      from,
		To:        to,
		AtomIndex: c.cursor,
	}
	if atom := c.activeAtomLocked(); atom != nil {
		evt.AtomID = atom.ID
	}
	c.logger.Debug("phase change", "from", from, "to", to, "atom_index", c.cursor)
	if c.hooks.OnPhaseChange != nil {
		c.events = append(c.events, func(ctx context.Context) { c.hooks.OnPhaseChange(ctx, evt) })
	}
}

func (c *Controller) failLocked(slot domain.Slot, op string, err error) error {
	failure := &domain.RequestFailure{Slot: slot, Op: op, Err: err}
	var rf *domain.RequestFailure
	if errors.As(err, &rf) {
		failure.StatusCode = rf.StatusCode
		failure.Err = rf.Err
	}
	c.logger.Warn("request failed", "slot", slot, "err", err)
	if c.hooks.OnRequestFailure != nil {
		evt := &domain.RequestEvent{EventBase: c.eventBase(), Slot: slot, Err: err.Error()}
		c.events = append(c.events, func(ctx context.Context) { c.hooks.OnRequestFailure(ctx, evt) })
	}
	return failure
}

func (c *Controller) staleLocked(slot domain.Slot, tag domain.RequestTag) error {
	c.logger.Debug("discarding stale response", "slot", slot, "issued_epoch", tag.Epoch, "epoch", c.epoch)
	if c.hooks.OnStaleDiscard != nil {
		evt := &domain.RequestEvent{EventBase: c.eventBase(), Slot: slot}
		c.events = append(c.events, func(ctx context.Context) { c.hooks.OnStaleDiscard(ctx, evt) })
	}
	return fmt.Errorf("%s: %w", slot, domain.ErrStaleResponse)
}

func (c *Controller) queueCompletion(record domain.PacingRecord) {
	c.logger.Info("atom complete", "atom_id", record.AtomID, "pacing", record.Pacing, "mastery", record.Mastery)
	if c.hooks.OnAtomComplete != nil {
		evt := &domain.CompletionEvent{EventBase: c.eventBase(), Record: record}
		c.events = append(c.events, func(ctx context.Context) { c.hooks.OnAtomComplete(ctx, evt) })
	}
}

func (c *Controller) queueDirective(action domain.NextAction, d domain.Directive) {
	if action.Code == domain.ActionUnknown {
		c.logger.Warn("unrecognised next action, applying default rule", "action", action.Raw, "directive", d.Kind)
	}
	if c.hooks.OnDirective != nil {
		evt := &domain.DirectiveEvent{EventBase: c.eventBase(), Code: action.Code, Raw: action.Raw, Directive: d}
		c.events = append(c.events, func(ctx context.Context) { c.hooks.OnDirective(ctx, evt) })
	}
}

func (c *Controller) eventBase() domain.EventBase {
	return domain.EventBase{Timestamp: c.clock(), SessionID: c.session.SessionID}
}

// emitPending runs queued hooks outside the lock so they may call back into the controller.
func (c *Controller) emitPending(ctx context.Context) {
	c.mu.Lock()
	events := c.events
	c.events = nil
	c.mu.Unlock()

	for _, emit := range events {
		emit(ctx)
	}
}
