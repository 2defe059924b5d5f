package scripted

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/aretw0/mentor/pkg/domain"
	"github.com/aretw0/mentor/pkg/ports"
)

// Call names accepted by Calls, FailNext and Hold.
const (
	CallStart     = "start_session"
	CallTeaching  = "teaching_content"
	CallQuestions = "generate_questions"
	CallSubmit    = "submit_answer"
	CallComplete  = "complete_atom"
	CallHint      = "request_hint"
)

const (
	startMastery = 0.5
	correctGain  = 0.1
	hintPenalty  = 0.05
	wrongLoss    = 0.1
)

// Service implements ports.LearningService by playing back a Script.
// It backs the offline demo mode and is the deterministic fake used in tests.
// Safe for concurrent use.
type Service struct {
	script Script

	mu          sync.Mutex
	calls       map[string]int
	failures    map[string]error
	holds       map[string]*Latch
	mastery     map[string]float64
	streak      map[string]int
	answers     map[string][2]int // atom -> {correct, total} since the last completion
	completions map[string]int
}

var _ ports.LearningService = (*Service)(nil)

// NewService creates a Service for the given script.
func NewService(script Script) *Service {
	return &Service{
		script:      script,
		calls:       make(map[string]int),
		failures:    make(map[string]error),
		holds:       make(map[string]*Latch),
		mastery:     make(map[string]float64),
		streak:      make(map[string]int),
		answers:     make(map[string][2]int),
		completions: make(map[string]int),
	}
}

// Calls returns how many times the named call reached the service.
func (s *Service) Calls(call string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[call]
}

// FailNext makes the next invocation of call return err.
func (s *Service) FailNext(call string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[call] = err
}

// Hold blocks the next invocation of call until the returned latch is released.
func (s *Service) Hold(call string) *Latch {
	l := newLatch()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.holds[call] = l
	return l
}

func (s *Service) enter(ctx context.Context, call string) error {
	s.mu.Lock()
	s.calls[call]++
	latch := s.holds[call]
	delete(s.holds, call)
	err := s.failures[call]
	delete(s.failures, call)
	s.mu.Unlock()

	if latch != nil {
		if werr := latch.wait(ctx); werr != nil {
			return werr
		}
	}
	return err
}

func (s *Service) atom(id string) (int, *AtomScript, error) {
	for i := range s.script.Atoms {
		if s.script.Atoms[i].ID == id {
			return i, &s.script.Atoms[i], nil
		}
	}
	return -1, nil, fmt.Errorf("atom %q: %w", id, domain.ErrNoContent)
}

// StartSession implements ports.LearningService.
func (s *Service) StartSession(ctx context.Context, req ports.StartSessionRequest) (*ports.StartSessionResponse, error) {
	if err := s.enter(ctx, CallStart); err != nil {
		return nil, err
	}
	id := s.script.SessionID
	if id == "" {
		id = "scripted-" + req.ConceptID
	}
	name := s.script.ConceptName
	if name == "" {
		name = req.ConceptID
	}
	atoms := make([]domain.Atom, len(s.script.Atoms))
	for i, a := range s.script.Atoms {
		atoms[i] = domain.Atom{ID: a.ID, Name: a.Name}
	}
	return &ports.StartSessionResponse{
		SessionID:     id,
		ConceptName:   name,
		Atoms:         atoms,
		InitialPacing: domain.ParsePacingBand(s.script.InitialPacing),
	}, nil
}

// TeachingContent implements ports.LearningService.
func (s *Service) TeachingContent(ctx context.Context, req ports.AtomRequest) (*ports.TeachingResponse, error) {
	if err := s.enter(ctx, CallTeaching); err != nil {
		return nil, err
	}
	_, a, err := s.atom(req.AtomID)
	if err != nil {
		return nil, err
	}
	return &ports.TeachingResponse{
		Content:       a.Teaching.content(),
		CurrentPacing: domain.ParsePacingBand(s.script.InitialPacing),
	}, nil
}

// GenerateQuestions implements ports.LearningService.
func (s *Service) GenerateQuestions(ctx context.Context, req ports.AtomRequest) ([]domain.Question, error) {
	if err := s.enter(ctx, CallQuestions); err != nil {
		return nil, err
	}
	_, a, err := s.atom(req.AtomID)
	if err != nil {
		return nil, err
	}
	questions := make([]domain.Question, len(a.Questions))
	for i, q := range a.Questions {
		questions[i] = q.question(a.ID, i)
	}
	return questions, nil
}

// SubmitAnswer implements ports.LearningService.
func (s *Service) SubmitAnswer(ctx context.Context, req ports.SubmitAnswerRequest) (*domain.AnswerResult, error) {
	if err := s.enter(ctx, CallSubmit); err != nil {
		return nil, err
	}
	_, a, err := s.atom(req.AtomID)
	if err != nil {
		return nil, err
	}
	if req.QuestionIndex < 0 || req.QuestionIndex >= len(a.Questions) {
		return nil, fmt.Errorf("question %d: %w", req.QuestionIndex, domain.ErrInvalidAnswer)
	}
	q := a.Questions[req.QuestionIndex]
	correct := req.Selected == q.Answer

	s.mu.Lock()
	defer s.mu.Unlock()

	before, ok := s.mastery[a.ID]
	if !ok {
		before = startMastery
	}
	after := before
	tally := s.answers[a.ID]
	tally[1]++
	res := &domain.AnswerResult{Correct: correct}
	if correct {
		gain := correctGain
		if req.HintUsed {
			gain -= hintPenalty
		}
		after = clamp(before + gain)
		tally[0]++
		s.streak[a.ID]++
		res.BehaviorTag = "steady"
		if req.TimeTaken > 0 && q.EstimatedTime > 0 && req.TimeTaken < q.EstimatedTime/2 {
			res.BehaviorTag = "fast"
		}
	} else {
		after = clamp(before - wrongLoss)
		s.streak[a.ID] = 0
		res.ErrorType = "conceptual"
	}
	s.mastery[a.ID] = after
	s.answers[a.ID] = tally

	res.MasteryAfter = round2(after)
	res.Improvement = round2(after - before)
	res.Streak = s.streak[a.ID]
	res.Pacing = bandFor(float64(tally[0]) / float64(tally[1]))
	return res, nil
}

// CompleteAtom implements ports.LearningService.
func (s *Service) CompleteAtom(ctx context.Context, req ports.AtomRequest) (*ports.CompleteAtomResponse, error) {
	if err := s.enter(ctx, CallComplete); err != nil {
		return nil, err
	}
	idx, a, err := s.atom(req.AtomID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var c Completion
	if n := len(a.Completions); n > 0 {
		i := s.completions[a.ID]
		if i >= n {
			i = n - 1
		}
		c = a.Completions[i]
	}
	s.completions[a.ID]++

	tally := s.answers[a.ID]
	delete(s.answers, a.ID)
	accuracy := 0.0
	if tally[1] > 0 {
		accuracy = float64(tally[0]) / float64(tally[1])
	}
	mastery, ok := s.mastery[a.ID]
	if !ok {
		mastery = startMastery
	}
	if c.Mastery != nil {
		mastery = *c.Mastery
		s.mastery[a.ID] = mastery
	}

	action := c.NextAction
	if action == "" {
		action = string(domain.ActionAutoAdvance)
	}
	nextAtom := c.NextAtom
	if nextAtom == "" && idx+1 < len(s.script.Atoms) {
		nextAtom = s.script.Atoms[idx+1].ID
	}
	allCompleted := idx == len(s.script.Atoms)-1 && action != string(domain.ActionReviewCurrent)
	if c.AllCompleted != nil {
		allCompleted = *c.AllCompleted
	}
	pacing := bandFor(accuracy)
	if c.Pacing != "" {
		pacing = domain.ParsePacingBand(c.Pacing)
	}

	return &ports.CompleteAtomResponse{
		Metrics: domain.CompletionMetrics{
			Accuracy:     round2(accuracy),
			FinalMastery: round2(mastery),
			ThetaChange:  round2(mastery - startMastery),
			TimeRatio:    1,
		},
		Pacing:         pacing,
		Recommendation: c.Recommendation,
		NextAction:     domain.NewNextAction(action, c.Reason, nextAtom),
		AllCompleted:   allCompleted,
	}, nil
}

// RequestHint implements ports.LearningService.
func (s *Service) RequestHint(ctx context.Context, req ports.HintRequest) (string, error) {
	if err := s.enter(ctx, CallHint); err != nil {
		return "", err
	}
	for _, a := range s.script.Atoms {
		for i, q := range a.Questions {
			if q.question(a.ID, i).ID != req.QuestionID {
				continue
			}
			if q.Hint != "" {
				return q.Hint, nil
			}
			return fmt.Sprintf("Re-read the explanation of %s before answering.", a.Name), nil
		}
	}
	return "", fmt.Errorf("question %q: %w", req.QuestionID, domain.ErrNoContent)
}

func bandFor(accuracy float64) domain.PacingBand {
	switch {
	case accuracy >= 0.9:
		return domain.PacingSpeedUp
	case accuracy >= 0.7:
		return domain.PacingStay
	case accuracy >= 0.5:
		return domain.PacingSlowDown
	default:
		return domain.PacingSharpSlowdown
	}
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
