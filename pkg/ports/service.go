package ports

import (
	"context"

	"github.com/aretw0/mentor/pkg/domain"
)

// StartSessionRequest opens a concept session.
type StartSessionRequest struct {
	ConceptID      string
	KnowledgeLevel domain.KnowledgeLevel
}

// StartSessionResponse carries the ordered atoms of the concept.
type StartSessionResponse struct {
	SessionID     string
	ConceptName   string
	Atoms         []domain.Atom
	InitialPacing domain.PacingBand
}

// AtomRequest addresses one atom of a session.
type AtomRequest struct {
	SessionID string
	AtomID    string
}

// TeachingResponse carries the teaching material of an atom.
type TeachingResponse struct {
	Content       domain.TeachingContent
	CurrentPacing domain.PacingBand
}

// SubmitAnswerRequest submits one answer of the active question set.
type SubmitAnswerRequest struct {
	SessionID     string
	AtomID        string
	QuestionIndex int
	Selected      int
	TimeTaken     float64 // seconds
	HintUsed      bool
}

// CompleteAtomResponse is the outcome of an atom completion.
type CompleteAtomResponse struct {
	Metrics        domain.CompletionMetrics
	Pacing         domain.PacingBand
	Recommendation string
	NextAction     domain.NextAction
	AllCompleted   bool
}

// HintRequest asks for a hint on a question.
type HintRequest struct {
	QuestionID string
	ErrorCount int
}

// LearningService is the remote learning-analytics collaborator.
// Every call is a synchronous request/response; errors are reported as-is and
// wrapped into domain.RequestFailure by the orchestrator.
type LearningService interface {
	StartSession(ctx context.Context, req StartSessionRequest) (*StartSessionResponse, error)
	TeachingContent(ctx context.Context, req AtomRequest) (*TeachingResponse, error)
	GenerateQuestions(ctx context.Context, req AtomRequest) ([]domain.Question, error)
	SubmitAnswer(ctx context.Context, req SubmitAnswerRequest) (*domain.AnswerResult, error)
	CompleteAtom(ctx context.Context, req AtomRequest) (*CompleteAtomResponse, error)
	RequestHint(ctx context.Context, req HintRequest) (string, error)
}

// TokenSource supplies the bearer token attached to service calls.
// Refreshing the token is the implementation's concern.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource returning a fixed token.
type StaticToken string

// Token implements TokenSource.
func (t StaticToken) Token(context.Context) (string, error) { return string(t), nil }
