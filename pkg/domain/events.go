package domain

import (
	"context"
	"time"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id"`
}

// PhaseEvent is emitted whenever the session phase or active atom changes.
type PhaseEvent struct {
	EventBase
	From      Phase  `json:"from"`
	To        Phase  `json:"to"`
	AtomIndex int    `json:"atom_index"`
	AtomID    string `json:"atom_id,omitempty"`
}

// CompletionEvent is emitted once per atom completion, with the appended record.
type CompletionEvent struct {
	EventBase
	Record PacingRecord `json:"record"`
}

// DirectiveEvent is emitted after a next-action code has been resolved.
type DirectiveEvent struct {
	EventBase
	Code      NextActionCode `json:"code"`
	Raw       string         `json:"raw,omitempty"`
	Directive Directive      `json:"directive"`
}

// RequestEvent describes a failed or discarded service request.
type RequestEvent struct {
	EventBase
	Slot Slot   `json:"slot"`
	Err  string `json:"err,omitempty"`
}

// LifecycleHooks defines callbacks for orchestrator observability.
type LifecycleHooks struct {
	OnPhaseChange    func(context.Context, *PhaseEvent)
	OnAtomComplete   func(context.Context, *CompletionEvent)
	OnDirective      func(context.Context, *DirectiveEvent)
	OnRequestFailure func(context.Context, *RequestEvent)
	OnStaleDiscard   func(context.Context, *RequestEvent)
}
