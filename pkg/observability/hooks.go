package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/mentor/pkg/domain"
)

// LoggingHooks returns lifecycle hooks that write one structured record per event.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnPhaseChange: func(ctx context.Context, e *domain.PhaseEvent) {
			logger.InfoContext(ctx, "phase_change",
				"session_id", e.SessionID,
				"from", e.From,
				"to", e.To,
				"atom_index", e.AtomIndex,
				"atom_id", e.AtomID,
			)
		},
		OnAtomComplete: func(ctx context.Context, e *domain.CompletionEvent) {
			logger.InfoContext(ctx, "atom_complete",
				"session_id", e.SessionID,
				"atom_id", e.Record.AtomID,
				"pacing", e.Record.Pacing,
				"accuracy", e.Record.Accuracy,
				"mastery", e.Record.Mastery,
				"next_action", e.Record.NextAction,
			)
		},
		OnDirective: func(ctx context.Context, e *domain.DirectiveEvent) {
			attrs := []any{"session_id", e.SessionID, "code", e.Code, "kind", e.Directive.Kind}
			if e.Raw != "" {
				attrs = append(attrs, "raw", e.Raw)
			}
			logger.InfoContext(ctx, "directive", attrs...)
		},
		OnRequestFailure: func(ctx context.Context, e *domain.RequestEvent) {
			logger.WarnContext(ctx, "request_failure", "session_id", e.SessionID, "slot", e.Slot, "err", e.Err)
		},
		OnStaleDiscard: func(ctx context.Context, e *domain.RequestEvent) {
			logger.DebugContext(ctx, "stale_discard", "session_id", e.SessionID, "slot", e.Slot)
		},
	}
}

// Combine fans each event out to every hook set, in order.
func Combine(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, s := range sets {
		s := s
		out.OnPhaseChange = chain(out.OnPhaseChange, s.OnPhaseChange)
		out.OnAtomComplete = chain(out.OnAtomComplete, s.OnAtomComplete)
		out.OnDirective = chain(out.OnDirective, s.OnDirective)
		out.OnRequestFailure = chain(out.OnRequestFailure, s.OnRequestFailure)
		out.OnStaleDiscard = chain(out.OnStaleDiscard, s.OnStaleDiscard)
	}
	return out
}

func chain[E any](first, next func(context.Context, E)) func(context.Context, E) {
	switch {
	case next == nil:
		return first
	case first == nil:
		return next
	}
	return func(ctx context.Context, e E) {
		first(ctx, e)
		next(ctx, e)
	}
}
