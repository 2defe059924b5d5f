package orchestrator

import (
	"fmt"

	"github.com/aretw0/mentor/pkg/domain"
)

// Input is everything the decision resolver looks at after an atom completes.
type Input struct {
	Action       domain.NextAction
	Completed    domain.Atom
	Next         *domain.Atom // Atom following Completed in session order, nil after the last one
	Metrics      domain.CompletionMetrics
	AllCompleted bool
}

// ChoicesFor returns the learner-facing options offered for a code.
// Codes that do not prompt the learner return nil.
func ChoicesFor(code domain.NextActionCode) []domain.Choice {
	switch code {
	case domain.ActionRecommendReview, domain.ActionRecommendPractice:
		return []domain.Choice{domain.ChoiceReview, domain.ChoiceContinue}
	case domain.ActionRecommendAdvance:
		return []domain.Choice{domain.ChoiceContinue, domain.ChoicePractice}
	case domain.ActionUserChoice, domain.ActionOptionalContinue:
		return []domain.Choice{domain.ChoiceContinue, domain.ChoiceStop}
	default:
		return nil
	}
}

// Resolve maps a next-action code onto a Directive. It is a pure function.
//
// Priority: AllCompleted always finishes the session. Otherwise review_current
// forces a review, the recommendation and choice codes prompt the learner, and
// every other code (auto_advance, absent, unrecognised) advances when a next
// atom exists and halts when it does not.
func Resolve(in Input) domain.Directive {
	if in.AllCompleted {
		return domain.Directive{Kind: domain.DirectiveFinish}
	}

	switch in.Action.Code {
	case domain.ActionReviewCurrent:
		target := in.Completed
		return domain.Directive{
			Kind:   domain.DirectiveForceReview,
			Target: &target,
			Reason: in.Action.Reason,
		}

	case domain.ActionRecommendReview,
		domain.ActionRecommendPractice,
		domain.ActionRecommendAdvance,
		domain.ActionUserChoice,
		domain.ActionOptionalContinue:
		metrics := in.Metrics
		return domain.Directive{
			Kind:    domain.DirectivePromptChoice,
			Options: ChoicesFor(in.Action.Code),
			Metrics: &metrics,
			Reason:  in.Action.Reason,
		}
	}

	return advance(in.Next, in.Action)
}

// advance is the transition shared by AutoAdvance and the "continue" choice.
func advance(next *domain.Atom, action domain.NextAction) domain.Directive {
	if next != nil {
		target := *next
		return domain.Directive{
			Kind:   domain.DirectiveAutoAdvance,
			Target: &target,
			Reason: action.Reason,
		}
	}

	reason := "no atom left to advance to"
	switch action.Code {
	case domain.ActionUnknown:
		reason = fmt.Sprintf("unrecognised next action %q and %s", action.Raw, reason)
	case domain.ActionNone:
		reason = "next action missing and " + reason
	}
	return domain.Directive{Kind: domain.DirectiveHalt, Reason: reason}
}
