package domain

import "strings"

// NextActionCode is the closed vocabulary the learning service uses to tell the
// client what to do after an atom completes.
type NextActionCode string

const (
	ActionReviewCurrent     NextActionCode = "review_current"
	ActionAutoAdvance       NextActionCode = "auto_advance"
	ActionRecommendReview   NextActionCode = "recommend_review"
	ActionRecommendPractice NextActionCode = "recommend_practice"
	ActionRecommendAdvance  NextActionCode = "recommend_advance"
	ActionUserChoice        NextActionCode = "user_choice"
	ActionOptionalContinue  NextActionCode = "optional_continue"

	// ActionNone means the server sent no code; the default-advance rule applies.
	ActionNone NextActionCode = ""
	// ActionUnknown marks a code outside the vocabulary. The raw value is kept on NextAction.
	ActionUnknown NextActionCode = "unknown"
)

var knownActions = map[NextActionCode]struct{}{
	ActionReviewCurrent:     {},
	ActionAutoAdvance:       {},
	ActionRecommendReview:   {},
	ActionRecommendPractice: {},
	ActionRecommendAdvance:  {},
	ActionUserChoice:        {},
	ActionOptionalContinue:  {},
}

// ParseNextActionCode maps a wire value onto the closed enum.
// Matching is case-insensitive; unrecognised values map to ActionUnknown.
func ParseNextActionCode(raw string) NextActionCode {
	clean := NextActionCode(strings.ToLower(strings.TrimSpace(raw)))
	if clean == "" {
		return ActionNone
	}
	if _, ok := knownActions[clean]; ok {
		return clean
	}
	return ActionUnknown
}

// Known reports whether the code is one of the documented values.
func (c NextActionCode) Known() bool {
	_, ok := knownActions[c]
	return ok
}

// NextAction is the validated next_action block of an atom-completion response.
type NextAction struct {
	Code       NextActionCode `json:"action"`
	Raw        string         `json:"raw,omitempty"` // Original wire value when Code is ActionUnknown
	Reason     string         `json:"reason,omitempty"`
	NextAtomID string         `json:"next_atom,omitempty"`
}

// NewNextAction builds a NextAction from wire values.
func NewNextAction(raw, reason, nextAtomID string) NextAction {
	na := NextAction{
		Code:       ParseNextActionCode(raw),
		Reason:     reason,
		NextAtomID: nextAtomID,
	}
	if na.Code == ActionUnknown {
		na.Raw = raw
	}
	return na
}
