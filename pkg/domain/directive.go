package domain

import (
	"fmt"
	"strings"
)

// Choice is a learner-facing option offered by a PromptChoice directive.
type Choice string

const (
	ChoiceReview   Choice = "review"
	ChoicePractice Choice = "practice"
	ChoiceContinue Choice = "continue"
	ChoiceStop     Choice = "stop"
)

// ParseChoice normalises learner input into a Choice.
func ParseChoice(s string) (Choice, error) {
	switch c := Choice(strings.ToLower(strings.TrimSpace(s))); c {
	case ChoiceReview, ChoicePractice, ChoiceContinue, ChoiceStop:
		return c, nil
	default:
		return "", fmt.Errorf("invalid choice %q", s)
	}
}

// DirectiveKind tags the variant held by a Directive.
type DirectiveKind string

const (
	DirectiveAutoAdvance  DirectiveKind = "auto_advance"
	DirectiveForceReview  DirectiveKind = "force_review"
	DirectivePromptChoice DirectiveKind = "prompt_choice"
	DirectiveFinish       DirectiveKind = "finish"
	DirectiveHalt         DirectiveKind = "halt"
)

// Directive is the outcome of resolving a next-action code.
// Only the fields relevant to Kind are set.
type Directive struct {
	Kind DirectiveKind `json:"kind"`

	// Target is the atom to move to (AutoAdvance) or to re-teach (ForceReview).
	Target *Atom `json:"target,omitempty"`

	// Options, Metrics and Reason describe a PromptChoice.
	Options []Choice           `json:"options,omitempty"`
	Metrics *CompletionMetrics `json:"metrics,omitempty"`
	Reason  string             `json:"reason,omitempty"`
}

// Allows reports whether c is one of the directive's options.
func (d Directive) Allows(c Choice) bool {
	for _, o := range d.Options {
		if o == c {
			return true
		}
	}
	return false
}
