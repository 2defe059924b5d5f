package orchestrator

import (
	"testing"

	"github.com/aretw0/mentor/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	completed := domain.Atom{ID: "a2", Name: "Quarters", Phase: domain.AtomComplete}
	next := &domain.Atom{ID: "a3", Name: "Eighths"}
	metrics := domain.CompletionMetrics{Accuracy: 0.5, FinalMastery: 0.55}

	tests := []struct {
		name    string
		raw     string
		next    *domain.Atom
		kind    domain.DirectiveKind
		options []domain.Choice
		target  string
	}{
		{"auto advance", "auto_advance", next, domain.DirectiveAutoAdvance, nil, "a3"},
		{"auto advance without next halts", "auto_advance", nil, domain.DirectiveHalt, nil, ""},
		{"review current", "review_current", next, domain.DirectiveForceReview, nil, "a2"},
		{"review current on last atom", "review_current", nil, domain.DirectiveForceReview, nil, "a2"},
		{"recommend review", "recommend_review", next, domain.DirectivePromptChoice, []domain.Choice{domain.ChoiceReview, domain.ChoiceContinue}, ""},
		{"recommend practice", "recommend_practice", next, domain.DirectivePromptChoice, []domain.Choice{domain.ChoiceReview, domain.ChoiceContinue}, ""},
		{"recommend advance", "recommend_advance", next, domain.DirectivePromptChoice, []domain.Choice{domain.ChoiceContinue, domain.ChoicePractice}, ""},
		{"user choice", "user_choice", next, domain.DirectivePromptChoice, []domain.Choice{domain.ChoiceContinue, domain.ChoiceStop}, ""},
		{"optional continue", "optional_continue", next, domain.DirectivePromptChoice, []domain.Choice{domain.ChoiceContinue, domain.ChoiceStop}, ""},
		{"absent code advances", "", next, domain.DirectiveAutoAdvance, nil, "a3"},
		{"unknown code advances", "jump_ahead", next, domain.DirectiveAutoAdvance, nil, "a3"},
		{"unknown code without next halts", "jump_ahead", nil, domain.DirectiveHalt, nil, ""},
		{"mixed case", "  Review_Current ", next, domain.DirectiveForceReview, nil, "a2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Resolve(Input{
				Action:    domain.NewNextAction(tt.raw, "because", ""),
				Completed: completed,
				Next:      tt.next,
				Metrics:   metrics,
			})
			assert.Equal(t, tt.kind, d.Kind)
			assert.Equal(t, tt.options, d.Options)
			if tt.target != "" {
				require.NotNil(t, d.Target)
				assert.Equal(t, tt.target, d.Target.ID)
			}
			if tt.kind == domain.DirectivePromptChoice {
				require.NotNil(t, d.Metrics)
				assert.Equal(t, metrics, *d.Metrics)
				assert.Equal(t, "because", d.Reason)
			}
		})
	}
}

func TestResolve_AllCompletedWins(t *testing.T) {
	codes := []string{"review_current", "auto_advance", "recommend_review", "recommend_advance", "user_choice", "optional_continue", "", "bogus"}
	for _, raw := range codes {
		d := Resolve(Input{
			Action:       domain.NewNextAction(raw, "", ""),
			Completed:    domain.Atom{ID: "last"},
			Next:         &domain.Atom{ID: "ignored"},
			AllCompleted: true,
		})
		assert.Equal(t, domain.DirectiveFinish, d.Kind, "code %q", raw)
	}
}

func TestResolve_HaltReasonNamesUnknownCode(t *testing.T) {
	d := Resolve(Input{Action: domain.NewNextAction("teleport", "", "")})
	assert.Equal(t, domain.DirectiveHalt, d.Kind)
	assert.Contains(t, d.Reason, `"teleport"`)
}

func TestResolve_HaltReasonNamesMissingCode(t *testing.T) {
	d := Resolve(Input{Action: domain.NewNextAction("", "", "")})
	assert.Equal(t, domain.DirectiveHalt, d.Kind)
	assert.Equal(t, "next action missing and no atom left to advance to", d.Reason)

	d = Resolve(Input{Action: domain.NewNextAction("auto_advance", "", "")})
	assert.Equal(t, "no atom left to advance to", d.Reason)
}

func TestResolve_TargetIsCopy(t *testing.T) {
	next := &domain.Atom{ID: "a3"}
	d := Resolve(Input{Action: domain.NewNextAction("auto_advance", "", ""), Next: next})
	next.ID = "mutated"
	assert.Equal(t, "a3", d.Target.ID)
}

func TestChoicesFor_NoPromptCodes(t *testing.T) {
	assert.Nil(t, ChoicesFor(domain.ActionReviewCurrent))
	assert.Nil(t, ChoicesFor(domain.ActionAutoAdvance))
	assert.Nil(t, ChoicesFor(domain.ActionUnknown))
}
