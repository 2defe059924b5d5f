package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNextActionCode(t *testing.T) {
	tests := []struct {
		raw  string
		want NextActionCode
	}{
		{"review_current", ActionReviewCurrent},
		{"AUTO_ADVANCE", ActionAutoAdvance},
		{" recommend_review ", ActionRecommendReview},
		{"recommend_practice", ActionRecommendPractice},
		{"recommend_advance", ActionRecommendAdvance},
		{"user_choice", ActionUserChoice},
		{"optional_continue", ActionOptionalContinue},
		{"", ActionNone},
		{"teleport", ActionUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseNextActionCode(tt.raw))
		})
	}
}

func TestNewNextAction_KeepsRawForUnknown(t *testing.T) {
	na := NewNextAction("skip_ahead", "because", "a3")
	assert.Equal(t, ActionUnknown, na.Code)
	assert.Equal(t, "skip_ahead", na.Raw)
	assert.Equal(t, "a3", na.NextAtomID)

	known := NewNextAction("auto_advance", "", "")
	assert.Empty(t, known.Raw)
	assert.True(t, known.Code.Known())
	assert.False(t, ActionNone.Known())
}

func TestParseKnowledgeLevel(t *testing.T) {
	l, err := ParseKnowledgeLevel("Intermediate")
	require.NoError(t, err)
	assert.Equal(t, LevelIntermediate, l)

	l, err = ParseKnowledgeLevel("")
	require.NoError(t, err)
	assert.Equal(t, LevelBeginner, l)

	_, err = ParseKnowledgeLevel("expert")
	assert.Error(t, err)
}

func TestParsePacingBand(t *testing.T) {
	assert.Equal(t, PacingSharpSlowdown, ParsePacingBand("sharp_slowdown"))
	assert.Equal(t, PacingSpeedUp, ParsePacingBand("Speed_Up"))
	assert.Equal(t, PacingStay, ParsePacingBand("warp"))
}

func TestRequestFailure_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := error(&RequestFailure{Slot: SlotSubmit, Op: "submit answer", Err: cause})

	assert.ErrorIs(t, err, cause)
	var rf *RequestFailure
	require.ErrorAs(t, err, &rf)
	assert.Equal(t, SlotSubmit, rf.Slot)
	assert.Contains(t, err.Error(), "submit answer failed")

	withStatus := &RequestFailure{Op: "complete atom", StatusCode: 503, Err: cause}
	assert.Contains(t, withStatus.Error(), "status 503")
}

func TestSnapshotClone_IsIndependent(t *testing.T) {
	snap := Snapshot{
		Session: Session{SessionID: "s", Atoms: []Atom{{ID: "a1"}}},
		Hints:   map[string]string{"q1": "think"},
		Records: []PacingRecord{{AtomID: "a1"}},
		Pending: &Directive{Kind: DirectivePromptChoice, Options: []Choice{ChoiceContinue}},
	}
	clone := snap.Clone()
	clone.Session.Atoms[0].Phase = AtomComplete
	clone.Hints["q1"] = "changed"
	clone.Pending.Options[0] = ChoiceStop

	assert.Equal(t, AtomPhase(""), snap.Session.Atoms[0].Phase)
	assert.Equal(t, "think", snap.Hints["q1"])
	assert.Equal(t, ChoiceContinue, snap.Pending.Options[0])
}

func TestDirectiveAllows(t *testing.T) {
	d := Directive{Kind: DirectivePromptChoice, Options: []Choice{ChoiceReview, ChoiceContinue}}
	assert.True(t, d.Allows(ChoiceReview))
	assert.False(t, d.Allows(ChoiceStop))
}
