package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshotWith(phase Phase, cursor int, atoms ...Atom) *Snapshot {
	return &Snapshot{
		Session: Session{SessionID: "sess-1", Atoms: atoms},
		Cursor:  cursor,
		Phase:   phase,
	}
}

func TestDiff(t *testing.T) {
	a1 := Atom{ID: "a1", Name: "One", Phase: AtomTeaching}
	a2 := Atom{ID: "a2", Name: "Two", Phase: AtomNotStarted}

	t.Run("Initial Load (Old is Nil)", func(t *testing.T) {
		diff := Diff(nil, snapshotWith(PhaseTeaching, 0, a1, a2))
		require.NotNil(t, diff)
		assert.Equal(t, "sess-1", diff.SessionID)
		require.NotNil(t, diff.Phase)
		assert.Equal(t, PhaseTeaching, *diff.Phase)
		assert.Len(t, diff.Atoms, 2)
		assert.Nil(t, diff.Records)
	})

	t.Run("No Changes", func(t *testing.T) {
		old := snapshotWith(PhaseTeaching, 0, a1, a2)
		assert.Nil(t, Diff(old, snapshotWith(PhaseTeaching, 0, a1, a2)))
	})

	t.Run("Advance Appends Record", func(t *testing.T) {
		old := snapshotWith(PhaseQuestions, 0, Atom{ID: "a1", Phase: AtomQuestions}, a2)
		next := snapshotWith(PhaseTeaching, 1,
			Atom{ID: "a1", Phase: AtomComplete, MasteryScore: 0.9},
			Atom{ID: "a2", Name: "Two", Phase: AtomTeaching},
		)
		next.Records = []PacingRecord{{AtomID: "a1", Pacing: PacingSpeedUp}}

		diff := Diff(old, next)
		require.NotNil(t, diff)
		require.NotNil(t, diff.Cursor)
		assert.Equal(t, 1, *diff.Cursor)
		assert.Len(t, diff.Atoms, 2)
		require.Len(t, diff.Records, 1)
		assert.Equal(t, "a1", diff.Records[0].AtomID)
	})

	t.Run("Question Index Only", func(t *testing.T) {
		old := snapshotWith(PhaseQuestions, 0, a1)
		next := snapshotWith(PhaseQuestions, 0, a1)
		next.QuestionIndex = 1

		diff := Diff(old, next)
		require.NotNil(t, diff)
		assert.Nil(t, diff.Phase)
		require.NotNil(t, diff.QuestionIndex)
		assert.Equal(t, 1, *diff.QuestionIndex)
	})
}

func TestDiffJSONSerialization(t *testing.T) {
	old := snapshotWith(PhaseQuestions, 0, Atom{ID: "a1"})
	next := snapshotWith(PhaseAwaitingChoice, 0, Atom{ID: "a1"})

	diff := Diff(old, next)
	require.NotNil(t, diff)

	bytes, err := json.Marshal(diff)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(bytes), `"phase":"awaiting_choice"`))
	assert.False(t, strings.Contains(string(bytes), `"records"`), "unchanged records must be omitted")
}
