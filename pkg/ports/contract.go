package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/mentor/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contractSnapshot(sessionID string) *domain.Snapshot {
	return &domain.Snapshot{
		Session: domain.Session{
			SessionID:   sessionID,
			ConceptName: "Fractions",
			Atoms: []domain.Atom{
				{ID: "a1", Name: "Halves", Phase: domain.AtomComplete, MasteryScore: 0.85},
				{ID: "a2", Name: "Quarters", Phase: domain.AtomTeaching},
			},
		},
		Cursor: 1,
		Phase:  domain.PhaseTeaching,
		Epoch:  4,
		Records: []domain.PacingRecord{
			{AtomID: "a1", Pacing: domain.PacingSpeedUp, Mastery: 0.85, NextAction: domain.ActionAutoAdvance},
		},
	}
}

// RunSnapshotStoreContract runs a suite of tests to verify that a SnapshotStore implementation
// adheres to the defined interface contract.
func RunSnapshotStoreContract(t *testing.T, store SnapshotStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		snap := contractSnapshot(sessionID)

		err := store.Save(ctx, sessionID, snap)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, snap.Phase, loaded.Phase)
		assert.Equal(t, snap.Cursor, loaded.Cursor)
		assert.Equal(t, snap.Epoch, loaded.Epoch)
		require.Len(t, loaded.Session.Atoms, 2)
		assert.Equal(t, domain.AtomComplete, loaded.Session.Atoms[0].Phase)
		require.Len(t, loaded.Records, 1)
		assert.Equal(t, domain.ActionAutoAdvance, loaded.Records[0].NextAction)
	})

	t.Run("Load Is Isolated", func(t *testing.T) {
		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		loaded.Session.Atoms[0].Phase = domain.AtomReview

		again, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, domain.AtomComplete, again.Session.Atoms[0].Phase)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sessionID, contractSnapshot(sessionID))
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, contractSnapshot(id1))
		_ = store.Save(ctx, id2, contractSnapshot(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
