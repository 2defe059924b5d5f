package domain

// SnapshotDiff represents the changes between two snapshots of a session.
// It is serialized to JSON for partial updates on the client.
type SnapshotDiff struct {
	// SessionID is always present to identify the target.
	SessionID string `json:"session_id"`

	Phase         *Phase `json:"phase,omitempty"`
	Cursor        *int   `json:"cursor,omitempty"`
	QuestionIndex *int   `json:"question_index,omitempty"`

	// Atoms holds only the atoms whose phase or mastery changed.
	Atoms []Atom `json:"atoms,omitempty"`

	// Records contains the pacing records appended since the old snapshot.
	Records []PacingRecord `json:"records,omitempty"`
}

// Diff calculates the difference between oldSnap and newSnap.
// If oldSnap is nil, it returns a diff representing the entire newSnap (initial load).
// It returns nil when nothing changed.
func Diff(oldSnap, newSnap *Snapshot) *SnapshotDiff {
	if newSnap == nil {
		return nil
	}

	diff := &SnapshotDiff{
		SessionID: newSnap.Session.SessionID,
	}

	if oldSnap == nil || oldSnap.Phase != newSnap.Phase {
		diff.Phase = &newSnap.Phase
	}
	if oldSnap == nil || oldSnap.Cursor != newSnap.Cursor {
		diff.Cursor = &newSnap.Cursor
	}
	if oldSnap == nil || oldSnap.QuestionIndex != newSnap.QuestionIndex {
		diff.QuestionIndex = &newSnap.QuestionIndex
	}

	diff.Atoms = diffAtoms(oldSnap, newSnap)
	diff.Records = diffRecords(oldSnap, newSnap)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffAtoms(old, new *Snapshot) []Atom {
	if old == nil {
		return append([]Atom(nil), new.Session.Atoms...)
	}

	var changed []Atom
	for i, a := range new.Session.Atoms {
		if i >= len(old.Session.Atoms) || old.Session.Atoms[i] != a {
			changed = append(changed, a)
		}
	}
	return changed
}

// diffRecords relies on the pacing history being append-only.
func diffRecords(old, new *Snapshot) []PacingRecord {
	if old == nil {
		if len(new.Records) == 0 {
			return nil
		}
		return append([]PacingRecord(nil), new.Records...)
	}
	if len(new.Records) > len(old.Records) {
		return append([]PacingRecord(nil), new.Records[len(old.Records):]...)
	}
	return nil
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *SnapshotDiff) IsEmpty() bool {
	return d.Phase == nil &&
		d.Cursor == nil &&
		d.QuestionIndex == nil &&
		len(d.Atoms) == 0 &&
		len(d.Records) == 0
}
