package domain

// Snapshot is the serialisable state of a running session.
// In-flight request bookkeeping is never part of a snapshot.
type Snapshot struct {
	Session Session `json:"session"`
	Cursor  int     `json:"cursor"`
	Phase   Phase   `json:"phase"`
	Epoch   uint64  `json:"epoch"`

	Teaching      *TeachingContent  `json:"teaching,omitempty"`
	Questions     []Question        `json:"questions,omitempty"`
	QuestionIndex int               `json:"question_index"`
	LastResult    *AnswerResult     `json:"last_result,omitempty"`
	Attempts      []QuestionAttempt `json:"attempts,omitempty"`
	Hints         map[string]string `json:"hints,omitempty"`
	HintPending   bool              `json:"hint_pending,omitempty"`

	Pending       *Directive     `json:"pending,omitempty"`
	Records       []PacingRecord `json:"records"`
	CurrentPacing PacingBand     `json:"current_pacing,omitempty"`
	HaltReason    string         `json:"halt_reason,omitempty"`

	// Sealed carries the encrypted form of a whole snapshot when the store
	// is wrapped in an encryption layer. It is empty on live snapshots.
	Sealed string `json:"sealed,omitempty"`
}

// Tag returns the request tag matching the snapshot state.
func (s *Snapshot) Tag() RequestTag {
	return RequestTag{Epoch: s.Epoch, AtomIndex: s.Cursor, Phase: s.Phase}
}

// ActiveAtom returns the atom under the cursor, or nil past the end.
func (s *Snapshot) ActiveAtom() *Atom {
	if s.Cursor < 0 || s.Cursor >= len(s.Session.Atoms) {
		return nil
	}
	return &s.Session.Atoms[s.Cursor]
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	s.Session = s.Session.Clone()
	if s.Teaching != nil {
		t := *s.Teaching
		t.Examples = append([]string(nil), t.Examples...)
		s.Teaching = &t
	}
	s.Questions = append([]Question(nil), s.Questions...)
	if s.LastResult != nil {
		r := *s.LastResult
		s.LastResult = &r
	}
	s.Attempts = append([]QuestionAttempt(nil), s.Attempts...)
	if s.Hints != nil {
		hints := make(map[string]string, len(s.Hints))
		for k, v := range s.Hints {
			hints[k] = v
		}
		s.Hints = hints
	}
	if s.Pending != nil {
		d := *s.Pending
		d.Options = append([]Choice(nil), d.Options...)
		s.Pending = &d
	}
	s.Records = append([]PacingRecord(nil), s.Records...)
	return s
}

// View is the read model the presentation adapters render.
type View struct {
	SessionID     string             `json:"session_id"`
	ConceptName   string             `json:"concept_name"`
	Phase         Phase              `json:"phase"`
	AtomIndex     int                `json:"atom_index"`
	TotalAtoms    int                `json:"total_atoms"`
	Atom          *Atom              `json:"atom,omitempty"`
	Teaching      *TeachingContent   `json:"teaching,omitempty"`
	Question      *Question          `json:"question,omitempty"`
	QuestionIndex int                `json:"question_index"`
	QuestionCount int                `json:"question_count"`
	LastResult    *AnswerResult      `json:"last_result,omitempty"`
	CanSubmit     bool               `json:"can_submit"`
	CanContinue   bool               `json:"can_continue"`
	Hint          string             `json:"hint,omitempty"`
	Choices       []Choice           `json:"choices,omitempty"`
	Reason        string             `json:"reason,omitempty"`
	Metrics       *CompletionMetrics `json:"metrics,omitempty"`
	CurrentPacing PacingBand         `json:"current_pacing,omitempty"`
	Message       string             `json:"message,omitempty"`
	Summary       *Summary           `json:"summary,omitempty"`
}
