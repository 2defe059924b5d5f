package domain

// Phase is the overall session phase. It mirrors the phase of the active atom
// and adds the states that only exist at session level.
type Phase string

const (
	PhaseTeaching        Phase = "teaching"
	PhaseQuestions       Phase = "questions"
	PhaseAwaitingChoice  Phase = "awaiting_choice"
	PhaseSessionComplete Phase = "session_complete"
	PhaseExited          Phase = "exited" // Learner chose to stop
	PhaseHalted          Phase = "halted" // Nothing left to advance to
)

// Terminal reports whether no further transition is possible.
func (p Phase) Terminal() bool {
	return p == PhaseSessionComplete || p == PhaseExited || p == PhaseHalted
}

// Slot names a logical single-flight request channel.
// At most one request per slot may be outstanding at a time.
type Slot string

const (
	SlotTeaching  Slot = "teaching"
	SlotQuestions Slot = "questions"
	SlotSubmit    Slot = "submit"
	SlotComplete  Slot = "complete"
	SlotHint      Slot = "hint"
)

// RequestTag identifies the controller state a request was issued for.
// A response is applied only if the tag still matches.
type RequestTag struct {
	Epoch     uint64 `json:"epoch"`
	AtomIndex int    `json:"atom_index"`
	Phase     Phase  `json:"phase"`
}
