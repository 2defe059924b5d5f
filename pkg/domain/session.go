package domain

import (
	"fmt"
	"strings"
)

// KnowledgeLevel is the self-reported starting level of a learner for a concept.
type KnowledgeLevel string

const (
	LevelZero         KnowledgeLevel = "zero"
	LevelBeginner     KnowledgeLevel = "beginner"
	LevelIntermediate KnowledgeLevel = "intermediate"
	LevelAdvanced     KnowledgeLevel = "advanced"
)

// ParseKnowledgeLevel normalises a user supplied level.
func ParseKnowledgeLevel(s string) (KnowledgeLevel, error) {
	switch l := KnowledgeLevel(strings.ToLower(strings.TrimSpace(s))); l {
	case LevelZero, LevelBeginner, LevelIntermediate, LevelAdvanced:
		return l, nil
	case "":
		return LevelBeginner, nil
	default:
		return "", fmt.Errorf("invalid knowledge level %q (expected zero|beginner|intermediate|advanced)", s)
	}
}

// AtomPhase is the per-atom position in the teach/assess cycle.
type AtomPhase string

const (
	AtomNotStarted AtomPhase = "not_started"
	AtomTeaching   AtomPhase = "teaching"
	AtomQuestions  AtomPhase = "questions"
	AtomReview     AtomPhase = "review" // Re-taught after a forced or chosen review
	AtomComplete   AtomPhase = "complete"
)

// InProgress reports whether the atom is the one currently being worked on.
func (p AtomPhase) InProgress() bool {
	return p == AtomTeaching || p == AtomQuestions || p == AtomReview
}

// Atom is the unit of teaching and assessment.
type Atom struct {
	ID           string    `json:"atom_id"`
	Name         string    `json:"name"`
	Phase        AtomPhase `json:"phase"`
	MasteryScore float64   `json:"mastery_score"`
}

// Session identifies one concept-learning attempt.
// Identity is immutable; only the atom phases and scores change.
type Session struct {
	SessionID      string         `json:"session_id"`
	ConceptID      string         `json:"concept_id"`
	ConceptName    string         `json:"concept_name"`
	KnowledgeLevel KnowledgeLevel `json:"knowledge_level"`
	InitialPacing  PacingBand     `json:"initial_pacing,omitempty"`
	Atoms          []Atom         `json:"atoms"`
}

// IndexOf returns the position of the atom with the given ID, or -1.
func (s *Session) IndexOf(atomID string) int {
	for i := range s.Atoms {
		if s.Atoms[i].ID == atomID {
			return i
		}
	}
	return -1
}

// CompletedCount returns the number of atoms whose phase is complete.
func (s *Session) CompletedCount() int {
	n := 0
	for _, a := range s.Atoms {
		if a.Phase == AtomComplete {
			n++
		}
	}
	return n
}

// AllComplete reports whether every atom has been completed.
func (s *Session) AllComplete() bool {
	return len(s.Atoms) > 0 && s.CompletedCount() == len(s.Atoms)
}

// Clone returns a deep copy safe for independent mutation.
func (s Session) Clone() Session {
	s.Atoms = append([]Atom(nil), s.Atoms...)
	return s
}
