package rest

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/aretw0/mentor/pkg/domain"
)

type startRequest struct {
	ConceptID      string `json:"concept_id"`
	KnowledgeLevel string `json:"knowledge_level"`
}

type wireAtom struct {
	AtomID       string  `json:"atom_id"`
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	MasteryScore float64 `json:"mastery_score"`
}

func (a wireAtom) id() string {
	if a.AtomID != "" {
		return a.AtomID
	}
	return a.ID
}

type startResponse struct {
	SessionID     string     `json:"session_id" validate:"required"`
	ConceptName   string     `json:"concept_name"`
	Atoms         []wireAtom `json:"atoms" validate:"dive"`
	InitialPacing string     `json:"initial_pacing"`
}

type teachingResponse struct {
	TeachingContent struct {
		Explanation   string   `json:"explanation" validate:"required"`
		Examples      []string `json:"examples"`
		Analogy       string   `json:"analogy"`
		Misconception string   `json:"misconception"`
	} `json:"teaching_content"`
	CurrentPacing string `json:"current_pacing"`
}

type wireQuestion struct {
	ID            string   `json:"id" validate:"required"`
	Question      string   `json:"question" validate:"required"`
	Options       []string `json:"options" validate:"min=1"`
	Difficulty    float64  `json:"difficulty"`
	EstimatedTime float64  `json:"estimated_time" validate:"gte=0"`
}

type questionsResponse struct {
	Questions []wireQuestion `json:"questions" validate:"dive"`
}

type answerRequest struct {
	QuestionIndex int     `json:"question_index"`
	Selected      int     `json:"selected"`
	TimeTaken     float64 `json:"time_taken"`
	HintUsed      bool    `json:"hint_used,omitempty"`
}

type answerResponse struct {
	Correct       bool    `json:"correct"`
	NewMastery    float64 `json:"new_mastery" validate:"gte=0,lte=1"`
	Improvement   float64 `json:"improvement"`
	Streak        int     `json:"streak" validate:"gte=0"`
	Behavior      string  `json:"behavior"`
	ErrorType     string  `json:"error_type"`
	CurrentPacing string  `json:"current_pacing"`
}

type completeResponse struct {
	Metrics struct {
		Accuracy     float64 `json:"accuracy" validate:"gte=0,lte=1"`
		FinalMastery float64 `json:"final_mastery" validate:"gte=0,lte=1"`
		ThetaChange  float64 `json:"theta_change"`
		TimeRatio    float64 `json:"time_ratio"`
	} `json:"metrics"`
	Pacing struct {
		Decision       string `json:"decision"`
		Recommendation string `json:"recommendation"`
	} `json:"pacing"`
	NextAction struct {
		Action   string   `json:"action"`
		Reason   string   `json:"reason"`
		NextAtom nextAtom `json:"next_atom"`
	} `json:"next_action"`
	AllCompleted bool `json:"all_completed"`
}

// nextAtom accepts either an atom ID or an atom object.
type nextAtom string

func (n *nextAtom) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = nextAtom(s)
		return nil
	}
	var a wireAtom
	if err := json.Unmarshal(data, &a); err != nil {
		return fmt.Errorf("next_atom: %w", err)
	}
	*n = nextAtom(a.id())
	return nil
}

type hintRequest struct {
	QuestionID string `json:"question_id"`
	ErrorCount int    `json:"error_count"`
}

type hintResponse struct {
	Hint string `json:"hint" validate:"required"`
}

type errorResponse struct {
	Detail  string `json:"detail"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (e errorResponse) text() string {
	switch {
	case e.Detail != "":
		return e.Detail
	case e.Message != "":
		return e.Message
	default:
		return e.Error
	}
}

func (q wireQuestion) domain() domain.Question {
	return domain.Question{
		ID:            q.ID,
		Text:          q.Question,
		Options:       q.Options,
		Difficulty:    q.Difficulty,
		EstimatedTime: q.EstimatedTime,
	}
}
