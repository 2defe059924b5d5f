package domain

// Question is one assessment item generated from teaching content.
type Question struct {
	ID            string   `json:"id"`
	Text          string   `json:"question"`
	Options       []string `json:"options"`
	Difficulty    float64  `json:"difficulty"`
	EstimatedTime float64  `json:"estimated_time"` // seconds
}

// TeachingContent is the material shown during the teaching phase.
type TeachingContent struct {
	Explanation   string   `json:"explanation"`
	Examples      []string `json:"examples,omitempty"`
	Analogy       string   `json:"analogy,omitempty"`
	Misconception string   `json:"misconception,omitempty"`
}

// AnswerResult is the feedback returned for one submitted answer.
type AnswerResult struct {
	Correct      bool       `json:"correct"`
	MasteryAfter float64    `json:"mastery_after"`
	Improvement  float64    `json:"improvement"`
	Streak       int        `json:"streak"`
	BehaviorTag  string     `json:"behavior_tag,omitempty"`
	ErrorType    string     `json:"error_type,omitempty"`
	Pacing       PacingBand `json:"pacing,omitempty"`
}

// QuestionAttempt is the record of one answered question. It lives only while
// the atom's question set is active.
type QuestionAttempt struct {
	QuestionIndex    int     `json:"question_index"`
	SelectedOption   int     `json:"selected_option"`
	TimeTakenSeconds float64 `json:"time_taken_seconds"`
	Correct          bool    `json:"correct"`
	MasteryAfter     float64 `json:"mastery_after"`
	HintUsed         bool    `json:"hint_used,omitempty"`
}
