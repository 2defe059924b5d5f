package orchestrator

import "github.com/aretw0/mentor/pkg/domain"

// questionFlow sequences the question set of the active atom.
// The only exit is advancing past the last question.
type questionFlow struct {
	questions []domain.Question
	index     int
	result    *domain.AnswerResult // nil until the current question is answered
	attempts  []domain.QuestionAttempt

	hints       map[string]string // at most one hint per question ID
	hintPending bool              // a hint was granted for the current question
}

func (f *questionFlow) reset(questions []domain.Question) {
	*f = questionFlow{
		questions: append([]domain.Question(nil), questions...),
		hints:     make(map[string]string),
	}
}

func (f *questionFlow) discard() {
	*f = questionFlow{}
}

func (f *questionFlow) current() (domain.Question, bool) {
	if f.index < 0 || f.index >= len(f.questions) {
		return domain.Question{}, false
	}
	return f.questions[f.index], true
}

func (f *questionFlow) answered() bool {
	return f.result != nil
}

func (f *questionFlow) hasNext() bool {
	return f.index+1 < len(f.questions)
}

func (f *questionFlow) record(attempt domain.QuestionAttempt, result domain.AnswerResult) {
	f.attempts = append(f.attempts, attempt)
	f.result = &result
}

func (f *questionFlow) advance() {
	f.index++
	f.result = nil
	f.hintPending = false
}

// errorCount is the number of wrong answers given so far in this question set.
func (f *questionFlow) errorCount() int {
	n := 0
	for _, a := range f.attempts {
		if !a.Correct {
			n++
		}
	}
	return n
}

func (f *questionFlow) hint(questionID string) (string, bool) {
	h, ok := f.hints[questionID]
	return h, ok
}

func (f *questionFlow) grantHint(questionID, hint string) string {
	if f.hints == nil {
		f.hints = make(map[string]string)
	}
	if existing, ok := f.hints[questionID]; ok {
		hint = existing
	} else {
		f.hints[questionID] = hint
	}
	f.hintPending = true
	return hint
}
