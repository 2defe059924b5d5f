package scripted

import (
	"fmt"
	"os"

	"github.com/aretw0/mentor/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Script describes a whole concept session played back by the Service.
type Script struct {
	SessionID     string       `yaml:"session_id"`
	ConceptName   string       `yaml:"concept_name"`
	InitialPacing string       `yaml:"initial_pacing"`
	Atoms         []AtomScript `yaml:"atoms"`
}

// AtomScript is the content and outcome of one atom.
type AtomScript struct {
	ID       string         `yaml:"id"`
	Name     string         `yaml:"name"`
	Teaching TeachingScript `yaml:"teaching"`
	// Questions is the question set handed out on every generate call.
	Questions []QuestionScript `yaml:"questions"`
	// Completions are consumed one per completion call; the last one repeats.
	Completions []Completion `yaml:"completions"`
}

// TeachingScript is the teaching material of an atom.
type TeachingScript struct {
	Explanation   string   `yaml:"explanation"`
	Examples      []string `yaml:"examples"`
	Analogy       string   `yaml:"analogy"`
	Misconception string   `yaml:"misconception"`
}

// QuestionScript is a question plus the index of its correct option.
type QuestionScript struct {
	ID            string   `yaml:"id"`
	Text          string   `yaml:"question"`
	Options       []string `yaml:"options"`
	Answer        int      `yaml:"answer"`
	Hint          string   `yaml:"hint"`
	Difficulty    float64  `yaml:"difficulty"`
	EstimatedTime float64  `yaml:"estimated_time"`
}

// Completion scripts the response of one atom completion. Zero fields are
// derived from the answers given so far.
type Completion struct {
	NextAction     string   `yaml:"next_action"`
	Reason         string   `yaml:"reason"`
	NextAtom       string   `yaml:"next_atom"`
	AllCompleted   *bool    `yaml:"all_completed"`
	Pacing         string   `yaml:"pacing"`
	Recommendation string   `yaml:"recommendation"`
	Mastery        *float64 `yaml:"mastery"`
}

// ParseScript decodes a YAML script and checks it is playable.
func ParseScript(data []byte) (Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Script{}, fmt.Errorf("failed to parse script: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Script{}, err
	}
	return s, nil
}

// LoadFile reads a YAML script from disk.
func LoadFile(path string) (Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Script{}, fmt.Errorf("failed to read script %s: %w", path, err)
	}
	return ParseScript(data)
}

// Validate reports the first structural problem of the script.
// A script without atoms is valid: starting it yields domain.ErrNoContent.
func (s Script) Validate() error {
	seen := make(map[string]bool, len(s.Atoms))
	for i, a := range s.Atoms {
		if a.ID == "" {
			return fmt.Errorf("atom %d: missing id", i)
		}
		if seen[a.ID] {
			return fmt.Errorf("atom %q: duplicate id", a.ID)
		}
		seen[a.ID] = true
		for j, q := range a.Questions {
			if len(q.Options) == 0 {
				return fmt.Errorf("atom %q question %d: no options", a.ID, j)
			}
			if q.Answer < 0 || q.Answer >= len(q.Options) {
				return fmt.Errorf("atom %q question %d: answer %d out of range", a.ID, j, q.Answer)
			}
		}
	}
	return nil
}

func (q QuestionScript) question(atomID string, index int) domain.Question {
	id := q.ID
	if id == "" {
		id = fmt.Sprintf("%s-q%d", atomID, index+1)
	}
	return domain.Question{
		ID:            id,
		Text:          q.Text,
		Options:       append([]string(nil), q.Options...),
		Difficulty:    q.Difficulty,
		EstimatedTime: q.EstimatedTime,
	}
}

func (t TeachingScript) content() domain.TeachingContent {
	return domain.TeachingContent{
		Explanation:   t.Explanation,
		Examples:      append([]string(nil), t.Examples...),
		Analogy:       t.Analogy,
		Misconception: t.Misconception,
	}
}
