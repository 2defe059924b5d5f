package domain

import (
	"strings"
	"time"
)

// PacingBand is the coarse speed recommendation computed by the service.
type PacingBand string

const (
	PacingSharpSlowdown PacingBand = "sharp_slowdown"
	PacingSlowDown      PacingBand = "slow_down"
	PacingStay          PacingBand = "stay"
	PacingSpeedUp       PacingBand = "speed_up"
)

// ParsePacingBand normalises a wire value. Unknown values map to PacingStay.
func ParsePacingBand(raw string) PacingBand {
	switch b := PacingBand(strings.ToLower(strings.TrimSpace(raw))); b {
	case PacingSharpSlowdown, PacingSlowDown, PacingStay, PacingSpeedUp:
		return b
	default:
		return PacingStay
	}
}

// CompletionMetrics is the metrics block of an atom-completion response.
type CompletionMetrics struct {
	Accuracy     float64 `json:"accuracy"`
	FinalMastery float64 `json:"final_mastery"`
	ThetaChange  float64 `json:"theta_change"`
	TimeRatio    float64 `json:"time_ratio"`
}

// PacingRecord is one entry of the pacing history. It is created once per atom
// completion and never mutated afterwards.
type PacingRecord struct {
	AtomID         string         `json:"atom_id"`
	AtomName       string         `json:"atom_name"`
	Pacing         PacingBand     `json:"pacing"`
	Accuracy       float64        `json:"accuracy"`
	Mastery        float64        `json:"mastery"`
	AbilityDelta   float64        `json:"ability_delta"`
	TimeRatio      float64        `json:"time_ratio,omitempty"`
	Recommendation string         `json:"recommendation,omitempty"`
	NextAction     NextActionCode `json:"next_action"`
	CompletedAt    time.Time      `json:"completed_at"`
}

// MasteryDistribution counts atoms per mastery bucket.
type MasteryDistribution struct {
	Mastered   int `json:"mastered"`   // mastery >= 0.8
	Developing int `json:"developing"` // 0.6 <= mastery < 0.8
	Struggling int `json:"struggling"` // mastery < 0.6
}

// Summary is the closing report of a session.
type Summary struct {
	Distribution      MasteryDistribution `json:"distribution"`
	CompletedAtoms    int                 `json:"completed_atoms"`
	TotalAtoms        int                 `json:"total_atoms"`
	CompletionPercent float64             `json:"completion_percent"`
	LastPacing        PacingBand          `json:"last_pacing,omitempty"`
	Recommendation    string              `json:"recommendation"`
	Attempts          int                 `json:"attempts"` // Number of pacing records
}
