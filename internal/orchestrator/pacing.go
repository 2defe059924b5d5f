package orchestrator

import (
	"math"

	"github.com/aretw0/mentor/pkg/domain"
)

// Mastery thresholds of the summary distribution.
const (
	MasteredThreshold   = 0.8
	DevelopingThreshold = 0.6
)

// DefaultMessages are the closing recommendations keyed by the last pacing band.
var DefaultMessages = map[domain.PacingBand]string{
	domain.PacingSpeedUp:       "Excellent pace! You are ready for more challenging material.",
	domain.PacingStay:          "Steady progress. Keep practising at this pace.",
	domain.PacingSlowDown:      "Take a little more time with each topic before moving on.",
	domain.PacingSharpSlowdown: "Revisit the fundamentals of this concept before continuing.",
}

// Aggregator accumulates the pacing history of a session.
// Records are appended in completion order and never reordered or deduplicated.
type Aggregator struct {
	records []domain.PacingRecord
}

// NewAggregator creates an aggregator seeded with existing records (e.g. from a snapshot).
func NewAggregator(records ...domain.PacingRecord) *Aggregator {
	return &Aggregator{records: append([]domain.PacingRecord(nil), records...)}
}

// Append adds a record.
func (a *Aggregator) Append(r domain.PacingRecord) {
	a.records = append(a.records, r)
}

// Len returns the number of records.
func (a *Aggregator) Len() int { return len(a.records) }

// Records returns a copy of the history.
func (a *Aggregator) Records() []domain.PacingRecord {
	return append([]domain.PacingRecord(nil), a.records...)
}

// Summarize derives the closing report from a pacing history alone.
// Each atom counts once, using its latest record. An atom counts as completed
// unless its latest record is review_current. A recommend_review record counts
// as completed whatever the learner chose: choosing review appends nothing, so
// an atom left mid-review keeps its last completed record.
func Summarize(records []domain.PacingRecord, totalAtoms int, messages map[domain.PacingBand]string) domain.Summary {
	latest := make(map[string]domain.PacingRecord, len(records))
	for _, r := range records {
		latest[r.AtomID] = r
	}

	var sum domain.Summary
	sum.Attempts = len(records)
	for _, r := range latest {
		switch {
		case r.Mastery >= MasteredThreshold:
			sum.Distribution.Mastered++
		case r.Mastery >= DevelopingThreshold:
			sum.Distribution.Developing++
		default:
			sum.Distribution.Struggling++
		}
		if r.NextAction != domain.ActionReviewCurrent {
			sum.CompletedAtoms++
		}
	}

	sum.TotalAtoms = totalAtoms
	if len(latest) > sum.TotalAtoms {
		sum.TotalAtoms = len(latest)
	}
	if sum.TotalAtoms > 0 {
		pct := float64(sum.CompletedAtoms) / float64(sum.TotalAtoms) * 100
		sum.CompletionPercent = math.Round(pct*10) / 10
	}

	if len(records) > 0 {
		sum.LastPacing = records[len(records)-1].Pacing
		sum.Recommendation = messageFor(sum.LastPacing, messages)
	}
	return sum
}

func messageFor(band domain.PacingBand, messages map[domain.PacingBand]string) string {
	if msg, ok := messages[band]; ok && msg != "" {
		return msg
	}
	return DefaultMessages[band]
}
