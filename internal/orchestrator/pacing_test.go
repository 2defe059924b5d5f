package orchestrator

import (
	"testing"

	"github.com/aretw0/mentor/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func rec(atom string, mastery float64, band domain.PacingBand, code domain.NextActionCode) domain.PacingRecord {
	return domain.PacingRecord{AtomID: atom, Mastery: mastery, Pacing: band, NextAction: code}
}

func TestSummarize(t *testing.T) {
	records := []domain.PacingRecord{
		rec("a1", 0.9, domain.PacingSpeedUp, domain.ActionAutoAdvance),
		rec("a2", 0.4, domain.PacingSlowDown, domain.ActionReviewCurrent),
		rec("a2", 0.65, domain.PacingStay, domain.ActionAutoAdvance),
		rec("a3", 0.3, domain.PacingSharpSlowdown, domain.ActionUserChoice),
	}

	sum := Summarize(records, 3, nil)

	assert.Equal(t, domain.MasteryDistribution{Mastered: 1, Developing: 1, Struggling: 1}, sum.Distribution)
	assert.Equal(t, 3, sum.CompletedAtoms)
	assert.Equal(t, 3, sum.TotalAtoms)
	assert.Equal(t, 100.0, sum.CompletionPercent)
	assert.Equal(t, 4, sum.Attempts)
	assert.Equal(t, domain.PacingSharpSlowdown, sum.LastPacing)
	assert.Equal(t, DefaultMessages[domain.PacingSharpSlowdown], sum.Recommendation)
}

func TestSummarize_Boundaries(t *testing.T) {
	records := []domain.PacingRecord{
		rec("a", 0.8, domain.PacingStay, ""),
		rec("b", 0.6, domain.PacingStay, ""),
		rec("c", 0.5999, domain.PacingStay, ""),
	}
	sum := Summarize(records, 3, nil)
	assert.Equal(t, domain.MasteryDistribution{Mastered: 1, Developing: 1, Struggling: 1}, sum.Distribution)
}

func TestSummarize_PartialAndRounding(t *testing.T) {
	records := []domain.PacingRecord{
		rec("a1", 0.9, domain.PacingSpeedUp, domain.ActionAutoAdvance),
		rec("a2", 0.4, domain.PacingSlowDown, domain.ActionReviewCurrent),
	}
	sum := Summarize(records, 3, nil)
	assert.Equal(t, 1, sum.CompletedAtoms, "an atom sent back for review is not complete")
	assert.Equal(t, 33.3, sum.CompletionPercent)
}

func TestSummarize_RecommendReviewCountsAsCompleted(t *testing.T) {
	records := []domain.PacingRecord{
		rec("a1", 0.9, domain.PacingSpeedUp, domain.ActionAutoAdvance),
		rec("a2", 0.55, domain.PacingSlowDown, domain.ActionRecommendReview),
	}
	sum := Summarize(records, 2, nil)
	assert.Equal(t, 2, sum.CompletedAtoms)
	assert.Equal(t, 100.0, sum.CompletionPercent)
}

func TestSummarize_Empty(t *testing.T) {
	sum := Summarize(nil, 4, nil)
	assert.Zero(t, sum.CompletedAtoms)
	assert.Zero(t, sum.CompletionPercent)
	assert.Empty(t, sum.Recommendation)
	assert.Equal(t, 4, sum.TotalAtoms)
}

func TestSummarize_CustomMessages(t *testing.T) {
	records := []domain.PacingRecord{rec("a1", 0.9, domain.PacingSpeedUp, "")}
	sum := Summarize(records, 1, map[domain.PacingBand]string{domain.PacingSpeedUp: "Onwards!"})
	assert.Equal(t, "Onwards!", sum.Recommendation)

	sum = Summarize(records, 1, map[domain.PacingBand]string{domain.PacingStay: "unused"})
	assert.Equal(t, DefaultMessages[domain.PacingSpeedUp], sum.Recommendation, "falls back per band")
}

func TestSummarize_Idempotent(t *testing.T) {
	records := []domain.PacingRecord{
		rec("a1", 0.7, domain.PacingStay, domain.ActionAutoAdvance),
		rec("a2", 0.85, domain.PacingSpeedUp, domain.ActionAutoAdvance),
	}
	first := Summarize(records, 2, nil)
	second := Summarize(records, 2, nil)
	assert.Equal(t, first, second)
}

func TestAggregator(t *testing.T) {
	seed := []domain.PacingRecord{rec("a1", 0.7, domain.PacingStay, "")}
	agg := NewAggregator(seed...)
	seed[0].AtomID = "mutated"

	agg.Append(rec("a1", 0.9, domain.PacingSpeedUp, ""))
	assert.Equal(t, 2, agg.Len())

	out := agg.Records()
	assert.Equal(t, "a1", out[0].AtomID, "seed is copied")
	out[1].AtomID = "mutated"
	assert.Equal(t, "a1", agg.Records()[1].AtomID, "records are returned as a copy")
}
