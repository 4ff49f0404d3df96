package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/intent"
	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/retrieval"
	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/storage/models"
)

func newTestRanker() *Ranker {
	return NewRanker(Config{RetrievalWeight: 0.6, IntentWeight: 0.4})
}

func candidate(id int64, category string, priority int, combined float64) retrieval.Candidate {
	return retrieval.Candidate{
		FAQ: &models.FAQRecord{
			ID:       id,
			Category: category,
			Priority: priority,
		},
		Combined: combined,
	}
}

func TestRank_IntentBonusOnCategoryMatch(t *testing.T) {
	r := newTestRanker()

	ranked := r.Rank(
		[]retrieval.Candidate{candidate(1, "سفارش", 0, 0.5)},
		intent.Result{Label: intent.LabelOrder, Confidence: 0.9},
	)

	require.Len(t, ranked, 1)
	assert.True(t, ranked[0].IntentMatch)
	assert.InDelta(t, 0.9, ranked[0].IntentBonus, 1e-9)
	assert.InDelta(t, 0.6*0.5+0.4*0.9, ranked[0].FinalScore, 1e-9)
}

func TestRank_NoBonusOnCategoryMismatch(t *testing.T) {
	r := newTestRanker()

	ranked := r.Rank(
		[]retrieval.Candidate{candidate(1, "گارانتی", 0, 0.5)},
		intent.Result{Label: intent.LabelOrder, Confidence: 0.9},
	)

	require.Len(t, ranked, 1)
	assert.False(t, ranked[0].IntentMatch)
	assert.Zero(t, ranked[0].IntentBonus)
	assert.InDelta(t, 0.3, ranked[0].FinalScore, 1e-9)
}

func TestRank_BonusReordersCandidates(t *testing.T) {
	r := newTestRanker()

	ranked := r.Rank(
		[]retrieval.Candidate{
			candidate(1, "عمومی", 0, 0.6),
			candidate(2, "سفارش", 0, 0.5),
		},
		intent.Result{Label: intent.LabelOrder, Confidence: 0.9},
	)

	require.Len(t, ranked, 2)
	assert.Equal(t, int64(2), ranked[0].FAQ.ID)
}

func TestRank_TieBreakPriorityThenID(t *testing.T) {
	r := newTestRanker()

	ranked := r.Rank(
		[]retrieval.Candidate{
			candidate(9, "عمومی", 1, 0.5),
			candidate(4, "عمومی", 2, 0.5),
			candidate(2, "عمومی", 1, 0.5),
		},
		intent.Result{Label: intent.LabelOutOfScope},
	)

	require.Len(t, ranked, 3)
	assert.Equal(t, int64(4), ranked[0].FAQ.ID)
	assert.Equal(t, int64(2), ranked[1].FAQ.ID)
	assert.Equal(t, int64(9), ranked[2].FAQ.ID)
}

func TestRank_EmptyInput(t *testing.T) {
	assert.Nil(t, newTestRanker().Rank(nil, intent.Result{Label: intent.LabelGreeting}))
}

func TestCategoryLabel(t *testing.T) {
	tests := []struct {
		category string
		want     intent.Label
	}{
		{"سفارش", intent.LabelOrder},
		{"سفارشات", intent.LabelOrder},
		{"قیمت", intent.LabelPricing},
		{"order", intent.LabelOrder},
		{"pricing", intent.LabelPricing},
		{"ساعات کاری", intent.LabelHours},
		{"something else", intent.LabelGeneralQuestion},
		{"", intent.LabelGeneralQuestion},
	}

	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			assert.Equal(t, tt.want, CategoryLabel(tt.category))
		})
	}
}
