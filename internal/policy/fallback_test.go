package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/ranking"
	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/storage/models"
)

const defaultRefusal = "متاسفم، پاسخ این سوال را نمی‌دانم."

func rankedAnswer(id int64, score float64) *ranking.RankedAnswer {
	return &ranking.RankedAnswer{
		FAQ:        &models.FAQRecord{ID: id, Answer: "پاسخ"},
		FinalScore: score,
	}
}

func TestDecide_NoCandidatesYieldsFallback(t *testing.T) {
	e := NewEngine(0.55, defaultRefusal)

	d := e.Decide(nil, nil)

	assert.Equal(t, SourceFallback, d.Source)
	assert.False(t, d.Success)
	assert.Nil(t, d.MatchedFAQID)
	assert.Equal(t, defaultRefusal, d.Answer)
}

func TestDecide_ScoreAtThresholdIsAccepted(t *testing.T) {
	e := NewEngine(0.55, defaultRefusal)

	d := e.Decide(rankedAnswer(1, 0.55), nil)

	assert.Equal(t, SourceFAQ, d.Source)
	assert.True(t, d.Success)
	require.NotNil(t, d.MatchedFAQID)
	assert.Equal(t, int64(1), *d.MatchedFAQID)
	assert.InDelta(t, 0.55, d.Confidence, 1e-9)
}

func TestDecide_ScoreBelowThresholdIsRefused(t *testing.T) {
	e := NewEngine(0.55, defaultRefusal)

	d := e.Decide(rankedAnswer(1, 0.5499), nil)

	assert.Equal(t, SourceFallback, d.Source)
	assert.False(t, d.Success)
	assert.Nil(t, d.MatchedFAQID)
}

func TestDecide_SiteRefusalMessagePreferred(t *testing.T) {
	e := NewEngine(0.55, defaultRefusal)
	site := &models.Site{ID: "site-1", FallbackMessage: "لطفا با پشتیبانی تماس بگیرید."}

	d := e.Decide(nil, site)

	assert.Equal(t, site.FallbackMessage, d.Answer)
}

func TestDecide_SiteWithoutMessageUsesDefault(t *testing.T) {
	e := NewEngine(0.55, defaultRefusal)

	d := e.Decide(rankedAnswer(1, 0.1), &models.Site{ID: "site-1"})

	assert.Equal(t, defaultRefusal, d.Answer)
}

func TestSourceValid(t *testing.T) {
	for _, s := range []Source{SourceFAQ, SourceFallback, SourceEscalated, SourceError} {
		assert.True(t, s.Valid())
	}
	assert.False(t, Source("cache").Valid())
	assert.False(t, Source("").Valid())
}
