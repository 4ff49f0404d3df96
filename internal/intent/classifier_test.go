package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/llm"
)

type fakeLLM struct {
	result *llm.Classification
	err    error
}

func (f *fakeLLM) ClassifyIntent(_ context.Context, _ string, _ []string) (*llm.Classification, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func TestClassify_ModelResultWithKeywordBoost(t *testing.T) {
	c := NewClassifier(&fakeLLM{
		result: &llm.Classification{Label: "pricing", Confidence: 0.7, Reasoning: "asks about cost"},
	}, 0.2, 6)

	res := c.Classify(context.Background(), "قیمت محصول چند است")

	assert.Equal(t, LabelPricing, res.Label)
	assert.InDelta(t, 0.9, res.Confidence, 1e-9)
	assert.False(t, res.Degraded)
}

func TestClassify_BoostCappedAtOne(t *testing.T) {
	c := NewClassifier(&fakeLLM{
		result: &llm.Classification{Label: "pricing", Confidence: 0.95},
	}, 0.2, 6)

	res := c.Classify(context.Background(), "قیمت چند")

	assert.Equal(t, 1.0, res.Confidence)
}

func TestClassify_NoBoostWithoutTriggerMatch(t *testing.T) {
	c := NewClassifier(&fakeLLM{
		result: &llm.Classification{Label: "pricing", Confidence: 0.7},
	}, 0.2, 6)

	res := c.Classify(context.Background(), "توضیح بیشتری میخواهم")

	assert.InDelta(t, 0.7, res.Confidence, 1e-9)
}

func TestClassify_OutOfTaxonomyLabelCoerced(t *testing.T) {
	c := NewClassifier(&fakeLLM{
		result: &llm.Classification{Label: "chitchat", Confidence: 0.8},
	}, 0.2, 6)

	res := c.Classify(context.Background(), "یک پیام معمولی")

	assert.Equal(t, LabelGeneralQuestion, res.Label)
	assert.Contains(t, res.Reasoning, "coerced")
	assert.False(t, res.Degraded)
}

func TestClassify_ModelFailureDegradesToKeywords(t *testing.T) {
	c := NewClassifier(&fakeLLM{err: context.DeadlineExceeded}, 0.2, 6)

	res := c.Classify(context.Background(), "سفارش من کجاست")

	assert.Equal(t, LabelOrder, res.Label)
	assert.True(t, res.Degraded)
	assert.Contains(t, res.Reasoning, "degraded")
}

func TestClassify_NilModelUsesKeywordTier(t *testing.T) {
	c := NewClassifier(nil, 0.2, 6)

	res := c.Classify(context.Background(), "سفارش")

	assert.Equal(t, LabelOrder, res.Label)
	assert.True(t, res.Degraded)
	assert.InDelta(t, 0.9, res.Confidence, 1e-9)
}

func TestKeywordClassify_ExactGreetingIsCertain(t *testing.T) {
	c := NewClassifier(nil, 0.2, 6)

	res := c.Classify(context.Background(), "سلام")

	assert.Equal(t, LabelGreeting, res.Label)
	assert.Equal(t, 1.0, res.Confidence)
	assert.True(t, res.Degraded)
}

func TestKeywordClassify_NoTriggersYieldsGeneralQuestion(t *testing.T) {
	c := NewClassifier(nil, 0.2, 6)

	res := c.Classify(context.Background(), "abcxyz")

	assert.Equal(t, LabelGeneralQuestion, res.Label)
	assert.InDelta(t, 0.2, res.Confidence, 1e-9)
	assert.True(t, res.Degraded)
}

func TestKeywordClassify_ConfidenceIsTokenCoverage(t *testing.T) {
	c := NewClassifier(nil, 0.2, 6)

	// one trigger token out of three content tokens
	res := c.Classify(context.Background(), "چطور سفارش بدهم")

	assert.Equal(t, LabelOrder, res.Label)
	assert.InDelta(t, 1.0/3.0, res.Confidence, 1e-9)
}

func TestClassify_ModelErrorNeverPropagates(t *testing.T) {
	c := NewClassifier(&fakeLLM{err: errors.New("upstream down")}, 0.2, 6)

	res := c.Classify(context.Background(), "hello there friend")

	assert.True(t, res.Label.Valid())
	assert.True(t, res.Degraded)
}
