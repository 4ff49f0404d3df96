package intent

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/llm"
	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/text"
	"github.com/souroshsepehri/zimmer-chatbot-sub000/pkg/logger"
)

// Result is the classifier's verdict. Degraded is true when the model call
// failed and the keyword tier produced the result instead.
type Result struct {
	Label      Label
	Confidence float64
	Reasoning  string
	Degraded   bool
}

type LLM interface {
	ClassifyIntent(ctx context.Context, message string, labels []string) (*llm.Classification, error)
}

// Classifier labels messages with the closed taxonomy. The model call is the
// primary tier; keyword matching is both a deterministic confidence boost on
// top of it and a full fallback when the call fails. Classify never returns
// an error.
type Classifier struct {
	llm     LLM
	boost   float64
	timeout time.Duration
}

func NewClassifier(llmClient LLM, keywordBoost float64, timeoutSec int) *Classifier {
	return &Classifier{
		llm:     llmClient,
		boost:   keywordBoost,
		timeout: time.Duration(timeoutSec) * time.Second,
	}
}

func (c *Classifier) Classify(ctx context.Context, message string) Result {
	tokens := text.Tokenize(message)

	if c.llm == nil {
		return c.keywordClassify(message, tokens)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.llm.ClassifyIntent(ctx, message, labelStrings())
	if err != nil {
		logger.Warn("Intent model unavailable, using keyword classification", zap.Error(err))
		return c.keywordClassify(message, tokens)
	}

	result := Result{
		Label:      Label(raw.Label),
		Confidence: raw.Confidence,
		Reasoning:  raw.Reasoning,
	}

	if !result.Label.Valid() {
		logger.Debug("Classifier returned out-of-taxonomy label",
			zap.String("label", raw.Label),
		)
		result.Reasoning = fmt.Sprintf("label %q outside taxonomy, coerced to general_question; %s", raw.Label, raw.Reasoning)
		result.Label = LabelGeneralQuestion
	}

	// Keyword boost: trigger terms for the detected label raise confidence by
	// a fixed additive amount, capped at 1.0.
	if matchTriggers(result.Label, tokens) > 0 {
		result.Confidence += c.boost
		if result.Confidence > 1.0 {
			result.Confidence = 1.0
		}
	}

	return result
}

// keywordClassify is the degraded tier: pick the label whose trigger terms
// best cover the message. Confidence is the fraction of message tokens that
// are trigger terms, capped below 1.0; only an exact greeting phrase yields a
// certain result.
func (c *Classifier) keywordClassify(message string, tokens []string) Result {
	if _, ok := greetingPhrases[text.Normalize(message)]; ok {
		return Result{
			Label:      LabelGreeting,
			Confidence: 1.0,
			Reasoning:  "keyword classification (degraded): exact greeting phrase",
			Degraded:   true,
		}
	}

	best := LabelGeneralQuestion
	bestMatched := 0
	for _, label := range All {
		matched := matchTriggers(label, tokens)
		if matched > bestMatched {
			bestMatched = matched
			best = label
		}
	}

	if bestMatched == 0 || len(tokens) == 0 {
		return Result{
			Label:      LabelGeneralQuestion,
			Confidence: 0.2,
			Reasoning:  "keyword classification (degraded): no trigger terms matched",
			Degraded:   true,
		}
	}

	confidence := float64(bestMatched) / float64(len(tokens))
	if confidence > 0.9 {
		confidence = 0.9
	}

	return Result{
		Label:      best,
		Confidence: confidence,
		Reasoning:  fmt.Sprintf("keyword classification (degraded): %d trigger term(s) matched", bestMatched),
		Degraded:   true,
	}
}

func matchTriggers(label Label, tokens []string) int {
	terms := triggers[label]
	if len(terms) == 0 || len(tokens) == 0 {
		return 0
	}

	set := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		set[t] = struct{}{}
	}

	matched := 0
	for _, tok := range tokens {
		if _, ok := set[tok]; ok {
			matched++
		}
	}
	return matched
}
