package policy

import (
	"go.uber.org/zap"

	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/ranking"
	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/storage/models"
	"github.com/souroshsepehri/zimmer-chatbot-sub000/pkg/logger"
)

// Source is the closed set of answer origins. Every consumer switches over
// these four values; there is no fifth state.
type Source string

const (
	SourceFAQ       Source = "faq"
	SourceFallback  Source = "fallback"
	SourceEscalated Source = "escalated"
	SourceError     Source = "error"
)

func (s Source) Valid() bool {
	switch s {
	case SourceFAQ, SourceFallback, SourceEscalated, SourceError:
		return true
	}
	return false
}

// Decision is the policy verdict handed to the escalation gate and then to
// the response assembly. A fallback decision always carries a nil
// MatchedFAQID and Success=false.
type Decision struct {
	Answer       string
	Source       Source
	Success      bool
	Confidence   float64
	MatchedFAQID *int64
	IntentMatch  bool
	Reason       string
}

// Engine applies the binary accept/refuse gate: a top answer at or above the
// acceptance threshold is served, anything else gets the canonical refusal.
type Engine struct {
	threshold      float64
	defaultRefusal string
}

func NewEngine(acceptThreshold float64, defaultRefusal string) *Engine {
	return &Engine{
		threshold:      acceptThreshold,
		defaultRefusal: defaultRefusal,
	}
}

// Decide accepts iff top exists and top.FinalScore >= threshold (boundary
// inclusive). The refusal message is the site's configured one when present,
// the global default otherwise.
func (e *Engine) Decide(top *ranking.RankedAnswer, site *models.Site) Decision {
	if top == nil || top.FinalScore < e.threshold {
		reason := "no candidates"
		if top != nil {
			reason = "best score below acceptance threshold"
			logger.Debug("Refusing below threshold",
				zap.Float64("final_score", top.FinalScore),
				zap.Float64("threshold", e.threshold),
			)
		}
		return Decision{
			Answer:  e.refusalMessage(site),
			Source:  SourceFallback,
			Success: false,
			Reason:  reason,
		}
	}

	id := top.FAQ.ID
	return Decision{
		Answer:       top.FAQ.Answer,
		Source:       SourceFAQ,
		Success:      true,
		Confidence:   top.FinalScore,
		MatchedFAQID: &id,
		IntentMatch:  top.IntentMatch,
		Reason:       "accepted",
	}
}

func (e *Engine) refusalMessage(site *models.Site) string {
	if site != nil && site.FallbackMessage != "" {
		return site.FallbackMessage
	}
	return e.defaultRefusal
}
