package escalation

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/policy"
	"github.com/souroshsepehri/zimmer-chatbot-sub000/pkg/logger"
)

// Reasoner is the external expensive reasoning collaborator.
type Reasoner interface {
	Reason(ctx context.Context, message, baselineAnswer, faqContext string) (string, error)
}

// Outcome records what the gate did, for the debug trace.
type Outcome struct {
	Attempted bool
	Escalated bool
	Err       string
}

// Gate decides whether a policy decision is handed to the external reasoner.
// Eligibility is an explicit allow-list over Source; fallback and error are
// stripped at construction, so "never escalate a refusal" holds no matter
// what the caller passes in.
type Gate struct {
	enabled       bool
	allowed       map[policy.Source]bool
	maxConfidence float64
	timeout       time.Duration
	reasoner      Reasoner
}

func NewGate(enabled bool, allowedSources []policy.Source, maxConfidence float64, timeoutSec int, reasoner Reasoner) *Gate {
	allowed := make(map[policy.Source]bool, len(allowedSources))
	for _, s := range allowedSources {
		if s == policy.SourceFallback || s == policy.SourceError {
			logger.Warn("Refusals are never escalation-eligible, dropping from allow-list",
				zap.String("source", string(s)),
			)
			continue
		}
		allowed[s] = true
	}

	return &Gate{
		enabled:       enabled,
		allowed:       allowed,
		maxConfidence: maxConfidence,
		timeout:       time.Duration(timeoutSec) * time.Second,
		reasoner:      reasoner,
	}
}

// Apply returns the (possibly overlaid) decision. A reasoner failure returns
// the baseline unchanged with the error flagged in the outcome; escalation
// never makes a request worse than its pre-escalation result.
func (g *Gate) Apply(ctx context.Context, message, faqContext string, baseline policy.Decision) (policy.Decision, Outcome) {
	if !g.enabled || g.reasoner == nil {
		return baseline, Outcome{}
	}
	if !g.allowed[baseline.Source] {
		return baseline, Outcome{}
	}
	// Confident answers are served as-is; only weakly accepted ones are worth
	// the expensive call.
	if baseline.Confidence >= g.maxConfidence {
		return baseline, Outcome{}
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	answer, err := g.reasoner.Reason(ctx, message, baseline.Answer, faqContext)
	if err != nil {
		logger.Warn("Escalation call failed, keeping baseline answer", zap.Error(err))
		return baseline, Outcome{Attempted: true, Err: err.Error()}
	}
	if answer == "" {
		return baseline, Outcome{Attempted: true, Err: "empty escalated answer"}
	}

	escalated := baseline
	escalated.Answer = answer
	escalated.Source = policy.SourceEscalated
	escalated.Reason = "escalated"

	logger.Info("Answer escalated",
		zap.Float64("baseline_confidence", baseline.Confidence),
	)

	return escalated, Outcome{Attempted: true, Escalated: true}
}
