package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/escalation"
	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/index"
	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/intent"
	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/metrics"
	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/policy"
	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/ranking"
	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/retrieval"
	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/storage/models"
	"github.com/souroshsepehri/zimmer-chatbot-sub000/pkg/logger"
	"github.com/souroshsepehri/zimmer-chatbot-sub000/pkg/utils"
)

type SiteResolver interface {
	Resolve(ctx context.Context, host string) *models.Site
}

type Classifier interface {
	Classify(ctx context.Context, message string) intent.Result
}

type Retriever interface {
	Retrieve(ctx context.Context, message string, snap *index.Snapshot, scope *string) ([]retrieval.Candidate, bool)
}

type Ranker interface {
	Rank(candidates []retrieval.Candidate, res intent.Result) []ranking.RankedAnswer
}

type PolicyEngine interface {
	Decide(top *ranking.RankedAnswer, site *models.Site) policy.Decision
}

type Gate interface {
	Apply(ctx context.Context, message, faqContext string, baseline policy.Decision) (policy.Decision, escalation.Outcome)
}

type LogStore interface {
	InsertChatLog(record *models.ChatLog) error
}

type ResponseCache interface {
	GetResponse(ctx context.Context, key string, out interface{}) (bool, error)
	SetResponse(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Orchestrator runs the answering pipeline: scope resolution, intent
// classification, retrieval, ranking, the fallback policy, and the escalation
// gate. Each request reads one snapshot for its whole lifetime; the only
// shared mutable state is the index pointer.
type Orchestrator struct {
	resolver   SiteResolver
	classifier Classifier
	retriever  Retriever
	ranker     Ranker
	policy     PolicyEngine
	gate       Gate
	index      *index.Index
	logs       LogStore
	cache      ResponseCache
	cacheTTL   time.Duration
}

func NewOrchestrator(
	resolver SiteResolver,
	classifier Classifier,
	retriever Retriever,
	ranker Ranker,
	policyEngine PolicyEngine,
	gate Gate,
	ix *index.Index,
	logs LogStore,
	cache ResponseCache,
	cacheTTL time.Duration,
) *Orchestrator {
	return &Orchestrator{
		resolver:   resolver,
		classifier: classifier,
		retriever:  retriever,
		ranker:     ranker,
		policy:     policyEngine,
		gate:       gate,
		index:      ix,
		logs:       logs,
		cache:      cache,
		cacheTTL:   cacheTTL,
	}
}

// Handle answers one chat request. It always returns a well-formed Response;
// internal failures degrade, they do not propagate.
func (o *Orchestrator) Handle(ctx context.Context, req Request) Response {
	startTime := time.Now()
	requestID := uuid.New().String()

	message := strings.TrimSpace(req.Message)
	if message == "" {
		logger.Warn("Rejected malformed chat request", zap.String("request_id", requestID))
		metrics.ChatTotal.WithLabelValues(string(policy.SourceError)).Inc()
		return Response{
			Answer:  "message is required",
			Source:  policy.SourceError,
			Success: false,
			Intent:  string(intent.LabelGeneralQuestion),
		}
	}

	logger.Info("Processing chat request",
		zap.String("request_id", requestID),
		zap.String("channel", req.Channel),
		zap.String("site_host", req.SiteHost),
	)

	site := o.resolver.Resolve(ctx, req.SiteHost)

	var scope *string
	var resolvedSite *string
	if site != nil {
		scope = &site.ID
		resolvedSite = &site.ID
	}

	cacheKey := o.cacheKey(scope, message)
	if o.cache != nil && !req.Debug {
		var cached Response
		hit, err := o.cache.GetResponse(ctx, cacheKey, &cached)
		if err != nil {
			logger.Warn("Response cache read failed", zap.Error(err))
		} else if hit {
			metrics.CacheHits.WithLabelValues("response").Inc()
			return cached
		}
		metrics.CacheMisses.WithLabelValues("response").Inc()
	}

	intentResult := o.classifier.Classify(ctx, message)
	metrics.IntentClassified.WithLabelValues(string(intentResult.Label), fmt.Sprintf("%t", intentResult.Degraded)).Inc()

	snap := o.index.Load()
	candidates, retrievalDegraded := o.retriever.Retrieve(ctx, message, snap, scope)
	metrics.RetrievalCandidates.Observe(float64(len(candidates)))

	ranked := o.ranker.Rank(candidates, intentResult)

	var top *ranking.RankedAnswer
	if len(ranked) > 0 {
		top = &ranked[0]
		metrics.FinalScore.Observe(top.FinalScore)
	}

	baseline := o.policy.Decide(top, site)

	decision := baseline
	outcome := escalation.Outcome{}
	if o.gate != nil {
		decision, outcome = o.gate.Apply(ctx, message, faqContext(ranked), baseline)
	}
	if outcome.Attempted {
		result := "kept_baseline"
		if outcome.Escalated {
			result = "escalated"
		}
		metrics.EscalationTotal.WithLabelValues(result).Inc()
	}

	latency := int(time.Since(startTime).Milliseconds())
	metrics.ChatDuration.WithLabelValues(req.Channel).Observe(time.Since(startTime).Seconds())
	metrics.ChatTotal.WithLabelValues(string(decision.Source)).Inc()

	resp := Response{
		Answer:       decision.Answer,
		Source:       decision.Source,
		Success:      decision.Success,
		Confidence:   decision.Confidence,
		MatchedFAQID: decision.MatchedFAQID,
		Intent:       string(intentResult.Label),
	}

	if req.Debug {
		resp.DebugInfo = buildDebugInfo(requestID, resolvedSite, intentResult, retrievalDegraded, candidates, ranked, baseline, outcome)
	}

	o.record(requestID, req, scope, resp, latency)

	if o.cache != nil && !req.Debug {
		if err := o.cache.SetResponse(ctx, cacheKey, resp, o.cacheTTL); err != nil {
			logger.Warn("Response cache write failed", zap.Error(err))
		}
	}

	logger.Info("Chat request answered",
		zap.String("request_id", requestID),
		zap.String("source", string(resp.Source)),
		zap.Float64("confidence", resp.Confidence),
		zap.Int("latency_ms", latency),
	)

	return resp
}

func (o *Orchestrator) cacheKey(scope *string, message string) string {
	scopeKey := "global"
	if scope != nil {
		scopeKey = *scope
	}
	return utils.HashString(scopeKey + "|" + message)
}

func (o *Orchestrator) record(requestID string, req Request, scope *string, resp Response, latencyMS int) {
	if o.logs == nil {
		return
	}

	record := &models.ChatLog{
		ID:           requestID,
		Channel:      req.Channel,
		UserID:       req.UserID,
		Message:      req.Message,
		Answer:       resp.Answer,
		Source:       string(resp.Source),
		Success:      resp.Success,
		Confidence:   resp.Confidence,
		MatchedFAQID: resp.MatchedFAQID,
		Intent:       resp.Intent,
		SiteScopeID:  scope,
		LatencyMS:    latencyMS,
		CreatedAt:    time.Now(),
	}

	if err := o.logs.InsertChatLog(record); err != nil {
		logger.Warn("Failed to record chat", zap.String("request_id", requestID), zap.Error(err))
	}
}

// faqContext renders the ranked candidates for the escalation reasoner.
func faqContext(ranked []ranking.RankedAnswer) string {
	if len(ranked) == 0 {
		return "(no FAQ context)"
	}

	var b strings.Builder
	for i, r := range ranked {
		if i >= 3 {
			break
		}
		fmt.Fprintf(&b, "Q: %s\nA: %s\n\n", r.FAQ.Question, r.FAQ.Answer)
	}
	return strings.TrimSpace(b.String())
}

func buildDebugInfo(
	requestID string,
	resolvedSite *string,
	intentResult intent.Result,
	retrievalDegraded bool,
	candidates []retrieval.Candidate,
	ranked []ranking.RankedAnswer,
	baseline policy.Decision,
	outcome escalation.Outcome,
) *DebugInfo {
	info := &DebugInfo{
		RequestID:    requestID,
		ResolvedSite: resolvedSite,
		Intent: IntentTrace{
			Label:      string(intentResult.Label),
			Confidence: intentResult.Confidence,
			Reasoning:  intentResult.Reasoning,
			Degraded:   intentResult.Degraded,
		},
		RetrievalDegraded: retrievalDegraded,
		Candidates:        make([]CandidateTrace, 0, len(candidates)),
		Ranked:            make([]RankedTrace, 0, len(ranked)),
		Fallback: FallbackTrace{
			Source:  string(baseline.Source),
			Success: baseline.Success,
			Reason:  baseline.Reason,
			Score:   baseline.Confidence,
		},
	}

	for _, c := range candidates {
		info.Candidates = append(info.Candidates, CandidateTrace{
			FAQID:    c.FAQ.ID,
			Question: c.FAQ.Question,
			Lexical:  c.Lexical,
			Semantic: c.Semantic,
			Combined: c.Combined,
		})
	}
	for _, r := range ranked {
		info.Ranked = append(info.Ranked, RankedTrace{
			FAQID:       r.FAQ.ID,
			FinalScore:  r.FinalScore,
			IntentBonus: r.IntentBonus,
			IntentMatch: r.IntentMatch,
		})
	}

	if outcome.Attempted {
		info.Escalation = &EscalationTrace{
			Attempted: outcome.Attempted,
			Escalated: outcome.Escalated,
			Error:     outcome.Err,
		}
	}

	return info
}
