package chat

import (
	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/policy"
)

// Request is the transport-level chat request. SiteHost is optional; an
// unmatched or missing host answers from global scope.
type Request struct {
	Channel  string `json:"channel"`
	UserID   string `json:"user_id"`
	Message  string `json:"message"`
	SiteHost string `json:"site_host,omitempty"`
	Debug    bool   `json:"debug,omitempty"`
}

// Response is always well-formed: even internal degradations or a refusal
// produce a complete response, never an error leaking across this boundary.
type Response struct {
	Answer       string        `json:"answer"`
	Source       policy.Source `json:"source"`
	Success      bool          `json:"success"`
	Confidence   float64       `json:"confidence"`
	MatchedFAQID *int64        `json:"matched_faq_id"`
	Intent       string        `json:"intent"`
	DebugInfo    *DebugInfo    `json:"debug_info,omitempty"`
}

// DebugInfo reconstructs why an answer was chosen. Populated only when the
// request sets debug=true.
type DebugInfo struct {
	RequestID         string           `json:"request_id"`
	ResolvedSite      *string          `json:"resolved_site"`
	Intent            IntentTrace      `json:"intent_result"`
	RetrievalDegraded bool             `json:"retrieval_degraded"`
	Candidates        []CandidateTrace `json:"candidates"`
	Ranked            []RankedTrace    `json:"ranked"`
	Fallback          FallbackTrace    `json:"fallback_decision"`
	Escalation        *EscalationTrace `json:"escalation_outcome"`
}

type IntentTrace struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
	Degraded   bool    `json:"degraded"`
}

type CandidateTrace struct {
	FAQID    int64   `json:"faq_id"`
	Question string  `json:"question"`
	Lexical  float64 `json:"lexical_score"`
	Semantic float64 `json:"semantic_score"`
	Combined float64 `json:"combined_score"`
}

type RankedTrace struct {
	FAQID       int64   `json:"faq_id"`
	FinalScore  float64 `json:"final_score"`
	IntentBonus float64 `json:"intent_bonus"`
	IntentMatch bool    `json:"intent_match"`
}

type FallbackTrace struct {
	Source  string  `json:"source"`
	Success bool    `json:"success"`
	Reason  string  `json:"reason"`
	Score   float64 `json:"score"`
}

type EscalationTrace struct {
	Attempted bool   `json:"attempted"`
	Escalated bool   `json:"escalated"`
	Error     string `json:"escalation_error,omitempty"`
}
