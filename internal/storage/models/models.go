package models

import "time"

// FAQRecord is a stored question/answer pair. SiteScopeID nil means the entry
// is shared across all tenants. Entries with Active=false are invisible to
// retrieval. Records are written by the ingestion side; the answering pipeline
// only reads them.
type FAQRecord struct {
	ID          int64
	Question    string
	Answer      string
	Category    string
	SiteScopeID *string
	Active      bool
	Keywords    []string
	Embedding   []float32
	Priority    int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Site is a tenant registry entry, looked up by normalized domain.
type Site struct {
	ID              string
	Domain          string
	Name            string
	FallbackMessage string
	Active          bool
	CreatedAt       time.Time
}

type ChatLog struct {
	ID           string
	Channel      string
	UserID       string
	Message      string
	Answer       string
	Source       string
	Success      bool
	Confidence   float64
	MatchedFAQID *int64
	Intent       string
	SiteScopeID  *string
	LatencyMS    int
	CreatedAt    time.Time
}
