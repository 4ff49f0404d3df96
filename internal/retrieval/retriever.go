package retrieval

import (
	"context"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/index"
	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/storage/models"
	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/text"
	"github.com/souroshsepehri/zimmer-chatbot-sub000/pkg/logger"
)

// Candidate is a scope-visible FAQ with its retrieval signals. Combined is
// the weighted fusion of the lexical and semantic scores.
type Candidate struct {
	FAQ      *models.FAQRecord
	Lexical  float64
	Semantic float64
	Combined float64
}

type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// SemanticIndex is an external vector index (Milvus). Scores are keyed by FAQ
// id and already normalized to [0,1]. The retriever falls back to in-snapshot
// cosine when the index errors, and to lexical-only when no embedding for the
// message can be produced at all.
type SemanticIndex interface {
	Search(ctx context.Context, embedding []float32, scope *string, limit int) (map[int64]float64, error)
}

type Config struct {
	LexicalWeight  float64
	SemanticWeight float64
	MinLexical     float64
	MinSemantic    float64
	TopK           int
}

type Retriever struct {
	cfg      Config
	embedder Embedder
	external SemanticIndex
}

func NewRetriever(cfg Config, embedder Embedder, external SemanticIndex) *Retriever {
	if cfg.TopK <= 0 {
		cfg.TopK = 4
	}
	return &Retriever{
		cfg:      cfg,
		embedder: embedder,
		external: external,
	}
}

// Retrieve scores the scope-visible FAQ set against the message. The second
// return value is true when the semantic signal was unavailable and scoring
// degraded to lexical-only. Retrieve never returns an error.
func (r *Retriever) Retrieve(ctx context.Context, message string, snap *index.Snapshot, scope *string) ([]Candidate, bool) {
	records := snap.ForScope(scope)
	if len(records) == 0 {
		return nil, false
	}

	tokens := text.Tokenize(message)

	semantic, degraded := r.semanticScores(ctx, message, records, scope)

	candidates := make([]Candidate, 0, len(records))
	for _, rec := range records {
		lex := lexicalScore(tokens, rec)
		sem := semantic[rec.ID]

		// Neither signal indicates relevance: drop the record entirely.
		if lex < r.cfg.MinLexical && sem < r.cfg.MinSemantic {
			continue
		}

		candidates = append(candidates, Candidate{
			FAQ:      rec,
			Lexical:  lex,
			Semantic: sem,
			Combined: r.cfg.LexicalWeight*lex + r.cfg.SemanticWeight*sem,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Combined != candidates[j].Combined {
			return candidates[i].Combined > candidates[j].Combined
		}
		if candidates[i].FAQ.Priority != candidates[j].FAQ.Priority {
			return candidates[i].FAQ.Priority > candidates[j].FAQ.Priority
		}
		return candidates[i].FAQ.ID < candidates[j].FAQ.ID
	})

	if len(candidates) > r.cfg.TopK {
		candidates = candidates[:r.cfg.TopK]
	}

	logger.Debug("Candidates retrieved",
		zap.Int("scoped_records", len(records)),
		zap.Int("candidates", len(candidates)),
		zap.Bool("semantic_degraded", degraded),
	)

	return candidates, degraded
}

// semanticScores runs the semantic chain: message embedding, then the
// external index, then in-snapshot cosine. Any broken link degrades to the
// next; a nil map with degraded=true means lexical-only.
func (r *Retriever) semanticScores(ctx context.Context, message string, records []*models.FAQRecord, scope *string) (map[int64]float64, bool) {
	if r.embedder == nil {
		return nil, true
	}

	embedding, err := r.embedder.GenerateEmbedding(ctx, message)
	if err != nil {
		logger.Warn("Message embedding unavailable, lexical-only retrieval", zap.Error(err))
		return nil, true
	}

	if r.external != nil {
		scores, err := r.external.Search(ctx, embedding, scope, len(records))
		if err == nil {
			return scores, false
		}
		logger.Warn("External semantic index unavailable, using snapshot cosine", zap.Error(err))
	}

	scores := make(map[int64]float64, len(records))
	for _, rec := range records {
		if len(rec.Embedding) == 0 {
			continue
		}
		scores[rec.ID] = clamp01(cosine(embedding, rec.Embedding))
	}
	return scores, false
}

// lexicalScore is token overlap: the fraction of distinct message tokens
// present in the FAQ's keyword set or question tokens.
func lexicalScore(msgTokens []string, rec *models.FAQRecord) float64 {
	if len(msgTokens) == 0 {
		return 0
	}

	faqTokens := make(map[string]struct{})
	for _, kw := range rec.Keywords {
		faqTokens[text.Normalize(kw)] = struct{}{}
	}
	for _, tok := range text.Tokenize(rec.Question) {
		faqTokens[tok] = struct{}{}
	}

	matched := 0
	for _, tok := range msgTokens {
		if _, ok := faqTokens[tok]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(msgTokens))
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
