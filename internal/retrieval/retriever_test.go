package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/index"
	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/storage/models"
)

type fakeEmbedder struct {
	embedding []float32
	err       error
}

func (f *fakeEmbedder) GenerateEmbedding(_ context.Context, _ string) ([]float32, error) {
	return f.embedding, f.err
}

type fakeSemanticIndex struct {
	scores map[int64]float64
	err    error
}

func (f *fakeSemanticIndex) Search(_ context.Context, _ []float32, _ *string, _ int) (map[int64]float64, error) {
	return f.scores, f.err
}

func defaultConfig() Config {
	return Config{
		LexicalWeight:  0.5,
		SemanticWeight: 0.5,
		MinLexical:     0.05,
		MinSemantic:    0.35,
		TopK:           4,
	}
}

func scoped(id string) *string { return &id }

func snapshotOf(records ...models.FAQRecord) *index.Snapshot {
	return index.NewSnapshot(records)
}

func TestRetrieve_LexicalOnlyDegradation(t *testing.T) {
	snap := snapshotOf(models.FAQRecord{
		ID:       1,
		Question: "چطور سفارش بدهم",
		Answer:   "از طریق وب‌سایت",
	})
	r := NewRetriever(defaultConfig(), nil, nil)

	candidates, degraded := r.Retrieve(context.Background(), "سفارش", snap, nil)

	assert.True(t, degraded)
	require.Len(t, candidates, 1)
	assert.Equal(t, int64(1), candidates[0].FAQ.ID)
	assert.InDelta(t, 1.0, candidates[0].Lexical, 1e-9)
	assert.Zero(t, candidates[0].Semantic)
	assert.InDelta(t, 0.5, candidates[0].Combined, 1e-9)
}

func TestRetrieve_NoOverlapYieldsNoCandidates(t *testing.T) {
	snap := snapshotOf(models.FAQRecord{
		ID:       1,
		Question: "چطور سفارش بدهم",
	})
	r := NewRetriever(defaultConfig(), nil, nil)

	candidates, _ := r.Retrieve(context.Background(), "abcxyz123", snap, nil)

	assert.Empty(t, candidates)
}

func TestRetrieve_ScopeFiltering(t *testing.T) {
	scopeX := "site-x"
	snap := snapshotOf(
		models.FAQRecord{ID: 1, Question: "ساعات کاری شما چیست", SiteScopeID: &scopeX},
		models.FAQRecord{ID: 2, Question: "ساعات کاری شما چیست"},
	)
	r := NewRetriever(defaultConfig(), nil, nil)

	candidates, _ := r.Retrieve(context.Background(), "ساعات کاری", snap, scoped("site-y"))

	require.Len(t, candidates, 1)
	assert.Equal(t, int64(2), candidates[0].FAQ.ID)
}

func TestRetrieve_GlobalScopeNeverSeesTenantRecords(t *testing.T) {
	scopeX := "site-x"
	snap := snapshotOf(
		models.FAQRecord{ID: 1, Question: "قیمت محصول", SiteScopeID: &scopeX},
	)
	r := NewRetriever(defaultConfig(), nil, nil)

	candidates, _ := r.Retrieve(context.Background(), "قیمت محصول", snap, nil)

	assert.Empty(t, candidates)
}

func TestRetrieve_KeywordsCountTowardLexicalScore(t *testing.T) {
	snap := snapshotOf(models.FAQRecord{
		ID:       1,
		Question: "شرایط مرجوعی",
		Keywords: []string{"گارانتی", "ضمانت"},
	})
	r := NewRetriever(defaultConfig(), nil, nil)

	candidates, _ := r.Retrieve(context.Background(), "گارانتی", snap, nil)

	require.Len(t, candidates, 1)
	assert.InDelta(t, 1.0, candidates[0].Lexical, 1e-9)
}

func TestRetrieve_TopKTruncation(t *testing.T) {
	cfg := defaultConfig()
	cfg.TopK = 2

	snap := snapshotOf(
		models.FAQRecord{ID: 1, Question: "سفارش یک"},
		models.FAQRecord{ID: 2, Question: "سفارش دو"},
		models.FAQRecord{ID: 3, Question: "سفارش سه"},
	)
	r := NewRetriever(cfg, nil, nil)

	candidates, _ := r.Retrieve(context.Background(), "سفارش", snap, nil)

	assert.Len(t, candidates, 2)
}

func TestRetrieve_DeterministicOrdering(t *testing.T) {
	snap := snapshotOf(
		models.FAQRecord{ID: 7, Question: "سفارش", Priority: 1},
		models.FAQRecord{ID: 3, Question: "سفارش", Priority: 1},
		models.FAQRecord{ID: 5, Question: "سفارش", Priority: 2},
	)
	r := NewRetriever(defaultConfig(), nil, nil)

	candidates, _ := r.Retrieve(context.Background(), "سفارش", snap, nil)

	require.Len(t, candidates, 3)
	// equal combined score: priority descending, then id ascending
	assert.Equal(t, int64(5), candidates[0].FAQ.ID)
	assert.Equal(t, int64(3), candidates[1].FAQ.ID)
	assert.Equal(t, int64(7), candidates[2].FAQ.ID)
}

func TestRetrieve_SnapshotCosineWhenNoExternalIndex(t *testing.T) {
	snap := snapshotOf(
		models.FAQRecord{ID: 1, Question: "تحویل مرسوله", Embedding: []float32{1, 0}},
		models.FAQRecord{ID: 2, Question: "تحویل مرسوله", Embedding: []float32{0, 1}},
	)
	r := NewRetriever(defaultConfig(), &fakeEmbedder{embedding: []float32{1, 0}}, nil)

	candidates, degraded := r.Retrieve(context.Background(), "مرسوله", snap, nil)

	assert.False(t, degraded)
	require.Len(t, candidates, 2)
	assert.Equal(t, int64(1), candidates[0].FAQ.ID)
	assert.InDelta(t, 1.0, candidates[0].Semantic, 1e-9)
	assert.Zero(t, candidates[1].Semantic)
}

func TestRetrieve_ExternalIndexPreferred(t *testing.T) {
	snap := snapshotOf(
		models.FAQRecord{ID: 1, Question: "تحویل مرسوله", Embedding: []float32{1, 0}},
	)
	external := &fakeSemanticIndex{scores: map[int64]float64{1: 0.42}}
	r := NewRetriever(defaultConfig(), &fakeEmbedder{embedding: []float32{0, 1}}, external)

	candidates, degraded := r.Retrieve(context.Background(), "مرسوله", snap, nil)

	assert.False(t, degraded)
	require.Len(t, candidates, 1)
	assert.InDelta(t, 0.42, candidates[0].Semantic, 1e-9)
}

func TestRetrieve_ExternalIndexErrorFallsBackToCosine(t *testing.T) {
	snap := snapshotOf(
		models.FAQRecord{ID: 1, Question: "تحویل مرسوله", Embedding: []float32{1, 0}},
	)
	external := &fakeSemanticIndex{err: errors.New("collection not loaded")}
	r := NewRetriever(defaultConfig(), &fakeEmbedder{embedding: []float32{1, 0}}, external)

	candidates, degraded := r.Retrieve(context.Background(), "مرسوله", snap, nil)

	assert.False(t, degraded)
	require.Len(t, candidates, 1)
	assert.InDelta(t, 1.0, candidates[0].Semantic, 1e-9)
}

func TestRetrieve_EmbedderErrorDegradesToLexical(t *testing.T) {
	snap := snapshotOf(
		models.FAQRecord{ID: 1, Question: "تحویل مرسوله", Embedding: []float32{1, 0}},
	)
	r := NewRetriever(defaultConfig(), &fakeEmbedder{err: errors.New("rate limited")}, nil)

	candidates, degraded := r.Retrieve(context.Background(), "مرسوله", snap, nil)

	assert.True(t, degraded)
	require.Len(t, candidates, 1)
	assert.Zero(t, candidates[0].Semantic)
}

func TestRetrieve_SemanticAloneCanSurviveCutoff(t *testing.T) {
	snap := snapshotOf(
		models.FAQRecord{ID: 1, Question: "شرایط بازگشت کالا", Embedding: []float32{1, 0}},
	)
	r := NewRetriever(defaultConfig(), &fakeEmbedder{embedding: []float32{1, 0}}, nil)

	// no lexical overlap at all, cosine similarity 1.0
	candidates, _ := r.Retrieve(context.Background(), "مرجوعی", snap, nil)

	require.Len(t, candidates, 1)
	assert.Zero(t, candidates[0].Lexical)
	assert.InDelta(t, 0.5, candidates[0].Combined, 1e-9)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, cosine([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Zero(t, cosine([]float32{1, 0}, []float32{1}))
	assert.Zero(t, cosine(nil, nil))
}
