package index

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/storage/models"
)

type fakeSource struct {
	records []models.FAQRecord
	err     error
}

func (f *fakeSource) ListActiveFAQs(_ context.Context) ([]models.FAQRecord, error) {
	return f.records, f.err
}

type fakeBatchEmbedder struct {
	embeddings [][]float32
	err        error
}

func (f *fakeBatchEmbedder) GenerateBatchEmbeddings(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.embeddings != nil {
		return f.embeddings, nil
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i), 1}
	}
	return out, nil
}

type fakeWriter struct {
	persisted map[int64][]float32
}

func (f *fakeWriter) UpdateFAQEmbedding(_ context.Context, faqID int64, embedding []float32) error {
	if f.persisted == nil {
		f.persisted = make(map[int64][]float32)
	}
	f.persisted[faqID] = embedding
	return nil
}

func scopedID(s string) *string { return &s }

func TestForScope(t *testing.T) {
	snap := NewSnapshot([]models.FAQRecord{
		{ID: 1},
		{ID: 2, SiteScopeID: scopedID("site-x")},
		{ID: 3, SiteScopeID: scopedID("site-y")},
	})

	t.Run("global scope sees only shared records", func(t *testing.T) {
		records := snap.ForScope(nil)
		require.Len(t, records, 1)
		assert.Equal(t, int64(1), records[0].ID)
	})

	t.Run("tenant scope sees shared plus its own", func(t *testing.T) {
		records := snap.ForScope(scopedID("site-x"))
		ids := make([]int64, 0, len(records))
		for _, r := range records {
			ids = append(ids, r.ID)
		}
		assert.ElementsMatch(t, []int64{1, 2}, ids)
	})

	t.Run("foreign tenant records are invisible", func(t *testing.T) {
		for _, r := range snap.ForScope(scopedID("site-x")) {
			assert.NotEqual(t, int64(3), r.ID)
		}
	})
}

func TestSnapshotGet(t *testing.T) {
	snap := NewSnapshot([]models.FAQRecord{{ID: 5, Question: "سوال"}})

	require.NotNil(t, snap.Get(5))
	assert.Equal(t, "سوال", snap.Get(5).Question)
	assert.Nil(t, snap.Get(99))
}

func TestRebuild_SwapsSnapshotAtomically(t *testing.T) {
	source := &fakeSource{records: []models.FAQRecord{{ID: 1, Embedding: []float32{1}}}}
	ix := New(source, nil, nil)

	before := ix.Load()
	assert.Zero(t, before.Len())

	require.NoError(t, ix.Rebuild(context.Background()))

	after := ix.Load()
	assert.Equal(t, 1, after.Len())
	// the snapshot held before the rebuild is untouched
	assert.Zero(t, before.Len())
}

func TestRebuild_SourceErrorPropagates(t *testing.T) {
	ix := New(&fakeSource{err: errors.New("db closed")}, nil, nil)

	err := ix.Rebuild(context.Background())

	require.Error(t, err)
	assert.Zero(t, ix.Load().Len())
}

func TestRebuild_BackfillsMissingEmbeddings(t *testing.T) {
	source := &fakeSource{records: []models.FAQRecord{
		{ID: 1, Question: "اول", Embedding: []float32{9, 9}},
		{ID: 2, Question: "دوم"},
		{ID: 3, Question: "سوم"},
	}}
	writer := &fakeWriter{}
	ix := New(source, &fakeBatchEmbedder{}, writer)

	require.NoError(t, ix.Rebuild(context.Background()))

	snap := ix.Load()
	assert.Equal(t, []float32{9, 9}, snap.Get(1).Embedding)
	assert.NotEmpty(t, snap.Get(2).Embedding)
	assert.NotEmpty(t, snap.Get(3).Embedding)

	// only the backfilled records were persisted
	assert.Len(t, writer.persisted, 2)
	assert.Contains(t, writer.persisted, int64(2))
	assert.Contains(t, writer.persisted, int64(3))
}

func TestRebuild_EmbedderFailureLeavesLexicalOnly(t *testing.T) {
	source := &fakeSource{records: []models.FAQRecord{{ID: 1, Question: "سوال"}}}
	ix := New(source, &fakeBatchEmbedder{err: errors.New("rate limited")}, &fakeWriter{})

	require.NoError(t, ix.Rebuild(context.Background()))

	assert.Empty(t, ix.Load().Get(1).Embedding)
}

func TestRebuild_EmbeddingCountMismatchIgnored(t *testing.T) {
	source := &fakeSource{records: []models.FAQRecord{
		{ID: 1, Question: "اول"},
		{ID: 2, Question: "دوم"},
	}}
	ix := New(source, &fakeBatchEmbedder{embeddings: [][]float32{{1}}}, nil)

	require.NoError(t, ix.Rebuild(context.Background()))

	assert.Empty(t, ix.Load().Get(1).Embedding)
	assert.Empty(t, ix.Load().Get(2).Embedding)
}
