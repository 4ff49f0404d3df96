package index

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/storage/models"
	"github.com/souroshsepehri/zimmer-chatbot-sub000/pkg/logger"
)

// Snapshot is an immutable view of the active FAQ set. Requests obtain one
// snapshot and read it for their whole lifetime; a concurrent rebuild never
// mutates a published snapshot.
type Snapshot struct {
	records []models.FAQRecord
	byID    map[int64]*models.FAQRecord
	builtAt time.Time
}

func NewSnapshot(records []models.FAQRecord) *Snapshot {
	s := &Snapshot{
		records: records,
		byID:    make(map[int64]*models.FAQRecord, len(records)),
		builtAt: time.Now(),
	}
	for i := range s.records {
		s.byID[s.records[i].ID] = &s.records[i]
	}
	return s
}

// ForScope returns the records retrievable for the given scope: every
// null-scoped record, plus records whose scope matches. A global request
// (scope == nil) sees only the shared records, never tenant-owned ones.
func (s *Snapshot) ForScope(scope *string) []*models.FAQRecord {
	out := make([]*models.FAQRecord, 0, len(s.records))
	for i := range s.records {
		r := &s.records[i]
		if r.SiteScopeID == nil {
			out = append(out, r)
			continue
		}
		if scope != nil && *r.SiteScopeID == *scope {
			out = append(out, r)
		}
	}
	return out
}

func (s *Snapshot) Get(id int64) *models.FAQRecord {
	return s.byID[id]
}

// Records exposes the full record set for mirroring into the external
// semantic index. Callers must not mutate it.
func (s *Snapshot) Records() []models.FAQRecord {
	return s.records
}

func (s *Snapshot) Len() int {
	return len(s.records)
}

func (s *Snapshot) BuiltAt() time.Time {
	return s.builtAt
}

type FAQSource interface {
	ListActiveFAQs(ctx context.Context) ([]models.FAQRecord, error)
}

type Embedder interface {
	GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

type EmbeddingWriter interface {
	UpdateFAQEmbedding(ctx context.Context, faqID int64, embedding []float32) error
}

// Index holds the current snapshot behind an atomic pointer. Rebuild swaps in
// a fresh snapshot; in-flight readers keep the one they loaded.
type Index struct {
	current  atomic.Pointer[Snapshot]
	source   FAQSource
	embedder Embedder
	writer   EmbeddingWriter
}

// New builds an Index over the given FAQ source. embedder and writer are
// optional; when present, Rebuild backfills embeddings for records that lack
// one and persists them.
func New(source FAQSource, embedder Embedder, writer EmbeddingWriter) *Index {
	ix := &Index{
		source:   source,
		embedder: embedder,
		writer:   writer,
	}
	ix.current.Store(NewSnapshot(nil))
	return ix
}

func (ix *Index) Load() *Snapshot {
	return ix.current.Load()
}

func (ix *Index) Rebuild(ctx context.Context) error {
	records, err := ix.source.ListActiveFAQs(ctx)
	if err != nil {
		return fmt.Errorf("failed to load faqs: %w", err)
	}

	ix.backfillEmbeddings(ctx, records)

	snap := NewSnapshot(records)
	ix.current.Store(snap)

	logger.Info("FAQ index rebuilt",
		zap.Int("records", snap.Len()),
		zap.Time("built_at", snap.BuiltAt()),
	)

	return nil
}

// backfillEmbeddings computes embeddings for records that have none. Failures
// leave those records lexical-only; the rebuild itself still succeeds.
func (ix *Index) backfillEmbeddings(ctx context.Context, records []models.FAQRecord) {
	if ix.embedder == nil {
		return
	}

	var missing []int
	var texts []string
	for i := range records {
		if len(records[i].Embedding) == 0 {
			missing = append(missing, i)
			texts = append(texts, records[i].Question)
		}
	}
	if len(missing) == 0 {
		return
	}

	embeddings, err := ix.embedder.GenerateBatchEmbeddings(ctx, texts)
	if err != nil {
		logger.Warn("Embedding backfill failed, affected FAQs stay lexical-only",
			zap.Int("missing", len(missing)),
			zap.Error(err),
		)
		return
	}
	if len(embeddings) != len(missing) {
		logger.Warn("Embedding backfill returned unexpected count",
			zap.Int("want", len(missing)),
			zap.Int("got", len(embeddings)),
		)
		return
	}

	for n, i := range missing {
		records[i].Embedding = embeddings[n]
		if ix.writer != nil {
			if err := ix.writer.UpdateFAQEmbedding(ctx, records[i].ID, embeddings[n]); err != nil {
				logger.Warn("Failed to persist embedding",
					zap.Int64("faq_id", records[i].ID),
					zap.Error(err),
				)
			}
		}
	}

	logger.Info("Embeddings backfilled", zap.Int("count", len(missing)))
}
