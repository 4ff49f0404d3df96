package llm

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/metrics"
	"github.com/souroshsepehri/zimmer-chatbot-sub000/pkg/logger"
	"github.com/souroshsepehri/zimmer-chatbot-sub000/pkg/utils"
)

type EmbeddingCache interface {
	GetEmbedding(ctx context.Context, textHash string) ([]float32, bool, error)
	SetEmbedding(ctx context.Context, textHash string, embedding []float32, ttl time.Duration) error
}

// CachedEmbedder puts a redis cache in front of the embedding call so
// repeated messages do not pay the API round trip twice.
type CachedEmbedder struct {
	client *Client
	cache  EmbeddingCache
	ttl    time.Duration
}

func NewCachedEmbedder(client *Client, cache EmbeddingCache, ttl time.Duration) *CachedEmbedder {
	return &CachedEmbedder{
		client: client,
		cache:  cache,
		ttl:    ttl,
	}
}

func (e *CachedEmbedder) GenerateEmbedding(ctx context.Context, input string) ([]float32, error) {
	key := utils.HashString(input)

	if e.cache != nil {
		embedding, hit, err := e.cache.GetEmbedding(ctx, key)
		if err != nil {
			logger.Warn("Embedding cache read failed", zap.Error(err))
		} else if hit {
			metrics.CacheHits.WithLabelValues("embedding").Inc()
			return embedding, nil
		}
		metrics.CacheMisses.WithLabelValues("embedding").Inc()
	}

	embedding, err := e.client.GenerateEmbedding(ctx, input)
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		if err := e.cache.SetEmbedding(ctx, key, embedding, e.ttl); err != nil {
			logger.Warn("Embedding cache write failed", zap.Error(err))
		}
	}

	return embedding, nil
}
