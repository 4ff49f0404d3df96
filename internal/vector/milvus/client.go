package milvus

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"

	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/storage/models"
	"github.com/souroshsepehri/zimmer-chatbot-sub000/pkg/logger"
)

// Client is the optional external semantic index over FAQ embeddings. The
// retriever treats any error from it as a degradation, never a request
// failure.
type Client struct {
	client         client.Client
	collectionName string
	vectorDim      int
}

func NewClient(endpoint, collectionName string, vectorDim int) (*Client, error) {
	c, err := client.NewGrpcClient(context.Background(), endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}

	logger.Info("Milvus client initialized",
		zap.String("endpoint", endpoint),
		zap.String("collection", collectionName),
	)

	return &Client{
		client:         c,
		collectionName: collectionName,
		vectorDim:      vectorDim,
	}, nil
}

func (m *Client) Close() error {
	return m.client.Close()
}

func (m *Client) ensureCollection(ctx context.Context) error {
	has, err := m.client.HasCollection(ctx, m.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if has {
		return nil
	}

	schema := &entity.Schema{
		CollectionName: m.collectionName,
		Description:    "FAQ question embeddings with tenant scope",
		Fields: []*entity.Field{
			{
				Name:       "faq_id",
				DataType:   entity.FieldTypeInt64,
				PrimaryKey: true,
				AutoID:     false,
			},
			{
				Name:     "site_scope",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "embedding",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", m.vectorDim),
				},
			},
		},
	}

	err = m.client.CreateCollection(ctx, schema, entity.DefaultShardNumber)
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx, err := entity.NewIndexIvfFlat(entity.IP, 128)
	if err != nil {
		return fmt.Errorf("failed to build index: %w", err)
	}
	err = m.client.CreateIndex(ctx, m.collectionName, "embedding", idx, false)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	logger.Info("Collection created", zap.String("collection", m.collectionName))
	return nil
}

// ReplaceAll mirrors a rebuilt snapshot into the collection. The collection
// is dropped and recreated so stale or deactivated FAQs cannot linger.
func (m *Client) ReplaceAll(ctx context.Context, records []models.FAQRecord) error {
	has, err := m.client.HasCollection(ctx, m.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if has {
		if err := m.client.DropCollection(ctx, m.collectionName); err != nil {
			return fmt.Errorf("failed to drop collection: %w", err)
		}
	}
	if err := m.ensureCollection(ctx); err != nil {
		return err
	}

	var ids []int64
	var scopes []string
	var embeddings [][]float32
	for _, r := range records {
		if len(r.Embedding) != m.vectorDim {
			continue
		}
		scope := ""
		if r.SiteScopeID != nil {
			scope = *r.SiteScopeID
		}
		ids = append(ids, r.ID)
		scopes = append(scopes, scope)
		embeddings = append(embeddings, r.Embedding)
	}
	if len(ids) == 0 {
		logger.Warn("No embeddable FAQ records to index in milvus")
		return nil
	}

	_, err = m.client.Insert(
		ctx,
		m.collectionName,
		"",
		entity.NewColumnInt64("faq_id", ids),
		entity.NewColumnVarChar("site_scope", scopes),
		entity.NewColumnFloatVector("embedding", m.vectorDim, embeddings),
	)
	if err != nil {
		return fmt.Errorf("failed to insert embeddings: %w", err)
	}

	if err := m.client.Flush(ctx, m.collectionName, false); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}
	if err := m.client.LoadCollection(ctx, m.collectionName, false); err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}

	logger.Info("FAQ embeddings indexed", zap.Int("count", len(ids)))
	return nil
}

// Search returns [0,1]-normalized similarity per FAQ id, restricted to the
// given scope plus global records. The scope filter runs inside Milvus so a
// tenant's rows never leave the index for another tenant's request.
func (m *Client) Search(ctx context.Context, embedding []float32, scope *string, limit int) (map[int64]float64, error) {
	expr := `site_scope == ""`
	if scope != nil {
		expr = fmt.Sprintf(`site_scope == "" || site_scope == "%s"`, *scope)
	}

	sp, err := entity.NewIndexIvfFlatSearchParam(16)
	if err != nil {
		return nil, fmt.Errorf("failed to build search params: %w", err)
	}

	if limit <= 0 {
		limit = 16
	}

	searchResult, err := m.client.Search(
		ctx,
		m.collectionName,
		[]string{},
		expr,
		[]string{"faq_id"},
		[]entity.Vector{entity.FloatVector(embedding)},
		"embedding",
		entity.IP,
		limit,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	scores := make(map[int64]float64)
	for _, sr := range searchResult {
		idCol, ok := sr.IDs.(*entity.ColumnInt64)
		if !ok {
			continue
		}
		for i := 0; i < sr.ResultCount; i++ {
			id := idCol.Data()[i]
			scores[id] = clamp01(float64(sr.Scores[i]))
		}
	}

	logger.Debug("Milvus search completed",
		zap.Int("results", len(scores)),
		zap.String("filter", expr),
	)

	return scores, nil
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
