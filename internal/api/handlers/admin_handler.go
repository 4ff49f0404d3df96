package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/index"
	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/metrics"
	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/storage/models"
	"github.com/souroshsepehri/zimmer-chatbot-sub000/pkg/logger"
)

// VectorMirror receives the rebuilt snapshot's records, when an external
// semantic index is configured.
type VectorMirror interface {
	ReplaceAll(ctx context.Context, records []models.FAQRecord) error
}

type CacheInvalidator interface {
	InvalidateResponses(ctx context.Context) error
}

// AdminHandler exposes the reindex trigger: rebuild the in-memory snapshot
// (atomic swap), mirror it into the vector index, drop cached responses.
type AdminHandler struct {
	index  *index.Index
	mirror VectorMirror
	cache  CacheInvalidator
}

func NewAdminHandler(ix *index.Index, mirror VectorMirror, cache CacheInvalidator) *AdminHandler {
	return &AdminHandler{
		index:  ix,
		mirror: mirror,
		cache:  cache,
	}
}

func (h *AdminHandler) Reindex(c *fiber.Ctx) error {
	ctx := c.Context()

	if err := h.index.Rebuild(ctx); err != nil {
		logger.Error("Reindex failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Reindex failed",
		})
	}

	snap := h.index.Load()
	metrics.SnapshotRebuilds.Inc()
	metrics.SnapshotSize.Set(float64(snap.Len()))

	if h.mirror != nil {
		if err := h.mirror.ReplaceAll(ctx, snap.Records()); err != nil {
			// The snapshot already serves; a stale mirror only degrades the
			// semantic signal, which the retriever tolerates.
			logger.Warn("Vector index mirror failed", zap.Error(err))
		}
	}

	if h.cache != nil {
		if err := h.cache.InvalidateResponses(ctx); err != nil {
			logger.Warn("Response cache invalidation failed", zap.Error(err))
		}
	}

	return c.JSON(fiber.Map{
		"status":  "reindexed",
		"records": snap.Len(),
	})
}
