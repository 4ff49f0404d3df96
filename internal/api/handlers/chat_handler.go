package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/chat"
	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/storage/models"
	"github.com/souroshsepehri/zimmer-chatbot-sub000/pkg/logger"
)

type HistoryStore interface {
	ChatHistory(ctx context.Context, userID string, limit int) ([]models.ChatLog, error)
}

type ChatHandler struct {
	orchestrator *chat.Orchestrator
	history      HistoryStore
}

func NewChatHandler(orchestrator *chat.Orchestrator, history HistoryStore) *ChatHandler {
	return &ChatHandler{
		orchestrator: orchestrator,
		history:      history,
	}
}

func (h *ChatHandler) HandleChat(c *fiber.Ctx) error {
	var req chat.Request

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	// Widget deployments usually rely on the Origin header instead of an
	// explicit site_host field.
	if req.SiteHost == "" {
		req.SiteHost = c.Get("Origin")
	}
	if req.Channel == "" {
		req.Channel = "api"
	}

	response := h.orchestrator.Handle(c.Context(), req)

	return c.JSON(response)
}

func (h *ChatHandler) GetChatHistory(c *fiber.Ctx) error {
	userID := c.Query("user_id")
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "user_id is required",
		})
	}

	limit := c.QueryInt("limit", 20)
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	records, err := h.history.ChatHistory(c.Context(), userID, limit)
	if err != nil {
		logger.Error("Failed to load chat history", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load chat history",
		})
	}

	return c.JSON(fiber.Map{
		"history": records,
	})
}
