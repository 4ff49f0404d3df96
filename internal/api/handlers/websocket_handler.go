package handlers

import (
	"context"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/chat"
	"github.com/souroshsepehri/zimmer-chatbot-sub000/pkg/logger"
)

// WebSocketHandler serves the embedded chat widget over a persistent
// connection, carrying the same request/response shape as the REST endpoint.
type WebSocketHandler struct {
	orchestrator *chat.Orchestrator
}

func NewWebSocketHandler(orchestrator *chat.Orchestrator) *WebSocketHandler {
	return &WebSocketHandler{
		orchestrator: orchestrator,
	}
}

func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("Widget connection established")

	defer func() {
		c.Close()
		logger.Info("Widget connection closed")
	}()

	for {
		var msg struct {
			Type     string `json:"type"`
			Message  string `json:"message"`
			UserID   string `json:"user_id"`
			SiteHost string `json:"site_host"`
			Debug    bool   `json:"debug"`
		}

		err := c.ReadJSON(&msg)
		if err != nil {
			logger.Debug("Widget read ended", zap.Error(err))
			break
		}

		if msg.Type != "chat" {
			continue
		}

		response := h.orchestrator.Handle(context.Background(), chat.Request{
			Channel:  "widget",
			UserID:   msg.UserID,
			Message:  msg.Message,
			SiteHost: msg.SiteHost,
			Debug:    msg.Debug,
		})

		if err := c.WriteJSON(response); err != nil {
			logger.Error("Failed to write widget response", zap.Error(err))
			break
		}
	}
}
