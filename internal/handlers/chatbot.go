package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/nagarseva/civic-server/internal/middleware"
	"github.com/nagarseva/civic-server/internal/services"
)

// ChatbotHandler handles the conversational query endpoint.
type ChatbotHandler struct {
	bot    *services.ChatbotService
	logger *zap.SugaredLogger
}

// NewChatbotHandler creates a new chatbot handler.
func NewChatbotHandler(bot *services.ChatbotService, logger *zap.SugaredLogger) *ChatbotHandler {
	return &ChatbotHandler{bot: bot, logger: logger}
}

// Query handles POST /api/chatbot/query. Guests are welcome; a valid
// bearer token personalizes the "my complaints" intent.
func (h *ChatbotHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Q string `json:"q"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Q) == "" {
		respondError(w, http.StatusBadRequest, "Query text is required")
		return
	}

	reply, err := h.bot.Query(r.Context(), req.Q, middleware.ActorFrom(r.Context()))
	if err != nil {
		respondTaxonomy(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"reply":     reply.Reply,
		"intent":    reply.Intent,
		"complaint": reply.Complaint,
	})
}
