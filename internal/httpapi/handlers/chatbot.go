package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/emofriend/emofriend-backend/internal/ai"
)

type chatbotHistoryItem struct {
	IsUser bool   `json:"isUser"`
	Text   string `json:"text"`
}

type chatbotReq struct {
	UserInput      string               `json:"userInput"`
	Emotion        string               `json:"emotion"`
	MessageHistory []chatbotHistoryItem `json:"messageHistory"`
}

// Chatbot serves the stateless legacy contract: prompt plus mood label plus
// a short client-supplied history, no persistence.
func (h *Handler) Chatbot(c *gin.Context) {
	var req chatbotReq
	_ = c.ShouldBindJSON(&req)

	if strings.TrimSpace(req.UserInput) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User input is required"})
		return
	}

	history := make([]ai.Turn, 0, len(req.MessageHistory))
	for _, m := range req.MessageHistory {
		history = append(history, ai.Turn{IsUser: m.IsUser, Text: m.Text})
	}

	reply, err := h.ChatSvc.Reply(c.Request.Context(), req.UserInput, req.Emotion, history)
	if err != nil {
		h.Log.Error("chatbot generation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, h.errorBody("Failed to generate response", err))
		return
	}

	emotion := req.Emotion
	if emotion == "" {
		emotion = "neutral"
	}
	c.JSON(http.StatusOK, gin.H{
		"response": reply,
		"emotion":  emotion,
	})
}
