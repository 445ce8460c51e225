package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/emofriend/emofriend-backend/internal/classify"
	"github.com/emofriend/emofriend-backend/internal/httpapi/middleware"
)

// DetectEmotion classifies one uploaded frame. When the request carries a
// valid bearer token the fresh label is also published to the mood store as
// a side-channel update; storage failures never fail the response.
func (h *Handler) DetectEmotion(c *gin.Context) {
	file, header, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image file provided"})
		return
	}
	defer file.Close()

	if header.Size > classify.MaxFrameBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Image file too large"})
		return
	}

	frame, err := io.ReadAll(io.LimitReader(file, classify.MaxFrameBytes+1))
	if err != nil {
		c.JSON(http.StatusInternalServerError, h.errorBody("Emotion detection failed", err))
		return
	}

	res, err := h.Classifier.Classify(c.Request.Context(), frame)
	if err != nil {
		if errors.Is(err, classify.ErrPayloadTooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Image file too large"})
			return
		}
		h.Log.Warn("emotion classification failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, h.errorBody("Emotion detection failed", err))
		return
	}

	if uid, ok := middleware.UserID(c); ok && h.Moods != nil {
		if err := h.Moods.Set(c.Request.Context(), uid, res.Emotion); err != nil {
			h.Log.Warn("mood store update failed", zap.String("user_id", uid), zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, gin.H{"emotion": res})
}
