package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/emofriend/emofriend-backend/internal/chat"
	"github.com/emofriend/emofriend-backend/internal/common"
	"github.com/emofriend/emofriend-backend/internal/httpapi/middleware"
)

func (h *Handler) ListMessages(c *gin.Context) {
	uid, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	msgs, err := h.ChatSvc.ListMessages(c.Request.Context(), uid, c.Param("session_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, h.errorBody("Failed to list messages", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

type sendMessageReq struct {
	Text     string  `json:"text"`
	PhotoURL *string `json:"photo_url"`
}

// SendMessage runs the synchronous send flow. On gateway failure the user's
// message is already persisted; only the reply is missing.
func (h *Handler) SendMessage(c *gin.Context) {
	uid, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	userMsg, botMsg, err := h.ChatSvc.Send(c.Request.Context(), uid, c.Param("session_id"), req.Text, req.PhotoURL)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrEmptyInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": "message text is required"})
		case errors.Is(err, chat.ErrSendInFlight):
			c.JSON(http.StatusConflict, gin.H{"error": "a send is already in flight"})
		case errors.Is(err, chat.ErrSessionDeleted):
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		default:
			h.Log.Error("send failed", zap.String("user_id", uid), zap.Error(err))
			c.JSON(http.StatusInternalServerError, h.errorBody("Failed to generate response", err))
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_message": userMsg,
		"bot_message":  botMsg,
	})
}

func (h *Handler) DeleteMessage(c *gin.Context) {
	uid, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	msgID, err := strconv.ParseUint(c.Param("message_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	if err := h.ChatSvc.DeleteMessage(c.Request.Context(), uid, c.Param("session_id"), msgID); err != nil {
		c.JSON(http.StatusInternalServerError, h.errorBody("Failed to delete message", err))
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ClearMessages(c *gin.Context) {
	uid, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := h.ChatSvc.ClearMessages(c.Request.Context(), uid, c.Param("session_id")); err != nil {
		c.JSON(http.StatusInternalServerError, h.errorBody("Failed to clear messages", err))
		return
	}
	c.Status(http.StatusNoContent)
}

// SendMessageAsync persists the user's message and queues reply generation
// for the worker. An Idempotency-Key header dedupes retries: a replayed key
// returns the original job and writes nothing.
func (h *Handler) SendMessageAsync(c *gin.Context) {
	uid, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if h.Rabbit == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "async sends are not enabled"})
		return
	}

	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message text is required"})
		return
	}

	sessionID := c.Param("session_id")

	idempoKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
	if len(idempoKey) > 128 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "idempotency key too long"})
		return
	}
	var idempoKeyPtr *string
	if idempoKey != "" {
		idempoKeyPtr = &idempoKey
	}

	if err := h.ChatSvc.ValidateSession(c.Request.Context(), uid, sessionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		h.Log.Error("session check failed", zap.String("user_id", uid), zap.Error(err))
		c.JSON(http.StatusInternalServerError, h.errorBody("Failed to send message", err))
		return
	}

	jobID, err := common.NewULID()
	if err != nil {
		c.JSON(http.StatusInternalServerError, h.errorBody("Failed to send message", err))
		return
	}

	job := &chat.Job{
		ID:             jobID,
		UserID:         uid,
		SessionID:      sessionID,
		Prompt:         req.Text,
		IdempotencyKey: idempoKeyPtr,
		Status:         chat.JobQueued,
	}

	// The job row is the idempotency anchor: a retried key resolves to the
	// existing job and skips both the message insert and the publish, so a
	// double-submit never duplicates the user's turn.
	job, created, err := h.ChatSvc.CreateJobOrGetExisting(c.Request.Context(), job)
	if err != nil {
		h.Log.Error("create job failed", zap.String("user_id", uid), zap.Error(err))
		c.JSON(http.StatusInternalServerError, h.errorBody("Failed to send message", err))
		return
	}

	if created {
		if _, err := h.ChatSvc.InsertUserMessage(c.Request.Context(), uid, sessionID, req.Text, req.PhotoURL); err != nil {
			// Close the job or a retry with the same key would wedge on it.
			if ferr := h.ChatSvc.FailJob(c.Request.Context(), job.ID, "user message insert failed"); ferr != nil {
				h.Log.Error("fail job failed", zap.String("job_id", job.ID), zap.Error(ferr))
			}
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
				return
			}
			h.Log.Error("async insert failed", zap.String("user_id", uid), zap.Error(err))
			c.JSON(http.StatusInternalServerError, h.errorBody("Failed to send message", err))
			return
		}

		if err := h.Rabbit.PublishJob(c.Request.Context(), job.ID); err != nil {
			if ferr := h.ChatSvc.FailJob(c.Request.Context(), job.ID, "enqueue failed"); ferr != nil {
				h.Log.Error("fail job failed", zap.String("job_id", job.ID), zap.Error(ferr))
			}
			h.Log.Error("publish job failed", zap.String("job_id", job.ID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, h.errorBody("Failed to enqueue message", err))
			return
		}
	}

	c.JSON(http.StatusAccepted, gin.H{"job_id": job.ID})
}

func (h *Handler) GetJob(c *gin.Context) {
	uid, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	j, err := h.ChatSvc.GetJob(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, h.errorBody("Failed to fetch job", err))
		return
	}
	if j.UserID != uid {
		// hide existence
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"job": gin.H{
			"id":                j.ID,
			"session_id":        j.SessionID,
			"status":            j.Status,
			"result_message_id": j.ResultMessageID,
			"error":             j.Error,
			"created_at":        j.CreatedAt,
			"updated_at":        j.UpdatedAt,
		},
	})
}
