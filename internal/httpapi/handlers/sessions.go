package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/emofriend/emofriend-backend/internal/httpapi/middleware"
)

type createSessionReq struct {
	Name string `json:"name"`
}

func (h *Handler) CreateSession(c *gin.Context) {
	uid, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req createSessionReq
	_ = c.ShouldBindJSON(&req) // empty body means default name

	sess, err := h.ChatSvc.CreateSession(c.Request.Context(), uid, req.Name)
	if err != nil {
		h.Log.Error("create session failed", zap.String("user_id", uid), zap.Error(err))
		c.JSON(http.StatusInternalServerError, h.errorBody("Failed to create session", err))
		return
	}
	c.JSON(http.StatusCreated, sess)
}

func (h *Handler) ListSessions(c *gin.Context) {
	uid, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": h.ChatSvc.ListSessions(c.Request.Context(), uid)})
}

type renameSessionReq struct {
	Name string `json:"name" binding:"required"`
}

func (h *Handler) RenameSession(c *gin.Context) {
	uid, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req renameSessionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	err := h.ChatSvc.RenameSession(c.Request.Context(), uid, c.Param("session_id"), req.Name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, h.errorBody("Failed to rename session", err))
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) DeleteSession(c *gin.Context) {
	uid, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	err := h.ChatSvc.DeleteSession(c.Request.Context(), uid, c.Param("session_id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, h.errorBody("Failed to delete session", err))
		return
	}
	c.Status(http.StatusNoContent)
}
