package httpapi

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/emofriend/emofriend-backend/internal/httpapi/handlers"
	"github.com/emofriend/emofriend-backend/internal/httpapi/middleware"
)

// NewRouter wires the public legacy endpoints and the authenticated session
// API onto one engine.
func NewRouter(h *handlers.Handler, log *zap.Logger) *gin.Engine {
	if h.Cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(log))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{h.Cfg.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Idempotency-Key"},
		AllowCredentials: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})

	// Legacy contract endpoints. /detect-emotion attributes mood updates
	// when a token happens to be present.
	r.GET("/health", h.Health)
	r.POST("/chatbot", h.Chatbot)
	r.POST("/detect-emotion", middleware.AuthOptional(h.Cfg.JWTSecret), h.DetectEmotion)

	api := r.Group("/api")
	api.Use(middleware.AuthRequired(h.Cfg.JWTSecret))
	{
		api.POST("/sessions", h.CreateSession)
		api.GET("/sessions", h.ListSessions)
		api.PATCH("/sessions/:session_id", h.RenameSession)
		api.DELETE("/sessions/:session_id", h.DeleteSession)

		api.GET("/sessions/:session_id/messages", h.ListMessages)
		api.POST("/sessions/:session_id/messages", h.SendMessage)
		api.DELETE("/sessions/:session_id/messages", h.ClearMessages)
		api.DELETE("/sessions/:session_id/messages/:message_id", h.DeleteMessage)

		api.POST("/sessions/:session_id/messages/async", h.SendMessageAsync)
		api.GET("/jobs/:job_id", h.GetJob)
	}

	return r
}
