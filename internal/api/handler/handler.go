package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"roomchat/backend/internal/auth"
	"roomchat/backend/internal/chathub"
	"roomchat/backend/internal/storage"

	"github.com/gin-gonic/gin"
)

const bannerMessage = "REAL TIME CHAT: v0.1.0"

// Handler serves the REST endpoints and the WebSocket endpoint.
type Handler struct {
	Storage storage.Storage
	Auth    *auth.Service
	Hub     *chathub.Hub
	Logger  *slog.Logger
}

func NewHandler(s storage.Storage, a *auth.Service, hub *chathub.Hub, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{Storage: s, Auth: a, Hub: hub, Logger: logger}
}

// Router builds the gin engine with every route mounted under prefix.
func (h *Handler) Router(prefix string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), h.requestLogger(), cors())

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": bannerMessage})
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group(prefix)
	api.POST("/register", h.Register)
	api.POST("/login", h.Login)
	api.POST("/logout", h.requireAuth(), h.Logout)

	// the token travels as a query parameter and is checked by the session
	api.GET("/ws/:room_id", h.ServeWebSocket)

	chat := api.Group("/chat", h.requireAuth())
	chat.GET("/rooms", h.ListRooms)
	chat.POST("/rooms", h.CreateRoom)
	chat.GET("/rooms/:room_id", h.GetRoom)
	chat.POST("/rooms/:room_id/messages", h.CreateMessage)
	chat.GET("/rooms/:room_id/messages", h.ListMessages)
	chat.POST("/rooms/:room_id/join", h.JoinRoom)

	return r
}

func abortWithError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// internalError logs err and hides it from the client.
func (h *Handler) internalError(c *gin.Context, err error) {
	h.Logger.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
	abortWithError(c, http.StatusInternalServerError, "Internal server error")
}

func parseID(raw string) (uint, bool) {
	id, err := strconv.ParseUint(raw, 10, 0)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}
