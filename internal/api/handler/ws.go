package handler

import (
	"context"
	"net/http"

	"roomchat/backend/internal/chathub"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades before any check so that rejections can be
// reported to the client as an error frame. The session does the rest.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already answered with an HTTP error
		h.Logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	// an unparsable id is treated like an unknown room
	roomID, _ := parseID(c.Param("room_id"))

	client := chathub.NewWebSocketClient(conn, h.Logger)
	session := h.Hub.NewSession(client, roomID, c.Query("token"))

	// only the connection itself ends a session
	if err := session.Run(context.WithoutCancel(c.Request.Context())); err != nil {
		h.Logger.Debug("websocket session ended", "room_id", roomID, "error", err)
	}
	<-client.Done()
}
