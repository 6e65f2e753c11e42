package handler

import (
	"errors"
	"net/http"
	"strconv"

	"roomchat/backend/internal/config"
	"roomchat/backend/internal/models"
	"roomchat/backend/internal/storage"

	"github.com/gin-gonic/gin"
)

type createRoomRequest struct {
	Name string `json:"name" binding:"required,max=100"`
}

type createMessageRequest struct {
	Text *string `json:"text" binding:"required"`
}

func (h *Handler) ListRooms(c *gin.Context) {
	rooms, err := h.Storage.ListRooms(c.Request.Context())
	if err != nil {
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, rooms)
}

func (h *Handler) CreateRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	room, err := h.Storage.CreateRoom(c.Request.Context(), req.Name, currentUser(c).ID)
	if err != nil {
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (h *Handler) GetRoom(c *gin.Context) {
	roomID, ok := h.roomParam(c)
	if !ok {
		return
	}

	detail, err := h.Storage.GetRoomDetail(c.Request.Context(), roomID)
	if errors.Is(err, storage.ErrRoomNotFound) {
		abortWithError(c, http.StatusNotFound, "Chat room not found")
		return
	}
	if err != nil {
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// CreateMessage stores the message and pushes it to everyone connected to
// the room over WebSocket.
func (h *Handler) CreateMessage(c *gin.Context) {
	roomID, ok := h.memberRoom(c)
	if !ok {
		return
	}

	var req createMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	user := currentUser(c)
	msg, err := h.Storage.StoreMessage(c.Request.Context(), roomID, user.ID, *req.Text)
	if err != nil {
		h.internalError(c, err)
		return
	}

	h.Hub.Registry.Broadcast(roomID, models.NewMessageEvent(msg, user.Name))
	c.JSON(http.StatusOK, msg)
}

func (h *Handler) ListMessages(c *gin.Context) {
	roomID, ok := h.memberRoom(c)
	if !ok {
		return
	}

	limit := config.DefaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			abortWithError(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, config.MaxHistoryLimit)
	}

	messages, err := h.Storage.ListMessages(c.Request.Context(), roomID, limit)
	if err != nil {
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

func (h *Handler) JoinRoom(c *gin.Context) {
	roomID, ok := h.roomParam(c)
	if !ok {
		return
	}

	err := h.Storage.JoinRoom(c.Request.Context(), roomID, currentUser(c).ID)
	switch {
	case errors.Is(err, storage.ErrRoomNotFound):
		abortWithError(c, http.StatusNotFound, "Chat room not found")
	case errors.Is(err, storage.ErrAlreadyMember):
		abortWithError(c, http.StatusBadRequest, "You are already a member of this chat room")
	case err != nil:
		h.internalError(c, err)
	default:
		c.JSON(http.StatusOK, gin.H{"detail": "Successfully joined chat room"})
	}
}

func (h *Handler) roomParam(c *gin.Context) (uint, bool) {
	roomID, ok := parseID(c.Param("room_id"))
	if !ok {
		abortWithError(c, http.StatusBadRequest, "invalid room id")
	}
	return roomID, ok
}

// memberRoom resolves the room in the path and checks that the caller is a
// member of it.
func (h *Handler) memberRoom(c *gin.Context) (uint, bool) {
	roomID, ok := h.roomParam(c)
	if !ok {
		return 0, false
	}
	ctx := c.Request.Context()

	if _, err := h.Storage.FindRoom(ctx, roomID); err != nil {
		if errors.Is(err, storage.ErrRoomNotFound) {
			abortWithError(c, http.StatusNotFound, "Chat room not found")
		} else {
			h.internalError(c, err)
		}
		return 0, false
	}

	member, err := h.Storage.IsMember(ctx, roomID, currentUser(c).ID)
	if err != nil {
		h.internalError(c, err)
		return 0, false
	}
	if !member {
		abortWithError(c, http.StatusForbidden, "You are not a member of this chat room")
		return 0, false
	}
	return roomID, true
}
