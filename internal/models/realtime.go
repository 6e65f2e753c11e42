package models

import "time"

// Outbound event types pushed to WebSocket clients.
const (
	EventUserJoined = "user_joined"
	EventUserLeft   = "user_left"
	EventMessage    = "message"
	EventError      = "error"
)

// Event is any frame the server pushes over the live connection.
// The Type field of every implementation carries the discriminator.
type Event interface {
	EventType() string
}

// InboundFrame is the only frame a client sends: {"text": "..."}.
// Text is a pointer so a missing field can be told apart from an empty one.
type InboundFrame struct {
	Text *string `json:"text"`
}

// PresenceEvent announces that a user joined or left a room.
type PresenceEvent struct {
	Type        string `json:"type"`
	UserID      uint   `json:"user_id"`
	UserName    string `json:"user_name"`
	RoomID      uint   `json:"room_id"`
	ActiveUsers []uint `json:"active_users"`
}

func (e PresenceEvent) EventType() string { return e.Type }

// MessageEvent carries a stored message to every connection in the room.
type MessageEvent struct {
	Type       string    `json:"type"`
	ID         uint      `json:"id"`
	Text       string    `json:"text"`
	SenderID   uint      `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	RoomID     uint      `json:"room_id"`
	CreatedAt  time.Time `json:"created_at"`
}

func (e MessageEvent) EventType() string { return e.Type }

// ErrorEvent is sent once during the handshake, right before the server
// closes the connection.
type ErrorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

func (e ErrorEvent) EventType() string { return e.Type }

// NewUserJoined builds a user_joined event.
func NewUserJoined(user *User, roomID uint, active []uint) PresenceEvent {
	return newPresence(EventUserJoined, user, roomID, active)
}

// NewUserLeft builds a user_left event.
func NewUserLeft(user *User, roomID uint, active []uint) PresenceEvent {
	return newPresence(EventUserLeft, user, roomID, active)
}

func newPresence(kind string, user *User, roomID uint, active []uint) PresenceEvent {
	if active == nil {
		active = []uint{}
	}
	return PresenceEvent{
		Type:        kind,
		UserID:      user.ID,
		UserName:    user.Name,
		RoomID:      roomID,
		ActiveUsers: active,
	}
}

// NewMessageEvent builds a message event from a stored row.
func NewMessageEvent(msg *Message, senderName string) MessageEvent {
	return MessageEvent{
		Type:       EventMessage,
		ID:         msg.ID,
		Text:       msg.Text,
		SenderID:   msg.SenderID,
		SenderName: senderName,
		RoomID:     msg.RoomID,
		CreatedAt:  msg.CreatedAt,
	}
}

// NewErrorEvent builds a handshake error event.
func NewErrorEvent(reason string) ErrorEvent {
	return ErrorEvent{Type: EventError, Error: reason}
}

// RoomDetail is the response body of the room detail endpoint.
type RoomDetail struct {
	ChatRoom
	Users    []UserInfo `json:"users"`
	Messages []Message  `json:"messages"`
}
