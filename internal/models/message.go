package models

import "time"

// Message represents a saved chat message.
// ID and CreatedAt are filled in on insert and are what clients see as
// the message id and timestamp.
type Message struct {
	// ID is the primary key and the public message id.
	ID uint `gorm:"primaryKey" json:"id"`
	// Text is the message body. It may be empty.
	Text string `gorm:"type:text;not null" json:"text"`
	// SenderID is the user who sent the message.
	SenderID uint `gorm:"not null;index:idx_room_msg" json:"sender_id"`
	// RoomID is the room the message was sent to.
	RoomID uint `gorm:"not null;index:idx_room_msg" json:"room_id"`
	// CreatedAt is set by GORM when the row is inserted.
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}
