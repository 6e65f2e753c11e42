package models

import "time"

// ChatRoom is a named room that any registered user may join.
// Membership is stored separately as RoomUser rows.
type ChatRoom struct {
	// ID is the primary key of the room.
	ID uint `gorm:"primaryKey" json:"id"`
	// Name is the human readable room title.
	Name string `gorm:"size:100;not null" json:"name"`
	// CreatedAt is set by GORM when the room is inserted.
	CreatedAt time.Time `json:"created_at"`
}

// RoomUser is the membership row linking a user to a room.
type RoomUser struct {
	RoomID   uint      `gorm:"primaryKey;autoIncrement:false"`
	UserID   uint      `gorm:"primaryKey;autoIncrement:false"`
	JoinedAt time.Time `gorm:"autoCreateTime"`
}
