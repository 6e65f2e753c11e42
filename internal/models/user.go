package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// User is a registered account.
// Password holds the bcrypt hash and is never serialised.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Email     string    `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"size:255;not null" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate is a GORM hook that normalises the email before insert,
// so lookups by email are case-insensitive.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	u.Email = NormalizeEmail(u.Email)
	return
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserInfo is the public projection of a user embedded in room details.
type UserInfo struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Info returns the public projection of u.
func (u User) Info() UserInfo {
	return UserInfo{ID: u.ID, Name: u.Name, Email: u.Email}
}
