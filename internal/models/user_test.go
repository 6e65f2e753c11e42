package models_test

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"roomchat/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestUserBeforeCreate_NormalizesEmail verifies that the hook lowercases and trims the email.
func TestUserBeforeCreate_NormalizesEmail(t *testing.T) {
	user := &models.User{Name: "Alice", Email: "  Alice@Example.COM "}

	err := user.BeforeCreate(nil) // nil *gorm.DB is acceptable for this hook

	assert.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
}

// TestUserStructTags verifies that struct tags are correctly defined for GORM and JSON.
func TestUserStructTags(t *testing.T) {
	userType := reflect.TypeOf(models.User{})

	idField, found := userType.FieldByName("ID")
	assert.True(t, found, "ID field should exist")
	assert.Contains(t, idField.Tag.Get("gorm"), "primaryKey")

	emailField, found := userType.FieldByName("Email")
	assert.True(t, found)
	assert.Contains(t, emailField.Tag.Get("gorm"), "uniqueIndex", "Email should have unique index")

	passwordField, found := userType.FieldByName("Password")
	assert.True(t, found)
	assert.Equal(t, "-", passwordField.Tag.Get("json"), "Password must never be serialised")
}

func TestUserJSON_OmitsPassword(t *testing.T) {
	user := models.User{ID: 3, Name: "Bob", Email: "bob@example.com", Password: "$2a$hash"}

	data, err := json.Marshal(user)
	require.NoError(t, err)

	assert.NotContains(t, string(data), "password")
	assert.NotContains(t, string(data), "$2a$hash")
	assert.Equal(t, models.UserInfo{ID: 3, Name: "Bob", Email: "bob@example.com"}, user.Info())
}

func TestPresenceEvent_WireShape(t *testing.T) {
	user := &models.User{ID: 1, Name: "U1"}

	data, err := json.Marshal(models.NewUserJoined(user, 7, nil))
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "user_joined", got["type"])
	assert.Equal(t, float64(1), got["user_id"])
	assert.Equal(t, "U1", got["user_name"])
	assert.Equal(t, float64(7), got["room_id"])
	// an empty room still serialises as [], never null
	assert.Equal(t, []any{}, got["active_users"])
}

func TestMessageEvent_FromStoredRow(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	msg := &models.Message{ID: 42, Text: "hi", SenderID: 1, RoomID: 7, CreatedAt: created}

	evt := models.NewMessageEvent(msg, "U1")

	assert.Equal(t, models.EventMessage, evt.EventType())
	assert.Equal(t, uint(42), evt.ID)
	assert.Equal(t, "hi", evt.Text)
	assert.Equal(t, uint(1), evt.SenderID)
	assert.Equal(t, "U1", evt.SenderName)
	assert.Equal(t, uint(7), evt.RoomID)
	assert.Equal(t, created, evt.CreatedAt)
}

func TestRoomDetail_JSON(t *testing.T) {
	detail := models.RoomDetail{
		ChatRoom: models.ChatRoom{ID: 7, Name: "general"},
		Users:    []models.UserInfo{{ID: 1, Name: "U1", Email: "u1@example.com"}},
		Messages: []models.Message{{ID: 1, Text: "hi", SenderID: 1, RoomID: 7}},
	}

	data, err := json.Marshal(detail)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, float64(7), got["id"])
	assert.Equal(t, "general", got["name"])
	assert.Len(t, got["users"], 1)
	assert.Len(t, got["messages"], 1)
}
