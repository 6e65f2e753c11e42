package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"roomchat/backend/internal/api/handler"
	"roomchat/backend/internal/auth"
	"roomchat/backend/internal/chathub"
	"roomchat/backend/internal/config"
	"roomchat/backend/internal/models"
	"roomchat/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const prefix = "/api/v1"

type testServer struct {
	t     *testing.T
	srv   *httptest.Server
	store *storage.Service
	hub   *chathub.Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := storage.Open(&config.Config{DBDriver: config.DriverSQLite, SQLitePath: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, storage.Migrate(db))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := storage.NewStorageService(db)
	authSvc := auth.NewService(
		store,
		auth.NewTokenManager("test-secret", time.Hour),
		auth.NewPasswordHasher(bcrypt.MinCost),
		auth.NewMemoryBlacklist(),
	)
	hub := chathub.NewHub(chathub.NewRegistry(logger), store, authSvc, logger)
	h := handler.NewHandler(store, authSvc, hub, logger)

	srv := httptest.NewServer(h.Router(prefix))
	t.Cleanup(func() {
		hub.Registry.CloseAll()
		srv.Close()
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	return &testServer{t: t, srv: srv, store: store, hub: hub}
}

// do sends a JSON request and decodes the JSON response into out when given.
func (s *testServer) do(method, path, token string, body any, out any) int {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, s.srv.URL+path, reader)
	require.NoError(s.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(s.t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(s.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// signup registers a user and logs in with the password form.
func (s *testServer) signup(name, email string) (models.UserInfo, string) {
	s.t.Helper()
	var user models.UserInfo
	status := s.do(http.MethodPost, prefix+"/register", "",
		gin.H{"name": name, "email": email, "password": "pw-" + name}, &user)
	require.Equal(s.t, http.StatusOK, status)

	form := url.Values{"username": {email}, "password": {"pw-" + name}}
	resp, err := http.PostForm(s.srv.URL+prefix+"/login", form)
	require.NoError(s.t, err)
	defer resp.Body.Close()
	require.Equal(s.t, http.StatusOK, resp.StatusCode)

	var tok struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	require.NoError(s.t, json.NewDecoder(resp.Body).Decode(&tok))
	require.Equal(s.t, "bearer", tok.TokenType)
	return user, tok.AccessToken
}

func (s *testServer) createRoom(token, name string) models.ChatRoom {
	s.t.Helper()
	var room models.ChatRoom
	require.Equal(s.t, http.StatusOK, s.do(http.MethodPost, prefix+"/chat/rooms", token, gin.H{"name": name}, &room))
	return room
}

type errorBody struct {
	Error string `json:"error"`
}

func TestRootAndHealth(t *testing.T) {
	s := newTestServer(t)

	var banner map[string]string
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/", "", nil, &banner))
	assert.NotEmpty(t, banner["message"])

	var health map[string]string
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/health", "", nil, &health))
	assert.Equal(t, "ok", health["status"])
}

func TestRegisterLoginLogout(t *testing.T) {
	s := newTestServer(t)
	alice, token := s.signup("Alice", "alice@example.com")
	assert.NotZero(t, alice.ID)
	assert.Equal(t, "alice@example.com", alice.Email)

	var errResp errorBody
	status := s.do(http.MethodPost, prefix+"/register", "",
		gin.H{"name": "Again", "email": "alice@example.com", "password": "x"}, &errResp)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Email already registered", errResp.Error)

	var jsonLogin map[string]string
	status = s.do(http.MethodPost, prefix+"/login", "",
		gin.H{"username": "alice@example.com", "password": "pw-Alice"}, &jsonLogin)
	assert.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, jsonLogin["access_token"])

	status = s.do(http.MethodPost, prefix+"/login", "",
		gin.H{"username": "alice@example.com", "password": "wrong"}, &errResp)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Incorrect email or password", errResp.Error)

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, prefix+"/chat/rooms", token, nil, nil))
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, prefix+"/chat/rooms", "", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, prefix+"/chat/rooms", "garbage", nil, nil))

	assert.Equal(t, http.StatusOK, s.do(http.MethodPost, prefix+"/logout", token, nil, nil))
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, prefix+"/chat/rooms", token, nil, nil),
		"revoked token must be rejected")
}

func TestRegister_Validation(t *testing.T) {
	s := newTestServer(t)
	for _, body := range []gin.H{
		{"name": "x", "email": "not-an-email", "password": "pw"},
		{"email": "a@example.com", "password": "pw"},
		{"name": "x", "email": "a@example.com"},
	} {
		assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, prefix+"/register", "", body, nil))
	}
}

func TestRooms(t *testing.T) {
	s := newTestServer(t)
	alice, aliceToken := s.signup("Alice", "alice@example.com")
	bob, bobToken := s.signup("Bob", "bob@example.com")

	room := s.createRoom(aliceToken, "general")
	roomPath := fmt.Sprintf("%s/chat/rooms/%d", prefix, room.ID)

	var rooms []models.ChatRoom
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, prefix+"/chat/rooms", bobToken, nil, &rooms))
	require.Len(t, rooms, 1)
	assert.Equal(t, "general", rooms[0].Name)

	var errResp errorBody
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, prefix+"/chat/rooms/999", aliceToken, nil, &errResp))
	assert.Equal(t, "Chat room not found", errResp.Error)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, prefix+"/chat/rooms/abc", aliceToken, nil, nil))

	// bob is not a member yet
	assert.Equal(t, http.StatusForbidden,
		s.do(http.MethodPost, roomPath+"/messages", bobToken, gin.H{"text": "hi"}, nil))
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, roomPath+"/messages", bobToken, nil, nil))

	assert.Equal(t, http.StatusOK, s.do(http.MethodPost, roomPath+"/join", bobToken, nil, nil))
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, roomPath+"/join", bobToken, nil, &errResp))
	assert.Equal(t, "You are already a member of this chat room", errResp.Error)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPost, prefix+"/chat/rooms/999/join", bobToken, nil, nil))

	for _, text := range []string{"one", "two", "three"} {
		var msg models.Message
		require.Equal(t, http.StatusOK, s.do(http.MethodPost, roomPath+"/messages", bobToken, gin.H{"text": text}, &msg))
		assert.Equal(t, bob.ID, msg.SenderID)
		assert.Equal(t, room.ID, msg.RoomID)
	}
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, roomPath+"/messages", bobToken, gin.H{}, nil))

	var history []models.Message
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, roomPath+"/messages?limit=2", aliceToken, nil, &history))
	require.Len(t, history, 2)
	assert.Equal(t, "three", history[0].Text)
	assert.Equal(t, "two", history[1].Text)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, roomPath+"/messages?limit=0", aliceToken, nil, nil))

	var detail models.RoomDetail
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, roomPath, aliceToken, nil, &detail))
	assert.Equal(t, "general", detail.Name)
	assert.ElementsMatch(t, []models.UserInfo{alice, bob}, detail.Users)
	require.Len(t, detail.Messages, 3)
	assert.Equal(t, "one", detail.Messages[0].Text)
}

func TestCORS(t *testing.T) {
	s := newTestServer(t)
	req, err := http.NewRequest(http.MethodOptions, s.srv.URL+prefix+"/chat/rooms", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
