package chathub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"roomchat/backend/internal/models"
	"roomchat/backend/internal/storage"

	"github.com/google/uuid"
)

// Store is the persistence a session needs.
type Store interface {
	FindRoom(ctx context.Context, roomID uint) (*models.ChatRoom, error)
	IsMember(ctx context.Context, roomID, userID uint) (bool, error)
	StoreMessage(ctx context.Context, roomID, userID uint, text string) (*models.Message, error)
}

// Authenticator resolves a bearer token to its user.
type Authenticator interface {
	ResolveToken(ctx context.Context, token string) (*models.User, error)
}

// Error texts sent to the client before a rejected connection is closed.
const (
	reasonTokenMissing = "Authentication token missing"
	reasonInvalidToken = "Could not validate credentials"
	reasonRoomNotFound = "Chat room not found"
	reasonNotMember    = "You are not a member of this chat room"
	reasonUnavailable  = "Chat room is temporarily unavailable"
)

type State int32

const (
	StateHandshake State = iota
	StateAuthenticating
	StateAuthorizing
	StateActive
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateHandshake:
		return "handshake"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthorizing:
		return "authorizing"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Hub holds what every session shares.
type Hub struct {
	Registry *Registry
	Store    Store
	Auth     Authenticator
	Logger   *slog.Logger
}

func NewHub(registry *Registry, store Store, authn Authenticator, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		Registry: registry,
		Store:    store,
		Auth:     authn,
		Logger:   logger,
	}
}

// Session drives one live connection from handshake to close. A session is
// single use; a client reconnects by opening a new one.
type Session struct {
	hub    *Hub
	conn   Transport
	roomID uint
	token  string
	logger *slog.Logger

	state atomic.Int32
	user  *models.User
}

// NewSession binds an accepted connection to the room it asked for. token is
// the credential taken from the connection request and may be empty.
func (h *Hub) NewSession(conn Transport, roomID uint, token string) *Session {
	s := &Session{
		hub:    h,
		conn:   conn,
		roomID: roomID,
		token:  token,
		logger: h.Logger.With("session_id", uuid.NewString(), "room_id", roomID),
	}
	s.state.Store(int32(StateHandshake))
	return s
}

func (s *Session) State() State { return State(s.state.Load()) }

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
	s.logger.Debug("session state", "state", st.String())
}

// Run executes the whole protocol and returns once the connection is closed.
// A clean close by either side returns nil.
func (s *Session) Run(ctx context.Context) error {
	defer func() {
		if err := s.conn.Close(); err != nil {
			s.logger.Debug("closing transport", "error", err)
		}
		s.setState(StateClosed)
	}()

	if err := s.handshake(ctx); err != nil {
		s.logger.Info("connection rejected", "state", s.State().String(), "error", err)
		return err
	}

	s.activate()
	defer s.teardown()

	return s.receive(ctx)
}

func (s *Session) handshake(ctx context.Context) error {
	if s.token == "" {
		s.reject(reasonTokenMissing)
		return fmt.Errorf("%w: token missing", ErrAuthentication)
	}

	s.setState(StateAuthenticating)
	user, err := s.hub.Auth.ResolveToken(ctx, s.token)
	if err != nil {
		s.reject(reasonInvalidToken)
		return fmt.Errorf("%w: %w", ErrAuthentication, err)
	}
	s.user = user
	s.logger = s.logger.With("user_id", user.ID)

	s.setState(StateAuthorizing)
	if _, err := s.hub.Store.FindRoom(ctx, s.roomID); err != nil {
		if errors.Is(err, storage.ErrRoomNotFound) {
			s.reject(reasonRoomNotFound)
			return fmt.Errorf("%w: %w", ErrAuthorization, err)
		}
		s.reject(reasonUnavailable)
		return fmt.Errorf("%w: %w", ErrStore, err)
	}

	member, err := s.hub.Store.IsMember(ctx, s.roomID, user.ID)
	if err != nil {
		s.reject(reasonUnavailable)
		return fmt.Errorf("%w: %w", ErrStore, err)
	}
	if !member {
		s.reject(reasonNotMember)
		return fmt.Errorf("%w: user %d is not a member of room %d", ErrAuthorization, user.ID, s.roomID)
	}
	return nil
}

func (s *Session) reject(reason string) {
	if err := s.conn.Send(models.NewErrorEvent(reason)); err != nil {
		s.logger.Debug("sending error frame", "error", err)
	}
}

func (s *Session) activate() {
	s.setState(StateActive)
	reg := s.hub.Registry
	reg.Register(s.roomID, s.user.ID, s.conn)
	reg.Broadcast(s.roomID, models.NewUserJoined(s.user, s.roomID, reg.ListConnected(s.roomID)))
	s.logger.Info("user connected")
}

func (s *Session) receive(ctx context.Context) error {
	for {
		var text string
		data, err := s.conn.ReadMessage()
		switch {
		case err == nil:
			text, err = ParseFrame(data)
			if err != nil {
				s.logger.Warn("inbound frame tolerated as empty text", "error", err)
			}
		case errors.Is(err, ErrMalformedInput):
			s.logger.Warn("inbound frame tolerated as empty text", "error", err)
		case errors.Is(err, ErrPeerClosed), errors.Is(err, ErrClientClosed):
			return nil
		default:
			return fmt.Errorf("%w: %w", ErrTransport, err)
		}

		msg, err := s.hub.Store.StoreMessage(ctx, s.roomID, s.user.ID, text)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrStore, err)
		}
		s.hub.Registry.Broadcast(s.roomID, models.NewMessageEvent(msg, s.user.Name))
	}
}

// teardown runs once for every session that became active.
func (s *Session) teardown() {
	s.setState(StateClosing)
	reg := s.hub.Registry
	if !reg.Release(s.roomID, s.user.ID, s.conn) {
		// a newer connection for the same user took over the slot
		s.logger.Info("connection replaced")
		return
	}
	reg.Broadcast(s.roomID, models.NewUserLeft(s.user, s.roomID, reg.ListConnected(s.roomID)))
	s.logger.Info("user disconnected")
}

// ParseFrame extracts the text of an inbound frame. Invalid JSON or a
// missing text field yields an empty text together with ErrMalformedInput.
func ParseFrame(data []byte) (string, error) {
	var frame models.InboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedInput, err)
	}
	if frame.Text == nil {
		return "", fmt.Errorf("%w: text field missing", ErrMalformedInput)
	}
	return *frame.Text, nil
}
