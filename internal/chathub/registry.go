package chathub

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"roomchat/backend/internal/models"
)

// Registry tracks which users hold a live connection to which room.
// At most one Channel is kept per (room, user) pair.
type Registry struct {
	mu     sync.RWMutex
	rooms  map[uint]map[uint]Channel
	logger *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		rooms:  make(map[uint]map[uint]Channel),
		logger: logger.With("component", "registry"),
	}
}

// Register stores ch for the pair, replacing any earlier connection. The
// replaced connection is closed.
func (r *Registry) Register(roomID, userID uint, ch Channel) {
	r.mu.Lock()
	bucket, ok := r.rooms[roomID]
	if !ok {
		bucket = make(map[uint]Channel)
		r.rooms[roomID] = bucket
	}
	prev := bucket[userID]
	bucket[userID] = ch
	r.mu.Unlock()

	if prev != nil && prev != ch {
		r.logger.Info("replacing existing connection", "room_id", roomID, "user_id", userID)
		if err := prev.Close(); err != nil {
			r.logger.Debug("closing replaced connection", "room_id", roomID, "user_id", userID, "error", err)
		}
	}
}

// Unregister drops the pair. Unknown pairs are ignored.
func (r *Registry) Unregister(roomID, userID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(roomID, userID)
}

// Release drops the pair only while it still maps to ch and reports whether
// anything was removed.
func (r *Registry) Release(roomID, userID uint, ch Channel) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.rooms[roomID][userID]; !ok || current != ch {
		return false
	}
	r.removeLocked(roomID, userID)
	return true
}

func (r *Registry) removeLocked(roomID, userID uint) {
	bucket, ok := r.rooms[roomID]
	if !ok {
		return
	}
	delete(bucket, userID)
	if len(bucket) == 0 {
		delete(r.rooms, roomID)
	}
}

type recipient struct {
	userID uint
	ch     Channel
}

// Broadcast sends event to every connection registered under the room when
// the call is made. A failing recipient is logged and skipped.
func (r *Registry) Broadcast(roomID uint, event models.Event) {
	r.mu.RLock()
	bucket := r.rooms[roomID]
	recipients := make([]recipient, 0, len(bucket))
	for userID, ch := range bucket {
		recipients = append(recipients, recipient{userID: userID, ch: ch})
	}
	r.mu.RUnlock()

	for _, rc := range recipients {
		if err := rc.ch.Send(event); err != nil {
			r.logger.Warn("broadcast delivery failed",
				"room_id", roomID,
				"user_id", rc.userID,
				"event", event.EventType(),
				"error", fmt.Errorf("%w: %w", ErrDelivery, err),
			)
		}
	}
}

// ListConnected returns the ids of users connected to the room in
// ascending order.
func (r *Registry) ListConnected(roomID uint) []uint {
	r.mu.RLock()
	bucket := r.rooms[roomID]
	users := make([]uint, 0, len(bucket))
	for userID := range bucket {
		users = append(users, userID)
	}
	r.mu.RUnlock()

	slices.Sort(users)
	return users
}

// CloseAll empties the registry and closes every connection it held.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	var all []Channel
	for _, bucket := range r.rooms {
		for _, ch := range bucket {
			all = append(all, ch)
		}
	}
	r.rooms = make(map[uint]map[uint]Channel)
	r.mu.Unlock()

	for _, ch := range all {
		_ = ch.Close()
	}
	r.logger.Info("closed all connections", "count", len(all))
}
