package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"roomchat/backend/internal/auth"
	"roomchat/backend/internal/config"
	"roomchat/backend/internal/models"
	"roomchat/backend/internal/storage"
)

func parseRoomID(raw string) uint {
	id, err := strconv.ParseUint(raw, 10, 0)
	if err != nil {
		fmt.Println("Invalid room ID. Please provide a positive integer.")
		os.Exit(1)
	}
	return uint(id)
}

func createRoom(ctx context.Context, s storage.Storage, name, creatorEmail string) (*models.ChatRoom, error) {
	creator, err := s.GetUserByEmail(ctx, creatorEmail)
	if err != nil {
		return nil, err
	}
	return s.CreateRoom(ctx, name, creator.ID)
}

func changeMembership(ctx context.Context, s storage.Storage, add bool, roomID uint, email string) error {
	user, err := s.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if add {
		return s.JoinRoom(ctx, roomID, user.ID)
	}
	return s.RemoveMember(ctx, roomID, user.ID)
}

// writeHistory prints the newest messages of a room, oldest first.
func writeHistory(ctx context.Context, w io.Writer, s storage.Storage, roomID uint, limit int) error {
	if _, err := s.FindRoom(ctx, roomID); err != nil {
		return err
	}
	messages, err := s.ListMessages(ctx, roomID, limit)
	if err != nil {
		return err
	}

	names := make(map[uint]string)
	for i := len(messages) - 1; i >= 0; i-- {
		msg := messages[i]
		name, ok := names[msg.SenderID]
		if !ok {
			name = fmt.Sprintf("user#%d", msg.SenderID)
			if u, err := s.GetUserByID(ctx, msg.SenderID); err == nil {
				name = u.Name
			} else if !errors.Is(err, storage.ErrUserNotFound) {
				return err
			}
			names[msg.SenderID] = name
		}
		fmt.Fprintf(w, "[%s] %s: %s\n", msg.CreatedAt.Format(time.DateTime), name, msg.Text)
	}
	return nil
}

func printHistory(ctx context.Context, s storage.Storage, roomID uint, limit int) error {
	return writeHistory(ctx, os.Stdout, s, roomID, limit)
}

// revokeToken blacklists a token in Redis so every server process sharing
// that Redis rejects it.
func revokeToken(ctx context.Context, cfg *config.Config, token string) error {
	if cfg.RedisAddr == "" {
		return errors.New("REDIS_ADDR must be set to revoke tokens")
	}
	// without the server's key the expiry cannot be read and the
	// revocation would lapse before the token does
	if cfg.SecretKeyGenerated {
		return errors.New("SECRET_KEY must be set to revoke tokens")
	}
	rdb, err := storage.OpenRedis(ctx, cfg)
	if err != nil {
		return err
	}
	defer rdb.Close()

	// users are never looked up when revoking
	svc := auth.NewService(nil, auth.NewTokenManager(cfg.SecretKey, cfg.AccessTokenTTL), nil, auth.NewRedisBlacklist(rdb))
	return svc.Revoke(ctx, token)
}
