package storage

import (
	"context"
	"fmt"

	"roomchat/backend/internal/config"

	"github.com/redis/go-redis/v9"
)

// OpenRedis connects to cfg.RedisAddr and checks the connection with PING.
func OpenRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect redis at %s: %w", cfg.RedisAddr, err)
	}
	return rdb, nil
}
