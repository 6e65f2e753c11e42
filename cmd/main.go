package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"roomchat/backend/internal/api/handler"
	"roomchat/backend/internal/auth"
	"roomchat/backend/internal/chathub"
	"roomchat/backend/internal/config"
	"roomchat/backend/internal/storage"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := cfg.NewLogger(os.Stdout)
	slog.SetDefault(logger)
	logger.Info("starting roomchat backend", "addr", cfg.HTTPAddr, "db_driver", cfg.DBDriver)

	// 1. Database
	db, err := storage.Open(cfg)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	if err := storage.Migrate(db); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	store := storage.NewStorageService(db)

	// 2. Token blacklist
	var (
		rdb       *redis.Client
		blacklist auth.Blacklist
	)
	if cfg.RedisAddr != "" {
		rdb, err = storage.OpenRedis(context.Background(), cfg)
		if err != nil {
			logger.Error("failed to connect redis", "error", err)
			os.Exit(1)
		}
		blacklist = auth.NewRedisBlacklist(rdb)
		logger.Info("token blacklist backed by redis", "addr", cfg.RedisAddr)
	} else {
		blacklist = auth.NewMemoryBlacklist()
		logger.Warn("REDIS_ADDR not set, token blacklist kept in memory")
	}

	authSvc := auth.NewService(
		store,
		auth.NewTokenManager(cfg.SecretKey, cfg.AccessTokenTTL),
		auth.NewPasswordHasher(config.DefaultBcryptCost),
		blacklist,
	)

	// 3. Live connections and HTTP
	registry := chathub.NewRegistry(logger)
	hub := chathub.NewHub(registry, store, authSvc, logger)

	if os.Getenv(gin.EnvGinMode) == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	h := handler.NewHandler(store, authSvc, hub, logger)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h.Router(cfg.APIPrefix),
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()
	logger.Info("http server listening", "addr", cfg.HTTPAddr, "api_prefix", cfg.APIPrefix)

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"server": func(ctx context.Context) error {
				// hijacked WebSocket connections are not tracked by Shutdown
				registry.CloseAll()
				if err := server.Shutdown(ctx); err != nil {
					return err
				}
				return closeStorage(db, rdb)
			},
		},
	)

	exitCode := <-wait
	logger.Info("roomchat backend stopped", "exit_code", exitCode)
	os.Exit(exitCode)
}

// closeStorage runs once the HTTP server has drained.
func closeStorage(db *gorm.DB, rdb *redis.Client) error {
	var errs []error
	if sqlDB, err := db.DB(); err != nil {
		errs = append(errs, err)
	} else {
		errs = append(errs, sqlDB.Close())
	}
	if rdb != nil {
		errs = append(errs, rdb.Close())
	}
	return errors.Join(errs...)
}
