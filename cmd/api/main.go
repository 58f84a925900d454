package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"chat-platform/internal/auth"
	"chat-platform/internal/call"
	"chat-platform/internal/config"
	"chat-platform/internal/dm"
	"chat-platform/internal/group"
	"chat-platform/internal/httpapi"
	"chat-platform/internal/message"
	"chat-platform/internal/presence"
	"chat-platform/internal/user"
	"chat-platform/internal/ws"
	"chat-platform/pkg/logger"
	"chat-platform/pkg/utils"
)

const connectBudgetLimit = 20

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	tokens, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	// Stores: durable when DB_HOST is set, in-memory otherwise.
	var (
		userStore    user.Store    = user.NewMemoryRepo()
		messageStore message.Store = message.NewMemoryRepo()
	)
	if cfg.UsePostgres() {
		db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
		if err != nil {
			log.Error("postgres init failed", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		userStore = user.NewPostgresRepo(db)
		messageStore = message.NewPostgresRepo(db)
	}

	var (
		budget         ws.ConnectBudget
		presenceMirror presence.Mirror
		rdb            *redis.Client
	)
	if cfg.UseRedis() {
		rdb, err = utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
		presenceMirror = presence.NewRedisMirror(rdb)
		budget = func(ctx context.Context, userID string) (bool, error) {
			key := fmt.Sprintf("ws:connect:%s", userID)
			return utils.AllowConnect(ctx, rdb, key, connectBudgetLimit, time.Minute)
		}
	}

	registry := ws.NewRegistry(log)
	tracker := presence.NewTracker(registry, presenceMirror, log)

	users := user.NewService(userStore)
	groups := group.NewService(group.NewMemoryRepo())
	dms := dm.NewService(dm.NewMemoryRepo())
	messages := message.NewService(messageStore, registry, users, groups, dms, log)
	calls := call.NewService(registry, tracker, users, dms, groups, log)

	wsRouter := ws.NewRouter(registry, calls, groups, dms, log)
	wsHandler := ws.NewHandler(registry, wsRouter, tracker, tokens, budget, cfg.WS, log)

	handlers := httpapi.Handlers{
		Tokens:   tokens,
		Users:    users,
		Groups:   groups,
		DMs:      dms,
		Messages: messages,
		Calls:    calls,
		Presence: tracker,
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, handlers, wsHandler, auth.RequireAccessToken(tokens))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
