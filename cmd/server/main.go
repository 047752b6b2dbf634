// Package main runs the live classroom polling server: websocket protocol,
// poll history API and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Sujay149/intervue-task/config"
	"github.com/Sujay149/intervue-task/internal/chat"
	"github.com/Sujay149/intervue-task/internal/live"
	"github.com/Sujay149/intervue-task/internal/middleware"
	"github.com/Sujay149/intervue-task/internal/participants"
	"github.com/Sujay149/intervue-task/internal/polls"
	"github.com/Sujay149/intervue-task/internal/realtime"
	"github.com/Sujay149/intervue-task/internal/session"
	"github.com/Sujay149/intervue-task/pkg/database"
	"github.com/Sujay149/intervue-task/pkg/redis"
	"github.com/Sujay149/intervue-task/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()

	// Persistence is best effort by design: without a database the server
	// runs in realtime-only mode, like the original hosted deployment.
	var pollRepo *polls.Repository
	var participantRepo *participants.Repository
	var chatRepo *chat.Repository
	if cfg.Database.Enabled() {
		pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
		if err != nil {
			logger.Warn("database unavailable, running realtime-only", zap.Error(err))
		} else {
			defer pool.Close()
			if err := database.Migrate(ctx, pool); err != nil {
				logger.Fatal("migrate", zap.Error(err))
			}
			pollRepo = polls.NewRepository(pool)
			participantRepo = participants.NewRepository(pool)
			chatRepo = chat.NewRepository(pool)
		}
	} else {
		logger.Warn("no database configured, running realtime-only")
	}

	var redisPubSub *realtime.RedisPubSub
	if cfg.Redis.Addr != "" {
		rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Warn("redis unavailable, running single-instance", zap.Error(err))
		} else {
			defer rdb.Close()
			redisPubSub = realtime.NewRedisPubSub(rdb.Client, logger)
		}
	}

	var hub *realtime.Hub
	if redisPubSub != nil {
		hub = realtime.NewHub(logger, redisPubSub, redisPubSub)
	} else {
		hub = realtime.NewHub(logger, nil, nil)
	}
	defer hub.Close()

	routerCfg := &live.Config{
		Store:  session.New(),
		Hub:    hub,
		Grace:  time.Duration(cfg.Poll.AutoCloseGraceMS) * time.Millisecond,
		Logger: logger,
	}
	if pollRepo != nil {
		routerCfg.Polls = pollRepo
		routerCfg.Participants = participantRepo
		routerCfg.Chat = chatRepo
	}
	eventRouter := live.NewRouter(routerCfg)

	loopCtx, loopCancel := context.WithCancel(context.Background())
	defer loopCancel()
	go eventRouter.Run(loopCtx)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) {
		response.OK(c, gin.H{"status": "ok", "timestamp": time.Now().UTC().Format(time.RFC3339)})
	})
	if pollRepo != nil {
		pollHandler := polls.NewHandler(pollRepo, logger)
		router.GET("/polls/history", pollHandler.History)
		chatHandler := chat.NewHandler(chatRepo, logger)
		router.GET("/polls/:id/chat", chatHandler.History)
	}
	router.GET("/ws", realtime.ServeWs(hub, eventRouter, logger))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	loopCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
