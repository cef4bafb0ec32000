package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ansar30/pulse/internal/api"
	"github.com/ansar30/pulse/internal/cache"
	"github.com/ansar30/pulse/internal/chat"
	"github.com/ansar30/pulse/internal/config"
	"github.com/ansar30/pulse/internal/db"
	"github.com/ansar30/pulse/internal/middleware"
	"github.com/ansar30/pulse/internal/observ"
	"github.com/ansar30/pulse/internal/repository/postgres"
	"github.com/ansar30/pulse/internal/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// ---------------------------------------------------------------
	// 1. Config and logger
	// ---------------------------------------------------------------
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	// ---------------------------------------------------------------
	// 2. Postgres (runs migrations) and Redis
	//
	// Startup has no parent deadline — Background() is fine here; once
	// the server runs, every request carries its own context.
	// ---------------------------------------------------------------
	database, err := db.New(context.Background(), cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer database.Close()

	rdb, err := db.NewRedis(context.Background(), cfg.RedisURL, logger)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer rdb.Close()

	// ---------------------------------------------------------------
	// 3. Repositories
	//
	// The membership store goes behind the Redis cache: IsMember runs
	// before every send, and the cache keeps that off Postgres for
	// the common case.
	// ---------------------------------------------------------------
	pool := database.Pool()
	channelRepo := postgres.NewChannelStore(pool)
	membershipRepo := cache.NewMembership(postgres.NewMembershipStore(pool), rdb, logger)
	messageRepo := postgres.NewMessageStore(pool)
	userRepo := postgres.NewUserStore(pool)
	tenantRepo := postgres.NewTenantStore(pool)

	// ---------------------------------------------------------------
	// 4. Messaging core and realtime gateway
	//
	// The gateway doubles as the directory's room publisher so join and
	// leave notices reach live subscribers, not just the next history
	// page.
	// ---------------------------------------------------------------
	messageLog := chat.NewMessageLog(channelRepo, membershipRepo, userRepo, messageRepo, logger)
	hub := ws.NewHub(logger)
	gateway := ws.NewGateway(hub, messageLog, cfg.JWTSecret, logger)
	directory := chat.NewDirectory(channelRepo, membershipRepo, userRepo, messageLog, gateway, logger)
	direct := chat.NewDirectResolver(channelRepo, userRepo, logger)

	// ---------------------------------------------------------------
	// 5. HTTP server and routes
	// ---------------------------------------------------------------
	authHandler := api.NewAuthHandler(userRepo, tenantRepo, cfg.JWTSecret, logger)
	userHandler := api.NewUserHandler(userRepo, logger)
	channelHandler := api.NewChannelHandler(directory, direct, logger)
	membershipHandler := api.NewMembershipHandler(directory, logger)
	messageHandler := api.NewMessageHandler(messageLog, gateway, logger)

	srv := gin.New()
	srv.Use(gin.Logger(), gin.Recovery(), observ.HTTPMetrics())

	// Health and metrics are public: load balancers and the scrape
	// target can't carry a JWT.
	srv.GET("/v1/health", func(c *gin.Context) {
		if err := database.Health(c.Request.Context()); err != nil {
			c.JSON(503, gin.H{"status": "degraded"})
			return
		}
		c.JSON(200, gin.H{"status": "ok"})
	})
	srv.GET("/metrics", observ.MetricsHandler())

	srv.POST("/v1/auth/signup", authHandler.Signup)
	srv.POST("/v1/auth/login", authHandler.Login)

	// The WS upgrade authenticates via token query param, not the
	// middleware, so it sits outside the group.
	srv.GET("/v1/ws", gateway.ServeWS)

	v1 := srv.Group("/v1")
	v1.Use(middleware.AuthMiddleware(cfg.JWTSecret))

	v1.GET("/users/me", userHandler.GetMe)

	v1.POST("/channels", channelHandler.Create)
	v1.GET("/channels", channelHandler.List)
	v1.GET("/channels/available", channelHandler.ListAvailable)
	v1.GET("/channels/direct", channelHandler.ListDirect)
	v1.POST("/channels/direct", channelHandler.CreateDirect)
	v1.GET("/channels/:id", channelHandler.GetByID)
	v1.DELETE("/channels/:id", channelHandler.Delete)

	v1.POST("/channels/:id/join", membershipHandler.Join)
	v1.POST("/channels/:id/leave", membershipHandler.Leave)
	v1.POST("/channels/:id/members", membershipHandler.AddMembers)
	v1.DELETE("/channels/:id/members/:userId", membershipHandler.RemoveMember)
	v1.POST("/channels/:id/read", membershipHandler.MarkRead)

	v1.POST("/channels/:id/messages", messageHandler.Create)
	v1.GET("/channels/:id/messages", messageHandler.List)
	v1.DELETE("/messages/:messageId", messageHandler.Delete)

	logger.Info("starting pulse",
		zap.String("port", cfg.Port),
		zap.String("env", cfg.Env),
	)

	return srv.Run(":" + cfg.Port)
}
