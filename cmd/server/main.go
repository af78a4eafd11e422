// Package main runs the event platform HTTP server with WebSocket and graceful shutdown.
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

	"github.com/eventhive/backend/config"
	"github.com/eventhive/backend/internal/auth"
	"github.com/eventhive/backend/internal/events"
	"github.com/eventhive/backend/internal/invitations"
	"github.com/eventhive/backend/internal/middleware"
	"github.com/eventhive/backend/internal/models"
	"github.com/eventhive/backend/internal/notifications"
	"github.com/eventhive/backend/internal/organizations"
	"github.com/eventhive/backend/internal/posts"
	"github.com/eventhive/backend/internal/realtime"
	"github.com/eventhive/backend/pkg/database"
	"github.com/eventhive/backend/pkg/queue"
	"github.com/eventhive/backend/pkg/redis"
	"github.com/eventhive/backend/pkg/response"
	"github.com/eventhive/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Cfg := storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			MediaBucket:          cfg.AWS.MediaBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	inviteSigner := invitations.NewTokenSigner(cfg.JWT.Secret, time.Duration(cfg.App.InviteTokenTTLHours)*time.Hour)

	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Notifications: durable rows plus live push through the hub
	notifRepo := notifications.NewRepository(pool)
	relay := notifications.NewRelay(notifRepo, hub, logger)
	notifHandler := notifications.NewHandler(notifRepo)

	// Invitation engine and its collaborators
	jobQueue := queue.NewQueue(rdb.Client, logger)
	inviteLogs := invitations.NewLogRepository(pool)
	dispatcher := invitations.NewQueueDispatcher(jobQueue, inviteLogs, logger)
	inviteStores := invitations.NewSQLStores(pool)
	engine := invitations.NewEngine(inviteStores, dispatcher, relay, logger)
	inviteHandler := invitations.NewHandler(inviteStores, inviteLogs, inviteSigner, logger)

	// Organizations
	orgRepo := organizations.NewRepository(pool)
	orgHandler := organizations.NewHandler(orgRepo, engine, inviteLogs, s3Client, logger)

	// Events
	eventRepo := events.NewRepository(pool)
	eventHandler := events.NewHandler(eventRepo, orgRepo, engine, logger)

	// Posts
	postRepo := posts.NewRepository(pool)
	postHandler := posts.NewHandler(postRepo, eventRepo, orgRepo, relay, s3Client, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}

	// Invite accept (public; the signed token is the credential)
	router.POST("/invite/accept", inviteHandler.Accept)

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService.ValidateToken))
	{
		// Users
		api.GET("/me", authHandler.Me)
		api.GET("/users/by-role", middleware.RequireRole(string(models.RoleAdmin)), authHandler.UsersByRole)
		api.GET("/notifications", notifHandler.ListMine)

		// Organizations
		api.GET("/organizations", orgHandler.ListMine)
		api.POST("/organizations", orgHandler.Create)
		api.GET("/organizations/:id", orgHandler.Get)
		api.DELETE("/organizations/:id", orgHandler.Delete)
		api.GET("/organizations/:id/members", orgHandler.ListMembers)
		api.POST("/organizations/:id/invite", orgHandler.Invite)
		api.GET("/organizations/:id/invitations", orgHandler.ListInvitations)
		api.POST("/organizations/:id/image", orgHandler.UploadImage)

		// Events
		api.POST("/organizations/:id/events", eventHandler.Create)
		api.GET("/organizations/:id/events", eventHandler.ListByOrg)
		api.GET("/events/:id", eventHandler.Get)
		api.PATCH("/events/:id", eventHandler.Update)
		api.DELETE("/events/:id", eventHandler.Delete)
		api.GET("/events/:id/participants", eventHandler.ListParticipants)
		api.DELETE("/events/:id/participants/:userId", eventHandler.RemoveParticipant)
		api.POST("/events/:id/invite", eventHandler.Invite)

		// Posts
		api.POST("/events/:id/posts", postHandler.Create)
		api.GET("/events/:id/posts", postHandler.ListByEvent)
		api.POST("/events/:id/posts/generate-upload-url", postHandler.GenerateUploadURL)
		api.GET("/posts/:id", postHandler.Get)
		api.PATCH("/posts/:id/publish", postHandler.Publish)
		api.PATCH("/posts/:id/confirm", postHandler.Confirm)
	}

	// WebSocket (token in query; no Authorization header required)
	wsValidate := func(token string) (userID, role string, err error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return "", "", err
		}
		return claims.UserID.String(), claims.Role, nil
	}
	router.GET("/ws", realtime.ServeWs(hub, logger, wsValidate))

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
