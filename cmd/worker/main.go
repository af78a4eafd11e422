// Package main runs the background job worker (invitation email delivery).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eventhive/backend/config"
	"github.com/eventhive/backend/internal/invitations"
	"github.com/eventhive/backend/internal/worker"
	"github.com/eventhive/backend/pkg/database"
	"github.com/eventhive/backend/pkg/mailer"
	"github.com/eventhive/backend/pkg/queue"
	"github.com/eventhive/backend/pkg/redis"
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

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	mail, err := mailer.New(mailer.Config{
		Host:        cfg.Email.SMTPHost,
		Port:        cfg.Email.SMTPPort,
		Username:    cfg.Email.SMTPUser,
		Password:    cfg.Email.SMTPPass,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
	}, logger)
	if err != nil {
		logger.Fatal("mailer", zap.Error(err))
	}

	inviteLogs := invitations.NewLogRepository(pool)
	inviteSigner := invitations.NewTokenSigner(cfg.JWT.Secret, time.Duration(cfg.App.InviteTokenTTLHours)*time.Hour)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	processor := worker.NewInviteProcessor(mail, inviteLogs, inviteSigner, jobQueue, cfg.App.BaseURL, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go processor.Run(workerCtx)
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	time.Sleep(2 * time.Second)
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
