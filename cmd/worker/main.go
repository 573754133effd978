// Package main runs the background worker: queued email resends and Telegram alerts for confirmed registrations.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aura-training/backend/config"
	"github.com/aura-training/backend/internal/alerts"
	"github.com/aura-training/backend/internal/emaillogs"
	"github.com/aura-training/backend/internal/worker"
	"github.com/aura-training/backend/pkg/database"
	"github.com/aura-training/backend/pkg/events"
	"github.com/aura-training/backend/pkg/mailer"
	"github.com/aura-training/backend/pkg/queue"
	"github.com/aura-training/backend/pkg/redis"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var transport worker.Transport
	if cfg.Email.SMTPHost != "" {
		transport = mailer.NewSMTP(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.SMTPUser, cfg.Email.SMTPPass,
			cfg.Email.FromAddress, cfg.Email.FromName, logger)
	} else {
		transport = mailer.NewLogTransport(logger)
	}
	processor := worker.NewEmailProcessor(queue.NewQueue(rdb.Client, logger), transport, emaillogs.NewRepository(pool), logger)

	telegram, err := alerts.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.AdminChatID, logger)
	if err != nil {
		logger.Fatal("telegram", zap.Error(err))
	}
	consumer := events.NewConsumer(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		processor.Run(workerCtx)
	}()
	go func() {
		defer wg.Done()
		err := consumer.Run(workerCtx, worker.ConfirmedHandler(telegram, logger))
		if errors.Is(err, events.ErrDisabled) {
			logger.Warn("RABBITMQ_URL not set; confirmed-registration alerts disabled")
		}
	}()
	logger.Info("worker started", zap.Bool("telegram_alerts", telegram.Enabled()))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	wg.Wait()
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
