// Package main closes sessions whose start date has passed. Run it from cron; it is safe to run repeatedly.
package main

import (
	"context"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aura-training/backend/config"
	"github.com/aura-training/backend/internal/activity"
	"github.com/aura-training/backend/internal/realtime"
	"github.com/aura-training/backend/internal/sessions"
	"github.com/aura-training/backend/pkg/database"
	"github.com/aura-training/backend/pkg/redis"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), 2, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	ledger := sessions.NewLedger(sessions.NewRepository(pool), 0, logger)
	if rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger); err != nil {
		logger.Warn("redis unavailable; admin feed will not be notified", zap.Error(err))
	} else {
		defer rdb.Close()
		// Publish-only hub: connected admins live on the server instances.
		feed := realtime.NewHub(logger, realtime.NewRedisPubSub(rdb.Client, logger), nil)
		ledger = ledger.WithAnnouncer(activity.NewFanout(nil, feed, logger))
	}

	n, err := ledger.ClosePastSessions(ctx, time.Now())
	if err != nil {
		logger.Fatal("close past sessions", zap.Error(err))
	}
	logger.Info("past sessions closed", zap.Int64("updated_count", n))
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
