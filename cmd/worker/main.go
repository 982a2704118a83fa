package main

import (
	"context"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/horizon-travel/tourbook/config"
	"github.com/horizon-travel/tourbook/internal/emaillogs"
	"github.com/horizon-travel/tourbook/internal/mailer"
	"github.com/horizon-travel/tourbook/internal/worker"
	"github.com/horizon-travel/tourbook/pkg/database"
	"github.com/horizon-travel/tourbook/pkg/queue"
	redisclient "github.com/horizon-travel/tourbook/pkg/redis"
)

func newLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redisclient.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("connect redis", zap.Error(err))
	}
	defer rdb.Close()

	processor := worker.NewEmailProcessor(
		queue.NewQueue(rdb.Client, logger),
		mailer.New(cfg.Email, logger),
		emaillogs.NewRepository(pool),
		logger,
	)
	processor.Run(ctx)
}
