package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/docsage/docsage/internal/config"
	"github.com/docsage/docsage/internal/core/listener"
	"github.com/docsage/docsage/internal/core/queue"
)

// The listener is deliberately light: it needs Redis for dispatch and a
// dedicated Postgres connection for LISTEN, nothing else.
func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		<-c
		cancel()
	}()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	cfg := config.LoadConfig()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("redis connection failed", zap.Error(err))
	}
	defer rdb.Close()

	taskQueue := queue.NewTaskQueue(rdb, cfg.QueueName, logger)
	l := listener.New(cfg.DatabaseURL, cfg.ListenChannel, taskQueue,
		cfg.ListenTimeout, cfg.ReconnectDelay, logger)

	logger.Info("starting database notification listener",
		zap.String("channel", cfg.ListenChannel))
	if err := l.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("listener stopped", zap.Error(err))
	}
	logger.Info("listener shut down")
}
