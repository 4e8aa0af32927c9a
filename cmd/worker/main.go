package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/docsage/docsage/internal/app"
	"github.com/docsage/docsage/internal/config"
	"github.com/docsage/docsage/internal/core/ingestion"
	"github.com/docsage/docsage/internal/core/queue"
)

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
	clients, err := app.NewClients(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}
	defer clients.Close()

	chunker, err := ingestion.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		logger.Fatal("invalid chunking configuration", zap.Error(err))
	}

	processor := ingestion.NewProcessor(
		clients.DB,
		clients.Object,
		clients.Embedder,
		ingestion.NewPDFExtractor(),
		chunker,
		ingestion.Config{
			MinChunkRunes:   cfg.MinChunkRunes,
			InsertBatchSize: cfg.InsertBatchSize,
			EmbedDim:        cfg.EmbedDim,
		},
		logger,
	)

	consumer, err := queue.NewConsumer(clients.Queue, processor, cfg.WorkerCount, logger)
	if err != nil {
		logger.Fatal("consumer setup failed", zap.Error(err))
	}
	reaper := queue.NewReaper(clients.DB, clients.Queue, cfg.ReaperInterval, cfg.ReaperDeadline, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return consumer.Run(gctx) })
	g.Go(func() error { return reaper.Run(gctx) })

	logger.Info("worker running", zap.Int("workers", cfg.WorkerCount))
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("worker stopped", zap.Error(err))
	}
	logger.Info("worker shut down")
}
