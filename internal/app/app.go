package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/docsage/docsage/internal/config"
	"github.com/docsage/docsage/internal/core"
	db "github.com/docsage/docsage/internal/core/database"
	"github.com/docsage/docsage/internal/core/llm"
	objectclient "github.com/docsage/docsage/internal/core/object-client"
	"github.com/docsage/docsage/internal/core/queue"
	"github.com/docsage/docsage/internal/core/rag"
)

// Clients holds the process-wide external clients, constructed once at
// startup and passed explicitly into pipeline components.
type Clients struct {
	DB       core.DbClient
	Object   core.ObjectClient
	Redis    *redis.Client
	Queue    *queue.TaskQueue
	Embedder *llm.GeminiEmbedder
	LLM      *llm.GeminiLLM
}

// NewClients connects everything the binaries share.
func NewClients(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Clients, error) {
	initCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	dbClient, err := db.NewDatabaseClient(initCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	logger.Info("database initialized and ready")

	objClient, err := objectclient.NewS3Client(initCtx, cfg)
	if err != nil {
		_ = dbClient.Close()
		return nil, fmt.Errorf("object storage: %w", err)
	}
	logger.Info("object client initialized and ready")

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err := rdb.Ping(initCtx).Err(); err != nil {
		_ = dbClient.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}
	logger.Info("redis connected", zap.String("addr", cfg.RedisAddr))

	embedder, err := llm.NewGeminiEmbedder(initCtx, cfg.AIAPIKey, cfg.EmbedModel)
	if err != nil {
		_ = dbClient.Close()
		_ = rdb.Close()
		return nil, fmt.Errorf("embedder: %w", err)
	}

	llmProvider, err := llm.NewGeminiLLM(initCtx, cfg.AIAPIKey, cfg.GenModel)
	if err != nil {
		_ = dbClient.Close()
		_ = rdb.Close()
		_ = embedder.Close()
		return nil, fmt.Errorf("llm: %w", err)
	}

	return &Clients{
		DB:       dbClient,
		Object:   objClient,
		Redis:    rdb,
		Queue:    queue.NewTaskQueue(rdb, cfg.QueueName, logger),
		Embedder: embedder,
		LLM:      llmProvider,
	}, nil
}

func (c *Clients) Close() {
	if c.DB != nil {
		_ = c.DB.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.LLM != nil {
		_ = c.LLM.Close()
	}
}

// NewRAGPipeline wires the retrieval-and-answer flow.
func NewRAGPipeline(c *Clients, cfg *config.Config, logger *zap.Logger) *rag.Pipeline {
	return rag.NewPipeline(c.DB, c.Embedder, c.LLM, cfg.MatchThreshold, cfg.MatchCount, logger)
}
