package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DocumentProcessor is the worker-side pipeline for one document.
type DocumentProcessor interface {
	Process(ctx context.Context, documentID int64) error
}

const (
	popTimeout = 5 * time.Second
	jobTimeout = 5 * time.Minute
)

// Consumer pulls jobs off the queue and fans them out to a bounded worker
// pool. Two consumers may receive the same redelivered job; the processor is
// written to tolerate that.
type Consumer struct {
	queue     *TaskQueue
	processor DocumentProcessor
	pool      *ants.Pool
	logger    *zap.Logger
}

func NewConsumer(q *TaskQueue, proc DocumentProcessor, workers int, logger *zap.Logger) (*Consumer, error) {
	if workers < 1 {
		workers = 1
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	return &Consumer{queue: q, processor: proc, pool: pool, logger: logger}, nil
}

// Run blocks consuming jobs until ctx is cancelled, then waits for in-flight
// jobs before returning.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.queue.Recover(ctx); err != nil {
		return err
	}

	c.logger.Info("consuming jobs",
		zap.String("queue", c.queue.name), zap.Int("workers", c.pool.Cap()))

	var wg sync.WaitGroup
	defer func() {
		wg.Wait()
		c.pool.Release()
	}()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		payload, err := c.queue.rdb.BRPopLPush(ctx, c.queue.name, c.queue.processingList(), popTimeout).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("queue pop failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}

		docID, err := strconv.ParseInt(payload, 10, 64)
		if err != nil {
			c.logger.Warn("discarding malformed job payload", zap.String("payload", payload))
			c.queue.ack(ctx, payload)
			continue
		}

		wg.Add(1)
		submitErr := c.pool.Submit(func() {
			defer wg.Done()
			c.handle(payload, docID)
		})
		if submitErr != nil {
			wg.Done()
			c.logger.Error("pool submit failed", zap.Int64("document_id", docID), zap.Error(submitErr))
			// Leave the payload in the processing list; Recover picks it up
			// on the next start.
		}
	}
}

func (c *Consumer) handle(payload string, docID int64) {
	jobCtx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	c.logger.Info("processing document", zap.Int64("document_id", docID))
	if err := c.processor.Process(jobCtx, docID); err != nil {
		// The failure is recorded on the document row; the job itself is
		// acknowledged, matching no-auto-retry broker behaviour.
		c.logger.Error("document processing failed",
			zap.Int64("document_id", docID), zap.Error(err))
	}

	ackCtx, ackCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer ackCancel()
	c.queue.ack(ackCtx, payload)
}
