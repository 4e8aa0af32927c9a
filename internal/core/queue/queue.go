package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// TaskQueue is a durable, at-least-once work queue on a Redis list. Dispatch
// is LPUSH; consumption moves payloads into a per-queue processing list until
// acknowledged, so a worker crash leaves the job recoverable instead of lost.
type TaskQueue struct {
	rdb    *redis.Client
	name   string
	logger *zap.Logger
}

func NewTaskQueue(rdb *redis.Client, name string, logger *zap.Logger) *TaskQueue {
	return &TaskQueue{rdb: rdb, name: name, logger: logger}
}

// Enqueue publishes a document id for background processing. Errors propagate
// to the caller: a dropped job would leave the document PENDING forever.
func (q *TaskQueue) Enqueue(ctx context.Context, documentID int64) error {
	payload := strconv.FormatInt(documentID, 10)
	if err := q.rdb.LPush(ctx, q.name, payload).Err(); err != nil {
		return fmt.Errorf("enqueue document %d: %w", documentID, err)
	}
	return nil
}

func (q *TaskQueue) processingList() string {
	return q.name + ":processing"
}

// Recover moves payloads orphaned in the processing list (a worker died
// mid-job) back onto the queue. Called once at consumer startup.
func (q *TaskQueue) Recover(ctx context.Context) error {
	for {
		payload, err := q.rdb.RPopLPush(ctx, q.processingList(), q.name).Result()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("recover in-flight jobs: %w", err)
		}
		q.logger.Warn("requeued orphaned job", zap.String("payload", payload))
	}
}

func (q *TaskQueue) ack(ctx context.Context, payload string) {
	if err := q.rdb.LRem(ctx, q.processingList(), 1, payload).Err(); err != nil {
		q.logger.Error("failed to ack job", zap.String("payload", payload), zap.Error(err))
	}
}
