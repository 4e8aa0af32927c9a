package queue

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/docsage/docsage/internal/core"
	"github.com/docsage/docsage/internal/models"
)

// Reaper requeues documents stuck in PROCESSING past a deadline. A crash
// between pipeline steps leaves no queue entry behind, so without this sweep
// such documents would wait for manual intervention forever.
type Reaper struct {
	db         core.DbClient
	dispatcher core.Dispatcher
	interval   time.Duration
	deadline   time.Duration
	logger     *zap.Logger
}

func NewReaper(db core.DbClient, d core.Dispatcher, interval, deadline time.Duration, logger *zap.Logger) *Reaper {
	return &Reaper{db: db, dispatcher: d, interval: interval, deadline: deadline, logger: logger}
}

// Run sweeps periodically until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep flips stuck documents back to PENDING and re-enqueues them. Errors on
// individual documents are logged and skipped; the next sweep retries them.
func (r *Reaper) Sweep(ctx context.Context) {
	cutoff := time.Now().Add(-r.deadline)
	ids, err := r.db.ListStuckProcessing(ctx, cutoff)
	if err != nil {
		r.logger.Error("stuck-document scan failed", zap.Error(err))
		return
	}

	for _, id := range ids {
		if err := r.db.UpdateDocumentStatus(ctx, id, models.StatusPending); err != nil {
			r.logger.Error("failed to reset stuck document",
				zap.Int64("document_id", id), zap.Error(err))
			continue
		}
		if err := r.dispatcher.Enqueue(ctx, id); err != nil {
			r.logger.Error("failed to requeue stuck document",
				zap.Int64("document_id", id), zap.Error(err))
			continue
		}
		r.logger.Warn("requeued stuck document", zap.Int64("document_id", id))
	}
}
