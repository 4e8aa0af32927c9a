package listener

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/docsage/docsage/internal/core"
)

// notifyConn is the slice of pgx.Conn the listener needs; tests substitute a
// scripted fake through dialFunc.
type notifyConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
	Close(ctx context.Context) error
}

type dialFunc func(ctx context.Context) (notifyConn, error)

// Listener is the pull-variant change detector: a long-lived LISTEN
// subscription whose notifications carry new document ids. The only recovery
// contract is reconnection: any connection failure tears the whole
// subscription down and re-establishes it after a fixed delay, indefinitely.
type Listener struct {
	dial           dialFunc
	channel        string
	dispatcher     core.Dispatcher
	waitTimeout    time.Duration
	reconnectDelay time.Duration
	logger         *zap.Logger
}

func New(dsn, channel string, dispatcher core.Dispatcher, waitTimeout, reconnectDelay time.Duration, logger *zap.Logger) *Listener {
	return &Listener{
		dial: func(ctx context.Context) (notifyConn, error) {
			return pgx.Connect(ctx, dsn)
		},
		channel:        channel,
		dispatcher:     dispatcher,
		waitTimeout:    waitTimeout,
		reconnectDelay: reconnectDelay,
		logger:         logger,
	}
}

// Run blocks until ctx is cancelled, reconnecting on every connection loss.
func (l *Listener) Run(ctx context.Context) error {
	for {
		err := l.listenOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		l.logger.Error("listener connection lost",
			zap.Error(err), zap.Duration("retry_in", l.reconnectDelay))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.reconnectDelay):
		}
	}
}

// listenOnce holds one connection and subscription until it fails or ctx is
// cancelled. The bounded wait keeps the loop responsive to cancellation
// without ever spinning.
func (l *Listener) listenOnce(ctx context.Context) error {
	conn, err := l.dial(ctx)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = conn.Close(closeCtx)
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+l.channel); err != nil {
		return fmt.Errorf("listen on %s: %w", l.channel, err)
	}
	l.logger.Info("listening for document notifications", zap.String("channel", l.channel))

	for {
		waitCtx, cancel := context.WithTimeout(ctx, l.waitTimeout)
		notification, err := conn.WaitForNotification(waitCtx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, context.DeadlineExceeded) {
				// No notification within the window; still alive, keep waiting.
				continue
			}
			return fmt.Errorf("wait for notification: %w", err)
		}

		l.handle(ctx, notification)
	}
}

func (l *Listener) handle(ctx context.Context, n *pgconn.Notification) {
	documentID, err := strconv.ParseInt(n.Payload, 10, 64)
	if err != nil {
		l.logger.Warn("ignoring malformed notification payload",
			zap.String("channel", n.Channel), zap.String("payload", n.Payload))
		return
	}

	if err := l.dispatcher.Enqueue(ctx, documentID); err != nil {
		l.logger.Error("failed to dispatch document",
			zap.Int64("document_id", documentID), zap.Error(err))
		return
	}
	l.logger.Info("dispatched document", zap.Int64("document_id", documentID))
}
