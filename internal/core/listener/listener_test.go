package listener

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type waitResult struct {
	n   *pgconn.Notification
	err error
}

// fakeConn replays a script of WaitForNotification results, then blocks until
// the wait context expires like an idle connection would.
type fakeConn struct {
	mu      sync.Mutex
	listens []string
	script  []waitResult
	closed  bool
}

func (c *fakeConn) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listens = append(c.listens, sql)
	return pgconn.CommandTag{}, nil
}

func (c *fakeConn) WaitForNotification(ctx context.Context) (*pgconn.Notification, error) {
	c.mu.Lock()
	if len(c.script) > 0 {
		r := c.script[0]
		c.script = c.script[1:]
		c.mu.Unlock()
		return r.n, r.err
	}
	c.mu.Unlock()
	<-ctx.Done()
	return nil, ctx.Err()
}

func (c *fakeConn) Close(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

type recordingDispatcher struct {
	ids chan int64
}

func (d *recordingDispatcher) Enqueue(_ context.Context, documentID int64) error {
	d.ids <- documentID
	return nil
}

func newTestListener(dispatcher *recordingDispatcher, conns ...*fakeConn) (*Listener, *int) {
	dials := 0
	return &Listener{
		dial: func(_ context.Context) (notifyConn, error) {
			if dials >= len(conns) {
				return nil, errors.New("no more scripted connections")
			}
			conn := conns[dials]
			dials++
			return conn, nil
		},
		channel:        "new_document_channel",
		dispatcher:     dispatcher,
		waitTimeout:    50 * time.Millisecond,
		reconnectDelay: 10 * time.Millisecond,
		logger:         zap.NewNop(),
	}, &dials
}

func TestListenerDispatchesNotifications(t *testing.T) {
	conn := &fakeConn{script: []waitResult{
		{n: &pgconn.Notification{Channel: "new_document_channel", Payload: "42"}},
		{n: &pgconn.Notification{Channel: "new_document_channel", Payload: "43"}},
	}}
	d := &recordingDispatcher{ids: make(chan int64, 8)}
	l, _ := newTestListener(d, conn)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	assert.Equal(t, int64(42), <-d.ids)
	assert.Equal(t, int64(43), <-d.ids)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, []string{"LISTEN new_document_channel"}, conn.listens)
}

func TestListenerReconnectsOnConnectionLoss(t *testing.T) {
	broken := &fakeConn{script: []waitResult{
		{err: errors.New("unexpected EOF")},
	}}
	healthy := &fakeConn{script: []waitResult{
		{n: &pgconn.Notification{Channel: "new_document_channel", Payload: "7"}},
	}}
	d := &recordingDispatcher{ids: make(chan int64, 8)}
	l, dials := newTestListener(d, broken, healthy)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	select {
	case id := <-d.ids:
		assert.Equal(t, int64(7), id)
	case <-time.After(2 * time.Second):
		t.Fatal("notification never dispatched after reconnect")
	}

	cancel()
	<-done
	assert.Equal(t, 2, *dials, "connection failure must tear down and redial")
	assert.True(t, broken.closed, "broken connection must be closed")
	assert.Equal(t, []string{"LISTEN new_document_channel"}, healthy.listens)
}

func TestListenerSkipsMalformedPayload(t *testing.T) {
	conn := &fakeConn{script: []waitResult{
		{n: &pgconn.Notification{Channel: "new_document_channel", Payload: "not-a-number"}},
		{n: &pgconn.Notification{Channel: "new_document_channel", Payload: "99"}},
	}}
	d := &recordingDispatcher{ids: make(chan int64, 8)}
	l, _ := newTestListener(d, conn)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	assert.Equal(t, int64(99), <-d.ids, "malformed payloads are skipped, later ones still flow")
	cancel()
	<-done
}

func TestListenerIdleTimeoutKeepsConnection(t *testing.T) {
	conn := &fakeConn{script: []waitResult{
		{err: context.DeadlineExceeded},
		{err: context.DeadlineExceeded},
		{n: &pgconn.Notification{Channel: "new_document_channel", Payload: "5"}},
	}}
	d := &recordingDispatcher{ids: make(chan int64, 8)}
	l, dials := newTestListener(d, conn)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	assert.Equal(t, int64(5), <-d.ids)
	cancel()
	<-done
	assert.Equal(t, 1, *dials, "an idle wait timeout must not trigger a reconnect")
}
