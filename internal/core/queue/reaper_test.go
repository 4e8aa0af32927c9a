package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/docsage/docsage/internal/core"
	"github.com/docsage/docsage/internal/models"
)

type reaperDB struct {
	core.DbClient

	stuck    []int64
	scanErr  error
	failFor  int64
	statuses map[int64]string
	cutoffs  []time.Time
}

func (f *reaperDB) ListStuckProcessing(_ context.Context, olderThan time.Time) ([]int64, error) {
	f.cutoffs = append(f.cutoffs, olderThan)
	return f.stuck, f.scanErr
}

func (f *reaperDB) UpdateDocumentStatus(_ context.Context, id int64, status string) error {
	if id == f.failFor {
		return errors.New("row locked")
	}
	if f.statuses == nil {
		f.statuses = make(map[int64]string)
	}
	f.statuses[id] = status
	return nil
}

type stubDispatcher struct {
	err error
	ids []int64
}

func (d *stubDispatcher) Enqueue(_ context.Context, documentID int64) error {
	if d.err != nil {
		return d.err
	}
	d.ids = append(d.ids, documentID)
	return nil
}

func TestSweepRequeuesStuckDocuments(t *testing.T) {
	db := &reaperDB{stuck: []int64{3, 4}}
	d := &stubDispatcher{}
	r := NewReaper(db, d, time.Minute, 10*time.Minute, zap.NewNop())

	before := time.Now()
	r.Sweep(context.Background())

	assert.Equal(t, models.StatusPending, db.statuses[3])
	assert.Equal(t, models.StatusPending, db.statuses[4])
	assert.Equal(t, []int64{3, 4}, d.ids)

	// Cutoff sits one deadline in the past.
	assert.Len(t, db.cutoffs, 1)
	assert.WithinDuration(t, before.Add(-10*time.Minute), db.cutoffs[0], time.Second)
}

func TestSweepSkipsFailingDocument(t *testing.T) {
	db := &reaperDB{stuck: []int64{3, 4}, failFor: 3}
	d := &stubDispatcher{}
	r := NewReaper(db, d, time.Minute, 10*time.Minute, zap.NewNop())

	r.Sweep(context.Background())

	_, touched := db.statuses[3]
	assert.False(t, touched)
	assert.Equal(t, []int64{4}, d.ids, "one bad row must not block the rest")
}

func TestSweepScanFailure(t *testing.T) {
	db := &reaperDB{scanErr: errors.New("db down")}
	d := &stubDispatcher{}
	r := NewReaper(db, d, time.Minute, 10*time.Minute, zap.NewNop())

	r.Sweep(context.Background())
	assert.Empty(t, d.ids)
}

func TestSweepEnqueueFailure(t *testing.T) {
	db := &reaperDB{stuck: []int64{5}}
	d := &stubDispatcher{err: errors.New("redis unreachable")}
	r := NewReaper(db, d, time.Minute, 10*time.Minute, zap.NewNop())

	r.Sweep(context.Background())
	// Status already flipped; the next sweep will not see it as stuck, but the
	// pending-state is harmless and the document surfaces on manual reprocess.
	assert.Equal(t, models.StatusPending, db.statuses[5])
	assert.Empty(t, d.ids)
}
