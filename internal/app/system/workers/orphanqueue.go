// internal/app/system/workers/orphanqueue.go
package workers

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"spedhub/internal/app/system/metrics"
)

// InstanceDeleter is the slice of the session store the queue needs.
type InstanceDeleter interface {
	DeleteInstances(ctx context.Context, ids []primitive.ObjectID) (int64, error)
}

// OrphanQueue deletes orphaned instance rows off the request path. The
// materializer hands it ids via Discard and moves on; the worker deletes in
// batches. The queue is bounded and lossy on purpose: a dropped or failed id
// is re-detected as an orphan on the next calendar read, so no retry state
// is kept here. A row deleted by a racing worker is counted as success.
type OrphanQueue struct {
	store  InstanceDeleter
	log    *zap.Logger
	ch     chan primitive.ObjectID
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewOrphanQueue creates a queue holding up to buffer pending ids.
func NewOrphanQueue(store InstanceDeleter, logger *zap.Logger, buffer int) *OrphanQueue {
	if buffer <= 0 {
		buffer = 256
	}
	return &OrphanQueue{
		store:  store,
		log:    logger,
		ch:     make(chan primitive.ObjectID, buffer),
		stopCh: make(chan struct{}),
	}
}

// Start begins the background deletion loop.
func (q *OrphanQueue) Start() {
	q.wg.Add(1)
	go q.run()
	q.log.Info("orphan cleanup queue started", zap.Int("buffer", cap(q.ch)))
}

// Stop drains nothing and waits for the worker to exit. Pending ids are
// dropped; re-detection picks them back up.
func (q *OrphanQueue) Stop() {
	close(q.stopCh)
	q.wg.Wait()
	q.log.Info("orphan cleanup queue stopped")
}

// Discard enqueues ids without blocking. Ids that do not fit are dropped.
func (q *OrphanQueue) Discard(ids []primitive.ObjectID) {
	for _, id := range ids {
		select {
		case q.ch <- id:
		default:
			q.log.Debug("orphan queue full; dropping id", zap.String("id", id.Hex()))
			return
		}
	}
}

func (q *OrphanQueue) run() {
	defer q.wg.Done()
	for {
		select {
		case <-q.stopCh:
			return
		case first := <-q.ch:
			q.deleteBatch(q.drain(first))
		}
	}
}

// drain collects whatever else is already queued behind first.
func (q *OrphanQueue) drain(first primitive.ObjectID) []primitive.ObjectID {
	batch := []primitive.ObjectID{first}
	for {
		select {
		case id := <-q.ch:
			batch = append(batch, id)
		default:
			return batch
		}
	}
}

func (q *OrphanQueue) deleteBatch(ids []primitive.ObjectID) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := q.store.DeleteInstances(ctx, ids)
	if err != nil {
		q.log.Error("orphan cleanup: delete failed",
			zap.Int("batch", len(ids)), zap.Error(err))
		return
	}
	metrics.OrphansDeleted.Add(float64(n))
	if n > 0 {
		q.log.Info("orphan cleanup: deleted instances",
			zap.Int64("deleted", n), zap.Int("batch", len(ids)))
	}
}
