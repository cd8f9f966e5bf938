package local

import (
	"context"
	"sync"
	"time"

	"github.com/dhowell/go-offline-cache/queue"
)

// BasicQueue is an in-memory write queue. Records do not survive a restart,
// which makes it suitable for tests and little else.
type BasicQueue struct {
	tables map[queue.Table][]queue.Record
	nextID int64

	lock sync.Mutex
}

func (bq *BasicQueue) Insert(_ context.Context, t queue.Table, rec queue.NewRecord) (int64, error) {
	bq.lock.Lock()
	defer bq.lock.Unlock()

	if !knownTable(t) {
		return 0, queue.ErrUnknownTable
	}

	bq.nextID++
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	bq.tables[t] = append(bq.tables[t], queue.Record{
		ID:        bq.nextID,
		WorkoutID: rec.WorkoutID,
		Payload:   rec.Payload,
		CreatedAt: createdAt,
	})

	return bq.nextID, nil
}

func (bq *BasicQueue) GetAll(_ context.Context, t queue.Table) ([]queue.Record, error) {
	bq.lock.Lock()
	defer bq.lock.Unlock()

	if !knownTable(t) {
		return nil, queue.ErrUnknownTable
	}

	return append([]queue.Record(nil), bq.tables[t]...), nil
}

func (bq *BasicQueue) DeleteByID(_ context.Context, t queue.Table, id int64) error {
	bq.lock.Lock()
	defer bq.lock.Unlock()

	if !knownTable(t) {
		return queue.ErrUnknownTable
	}

	recs := bq.tables[t]
	for i, rec := range recs {
		if rec.ID == id {
			bq.tables[t] = append(recs[:i:i], recs[i+1:]...)
			break
		}
	}
	return nil
}

func knownTable(t queue.Table) bool {
	return t == queue.TableWorkouts || t == queue.TableSets
}

func NewBasicQueue() *BasicQueue {
	return &BasicQueue{
		tables: make(map[queue.Table][]queue.Record),
	}
}
