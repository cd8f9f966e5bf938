package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Table names one of the two pending-write tables. Each table is append-only:
// records are inserted and deleted, never updated in place. A retry happens
// by leaving the record queued for the next drain, not by rewriting it.
type Table string

const (
	// TableWorkouts holds workout completions recorded while offline.
	TableWorkouts Table = "pending_workouts"
	// TableSets holds individual set completions recorded while offline.
	TableSets Table = "pending_sets"
)

var (
	ErrUnknownTable = errors.New("unknown queue table")
)

// Record is one not-yet-acknowledged mutation waiting to be applied remotely.
type Record struct {
	ID        int64
	WorkoutID string // parent workout, set completions only
	Payload   json.RawMessage
	CreatedAt time.Time
}

// NewRecord is the insert shape for a pending write. A zero CreatedAt is
// stamped by the queue at insert time.
type NewRecord struct {
	WorkoutID string
	Payload   json.RawMessage
	CreatedAt time.Time
}

// Queue is the durable write queue contract. Implementations persist records
// across process restarts; enumeration follows insertion (id) order.
type Queue interface {
	// Insert appends a record and returns its assigned id.
	Insert(ctx context.Context, t Table, rec NewRecord) (int64, error)

	// GetAll returns every record currently queued in the table, in id order.
	// The result is a finite snapshot; it is safe to call again after a drain.
	GetAll(ctx context.Context, t Table) ([]Record, error)

	// DeleteByID removes one record. Deleting an absent id is not an error.
	DeleteByID(ctx context.Context, t Table, id int64) error
}

// Unavailable returns a Queue whose operations all succeed as no-ops: inserts
// are dropped, reads come back empty, deletes do nothing. It stands in when
// durable storage cannot be opened, so callers degrade instead of failing.
func Unavailable() Queue {
	return unavailable{}
}

type unavailable struct{}

func (unavailable) Insert(context.Context, Table, NewRecord) (int64, error) {
	return 0, nil
}

func (unavailable) GetAll(context.Context, Table) ([]Record, error) {
	return nil, nil
}

func (unavailable) DeleteByID(context.Context, Table, int64) error {
	return nil
}
