//go:build !integration

package local

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhowell/go-offline-cache/queue"
)

func TestInsertGetDelete(t *testing.T) {
	t.Parallel()

	q := NewBasicQueue()
	ctx := context.Background()

	id1, err := q.Insert(ctx, queue.TableWorkouts, queue.NewRecord{Payload: json.RawMessage(`{"a":1}`)})
	require.NoError(t, err)
	id2, err := q.Insert(ctx, queue.TableWorkouts, queue.NewRecord{Payload: json.RawMessage(`{"a":2}`)})
	require.NoError(t, err)
	assert.Greater(t, id2, id1, "ids are monotonic")

	recs, err := q.GetAll(ctx, queue.TableWorkouts)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, `{"a":1}`, string(recs[0].Payload))
	assert.Equal(t, `{"a":2}`, string(recs[1].Payload))
	assert.False(t, recs[0].CreatedAt.IsZero(), "zero CreatedAt is stamped on insert")

	require.NoError(t, q.DeleteByID(ctx, queue.TableWorkouts, id1))
	recs, err = q.GetAll(ctx, queue.TableWorkouts)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, id2, recs[0].ID)

	// Deleting an absent id is a no-op.
	require.NoError(t, q.DeleteByID(ctx, queue.TableWorkouts, id1))
}

func TestTablesAreIndependent(t *testing.T) {
	t.Parallel()

	q := NewBasicQueue()
	ctx := context.Background()

	_, err := q.Insert(ctx, queue.TableWorkouts, queue.NewRecord{Payload: json.RawMessage(`{"workout":true}`)})
	require.NoError(t, err)
	_, err = q.Insert(ctx, queue.TableSets, queue.NewRecord{WorkoutID: "w1", Payload: json.RawMessage(`{"set":true}`)})
	require.NoError(t, err)

	workouts, err := q.GetAll(ctx, queue.TableWorkouts)
	require.NoError(t, err)
	sets, err := q.GetAll(ctx, queue.TableSets)
	require.NoError(t, err)

	assert.Len(t, workouts, 1)
	require.Len(t, sets, 1)
	assert.Equal(t, "w1", sets[0].WorkoutID)
}

func TestUnknownTable(t *testing.T) {
	t.Parallel()

	q := NewBasicQueue()
	ctx := context.Background()

	_, err := q.Insert(ctx, queue.Table("pending_naps"), queue.NewRecord{})
	assert.ErrorIs(t, err, queue.ErrUnknownTable)

	_, err = q.GetAll(ctx, queue.Table("pending_naps"))
	assert.ErrorIs(t, err, queue.ErrUnknownTable)
}
