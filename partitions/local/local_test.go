//go:build !integration

package local

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhowell/go-offline-cache/partitions"
)

func entry(body string) *partitions.Entry {
	return &partitions.Entry{
		StatusCode: http.StatusOK,
		Header:     make(http.Header),
		Body:       []byte(body),
	}
}

func TestPartitionIsolation(t *testing.T) {
	t.Parallel()

	store := NewBasicStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "images-v4", "/api/workouts", entry("image bytes")))

	_, err := store.Match(ctx, "api-v4", "/api/workouts")
	assert.ErrorIs(t, err, partitions.ErrNoEntry, "identical key must not cross partitions")

	got, err := store.Match(ctx, "images-v4", "/api/workouts")
	require.NoError(t, err)
	assert.Equal(t, "image bytes", string(got.Body))
}

func TestOverwriteReplacesEntry(t *testing.T) {
	t.Parallel()

	store := NewBasicStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "api-v4", "/api/workouts", entry("first")))
	require.NoError(t, store.Put(ctx, "api-v4", "/api/workouts", entry("second")))

	got, err := store.Match(ctx, "api-v4", "/api/workouts")
	require.NoError(t, err)
	assert.Equal(t, "second", string(got.Body))

	keys, err := store.Keys(ctx, "api-v4")
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}

func TestKeysAreReEnumerable(t *testing.T) {
	t.Parallel()

	store := NewBasicStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "static-v4", "/", entry("home")))
	require.NoError(t, store.Put(ctx, "static-v4", "/offline", entry("offline")))

	first, err := store.Keys(ctx, "static-v4")
	require.NoError(t, err)
	second, err := store.Keys(ctx, "static-v4")
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"/", "/offline"}, first)
	assert.ElementsMatch(t, first, second)
}

func TestDeletePartition(t *testing.T) {
	t.Parallel()

	store := NewBasicStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "static-v3", "/", entry("old")))
	require.NoError(t, store.Put(ctx, "static-v4", "/", entry("new")))

	require.NoError(t, store.DeletePartition(ctx, "static-v3"))

	names, err := store.Partitions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"static-v4"}, names)

	_, err = store.Match(ctx, "static-v3", "/")
	assert.ErrorIs(t, err, partitions.ErrNoEntry)
}

func TestDeleteAbsentKeyIsNoError(t *testing.T) {
	t.Parallel()

	store := NewBasicStore()
	ctx := context.Background()

	assert.NoError(t, store.Delete(ctx, "static-v4", "/nope"))
	assert.NoError(t, store.DeletePartition(ctx, "nope-v4"))
}
