package partitions

import (
	"context"
	"net/http"
	"strconv"
	"time"
)

// CaptureHeader is the response header that carries the wall-clock time, in
// epoch milliseconds, at which an entry was written. It is embedded in the
// stored response so it survives serialization in every backend.
const CaptureHeader = "sw-cache-date"

var (
	// DefaultSweepInterval is the default interval of the background
	// expired-entry sweep.
	DefaultSweepInterval = 10 * time.Minute
)

// Entry is one cached response: status, headers, and a fully buffered body.
// Entries are written whole and never mutated in place; an overwrite replaces
// the previous entry for the same key.
type Entry struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// CapturedAt returns the capture timestamp embedded in the entry's headers.
// A missing or malformed value reports ok=false; callers treat such entries
// as already expired.
func (e *Entry) CapturedAt() (time.Time, bool) {
	if e == nil || e.Header == nil {
		return time.Time{}, false
	}
	raw := e.Header.Get(CaptureHeader)
	if raw == "" {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// Store is the durable storage contract shared by all partition backends.
// A partition is a named, isolated collection of entries; a key written into
// one partition is never visible from another. Partitions are created lazily
// on first write.
type Store interface {
	// Match returns the entry stored under key in the named partition, or
	// ErrNoEntry if absent.
	Match(ctx context.Context, partition, key string) (*Entry, error)

	// Put stores the entry under key, replacing any previous entry.
	Put(ctx context.Context, partition, key string, e *Entry) error

	// Delete removes the entry under key. Deleting an absent key is not an
	// error.
	Delete(ctx context.Context, partition, key string) error

	// Keys enumerates the keys currently stored in the named partition.
	// The result is a finite snapshot, safe to re-request on each call.
	Keys(ctx context.Context, partition string) ([]string, error)

	// Partitions enumerates the names of all partitions that currently hold
	// at least one entry.
	Partitions(ctx context.Context) ([]string, error)

	// DeletePartition removes a partition and every entry it holds.
	DeletePartition(ctx context.Context, partition string) error
}
