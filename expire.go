package offlinecache

import (
	"time"

	"github.com/dhowell/go-offline-cache/partitions"
)

// IsExpired reports whether a cached entry has outlived its TTL at the given
// instant. An entry with a missing or unreadable capture timestamp is always
// expired; the caller has a network or stale-return fallback, so a bad
// timestamp is never an error. A non-positive ttl means the entry does not
// age out.
func IsExpired(e *partitions.Entry, ttl time.Duration, now time.Time) bool {
	capturedAt, ok := e.CapturedAt()
	if !ok {
		return true
	}
	if ttl <= 0 {
		return false
	}
	return now.Sub(capturedAt) > ttl
}
