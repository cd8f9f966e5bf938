package offlinecache

import (
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dhowell/go-offline-cache/partitions"
)

func stampedEntry(capturedAt time.Time) *partitions.Entry {
	h := make(http.Header)
	h.Set(partitions.CaptureHeader, strconv.FormatInt(capturedAt.UnixMilli(), 10))
	return &partitions.Entry{StatusCode: http.StatusOK, Header: h}
}

func malformedEntry() *partitions.Entry {
	h := make(http.Header)
	h.Set(partitions.CaptureHeader, "not-a-number")
	return &partitions.Entry{StatusCode: http.StatusOK, Header: h}
}

func TestIsExpired(t *testing.T) {
	t.Parallel()

	capturedAt := time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)
	ttl := 5 * time.Minute

	tests := []struct {
		name    string
		entry   *partitions.Entry
		ttl     time.Duration
		now     time.Time
		expired bool
	}{
		{
			name:    "fresh just inside ttl",
			entry:   stampedEntry(capturedAt),
			ttl:     ttl,
			now:     capturedAt.Add(ttl - time.Millisecond),
			expired: false,
		},
		{
			name:    "expired just outside ttl",
			entry:   stampedEntry(capturedAt),
			ttl:     ttl,
			now:     capturedAt.Add(ttl + time.Millisecond),
			expired: true,
		},
		{
			name:    "exactly at ttl boundary is still fresh",
			entry:   stampedEntry(capturedAt),
			ttl:     ttl,
			now:     capturedAt.Add(ttl),
			expired: false,
		},
		{
			name:    "missing timestamp is always expired",
			entry:   &partitions.Entry{StatusCode: http.StatusOK, Header: make(http.Header)},
			ttl:     ttl,
			now:     capturedAt,
			expired: true,
		},
		{
			name:    "malformed timestamp is always expired",
			entry:   malformedEntry(),
			ttl:     ttl,
			now:     capturedAt,
			expired: true,
		},
		{
			name:    "zero ttl never expires a stamped entry",
			entry:   stampedEntry(capturedAt),
			ttl:     0,
			now:     capturedAt.Add(1000 * time.Hour),
			expired: false,
		},
		{
			name:    "zero ttl still expires an unstamped entry",
			entry:   &partitions.Entry{StatusCode: http.StatusOK},
			ttl:     0,
			now:     capturedAt,
			expired: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expired, IsExpired(tt.entry, tt.ttl, tt.now))
		})
	}
}
