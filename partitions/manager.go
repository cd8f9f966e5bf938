package partitions

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// Manager fronts a Store with the degradation policy the request path needs:
// every storage failure is logged and absorbed, so callers see a miss, an
// empty enumeration, or a dropped write instead of an error. A resource that
// cannot be cached is simply always fetched fresh.
//
// Put stamps each entry with the current wall-clock time under CaptureHeader
// before it reaches the backend, so expiration checks work uniformly across
// backends and restarts.
type Manager struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// NewManager wraps store. If now is nil, time.Now is used. If logger is nil,
// logging is discarded.
func NewManager(store Store, now func() time.Time, logger *slog.Logger) *Manager {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{store: store, now: now, logger: logger}
}

// Store exposes the underlying backend, for callers that need raw error
// semantics (eg. setup and diagnostics) rather than the degrading path.
func (m *Manager) Store() Store {
	return m.store
}

// Match returns the entry under key, or ok=false on a miss or any storage
// failure.
func (m *Manager) Match(ctx context.Context, partition, key string) (*Entry, bool) {
	e, err := m.store.Match(ctx, partition, key)
	if err != nil {
		return nil, false
	}
	return e, true
}

// Put stamps and stores the entry. Failures are logged and dropped.
func (m *Manager) Put(ctx context.Context, partition, key string, e *Entry) {
	stamped := &Entry{
		StatusCode: e.StatusCode,
		Header:     cloneHeader(e.Header),
		Body:       e.Body,
	}
	stamped.Header.Set(CaptureHeader, strconv.FormatInt(m.now().UnixMilli(), 10))

	if err := m.store.Put(ctx, partition, key, stamped); err != nil {
		m.logger.WarnContext(ctx, "error writing partition entry",
			"partition", partition, "key", key, "error", err)
	}
}

// Delete removes the entry under key. Failures are logged and dropped.
func (m *Manager) Delete(ctx context.Context, partition, key string) {
	if err := m.store.Delete(ctx, partition, key); err != nil {
		m.logger.WarnContext(ctx, "error deleting partition entry",
			"partition", partition, "key", key, "error", err)
	}
}

// Keys enumerates the partition's keys, or nothing on failure.
func (m *Manager) Keys(ctx context.Context, partition string) []string {
	keys, err := m.store.Keys(ctx, partition)
	if err != nil {
		m.logger.WarnContext(ctx, "error enumerating partition keys",
			"partition", partition, "error", err)
		return nil
	}
	return keys
}

// Partitions enumerates all partition names, or nothing on failure.
func (m *Manager) Partitions(ctx context.Context) []string {
	names, err := m.store.Partitions(ctx)
	if err != nil {
		m.logger.WarnContext(ctx, "error enumerating partitions", "error", err)
		return nil
	}
	return names
}

// DeletePartition removes a partition wholesale. Failures are logged and
// dropped.
func (m *Manager) DeletePartition(ctx context.Context, partition string) {
	if err := m.store.DeletePartition(ctx, partition); err != nil {
		m.logger.WarnContext(ctx, "error deleting partition",
			"partition", partition, "error", err)
	}
}

func cloneHeader(h http.Header) http.Header {
	out := make(http.Header, len(h)+1)
	for k, vs := range h {
		out[k] = append([]string(nil), vs...)
	}
	return out
}
