package offlinecache

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/dhowell/go-offline-cache/queue"
)

// Sync tags, delivered by the application's connectivity-restoration signal.
const (
	TagWorkoutSync = "workout-sync"
	TagSetSync     = "set-sync"
)

// Sync drains one pending-write table against its remote endpoint. Records
// are posted in insertion order; a record is deleted only after the remote
// accepts it, and a failed record is left queued for the next trigger without
// aborting the rest of the batch. The drain is fire-and-forget: no status is
// reported back, and an unavailable queue makes it a silent no-op.
func (w *Worker) Sync(ctx context.Context, tag string) {
	switch tag {
	case TagWorkoutSync:
		w.drain(ctx, queue.TableWorkouts, w.cfg.WorkoutCompleteEndpoint)
	case TagSetSync:
		w.drain(ctx, queue.TableSets, w.cfg.SetCompleteEndpoint)
	default:
		w.logger.DebugContext(ctx, "ignoring unknown sync tag", "tag", tag)
	}
}

func (w *Worker) drain(ctx context.Context, table queue.Table, endpoint string) {
	recs, err := w.queue.GetAll(ctx, table)
	if err != nil {
		w.logger.WarnContext(ctx, "error reading pending writes", "table", string(table), "error", err)
		return
	}
	if len(recs) == 0 {
		return
	}

	w.logger.DebugContext(ctx, "draining pending writes",
		"table", string(table), "count", len(recs), "endpoint", endpoint)

	for _, rec := range recs {
		if !w.post(ctx, endpoint, rec.Payload) {
			w.logger.DebugContext(ctx, "sync post failed, leaving record queued",
				"table", string(table), "id", rec.ID)
			continue
		}

		if err := w.queue.DeleteByID(ctx, table, rec.ID); err != nil {
			w.logger.WarnContext(ctx, "error deleting synced record",
				"table", string(table), "id", rec.ID, "error", err)
		}
	}
}

// post sends one pending payload and reports whether the remote accepted it.
func (w *Worker) post(ctx context.Context, endpoint string, payload []byte) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.Origin+endpoint, bytes.NewReader(payload))
	if err != nil {
		w.logger.WarnContext(ctx, "error building sync request", "endpoint", endpoint, "error", err)
		return false
	}
	req.Header.Set(headerContentType, "application/json")

	resp, err := w.transport().RoundTrip(req)
	if err != nil {
		return false
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode <= 299
}
