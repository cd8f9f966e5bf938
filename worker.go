package offlinecache

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dhowell/go-offline-cache/partitions"
	"github.com/dhowell/go-offline-cache/queue"
)

// Message is the narrow control protocol the worker accepts from the
// application it serves.
type Message struct {
	Type    string          `json:"type"`
	Workout json.RawMessage `json:"workout,omitempty"`
	Tag     string          `json:"tag,omitempty"`
}

const (
	// MessageSkipWaiting activates the worker immediately, skipping the
	// normal staged rollover.
	MessageSkipWaiting = "SKIP_WAITING"
	// MessageCacheWorkout writes a workout payload straight into the
	// workout-data partition, bypassing the fetch-triggered path.
	MessageCacheWorkout = "CACHE_WORKOUT"
	// MessageSyncRequest runs a named sync job now.
	MessageSyncRequest = "SYNC_REQUEST"
)

// Worker implements http.RoundTripper and keeps a client usable without
// network access: intercepted same-origin GETs are classified and served
// through per-class retrieval strategies backed by named cache partitions,
// and writes queued while offline are drained to the remote API when a sync
// signal arrives.
//
// It is the Go analogue of a fetch-intercepting service worker; install it as
// the transport of the application's HTTP client.
type Worker struct {
	// Wrapped is the transport used for live network calls. Defaults to
	// http.DefaultTransport.
	Wrapped http.RoundTripper

	// OpenQueue, when set, is called by Install to open the durable write
	// queue. A failed open degrades to a no-op queue rather than an error.
	OpenQueue func(ctx context.Context) (queue.Queue, error)

	cfg     CacheConfig
	cache   *partitions.Manager
	queue   queue.Queue
	router  *router
	fetcher *netFetcher
	logger  *slog.Logger
	now     func() time.Time

	wg sync.WaitGroup
}

// NewWorker creates an offline worker over the given partition store.
// If the 'opts' config is nil, DefaultConfig is used.
// If the 'now' function is nil, time.Now will be used as the default time provider.
// If the 'logger' is nil, a no-op logger writing to io.Discard will be used.
func NewWorker(store partitions.Store, opts *CacheConfig, now func() time.Time, logger *slog.Logger) *Worker {
	nowFunc := now
	if nowFunc == nil {
		nowFunc = time.Now
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	c := CacheConfig{}
	if opts == nil {
		c = DefaultConfig()
	} else {
		c = *opts
	}

	w := &Worker{
		cfg:    c,
		cache:  partitions.NewManager(store, nowFunc, logger),
		queue:  queue.Unavailable(),
		router: newRouter(c),
		logger: logger,
		now:    nowFunc,
	}
	w.fetcher = newNetFetcher(roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return w.transport().RoundTrip(r)
	}), logger)

	return w
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func (w *Worker) transport() http.RoundTripper {
	if w.Wrapped != nil {
		return w.Wrapped
	}
	return http.DefaultTransport
}

// Queue returns the durable write queue, for the application's offline write
// path. Before Install has run (or when storage is unavailable) this is a
// no-op queue that drops writes.
func (w *Worker) Queue() queue.Queue {
	return w.queue
}

// RoundTrip implements http.RoundTripper. Non-GET and cross-origin requests
// pass through to the wrapped transport untouched. Intercepted requests are
// always answered: live network, cache, or a synthesized fallback, never a
// transport error.
func (w *Worker) RoundTrip(r *http.Request) (*http.Response, error) {
	if !w.router.intercepts(r) {
		return w.transport().RoundTrip(r)
	}

	ctx := r.Context()
	cl := w.router.classify(r)
	w.logger.DebugContext(ctx, "handling intercepted request",
		"url", r.URL.String(), "class", cl.String())

	switch cl {
	case classAPI:
		return w.handleAPI(r), nil
	case classLiveSession:
		return w.handleLiveSession(r), nil
	case classImage:
		return w.handleImage(r), nil
	default:
		return w.handleStatic(r), nil
	}
}

// Install pre-populates the static partition from the configured manifest,
// warms the api partition with the one known-important dataset, and opens the
// durable write queue. Every step is best effort: a manifest URL that fails
// to fetch is logged and skipped, and a queue that cannot be opened degrades
// to a no-op.
func (w *Worker) Install(ctx context.Context) {
	staticPart := w.cfg.Partition(PartitionStatic)

	g, gctx := errgroup.WithContext(ctx)
	for _, path := range w.cfg.Manifest {
		path := path
		g.Go(func() error {
			w.precache(gctx, staticPart, path)
			return nil
		})
	}
	_ = g.Wait()

	if w.cfg.WarmupURL != "" {
		w.precache(ctx, w.cfg.Partition(PartitionAPI), w.cfg.WarmupURL)
	}

	if w.OpenQueue != nil {
		q, err := w.OpenQueue(ctx)
		if err != nil {
			w.logger.WarnContext(ctx, "write queue unavailable, offline writes will be dropped", "error", err)
			q = queue.Unavailable()
		}
		w.queue = q
	}
}

func (w *Worker) precache(ctx context.Context, partition, path string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.cfg.Origin+path, nil)
	if err != nil {
		w.logger.WarnContext(ctx, "error building precache request", "path", path, "error", err)
		return
	}

	resp, err := w.fetcher.fetch(ctx, req, w.cfg.FetchTimeout)
	if err != nil {
		w.logger.WarnContext(ctx, "error precaching resource", "path", path, "error", err)
		return
	}
	if resp.StatusCode != http.StatusOK {
		w.logger.WarnContext(ctx, "precache fetch returned non-200, skipping",
			"path", path, "status", resp.StatusCode)
		return
	}

	w.putResponse(ctx, partition, path, resp)
}

// Activate retires the previous cache generation: every partition whose name
// does not carry the current version tag is deleted wholesale, then one
// expired-entry sweep runs across the TTL-bearing partitions.
func (w *Worker) Activate(ctx context.Context) {
	for _, name := range w.cache.Partitions(ctx) {
		if strings.Contains(name, w.cfg.Version) {
			continue
		}
		w.logger.DebugContext(ctx, "deleting stale cache generation", "partition", name)
		w.cache.DeletePartition(ctx, name)
	}

	w.SweepExpired(ctx)
}

// SweepExpired deletes every expired entry from the TTL-bearing partitions.
func (w *Worker) SweepExpired(ctx context.Context) {
	sweeps := []struct {
		name string
		ttl  time.Duration
	}{
		{PartitionAPI, w.cfg.TTLs.API},
		{PartitionStatic, w.cfg.TTLs.Static},
		{PartitionImages, w.cfg.TTLs.Images},
	}

	now := w.now()
	for _, s := range sweeps {
		part := w.cfg.Partition(s.name)
		for _, key := range w.cache.Keys(ctx, part) {
			entry, ok := w.cache.Match(ctx, part, key)
			if !ok {
				continue
			}
			if IsExpired(entry, s.ttl, now) {
				w.cache.Delete(ctx, part, key)
			}
		}
	}
}

// StartSweeper runs SweepExpired on an interval until ctx is done. A
// non-positive interval uses partitions.DefaultSweepInterval.
func (w *Worker) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = partitions.DefaultSweepInterval
	}

	go func() {
		t := time.NewTimer(interval)
		defer t.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				w.SweepExpired(ctx)
				_ = t.Reset(interval)
			}
		}
	}()
}

// HandleMessage dispatches one control message. Unknown message types are
// ignored.
func (w *Worker) HandleMessage(ctx context.Context, msg Message) {
	switch msg.Type {
	case MessageSkipWaiting:
		w.Activate(ctx)
	case MessageCacheWorkout:
		w.cacheWorkout(ctx, msg.Workout)
	case MessageSyncRequest:
		w.Sync(ctx, msg.Tag)
	default:
		w.logger.DebugContext(ctx, "ignoring unknown message", "type", msg.Type)
	}
}

// cacheWorkout writes a workout payload directly into the workout-data
// partition with a fresh timestamp, keyed the same way a live-session fetch
// for it would be.
func (w *Worker) cacheWorkout(ctx context.Context, workout json.RawMessage) {
	var meta struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(workout, &meta); err != nil || meta.ID == "" {
		w.logger.WarnContext(ctx, "ignoring cache-workout message without usable id", "error", err)
		return
	}

	header := make(http.Header)
	header.Set(headerContentType, "application/json")

	w.cache.Put(ctx, w.cfg.Partition(PartitionWorkoutData), w.cfg.LiveSessionPathToken+meta.ID, &partitions.Entry{
		StatusCode: http.StatusOK,
		Header:     header,
		Body:       workout,
	})
}

// Close waits for in-flight background refreshes to settle.
func (w *Worker) Close() error {
	w.wg.Wait()
	return nil
}
