package offlinecache

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/dhowell/go-offline-cache/partitions"
)

const headerContentType = "Content-Type"

const (
	bodyNetworkUnavailable = `{"error":"Network unavailable"}`
	bodyOffline            = `{"error":"Offline"}`
	bodyOfflineText        = "Offline"
)

// offlineSessionBody is the placeholder served when a live workout session is
// requested with no network and no cached copy.
var offlineSessionBody = []byte(`{"id":"offline-session","workout":{"name":"Offline Workout","exercises":[]},"offline":true,"message":"This is an offline workout session. Your progress will sync when you're back online."}`)

// cacheKey canonicalizes a request to its origin-relative URL, so a manifest
// path pre-cached at install time matches the same path requested later.
func cacheKey(r *http.Request) string {
	return r.URL.RequestURI()
}

// handleAPI serves API requests. Endpoints outside the essential allow-list
// are network-only. Essential endpoints are stale-while-revalidate: a fresh
// cached entry is returned immediately while a background refresh updates the
// api partition for next time; without a fresh entry the caller waits for the
// network and degrades through stale cache to a synthesized 503.
func (w *Worker) handleAPI(r *http.Request) *http.Response {
	ctx := r.Context()

	if !w.isEssential(r.URL.String()) {
		resp, err := w.fetcher.fetch(ctx, r, w.cfg.FetchTimeout)
		if err != nil {
			return synthJSON(http.StatusServiceUnavailable, []byte(bodyNetworkUnavailable), r)
		}
		return resp
	}

	part := w.cfg.Partition(PartitionAPI)
	key := cacheKey(r)

	entry, found := w.cache.Match(ctx, part, key)
	result := w.revalidate(r, part, key)

	if found && !IsExpired(entry, w.cfg.TTLs.API, w.now()) {
		w.logger.DebugContext(ctx, "serving fresh cached api response", "key", key)
		return entryResponse(entry, r)
	}

	res := <-result
	if res.err == nil {
		return res.resp
	}
	if found {
		w.logger.DebugContext(ctx, "network down, serving stale api response", "key", key)
		return entryResponse(entry, r)
	}
	return synthJSON(http.StatusServiceUnavailable, []byte(bodyOffline), r)
}

// handleLiveSession serves live workout sessions network-first with the
// shorter timeout. A live answer is written through to the workout-data
// partition; without network the cached session is served, and with no cache
// either, a placeholder offline session.
func (w *Worker) handleLiveSession(r *http.Request) *http.Response {
	ctx := r.Context()
	part := w.cfg.Partition(PartitionWorkoutData)
	key := cacheKey(r)

	resp, err := w.fetcher.fetch(ctx, r, w.cfg.LiveFetchTimeout)
	if err == nil {
		if resp.StatusCode == http.StatusOK {
			w.putResponse(ctx, part, key, resp)
		}
		return resp
	}

	if entry, found := w.cache.Match(ctx, part, key); found {
		w.logger.DebugContext(ctx, "network down, serving cached live session", "key", key)
		return entryResponse(entry, r)
	}

	w.logger.DebugContext(ctx, "network down and no cached session, serving offline placeholder", "key", key)
	return synthJSON(http.StatusOK, offlineSessionBody, r)
}

// handleImage serves images cache-first. An expired entry still beats no
// image at all, so total network failure falls back to stale cache before the
// final empty 404.
func (w *Worker) handleImage(r *http.Request) *http.Response {
	ctx := r.Context()
	part := w.cfg.Partition(PartitionImages)
	key := cacheKey(r)

	entry, found := w.cache.Match(ctx, part, key)
	if found && !IsExpired(entry, w.cfg.TTLs.Images, w.now()) {
		return entryResponse(entry, r)
	}

	resp, err := w.fetcher.fetch(ctx, r, w.cfg.FetchTimeout)
	if err == nil {
		if resp.StatusCode == http.StatusOK {
			w.putResponse(ctx, part, key, resp)
		}
		return resp
	}

	if found {
		return entryResponse(entry, r)
	}
	return emptyResponse(http.StatusNotFound, r)
}

// handleStatic serves everything else cache-first. For document requests the
// final fallback is the pre-cached offline page; anything else gets a plain
// 503.
func (w *Worker) handleStatic(r *http.Request) *http.Response {
	ctx := r.Context()
	part := w.cfg.Partition(PartitionStatic)
	key := cacheKey(r)

	entry, found := w.cache.Match(ctx, part, key)
	if found && !IsExpired(entry, w.cfg.TTLs.Static, w.now()) {
		return entryResponse(entry, r)
	}

	resp, err := w.fetcher.fetch(ctx, r, w.cfg.FetchTimeout)
	if err == nil {
		if resp.StatusCode == http.StatusOK {
			w.putResponse(ctx, part, key, resp)
		}
		return resp
	}

	if found {
		return entryResponse(entry, r)
	}

	if isDocument(r) {
		if offline, ok := w.cache.Match(ctx, part, w.cfg.OfflineFallback); ok {
			w.logger.DebugContext(ctx, "serving offline fallback page", "key", key)
			return entryResponse(offline, r)
		}
	}
	return textResponse(http.StatusServiceUnavailable, bodyOfflineText, r)
}

// isEssential reports whether the URL names an allow-listed API endpoint.
// The match is a substring check against the full URL, preserving the
// reference classification.
func (w *Worker) isEssential(url string) bool {
	for _, endpoint := range w.cfg.EssentialEndpoints {
		if strings.Contains(url, endpoint) {
			return true
		}
	}
	return false
}

type fetchResult struct {
	resp *http.Response
	err  error
}

// revalidate starts the background refresh for a stale-while-revalidate read.
// The refresh outlives the caller's request context; a 200 answer is written
// through to the partition whether or not the caller is still waiting.
func (w *Worker) revalidate(r *http.Request, partition, key string) <-chan fetchResult {
	ch := make(chan fetchResult, 1)

	bgCtx := context.WithoutCancel(r.Context())
	req := r.Clone(bgCtx)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		resp, err := w.fetcher.fetch(bgCtx, req, w.cfg.FetchTimeout)
		if err == nil && resp.StatusCode == http.StatusOK {
			w.putResponse(bgCtx, partition, key, resp)
		}
		ch <- fetchResult{resp: resp, err: err}
	}()

	return ch
}

// putResponse stores a buffered response into a partition and rewinds the
// body so the response can still be returned to the caller.
func (w *Worker) putResponse(ctx context.Context, partition, key string, resp *http.Response) {
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		w.logger.WarnContext(ctx, "error buffering response for cache", "key", key, "error", err)
		resp.Body = io.NopCloser(bytes.NewReader(nil))
		return
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	w.cache.Put(ctx, partition, key, &partitions.Entry{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	})
}

func entryResponse(e *partitions.Entry, r *http.Request) *http.Response {
	return &http.Response{
		Status:        http.StatusText(e.StatusCode),
		StatusCode:    e.StatusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        e.Header,
		Body:          io.NopCloser(bytes.NewReader(e.Body)),
		ContentLength: int64(len(e.Body)),
		Request:       r,
	}
}

func synthJSON(status int, body []byte, r *http.Request) *http.Response {
	resp := synthResponse(status, body, r)
	resp.Header.Set(headerContentType, "application/json")
	return resp
}

func textResponse(status int, body string, r *http.Request) *http.Response {
	resp := synthResponse(status, []byte(body), r)
	resp.Header.Set(headerContentType, "text/plain")
	return resp
}

func emptyResponse(status int, r *http.Request) *http.Response {
	return synthResponse(status, nil, r)
}

func synthResponse(status int, body []byte, r *http.Request) *http.Response {
	return &http.Response{
		Status:        http.StatusText(status),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        make(http.Header),
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       r,
	}
}
