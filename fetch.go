package offlinecache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// errNetworkUnavailable is what strategies see after the fetcher has
// exhausted its attempts. It is never surfaced past the worker boundary; the
// strategies translate it into a cached or synthesized response.
var errNetworkUnavailable = errors.New("network unavailable")

const fetchAttempts = 3

// backoffDelays are the waits between attempts: 1s after the first failure,
// 2s after the second.
var backoffDelays = []time.Duration{time.Second, 2 * time.Second}

// netFetcher is the timeout-guarded fetch primitive shared by every retrieval
// strategy. Each attempt runs under its own deadline; a timed-out attempt is
// abandoned (the underlying connection is left to the transport) and the
// fetcher moves on to the backoff and the next attempt.
//
// The retry loop is an explicit bounded loop with an injectable sleep so the
// attempt count and delay sequence are testable.
type netFetcher struct {
	transport http.RoundTripper
	sleep     func(ctx context.Context, d time.Duration) error
	logger    *slog.Logger
}

func newNetFetcher(transport http.RoundTripper, logger *slog.Logger) *netFetcher {
	return &netFetcher{
		transport: transport,
		sleep:     sleepContext,
		logger:    logger,
	}
}

// fetch performs up to fetchAttempts network attempts, each bounded by
// timeout. On success the response body is fully buffered, so the caller can
// cache it and re-serve it without worrying about the attempt's deadline.
func (f *netFetcher) fetch(ctx context.Context, r *http.Request, timeout time.Duration) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt < fetchAttempts; attempt++ {
		if attempt > 0 {
			if err := f.sleep(ctx, backoffDelays[attempt-1]); err != nil {
				return nil, fmt.Errorf("%w: %w", errNetworkUnavailable, err)
			}
		}

		resp, err := f.attempt(ctx, r, timeout)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		f.logger.DebugContext(ctx, "fetch attempt failed",
			"url", r.URL.String(), "attempt", attempt+1, "error", err)
	}

	return nil, fmt.Errorf("%w: %w", errNetworkUnavailable, lastErr)
}

func (f *netFetcher) attempt(ctx context.Context, r *http.Request, timeout time.Duration) (*http.Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := f.transport.RoundTrip(r.Clone(attemptCtx))
	if err != nil {
		return nil, err
	}

	// Buffer the body before the attempt deadline is released.
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))

	return resp, nil
}

// sleepContext waits for d or until ctx is done, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
