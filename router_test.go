package offlinecache

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testRequest(t *testing.T, method, url, dest string) *http.Request {
	t.Helper()

	req := httptest.NewRequest(method, url, nil)
	if dest != "" {
		req.Header.Set(headerFetchDest, dest)
	}
	return req
}

func TestRouterClassify(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Origin = "https://app.example.com"
	ro := newRouter(cfg)

	tests := []struct {
		name     string
		url      string
		dest     string
		expected class
	}{
		{
			name:     "api path",
			url:      "https://app.example.com/api/workouts",
			expected: classAPI,
		},
		{
			name:     "live session path",
			url:      "https://app.example.com/workouts/live/abc123",
			expected: classLiveSession,
		},
		{
			name:     "api nested under live session path resolves to api",
			url:      "https://app.example.com/workouts/live/api/state",
			expected: classAPI,
		},
		{
			name:     "image destination",
			url:      "https://app.example.com/media/logo.png",
			dest:     destImage,
			expected: classImage,
		},
		{
			name:     "api path wins over image destination",
			url:      "https://app.example.com/api/avatar.png",
			dest:     destImage,
			expected: classAPI,
		},
		{
			name:     "everything else is static",
			url:      "https://app.example.com/dashboard",
			dest:     destDocument,
			expected: classStatic,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := testRequest(t, http.MethodGet, tt.url, tt.dest)
			assert.Equal(t, tt.expected, ro.classify(req))
		})
	}
}

func TestRouterIntercepts(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Origin = "https://app.example.com"
	ro := newRouter(cfg)

	tests := []struct {
		name       string
		method     string
		url        string
		intercepts bool
	}{
		{
			name:       "same origin GET",
			method:     http.MethodGet,
			url:        "https://app.example.com/api/workouts",
			intercepts: true,
		},
		{
			name:       "POST passes through",
			method:     http.MethodPost,
			url:        "https://app.example.com/api/workouts/complete",
			intercepts: false,
		},
		{
			name:       "cross origin passes through",
			method:     http.MethodGet,
			url:        "https://cdn.example.net/lib.js",
			intercepts: false,
		},
		{
			name:       "same host different scheme passes through",
			method:     http.MethodGet,
			url:        "http://app.example.com/",
			intercepts: false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := testRequest(t, tt.method, tt.url, "")
			assert.Equal(t, tt.intercepts, ro.intercepts(req))
		})
	}
}
