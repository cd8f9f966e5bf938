package offlinecache

import (
	"net/http"
	"net/url"
	"strings"
)

// class is the handling strategy a request resolves to.
type class int

const (
	classAPI class = iota
	classLiveSession
	classImage
	classStatic
)

func (c class) String() string {
	switch c {
	case classAPI:
		return "api"
	case classLiveSession:
		return "live-session"
	case classImage:
		return "image"
	default:
		return "static"
	}
}

const (
	headerFetchDest = "Sec-Fetch-Dest"

	destImage    = "image"
	destDocument = "document"
)

// rule is one (predicate, class) pair. Rules are evaluated in slice order, so
// precedence is explicit: the api token wins over the live-session token even
// for an API route nested under the live-session path.
type rule struct {
	name    string
	class   class
	matches func(r *http.Request) bool
}

type router struct {
	origin *url.URL
	rules  []rule
}

func newRouter(c CacheConfig) *router {
	origin, _ := url.Parse(c.Origin)

	return &router{
		origin: origin,
		rules: []rule{
			{
				name:  "api path",
				class: classAPI,
				matches: func(r *http.Request) bool {
					return strings.Contains(r.URL.Path, c.APIPathToken)
				},
			},
			{
				name:  "live session path",
				class: classLiveSession,
				matches: func(r *http.Request) bool {
					return strings.Contains(r.URL.Path, c.LiveSessionPathToken)
				},
			},
			{
				name:  "image destination",
				class: classImage,
				matches: func(r *http.Request) bool {
					return r.Header.Get(headerFetchDest) == destImage
				},
			},
			{
				name:    "static",
				class:   classStatic,
				matches: func(*http.Request) bool { return true },
			},
		},
	}
}

// intercepts reports whether the worker handles this request at all. Non-GET
// and cross-origin requests always pass through untouched.
func (ro *router) intercepts(r *http.Request) bool {
	if r.Method != http.MethodGet {
		return false
	}
	return ro.sameOrigin(r.URL)
}

func (ro *router) sameOrigin(u *url.URL) bool {
	if u.Host == "" {
		// Relative request URL, same origin by construction.
		return true
	}
	if ro.origin == nil || ro.origin.Host == "" {
		return false
	}
	return u.Scheme == ro.origin.Scheme && u.Host == ro.origin.Host
}

// classify resolves an intercepted request to exactly one class.
func (ro *router) classify(r *http.Request) class {
	for _, rule := range ro.rules {
		if rule.matches(r) {
			return rule.class
		}
	}
	return classStatic
}

func isDocument(r *http.Request) bool {
	return r.Header.Get(headerFetchDest) == destDocument
}
