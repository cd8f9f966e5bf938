package offlinecache

import "time"

// Partition base names. The running configuration derives the versioned
// storage name for each (eg. "static-v4") so a deploy can retire an entire
// cache generation at activation time.
const (
	PartitionStatic      = "static"
	PartitionDynamic     = "dynamic"
	PartitionImages      = "images"
	PartitionAPI         = "api"
	PartitionWorkoutData = "workout-data"
)

// TTLConfig holds the maximum age per partition class. A zero duration means
// the partition is never swept by age; its entries are retired only at
// version cutover.
type TTLConfig struct {
	Static      time.Duration
	Images      time.Duration
	API         time.Duration
	WorkoutData time.Duration
}

// CacheConfig is the complete configuration of the offline worker,
// constructed once at startup and threaded through every component. There is
// no ambient global state; two workers with different configs can coexist in
// one process.
type CacheConfig struct {
	// Version tags the current cache generation. Partitions whose stored
	// name does not contain this tag are deleted at activation.
	Version string

	// Origin is the scheme and host this worker considers its own, eg.
	// "https://app.example.com". Requests to any other origin pass through
	// uncached.
	Origin string

	// Manifest lists the critical URLs pre-populated into the static
	// partition at install time. It must include OfflineFallback.
	Manifest []string

	// OfflineFallback is the path of the pre-cached page served for
	// document requests when both network and cache miss.
	OfflineFallback string

	// EssentialEndpoints is the allow-list of API endpoints that are cached
	// and served stale-while-revalidate. Matching is a substring check
	// against the full request URL, matching the reference behavior.
	EssentialEndpoints []string

	// WarmupURL is the one known-important dataset fetched into the api
	// partition at install time.
	WarmupURL string

	// APIPathToken and LiveSessionPathToken drive request classification.
	// APIPathToken is checked first, so an API route nested under the live
	// session path still classifies as api.
	APIPathToken         string
	LiveSessionPathToken string

	// WorkoutCompleteEndpoint and SetCompleteEndpoint are the POST targets
	// drained to by the synchronization engine.
	WorkoutCompleteEndpoint string
	SetCompleteEndpoint     string

	// FetchTimeout bounds one network attempt. LiveFetchTimeout is the
	// shorter bound used for live workout sessions, where a stale answer
	// beats a slow one.
	FetchTimeout     time.Duration
	LiveFetchTimeout time.Duration

	// TTLs are the per-partition maximum entry ages.
	TTLs TTLConfig
}

// Partition returns the versioned storage name for a partition base name.
func (c CacheConfig) Partition(name string) string {
	return name + "-" + c.Version
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() CacheConfig {
	return CacheConfig{
		Version:         "v4",
		Manifest:        []string{"/", "/offline", "/dashboard", "/manifest.json", "/icons/icon-192.png", "/icons/icon-512.png"},
		OfflineFallback: "/offline",
		EssentialEndpoints: []string{
			"/api/workouts",
			"/api/exercises",
			"/api/groups",
			"/api/users",
			"/api/analytics",
			"/api/assignments",
		},
		WarmupURL:               "/api/workouts",
		APIPathToken:            "/api/",
		LiveSessionPathToken:    "/workouts/live/",
		WorkoutCompleteEndpoint: "/api/workouts/complete",
		SetCompleteEndpoint:     "/api/sets/complete",
		FetchTimeout:            5 * time.Second,
		LiveFetchTimeout:        3 * time.Second,
		TTLs: TTLConfig{
			Static:      7 * 24 * time.Hour,
			Images:      30 * 24 * time.Hour,
			API:         5 * time.Minute,
			WorkoutData: 24 * time.Hour,
		},
	}
}
