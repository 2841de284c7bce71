package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hostsweep",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	syncRuns = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "hostsweep",
			Name:      "sync_runs_total",
			Help:      "Sync passes executed.",
		},
	)

	listingResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hostsweep",
			Name:      "listing_sync_results_total",
			Help:      "Per-listing sync outcomes by status.",
		},
		[]string{"status"},
	)

	itemOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hostsweep",
			Name:      "schedule_item_ops_total",
			Help:      "Schedule item mutations applied by operation.",
		},
		[]string{"op"},
	)

	feedFetchErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "hostsweep",
			Name:      "feed_fetch_errors_total",
			Help:      "Calendar feed fetches that failed.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, syncRuns, listingResults, itemOps, feedFetchErrors)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncSyncRun counts a completed sync pass.
func IncSyncRun() {
	syncRuns.Inc()
}

// IncListingResult counts one listing's outcome: success, error or skipped.
func IncListingResult(status string) {
	listingResults.WithLabelValues(status).Inc()
}

// AddItemOps counts applied item mutations for an operation label.
func AddItemOps(op string, n int) {
	if n > 0 {
		itemOps.WithLabelValues(op).Add(float64(n))
	}
}

// IncFeedFetchError counts a failed calendar feed fetch.
func IncFeedFetchError() {
	feedFetchErrors.Inc()
}
