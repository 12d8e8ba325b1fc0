// Package metrics exposes Prometheus instrumentation for the ledger.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ExpensesCreated counts first-time inserts (replayed=false responses).
	ExpensesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kharcha_expenses_created_total",
		Help: "Number of expense records created.",
	})

	// ExpensesReplayed counts idempotent replays, including those resolved
	// after losing an insert race.
	ExpensesReplayed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kharcha_expenses_replayed_total",
		Help: "Number of create requests answered from an existing record.",
	})

	// InsertConflicts counts unique-constraint conflicts resolved by re-read.
	InsertConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kharcha_insert_conflicts_total",
		Help: "Number of concurrent duplicate submissions that lost the insert race.",
	})

	// HTTPDuration observes request latency per route and status class.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kharcha_http_request_duration_seconds",
		Help:    "HTTP request duration.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)

// Handler returns the /metrics scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
