package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	entryUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "overdesk",
			Name:      "entry_updates_total",
			Help:      "Count of entry update attempts by outcome.",
		},
		[]string{"outcome"},
	)

	vendorRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "overdesk",
			Name:      "vendor_requests_total",
			Help:      "Count of vendor API calls by operation and outcome.",
		},
		[]string{"op", "outcome"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "overdesk",
			Name:      "http_requests_total",
			Help:      "Count of console API requests by handler.",
		},
		[]string{"handler"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(entryUpdates, vendorRequests, httpRequests)
	})
}

func IncEntryUpdate(outcome string) {
	entryUpdates.WithLabelValues(outcome).Inc()
}

func IncVendorRequest(op, outcome string) {
	vendorRequests.WithLabelValues(op, outcome).Inc()
}

func IncHTTP(handler string) {
	httpRequests.WithLabelValues(handler).Inc()
}
