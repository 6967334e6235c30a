package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	statusResolved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mdining",
			Name:      "status_resolved_total",
			Help:      "Count of venue statuses resolved by state.",
		},
		[]string{"state"},
	)

	itemsFiltered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mdining",
			Name:      "items_filtered_total",
			Help:      "Count of menu items evaluated by the filter engine.",
		},
	)

	capacityFetch = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mdining",
			Name:      "capacity_fetch_total",
			Help:      "Count of capacity feed lookups by result.",
		},
		[]string{"result"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mdining",
			Name:      "http_requests_total",
			Help:      "Count of API requests by endpoint and status code.",
		},
		[]string{"endpoint", "code"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(statusResolved, itemsFiltered, capacityFetch, httpRequests)
	})
}

func IncStatusResolved(state string) {
	statusResolved.WithLabelValues(state).Inc()
}

func AddItemsFiltered(n int) {
	itemsFiltered.Add(float64(n))
}

// Capacity fetch results.
const (
	CapacityHit   = "cache_hit"
	CapacityFetch = "fetched"
	CapacityError = "error"
)

func IncCapacityFetch(result string) {
	capacityFetch.WithLabelValues(result).Inc()
}

func IncHTTPRequest(endpoint string, code int) {
	httpRequests.WithLabelValues(endpoint, codeLabel(code)).Inc()
}

func codeLabel(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
