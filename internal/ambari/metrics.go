package ambari

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metrics for the Ambari API client.
var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ambari_inventory",
			Name:      "api_requests_total",
			Help:      "Total number of Ambari API requests issued, by operation",
		},
		[]string{"operation"},
	)

	requestErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ambari_inventory",
			Name:      "api_request_errors_total",
			Help:      "Total number of failed Ambari API requests, by operation",
		},
		[]string{"operation"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ambari_inventory",
			Name:      "api_request_duration_seconds",
			Help:      "Duration of Ambari API requests, by operation",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// init registers all Prometheus metrics
func init() {
	prometheus.MustRegister(requestsTotal)
	prometheus.MustRegister(requestErrors)
	prometheus.MustRegister(requestDuration)
}
