package discovery

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics for monitoring discovery runs themselves.
var (
	runDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "ambari_inventory",
			Name:      "discovery_duration_seconds",
			Help:      "Duration of full topology discovery runs",
			Buckets:   prometheus.DefBuckets,
		},
	)

	runErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ambari_inventory",
			Name:      "discovery_errors_total",
			Help:      "Total number of failed discovery runs",
		},
	)

	hostsDiscovered = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ambari_inventory",
			Name:      "hosts_discovered",
			Help:      "Number of hosts found by the most recent discovery run",
		},
	)

	servicesDiscovered = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ambari_inventory",
			Name:      "services_discovered",
			Help:      "Number of services found by the most recent discovery run",
		},
	)
)

func init() {
	prometheus.MustRegister(runDuration)
	prometheus.MustRegister(runErrors)
	prometheus.MustRegister(hostsDiscovered)
	prometheus.MustRegister(servicesDiscovered)
}
