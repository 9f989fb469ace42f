package storefront

import "github.com/prometheus/client_golang/prometheus"

var (
	activeSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "storefront_active_sessions",
		Help: "Number of storefront sessions held in memory.",
	})

	sessionsEvicted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storefront_sessions_evicted_total",
		Help: "Total number of idle storefront sessions evicted from memory.",
	})

	cartOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_cart_operations_total",
		Help: "Total number of cart operations by kind.",
	}, []string{"operation"})

	checkouts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storefront_checkouts_total",
		Help: "Total number of completed checkouts.",
	})
)

func init() {
	prometheus.MustRegister(activeSessions, sessionsEvicted, cartOperations, checkouts)
}
