package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// AcquireCounter tracks successful lock acquisitions.
	AcquireCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "redlock_acquired_total",
		Help: "Total number of successful lock acquisitions",
	})
	// ContendedCounter tracks acquisitions that gave up because the key was held.
	ContendedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "redlock_contended_total",
		Help: "Total number of acquisitions that found the lock held",
	})
	// AcquireErrorCounter tracks acquisitions aborted by a store error.
	AcquireErrorCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "redlock_acquire_errors_total",
		Help: "Total number of acquisitions aborted by a store error",
	})
	// ReleaseCounter tracks successful releases.
	ReleaseCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "redlock_released_total",
		Help: "Total number of successful lock releases",
	})
	// AutoReleaseFailureCounter tracks scope-end releases that failed and were
	// only logged.
	AutoReleaseFailureCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "redlock_auto_release_failures_total",
		Help: "Total number of failed scope-end release attempts",
	})
)

// NewRegistry creates a new Prometheus registry.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// RegisterCoreMetrics registers the lock metrics on the provided registry.
func RegisterCoreMetrics(reg prometheus.Registerer) {
	reg.MustRegister(
		AcquireCounter,
		ContendedCounter,
		AcquireErrorCounter,
		ReleaseCounter,
		AutoReleaseFailureCounter,
	)
}
