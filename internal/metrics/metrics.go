// Package metrics exposes the Prometheus instruments shared across the
// ingestion pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PackagesIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "packages_ingested",
		Help: "Total number of packages ingested",
	})

	PackagesInQueue = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "packages_in_queue",
		Help: "Packages that are currently waiting to be scanned. Includes queued and pending packages.",
	})

	PackagesSuccess = promauto.NewCounter(prometheus.CounterOpts{
		Name: "packages_success",
		Help: "Number of packages scanned successfully",
	})

	PackagesFail = promauto.NewCounter(prometheus.CounterOpts{
		Name: "packages_fail",
		Help: "Number of packages that failed scanning",
	})

	PackagesReported = promauto.NewCounter(prometheus.CounterOpts{
		Name: "packages_reported",
		Help: "Number of packages reported",
	})
)
