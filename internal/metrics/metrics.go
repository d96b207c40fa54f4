// Package metrics declares the Prometheus collectors for the catalog client
// and the user-data synchronizer. Collectors are registered on the default
// registry and exposed by the composition root when METRICS_ADDR is set.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CatalogRequests counts catalog attempts by endpoint and outcome
	// (success, transport, server, decode, rejected).
	CatalogRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_requests_total",
			Help: "Total number of catalog request attempts",
		},
		[]string{"endpoint", "outcome"},
	)

	CatalogRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_retries_total",
			Help: "Total number of catalog retries after a failed attempt",
		},
		[]string{"endpoint"},
	)

	CatalogRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_request_duration_seconds",
			Help:    "Catalog request attempt duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"endpoint"},
	)

	// CircuitBreakerState is 0 closed, 1 half-open, 2 open
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "catalog_circuit_breaker_state",
			Help: "Current catalog circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	DocumentStoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "document_store_errors_total",
			Help: "Total number of failed document store operations",
		},
		[]string{"operation"},
	)

	// FavoriteReconciliations counts reconcile passes (in_sync, repaired)
	FavoriteReconciliations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "favorite_reconciliations_total",
			Help: "Total number of favorite reconciliation passes by outcome",
		},
		[]string{"outcome"},
	)
)
